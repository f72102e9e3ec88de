package chat

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/wp-fixit/backend/internal/model/chat"
	"github.com/zhouzirui/wp-fixit/backend/internal/model/preset"
)

const (
	// WelcomeMessage opens every transcript.
	WelcomeMessage = "Hello! I'm your WP-FixIt Assistant. 👋\n\nWordPress acting up? Whether it's a plugin conflict, a broken layout, or a login issue, I'm here to help you troubleshoot. What's happening with your site today?"
	// ErrorMessage replaces the reply when generation fails.
	ErrorMessage = "I encountered an error while trying to help. Please try again in a moment."
)

// Generator produces the assistant reply for a new user message.
type Generator interface {
	Generate(ctx context.Context, text string, history []chat.HistoryEntry) (chat.Reply, error)
}

// Session holds one conversation: the transcript, the pending flag and the
// input draft. At most one generation call is outstanding at a time.
type Session struct {
	id        string
	generator Generator
	events    *Broadcaster
	logger    *slog.Logger
	now       func() time.Time
	timeout   time.Duration

	mu      sync.Mutex
	turns   []chat.Turn
	pending bool
	draft   string
	// epoch advances on Initialize/Reset; replies from an older epoch are dropped.
	epoch uint64
	// call identifies the outstanding submission.
	call uint64
}

func newSession(id string, generator Generator, events *Broadcaster, logger *slog.Logger, now func() time.Time, timeout time.Duration) *Session {
	return &Session{
		id:        id,
		generator: generator,
		events:    events,
		logger:    logger.With("session_id", id),
		now:       now,
		timeout:   timeout,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Initialize puts the session into its start state: only the welcome turn,
// nothing pending, empty draft.
func (s *Session) Initialize() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns = []chat.Turn{s.newTurn(chat.SpeakerAssistant, WelcomeMessage, nil)}
	s.pending = false
	s.draft = ""
	s.epoch++
	s.publishLocked(chat.EventReset, nil)
}

// Reset truncates the transcript back to the initial welcome turn. An
// outstanding call still finishes and clears pending, but its reply is
// discarded.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.turns) == 0 {
		s.turns = []chat.Turn{s.newTurn(chat.SpeakerAssistant, WelcomeMessage, nil)}
	} else {
		s.turns = s.turns[:1:1]
	}
	s.epoch++
	s.publishLocked(chat.EventReset, nil)
	s.logger.Info("session reset", "pending", s.pending)
}

// SetDraft records the not-yet-submitted input.
func (s *Session) SetDraft(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.draft == text {
		return
	}
	s.draft = text
	s.publishLocked(chat.EventDraftChanged, nil)
}

// Snapshot returns a consistent copy of the session state.
func (s *Session) Snapshot() chat.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe streams events for this session until ctx is done.
func (s *Session) Subscribe(ctx context.Context) <-chan chat.Event {
	ch, _ := s.events.Subscribe(ctx, s.id)
	return ch
}

// Submit appends a user turn and starts generation. It returns false without
// touching state when text is blank or a call is already outstanding.
// The returned channel yields the resolved assistant turn exactly once.
//
// The call is detached from ctx cancellation: once sent it runs to completion.
func (s *Session) Submit(ctx context.Context, text string) (<-chan chat.Turn, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, false
	}

	s.mu.Lock()
	if s.pending {
		s.mu.Unlock()
		s.logger.Debug("submission dropped, request pending")
		return nil, false
	}

	history := chat.History(s.turns)
	userTurn := s.newTurn(chat.SpeakerUser, text, nil)
	s.turns = append(s.turns, userTurn)
	s.draft = ""
	s.pending = true
	s.call++
	epoch, call := s.epoch, s.call

	s.publishLocked(chat.EventTurnAppended, &userTurn)
	s.publishLocked(chat.EventPendingChanged, nil)
	s.mu.Unlock()

	done := make(chan chat.Turn, 1)
	go s.generate(context.WithoutCancel(ctx), epoch, call, text, history, done)
	return done, true
}

// SubmitPreset submits the canned text for a preset issue.
func (s *Session) SubmitPreset(ctx context.Context, issue preset.Issue) (<-chan chat.Turn, bool) {
	return s.Submit(ctx, issue.Prompt())
}

func (s *Session) generate(ctx context.Context, epoch, call uint64, text string, history []chat.HistoryEntry, done chan<- chat.Turn) {
	defer close(done)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	started := s.now()
	reply, err := s.generator.Generate(ctx, text, history)

	s.mu.Lock()
	var turn chat.Turn
	if err != nil {
		s.logger.Error("generation failed", "error", err, "elapsed", s.now().Sub(started))
		turn = s.newTurn(chat.SpeakerAssistant, ErrorMessage, nil)
	} else {
		turn = s.newTurn(chat.SpeakerAssistant, reply.Text, reply.Citations)
		s.logger.Info("reply received", "length", len(reply.Text), "citations", len(reply.Citations), "elapsed", s.now().Sub(started))
	}

	if s.epoch == epoch {
		s.turns = append(s.turns, turn)
		s.publishLocked(chat.EventTurnAppended, &turn)
	} else {
		s.logger.Info("reply discarded after reset")
	}
	if s.call == call && s.pending {
		s.pending = false
		s.publishLocked(chat.EventPendingChanged, nil)
	}
	s.mu.Unlock()

	done <- turn
}

func (s *Session) newTurn(speaker chat.Speaker, text string, citations []chat.Citation) chat.Turn {
	turn := chat.Turn{
		ID:        uuid.NewString(),
		Speaker:   speaker,
		Text:      text,
		CreatedAt: s.now(),
	}
	if len(citations) > 0 {
		turn.Citations = append([]chat.Citation(nil), citations...)
	}
	return turn
}

func (s *Session) snapshotLocked() chat.Snapshot {
	return chat.Snapshot{
		ID:      s.id,
		Turns:   append([]chat.Turn(nil), s.turns...),
		Pending: s.pending,
		Draft:   s.draft,
	}
}

// publishLocked must be called with s.mu held so events leave in mutation order.
func (s *Session) publishLocked(kind chat.EventKind, turn *chat.Turn) {
	if s.events == nil {
		return
	}
	s.events.Publish(chat.Event{
		Kind:      kind,
		SessionID: s.id,
		Turn:      turn,
		Snapshot:  s.snapshotLocked(),
	})
}
