// Package chat manages live conversations: per-session transcript state,
// the submit/generate cycle and event fan-out to attached views.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned for unknown or deleted session ids.
var ErrSessionNotFound = errors.New("session not found")

// Options tunes sessions created by a Service.
type Options struct {
	// Timeout bounds each generation call. Zero means no limit.
	Timeout time.Duration
	// Now overrides the clock used for turn timestamps.
	Now func() time.Time
}

// Service is the in-memory registry of live sessions.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	generator Generator
	events    *Broadcaster
	logger    *slog.Logger
	opts      Options
}

// NewService wires a generator into a fresh registry.
func NewService(generator Generator, logger *slog.Logger, opts Options) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		sessions:  make(map[string]*Session),
		generator: generator,
		events:    NewBroadcaster(logger),
		logger:    logger.With("component", "chat"),
		opts:      opts,
	}
}

// CreateSession provisions an initialized session.
func (s *Service) CreateSession(_ context.Context) (*Session, error) {
	if s.generator == nil {
		return nil, errors.New("generator is not configured")
	}

	session := newSession(uuid.NewString(), s.generator, s.events, s.logger, s.opts.Now, s.opts.Timeout)
	session.Initialize()

	s.mu.Lock()
	s.sessions[session.ID()] = session
	s.mu.Unlock()

	s.logger.Info("session created", "session_id", session.ID())
	return session, nil
}

// GetSession retrieves a live session.
func (s *Service) GetSession(_ context.Context, sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// DeleteSession forgets a session and disconnects its subscribers. An
// outstanding call finishes in the background and is discarded.
func (s *Service) DeleteSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	_, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	s.events.CloseSession(sessionID)
	s.logger.Info("session deleted", "session_id", sessionID)
	return nil
}

// Len reports the number of live sessions.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close disconnects every subscriber.
func (s *Service) Close() {
	s.events.Close()
}
