// Package view shapes transcript state for the HTTP, SSE and WebSocket
// surfaces, adding rendered HTML next to the raw Markdown.
package view

import (
	"log/slog"
	"time"

	"github.com/zhouzirui/wp-fixit/backend/internal/model/chat"
	"github.com/zhouzirui/wp-fixit/backend/internal/render"
)

// Citation is a source link ready for display.
type Citation struct {
	URL          string `json:"url"`
	Title        string `json:"title,omitempty"`
	DisplayTitle string `json:"displayTitle"`
}

// Turn is a transcript entry as sent to clients.
type Turn struct {
	ID        string       `json:"id"`
	Speaker   chat.Speaker `json:"speaker"`
	Text      string       `json:"text"`
	HTML      string       `json:"html,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	Citations []Citation   `json:"citations,omitempty"`
}

// Snapshot mirrors chat.Snapshot.
type Snapshot struct {
	ID      string `json:"id"`
	Turns   []Turn `json:"turns"`
	Pending bool   `json:"pending"`
	Draft   string `json:"draft"`
}

// Event mirrors chat.Event.
type Event struct {
	Kind      chat.EventKind `json:"kind"`
	SessionID string         `json:"sessionId"`
	Turn      *Turn          `json:"turn,omitempty"`
	Snapshot  Snapshot       `json:"snapshot"`
}

// Presenter converts domain values to views.
type Presenter struct {
	md     *render.Markdown
	logger *slog.Logger
}

// NewPresenter renders assistant Markdown with md.
func NewPresenter(md *render.Markdown, logger *slog.Logger) *Presenter {
	if md == nil {
		md = render.NewMarkdown()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Presenter{md: md, logger: logger.With("component", "view")}
}

// Turn converts one turn. Only assistant turns carry HTML.
func (p *Presenter) Turn(t chat.Turn) Turn {
	out := Turn{
		ID:        t.ID,
		Speaker:   t.Speaker,
		Text:      t.Text,
		CreatedAt: t.CreatedAt,
	}
	if t.Speaker == chat.SpeakerAssistant {
		html, err := p.md.HTML(t.Text)
		if err != nil {
			p.logger.Warn("markdown render failed", "turn_id", t.ID, "error", err)
		}
		out.HTML = html
	}
	for _, c := range t.Citations {
		out.Citations = append(out.Citations, Citation{URL: c.URL, Title: c.Title, DisplayTitle: c.DisplayTitle()})
	}
	return out
}

// Snapshot converts a session snapshot.
func (p *Presenter) Snapshot(s chat.Snapshot) Snapshot {
	turns := make([]Turn, 0, len(s.Turns))
	for _, t := range s.Turns {
		turns = append(turns, p.Turn(t))
	}
	return Snapshot{ID: s.ID, Turns: turns, Pending: s.Pending, Draft: s.Draft}
}

// Event converts a store event.
func (p *Presenter) Event(e chat.Event) Event {
	out := Event{Kind: e.Kind, SessionID: e.SessionID, Snapshot: p.Snapshot(e.Snapshot)}
	if e.Turn != nil {
		turn := p.Turn(*e.Turn)
		out.Turn = &turn
	}
	return out
}
