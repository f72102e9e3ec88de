package chat

import "time"

// Speaker identifies who authored a turn.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// ExtraCitationsKey is the schema.Message Extra key under which chat model
// adapters attach grounding citations ([]Citation).
const ExtraCitationsKey = "citations"

// Citation is a web reference reported by search-grounded generation.
type Citation struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// DisplayTitle falls back to a generic label when the source had no title.
func (c Citation) DisplayTitle() string {
	if c.Title == "" {
		return "Reference"
	}
	return c.Title
}

// Turn is one message of the transcript. Turns are never edited after creation.
type Turn struct {
	ID        string     `json:"id"`
	Speaker   Speaker    `json:"speaker"`
	Text      string     `json:"text"`
	CreatedAt time.Time  `json:"createdAt"`
	Citations []Citation `json:"citations,omitempty"`
}

// HistoryEntry is the reduced turn shape handed to the generation client.
type HistoryEntry struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// Reply is a successful generation result.
type Reply struct {
	Text      string     `json:"text"`
	Citations []Citation `json:"citations"`
}

// History reduces turns to speaker/text pairs, preserving order.
func History(turns []Turn) []HistoryEntry {
	if len(turns) == 0 {
		return nil
	}
	entries := make([]HistoryEntry, 0, len(turns))
	for _, t := range turns {
		entries = append(entries, HistoryEntry{Speaker: t.Speaker, Text: t.Text})
	}
	return entries
}
