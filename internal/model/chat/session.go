package chat

// Snapshot is a point-in-time copy of a conversation's state.
type Snapshot struct {
	ID      string `json:"id"`
	Turns   []Turn `json:"turns"`
	Pending bool   `json:"pending"`
	Draft   string `json:"draft"`
}

// Latest returns the most recent turn.
func (s Snapshot) Latest() (Turn, bool) {
	if len(s.Turns) == 0 {
		return Turn{}, false
	}
	return s.Turns[len(s.Turns)-1], true
}
