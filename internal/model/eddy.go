package model

// Eddy is a persisted edit session: one HistoryState plus identity and
// metadata for a page context.
type Eddy struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Domain    string       `json:"domain"`
	History   HistoryState `json:"history"`
	CreatedAt int64        `json:"createdAt"` // epoch milliseconds
	UpdatedAt int64        `json:"updatedAt"`
}
