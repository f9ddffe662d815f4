package domain

import "time"

// Session represents an in-flight OAuth authorization. Persistence builds its
// own document; the struct carries no storage tags.
type Session struct {
	ID        string    `json:"id"`
	Shop      string    `json:"shop"`
	State     string    `json:"state"`
	Scopes    []string  `json:"scopes"`
	ReturnURL string    `json:"return_url"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
