package convo

import (
	"time"
)

// Store persists conversation turns across process restarts
type Store interface {
	// Session management
	CreateSession() (string, error)
	GetLatestSession() (*Session, error)

	// Interactions
	AppendInteraction(sessionID string, in *Interaction) error
	GetInteractions(sessionID string) ([]*Interaction, error)
	ClearSession(sessionID string) error

	// Close connection
	Close() error
}

// Session session structure
type Session struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Interaction one user/model exchange
type Interaction struct {
	ID         int64
	SessionID  string
	UserInput  string
	ModelReply string
	CreatedAt  time.Time
}
