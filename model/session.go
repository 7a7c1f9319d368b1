package model

import (
	"time"

	"github.com/google/uuid"
)

// Session is one ingestion session: a video and the graph built from its annotations.
type Session struct {
	ID        int64     `json:"id"`
	RID       uuid.UUID `json:"rid"`
	Name      string    `json:"name"`
	Source    string    `json:"source,omitempty"`
	Metadata  Metadata  `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession creates a session with a fresh RID.
func NewSession(name string, source string, metadata Metadata) *Session {
	if metadata == nil {
		metadata = Metadata{}
	}
	return &Session{
		RID:      uuid.New(),
		Name:     name,
		Source:   source,
		Metadata: metadata,
	}
}
