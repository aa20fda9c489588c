package domain

import (
	"fmt"
	"time"
)

// Session records one teach-back learning session. GapsFound and
// CardsGenerated are caller-supplied snapshots taken at session time;
// they are never recomputed from the cards table.
type Session struct {
	ID             int64     `json:"id"`
	Topic          string    `json:"topic"`
	Summary        string    `json:"summary,omitempty"`
	GapsFound      int       `json:"gaps_found"`
	CardsGenerated int       `json:"cards_generated"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewSession carries the caller-supplied fields for session creation.
type NewSession struct {
	Topic          string `json:"topic" validate:"required"`
	Summary        string `json:"summary"`
	GapsFound      int    `json:"gaps_found" validate:"min=0"`
	CardsGenerated int    `json:"cards_generated" validate:"min=0"`
}

// Validate checks the input against its struct tags.
func (n NewSession) Validate() error {
	if err := validate.Struct(n); err != nil {
		return fmt.Errorf("invalid session: %w", err)
	}
	return nil
}
