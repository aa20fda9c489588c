package domain

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Difficulty is the author-assigned difficulty of a card. It is
// informational only; scheduling is driven entirely by review quality.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty converts a string to a Difficulty. An empty string
// maps to the default, medium.
func ParseDifficulty(s string) (Difficulty, error) {
	switch Difficulty(s) {
	case "":
		return DifficultyMedium, nil
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return Difficulty(s), nil
	}
	return "", fmt.Errorf("invalid difficulty %q: must be easy, medium or hard", s)
}

// Card is a question-answer unit subject to spaced-repetition scheduling.
// The scheduling fields (EaseFactor, IntervalDays, Repetitions, NextReview)
// are mutated only when a review is recorded. A card with DeletedAt set is
// excluded from due, listing and stats queries; its review history remains.
type Card struct {
	ID           int64      `json:"id"`
	Question     string     `json:"question"`
	Answer       string     `json:"answer"`
	Context      string     `json:"context,omitempty"`
	Tags         string     `json:"tags,omitempty"`
	Difficulty   Difficulty `json:"difficulty"`
	SessionID    *int64     `json:"session_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	EaseFactor   float64    `json:"ease_factor"`
	IntervalDays int        `json:"interval_days"`
	Repetitions  int        `json:"repetitions"`
	NextReview   time.Time  `json:"next_review"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// NewCard carries the caller-supplied fields for card creation. Question
// and answer text is opaque to this system; it is produced elsewhere.
type NewCard struct {
	Question   string `json:"question" validate:"required"`
	Answer     string `json:"answer" validate:"required"`
	Context    string `json:"context"`
	Tags       string `json:"tags"`
	Difficulty string `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	SessionID  *int64 `json:"session_id"`
}

var validate = validator.New()

// Validate checks the input against its struct tags.
func (n NewCard) Validate() error {
	if err := validate.Struct(n); err != nil {
		return fmt.Errorf("invalid card: %w", err)
	}
	return nil
}
