package domain

import "time"

// Review is one entry in the append-only review log. Quality is the
// learner's self-rated recall, 0 (blackout) to 5 (perfect). Reviews are
// never mutated or deleted after insertion.
type Review struct {
	ID         int64     `json:"id"`
	CardID     int64     `json:"card_id"`
	Quality    int       `json:"quality"`
	ReviewedAt time.Time `json:"reviewed_at"`
}

// ReviewResult is returned to the caller after a review is recorded.
// NewEaseFactor is rounded to two decimals for display; the stored value
// keeps full precision.
type ReviewResult struct {
	CardID          int64     `json:"card_id"`
	Quality         int       `json:"quality"`
	NewIntervalDays int       `json:"new_interval_days"`
	NewEaseFactor   float64   `json:"new_ease_factor"`
	NextReview      time.Time `json:"next_review"`
	Repetitions     int       `json:"repetitions"`
}
