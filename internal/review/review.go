// Package review orchestrates a single review event: validate, load the
// card, apply the SM-2 update and persist the result atomically.
package review

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/teachback/srs/internal/domain"
	"github.com/teachback/srs/internal/sm2"
	"github.com/teachback/srs/internal/storage"
)

// ErrInvalidQuality is returned when quality is outside [0,5]. The store
// is never touched in that case.
var ErrInvalidQuality = errors.New("quality must be between 0 and 5")

// Service records reviews against the store.
type Service struct {
	store *storage.DB

	// NowFunc supplies the current instant. Overridable in tests.
	NowFunc func() time.Time
}

// NewService returns a Service backed by store, using the wall clock.
func NewService(store *storage.DB) *Service {
	return &Service{store: store, NowFunc: time.Now}
}

// RecordReview applies one review with the given quality to a card. The
// scheduling update and the review log entry are persisted in one
// transaction; a failure leaves neither behind.
func (s *Service) RecordReview(cardID int64, quality int) (*domain.ReviewResult, error) {
	if quality < 0 || quality > 5 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidQuality, quality)
	}

	card, err := s.store.FindCard(cardID)
	if err != nil {
		return nil, err
	}

	next := sm2.Update(sm2.State{
		Repetitions:  card.Repetitions,
		EaseFactor:   card.EaseFactor,
		IntervalDays: card.IntervalDays,
	}, quality)

	now := s.NowFunc().UTC()
	nextReview := now.Add(time.Duration(next.IntervalDays) * 24 * time.Hour)

	if err := s.store.RecordReview(cardID, next.Repetitions, next.EaseFactor, next.IntervalDays, nextReview, quality, now); err != nil {
		return nil, err
	}

	return &domain.ReviewResult{
		CardID:          cardID,
		Quality:         quality,
		NewIntervalDays: next.IntervalDays,
		NewEaseFactor:   math.Round(next.EaseFactor*100) / 100,
		NextReview:      nextReview.Truncate(time.Second),
		Repetitions:     next.Repetitions,
	}, nil
}
