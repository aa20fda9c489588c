// Package sm2 implements the SM-2 spaced-repetition update rule as a pure
// function over a card's scheduling state. It performs no I/O; input
// validation is the caller's responsibility.
package sm2

import "math"

// MinEaseFactor is the lower bound applied to the ease factor on every
// update. Without it, a run of poor reviews would shrink intervals
// indefinitely. There is no upper bound.
const MinEaseFactor = 1.3

// State holds the scheduling memory of a card.
type State struct {
	Repetitions  int
	EaseFactor   float64
	IntervalDays int
}

// Update applies one review with the given quality and returns the next
// state. The ease factor is adjusted on every review, success or failure.
// A failure (quality < 3) resets the repetition count and schedules the
// next attempt one day out, not immediately. The interval product is
// rounded half away from zero (math.Round).
//
// Quality scale:
//
//	0 - Complete blackout
//	1 - Wrong, but recognized the answer when shown
//	2 - Wrong, but the answer felt familiar
//	3 - Correct with serious difficulty
//	4 - Correct with some hesitation
//	5 - Perfect, instant recall
func Update(s State, quality int) State {
	ef := s.EaseFactor + (0.1 - float64(5-quality)*(0.08+float64(5-quality)*0.02))
	ef = math.Max(MinEaseFactor, ef)

	next := State{EaseFactor: ef}
	if quality >= 3 {
		switch s.Repetitions {
		case 0:
			next.IntervalDays = 1
		case 1:
			next.IntervalDays = 6
		default:
			next.IntervalDays = int(math.Round(float64(s.IntervalDays) * ef))
		}
		next.Repetitions = s.Repetitions + 1
	} else {
		next.Repetitions = 0
		next.IntervalDays = 1
	}
	return next
}
