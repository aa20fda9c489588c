package domain

import "time"

// StatsSnapshot is a read-only aggregate view of the store as of a single
// instant. AvgEaseFactor and NextScheduled are nil when there are no
// active cards (or no active card scheduled in the future, respectively).
type StatsSnapshot struct {
	TotalCards    int        `json:"total_cards"`
	DueNow        int        `json:"due_now"`
	Mastered      int        `json:"mastered"`
	Struggling    int        `json:"struggling"`
	Sessions      int        `json:"sessions"`
	TotalReviews  int        `json:"total_reviews"`
	TodayReviews  int        `json:"today_reviews"`
	Upcoming7d    int        `json:"upcoming_7d"`
	AvgEaseFactor *float64   `json:"avg_ease_factor"`
	NextScheduled *time.Time `json:"next_scheduled"`
}
