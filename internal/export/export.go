// Package export renders active cards to Markdown or CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/teachback/srs/internal/domain"
)

// Markdown renders cards as a Markdown document, one section per card.
func Markdown(cards []domain.Card) string {
	var b strings.Builder
	b.WriteString("# SRS Cards Export\n\n")
	for _, c := range cards {
		fmt.Fprintf(&b, "## Card #%d\n", c.ID)
		fmt.Fprintf(&b, "**Q:** %s\n", c.Question)
		fmt.Fprintf(&b, "**A:** %s\n", c.Answer)
		if c.Context != "" {
			fmt.Fprintf(&b, "**Context:** `%s`\n", c.Context)
		}
		if c.Tags != "" {
			fmt.Fprintf(&b, "**Tags:** %s\n", c.Tags)
		}
		fmt.Fprintf(&b, "**Status:** EF=%.2f | interval=%dd | reps=%d\n\n",
			c.EaseFactor, c.IntervalDays, c.Repetitions)
	}
	return b.String()
}

// CSV renders cards as CSV with a fixed header row.
func CSV(cards []domain.Card) (string, error) {
	var b strings.Builder
	w := csv.NewWriter(&b)
	header := []string{"question", "answer", "context", "tags", "difficulty", "ease_factor", "interval_days", "repetitions"}
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, c := range cards {
		record := []string{
			c.Question,
			c.Answer,
			c.Context,
			c.Tags,
			string(c.Difficulty),
			strconv.FormatFloat(c.EaseFactor, 'g', -1, 64),
			strconv.Itoa(c.IntervalDays),
			strconv.Itoa(c.Repetitions),
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("failed to write CSV row for card %d: %w", c.ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush CSV: %w", err)
	}
	return b.String(), nil
}
