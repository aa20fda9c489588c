package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teachback/srs/internal/domain"
)

var testNow = time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".ai-learn", "srs.db")
	db, err := Init(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func addCard(t *testing.T, db *DB, question string, now time.Time) *domain.Card {
	t.Helper()
	card, err := db.InsertCard(domain.NewCard{Question: question, Answer: "a"}, now)
	require.NoError(t, err)
	return card
}

func TestInitCreatesGitignore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".ai-learn")
	db, err := Init(filepath.Join(dir, "srs.db"))
	require.NoError(t, err)
	defer db.Close()

	content, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	require.NoError(t, err)
	assert.Equal(t, "*\n!.gitignore\n", string(content))
}

func TestOpenMissingDatabase(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.db"))
	assert.ErrorIs(t, err, ErrDatabaseMissing)
}

func TestInsertCardDefaults(t *testing.T) {
	db := newTestDB(t)
	card := addCard(t, db, "What is WAL?", testNow)

	assert.Equal(t, 2.5, card.EaseFactor)
	assert.Equal(t, 0, card.IntervalDays)
	assert.Equal(t, 0, card.Repetitions)
	assert.Equal(t, domain.DifficultyMedium, card.Difficulty)
	assert.Equal(t, card.CreatedAt, card.NextReview)

	// A freshly created card is due at its creation instant, exactly once.
	due, err := db.DueCards(testNow, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, card.ID, due[0].ID)
}

func TestInsertCardUnknownSession(t *testing.T) {
	db := newTestDB(t)
	missing := int64(99)
	_, err := db.InsertCard(domain.NewCard{Question: "q", Answer: "a", SessionID: &missing}, testNow)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestInsertCardWithSession(t *testing.T) {
	db := newTestDB(t)
	session, err := db.InsertSession(domain.NewSession{Topic: "goroutines", GapsFound: 2, CardsGenerated: 3}, testNow)
	require.NoError(t, err)

	card, err := db.InsertCard(domain.NewCard{Question: "q", Answer: "a", SessionID: &session.ID}, testNow)
	require.NoError(t, err)
	require.NotNil(t, card.SessionID)
	assert.Equal(t, session.ID, *card.SessionID)
}

func TestDueCardsOrderingAndLimit(t *testing.T) {
	db := newTestDB(t)
	early := addCard(t, db, "early", testNow.Add(-48*time.Hour))
	late := addCard(t, db, "late", testNow.Add(-1*time.Hour))
	future := addCard(t, db, "future", testNow)
	require.NoError(t, db.SaveScheduling(future.ID, 1, 2.5, 1, testNow.Add(24*time.Hour)))

	due, err := db.DueCards(testNow, 10)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, early.ID, due[0].ID)
	assert.Equal(t, late.ID, due[1].ID)

	capped, err := db.DueCards(testNow, 1)
	require.NoError(t, err)
	require.Len(t, capped, 1)
	assert.Equal(t, early.ID, capped[0].ID)
}

func TestDueCardsExcludesDeleted(t *testing.T) {
	db := newTestDB(t)
	card := addCard(t, db, "soon gone", testNow.Add(-time.Hour))
	require.NoError(t, db.SoftDeleteCard(card.ID, testNow))

	due, err := db.DueCards(testNow, 10)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestFindCardDeleted(t *testing.T) {
	db := newTestDB(t)
	card := addCard(t, db, "q", testNow)
	require.NoError(t, db.SoftDeleteCard(card.ID, testNow))

	_, err := db.FindCard(card.ID)
	assert.ErrorIs(t, err, ErrCardNotFound)
}

func TestSoftDeleteRetainsReviews(t *testing.T) {
	db := newTestDB(t)
	card := addCard(t, db, "q", testNow)
	require.NoError(t, db.RecordReview(card.ID, 1, 2.6, 1, testNow.Add(24*time.Hour), 5, testNow))
	require.NoError(t, db.SoftDeleteCard(card.ID, testNow))

	count, err := db.CountReviews()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSoftDeleteTwice(t *testing.T) {
	db := newTestDB(t)
	card := addCard(t, db, "q", testNow)
	require.NoError(t, db.SoftDeleteCard(card.ID, testNow))
	assert.ErrorIs(t, db.SoftDeleteCard(card.ID, testNow), ErrCardNotFound)
}

func TestRecordReviewAtomicOnMissingCard(t *testing.T) {
	db := newTestDB(t)
	addCard(t, db, "q", testNow)

	err := db.RecordReview(404, 1, 2.6, 1, testNow.Add(24*time.Hour), 5, testNow)
	assert.ErrorIs(t, err, ErrCardNotFound)

	count, err := db.CountReviews()
	require.NoError(t, err)
	assert.Zero(t, count, "failed review must not leave a log entry behind")
}

func TestRecordReviewPersistsBothSides(t *testing.T) {
	db := newTestDB(t)
	card := addCard(t, db, "q", testNow)
	next := testNow.Add(6 * 24 * time.Hour)
	require.NoError(t, db.RecordReview(card.ID, 2, 2.5, 6, next, 4, testNow))

	updated, err := db.FindCard(card.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Repetitions)
	assert.Equal(t, 6, updated.IntervalDays)
	assert.Equal(t, next.Truncate(time.Second), updated.NextReview)

	count, err := db.CountReviews()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSaveSchedulingDeletedCard(t *testing.T) {
	db := newTestDB(t)
	card := addCard(t, db, "q", testNow)
	require.NoError(t, db.SoftDeleteCard(card.ID, testNow))

	err := db.SaveScheduling(card.ID, 1, 2.5, 1, testNow)
	assert.ErrorIs(t, err, ErrCardNotFound)
}

func TestListCardsFilters(t *testing.T) {
	db := newTestDB(t)
	session, err := db.InsertSession(domain.NewSession{Topic: "channels"}, testNow)
	require.NoError(t, err)

	_, err = db.InsertCard(domain.NewCard{
		Question: "What does a nil channel do?", Answer: "a",
		Tags: "go,Concurrency", SessionID: &session.ID,
	}, testNow.Add(-2*time.Hour))
	require.NoError(t, err)
	plain, err := db.InsertCard(domain.NewCard{
		Question: "What is an index?", Answer: "a", Context: "db/notes.md",
	}, testNow.Add(-time.Hour))
	require.NoError(t, err)

	bySession, err := db.ListCards(CardFilter{SessionID: &session.ID})
	require.NoError(t, err)
	require.Len(t, bySession, 1)

	// Substring match is case-insensitive and covers tags, context and question.
	for _, q := range []string{"concurrency", "NIL CHANNEL"} {
		matched, err := db.ListCards(CardFilter{TextMatch: q})
		require.NoError(t, err)
		require.Len(t, matched, 1, "query %q", q)
	}
	byContext, err := db.ListCards(CardFilter{TextMatch: "notes.md"})
	require.NoError(t, err)
	require.Len(t, byContext, 1)
	assert.Equal(t, plain.ID, byContext[0].ID)

	all, err := db.ListCards(CardFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, plain.ID, all[0].ID, "newest card first")
}

func TestStatsEmptyStore(t *testing.T) {
	db := newTestDB(t)
	s, err := db.Stats(testNow)
	require.NoError(t, err)

	assert.Zero(t, s.TotalCards)
	assert.Zero(t, s.DueNow)
	assert.Zero(t, s.Mastered)
	assert.Zero(t, s.Struggling)
	assert.Zero(t, s.Sessions)
	assert.Zero(t, s.TotalReviews)
	assert.Zero(t, s.TodayReviews)
	assert.Zero(t, s.Upcoming7d)
	assert.Nil(t, s.AvgEaseFactor)
	assert.Nil(t, s.NextScheduled)
}

func TestStatsAggregates(t *testing.T) {
	db := newTestDB(t)
	_, err := db.InsertSession(domain.NewSession{Topic: "t"}, testNow)
	require.NoError(t, err)

	dueCard := addCard(t, db, "due now", testNow.Add(-time.Hour))
	mastered := addCard(t, db, "mastered", testNow)
	require.NoError(t, db.SaveScheduling(mastered.ID, 6, 2.7, 30, testNow.Add(30*24*time.Hour)))
	struggling := addCard(t, db, "struggling", testNow)
	require.NoError(t, db.SaveScheduling(struggling.ID, 0, 1.5, 1, testNow.Add(3*24*time.Hour)))
	deleted := addCard(t, db, "deleted", testNow.Add(-time.Hour))
	require.NoError(t, db.SoftDeleteCard(deleted.ID, testNow))

	require.NoError(t, db.AppendReview(dueCard.ID, 4, testNow.Add(-time.Minute)))
	require.NoError(t, db.AppendReview(dueCard.ID, 3, testNow.Add(-30*24*time.Hour)))

	s, err := db.Stats(testNow)
	require.NoError(t, err)

	assert.Equal(t, 3, s.TotalCards)
	assert.Equal(t, 1, s.DueNow)
	assert.Equal(t, 1, s.Mastered)
	assert.Equal(t, 1, s.Struggling)
	assert.Equal(t, 1, s.Sessions)
	assert.Equal(t, 2, s.TotalReviews)
	assert.Equal(t, 1, s.TodayReviews)
	assert.Equal(t, 1, s.Upcoming7d, "only the 3-day card falls inside the window")
	require.NotNil(t, s.AvgEaseFactor)
	assert.InDelta(t, (2.5+2.7+1.5)/3, *s.AvgEaseFactor, 1e-9)
	require.NotNil(t, s.NextScheduled)
	assert.Equal(t, testNow.Add(3*24*time.Hour), *s.NextScheduled)
}
