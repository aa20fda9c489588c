package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/teachback/srs/internal/domain"
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// Timestamps are stored as TEXT in this exact layout, matching SQLite's
// datetime('now'), so lexicographic order and temporal order coincide.
const timeFormat = "2006-01-02 15:04:05"

var (
	// ErrDatabaseMissing is returned by Open when the database file does
	// not exist. Commands must not create the store implicitly; only Init
	// does that.
	ErrDatabaseMissing = errors.New("database does not exist")

	// ErrCardNotFound is returned when a card id is absent or the card
	// has been soft-deleted.
	ErrCardNotFound = errors.New("card not found")

	// ErrSessionNotFound is returned when a card references a session id
	// that does not exist.
	ErrSessionNotFound = errors.New("session not found")
)

// DB wraps the SQL database connection.
type DB struct {
	conn *sql.DB
}

// dsn enables WAL journaling and foreign-key enforcement on every
// connection. busy_timeout keeps concurrent CLI invocations from failing
// immediately on a locked database.
func dsn(path string) string {
	return "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Init creates the database file, its parent directory and the schema.
// A .gitignore is written next to the database to keep learning data out
// of the enclosing repository.
func Init(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}

	gitignore := filepath.Join(dir, ".gitignore")
	if _, err := os.Stat(gitignore); os.IsNotExist(err) {
		if err := os.WriteFile(gitignore, []byte("*\n!.gitignore\n"), 0o644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", gitignore, err)
		}
	}

	conn, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Open connects to an existing database. It fails with ErrDatabaseMissing
// when the file is absent rather than creating an empty store.
func Open(path string) (*DB, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w at %s", ErrDatabaseMissing, path)
	}

	conn, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// InsertSession records a teach-back session and returns it with its
// assigned id.
func (db *DB) InsertSession(n domain.NewSession, now time.Time) (*domain.Session, error) {
	created := formatTime(now)
	res, err := db.conn.Exec(`
		INSERT INTO sessions (topic, summary, gaps_found, cards_generated, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, n.Topic, n.Summary, n.GapsFound, n.CardsGenerated, created)
	if err != nil {
		return nil, fmt.Errorf("failed to insert session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get session id: %w", err)
	}

	createdAt, err := parseTime(created)
	if err != nil {
		return nil, err
	}
	return &domain.Session{
		ID:             id,
		Topic:          n.Topic,
		Summary:        n.Summary,
		GapsFound:      n.GapsFound,
		CardsGenerated: n.CardsGenerated,
		CreatedAt:      createdAt,
	}, nil
}

// ListSessions returns all sessions, newest first.
func (db *DB) ListSessions() ([]domain.Session, error) {
	rows, err := db.conn.Query(`
		SELECT id, topic, summary, gaps_found, cards_generated, created_at
		FROM sessions
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		var (
			s       domain.Session
			summary sql.NullString
			created string
		)
		if err := rows.Scan(&s.ID, &s.Topic, &summary, &s.GapsFound, &s.CardsGenerated, &created); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		s.Summary = summary.String
		if s.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// InsertCard adds a card with default scheduling state: ease factor 2.5,
// zero interval and repetitions, and next_review equal to creation time,
// so a new card is due immediately.
func (db *DB) InsertCard(n domain.NewCard, now time.Time) (*domain.Card, error) {
	difficulty, err := domain.ParseDifficulty(n.Difficulty)
	if err != nil {
		return nil, err
	}

	if n.SessionID != nil {
		var one int
		err := db.conn.QueryRow(`SELECT 1 FROM sessions WHERE id = ?`, *n.SessionID).Scan(&one)
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: id %d", ErrSessionNotFound, *n.SessionID)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to check session %d: %w", *n.SessionID, err)
		}
	}

	created := formatTime(now)
	res, err := db.conn.Exec(`
		INSERT INTO cards (question, answer, context, tags, difficulty, session_id,
		                   created_at, ease_factor, interval_days, repetitions, next_review)
		VALUES (?, ?, ?, ?, ?, ?, ?, 2.5, 0, 0, ?)
	`, n.Question, n.Answer, n.Context, n.Tags, string(difficulty), sessionIDArg(n.SessionID), created, created)
	if err != nil {
		return nil, fmt.Errorf("failed to insert card: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get card id: %w", err)
	}
	return db.FindCard(id)
}

func sessionIDArg(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

const cardColumns = `id, question, answer, context, tags, difficulty, session_id,
	created_at, ease_factor, interval_days, repetitions, next_review`

func scanCard(row interface{ Scan(...any) error }) (*domain.Card, error) {
	var (
		c         domain.Card
		context   sql.NullString
		tags      sql.NullString
		sessionID sql.NullInt64
		created   string
		next      string
	)
	err := row.Scan(
		&c.ID, &c.Question, &c.Answer, &context, &tags, &c.Difficulty, &sessionID,
		&created, &c.EaseFactor, &c.IntervalDays, &c.Repetitions, &next,
	)
	if err != nil {
		return nil, err
	}
	c.Context = context.String
	c.Tags = tags.String
	if sessionID.Valid {
		c.SessionID = &sessionID.Int64
	}
	if c.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if c.NextReview, err = parseTime(next); err != nil {
		return nil, err
	}
	return &c, nil
}

// FindCard retrieves an active card by id. Soft-deleted cards are treated
// as absent.
func (db *DB) FindCard(id int64) (*domain.Card, error) {
	row := db.conn.QueryRow(`
		SELECT `+cardColumns+`
		FROM cards WHERE id = ? AND deleted_at IS NULL
	`, id)
	card, err := scanCard(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: id %d", ErrCardNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find card %d: %w", id, err)
	}
	return card, nil
}

// DueCards returns active cards with next_review at or before now,
// earliest due first, capped at limit.
func (db *DB) DueCards(now time.Time, limit int) ([]domain.Card, error) {
	rows, err := db.conn.Query(`
		SELECT `+cardColumns+`
		FROM cards
		WHERE deleted_at IS NULL AND next_review <= ?
		ORDER BY next_review ASC
		LIMIT ?
	`, formatTime(now), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query due cards: %w", err)
	}
	defer rows.Close()
	return collectCards(rows)
}

// CardFilter selects which active cards ListCards returns. SessionID and
// TextMatch are mutually exclusive; SessionID wins if both are set. A zero
// filter returns all active cards.
type CardFilter struct {
	SessionID *int64
	TextMatch string
}

// ListCards returns active cards, newest first. TextMatch is a
// case-insensitive substring match against tags, context or question.
func (db *DB) ListCards(f CardFilter) ([]domain.Card, error) {
	var (
		rows *sql.Rows
		err  error
	)
	switch {
	case f.SessionID != nil:
		rows, err = db.conn.Query(`
			SELECT `+cardColumns+`
			FROM cards
			WHERE deleted_at IS NULL AND session_id = ?
			ORDER BY created_at DESC, id DESC
		`, *f.SessionID)
	case f.TextMatch != "":
		pattern := "%" + f.TextMatch + "%"
		rows, err = db.conn.Query(`
			SELECT `+cardColumns+`
			FROM cards
			WHERE deleted_at IS NULL
			  AND (tags LIKE ? OR context LIKE ? OR question LIKE ?)
			ORDER BY created_at DESC, id DESC
		`, pattern, pattern, pattern)
	default:
		rows, err = db.conn.Query(`
			SELECT ` + cardColumns + `
			FROM cards
			WHERE deleted_at IS NULL
			ORDER BY created_at DESC, id DESC
		`)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	defer rows.Close()
	return collectCards(rows)
}

func collectCards(rows *sql.Rows) ([]domain.Card, error) {
	var cards []domain.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card row: %w", err)
		}
		cards = append(cards, *card)
	}
	return cards, rows.Err()
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// SaveScheduling updates the four scheduling fields of an active card.
func (db *DB) SaveScheduling(cardID int64, repetitions int, easeFactor float64, intervalDays int, nextReview time.Time) error {
	return saveScheduling(db.conn, cardID, repetitions, easeFactor, intervalDays, nextReview)
}

func saveScheduling(ex execer, cardID int64, repetitions int, easeFactor float64, intervalDays int, nextReview time.Time) error {
	res, err := ex.Exec(`
		UPDATE cards
		SET repetitions = ?, ease_factor = ?, interval_days = ?, next_review = ?
		WHERE id = ? AND deleted_at IS NULL
	`, repetitions, easeFactor, intervalDays, formatTime(nextReview), cardID)
	if err != nil {
		return fmt.Errorf("failed to update scheduling for card %d: %w", cardID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check scheduling update for card %d: %w", cardID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: id %d", ErrCardNotFound, cardID)
	}
	return nil
}

// AppendReview inserts an immutable review record.
func (db *DB) AppendReview(cardID int64, quality int, reviewedAt time.Time) error {
	return appendReview(db.conn, cardID, quality, reviewedAt)
}

func appendReview(ex execer, cardID int64, quality int, reviewedAt time.Time) error {
	if _, err := ex.Exec(`
		INSERT INTO reviews (card_id, quality, reviewed_at)
		VALUES (?, ?, ?)
	`, cardID, quality, formatTime(reviewedAt)); err != nil {
		return fmt.Errorf("failed to append review for card %d: %w", cardID, err)
	}
	return nil
}

// RecordReview persists one review event: the scheduling update and the
// review log entry commit together or not at all.
func (db *DB) RecordReview(cardID int64, repetitions int, easeFactor float64, intervalDays int, nextReview time.Time, quality int, reviewedAt time.Time) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin review transaction: %w", err)
	}
	defer tx.Rollback()

	if err := saveScheduling(tx, cardID, repetitions, easeFactor, intervalDays, nextReview); err != nil {
		return err
	}
	if err := appendReview(tx, cardID, quality, reviewedAt); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit review for card %d: %w", cardID, err)
	}
	return nil
}

// SoftDeleteCard marks a card deleted without touching its review history.
func (db *DB) SoftDeleteCard(id int64, now time.Time) error {
	res, err := db.conn.Exec(`
		UPDATE cards SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`, formatTime(now), id)
	if err != nil {
		return fmt.Errorf("failed to delete card %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete of card %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: id %d", ErrCardNotFound, id)
	}
	return nil
}

// CountReviews returns the total number of review records, including
// those of soft-deleted cards.
func (db *DB) CountReviews() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM reviews`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count reviews: %w", err)
	}
	return n, nil
}

// Stats derives the aggregate snapshot as of now. All queries run inside
// one transaction so the counts describe a single state of the store.
func (db *DB) Stats(now time.Time) (*domain.StatsSnapshot, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin stats transaction: %w", err)
	}
	defer tx.Rollback()

	nowStr := formatTime(now)
	weekStr := formatTime(now.Add(7 * 24 * time.Hour))
	var s domain.StatsSnapshot

	counts := []struct {
		dst   *int
		query string
		args  []any
	}{
		{&s.TotalCards, `SELECT COUNT(*) FROM cards WHERE deleted_at IS NULL`, nil},
		{&s.DueNow, `SELECT COUNT(*) FROM cards WHERE deleted_at IS NULL AND next_review <= ?`, []any{nowStr}},
		{&s.Mastered, `SELECT COUNT(*) FROM cards WHERE deleted_at IS NULL AND repetitions >= 5 AND ease_factor >= 2.5`, nil},
		{&s.Struggling, `SELECT COUNT(*) FROM cards WHERE deleted_at IS NULL AND ease_factor < 1.8`, nil},
		{&s.Sessions, `SELECT COUNT(*) FROM sessions`, nil},
		{&s.TotalReviews, `SELECT COUNT(*) FROM reviews`, nil},
		{&s.TodayReviews, `SELECT COUNT(*) FROM reviews WHERE date(reviewed_at) = date(?)`, []any{nowStr}},
		{&s.Upcoming7d, `SELECT COUNT(*) FROM cards WHERE deleted_at IS NULL AND next_review > ? AND next_review <= ?`, []any{nowStr, weekStr}},
	}
	for _, c := range counts {
		if err := tx.QueryRow(c.query, c.args...).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("failed to compute stats: %w", err)
		}
	}

	var avg sql.NullFloat64
	if err := tx.QueryRow(`SELECT AVG(ease_factor) FROM cards WHERE deleted_at IS NULL`).Scan(&avg); err != nil {
		return nil, fmt.Errorf("failed to compute average ease factor: %w", err)
	}
	if avg.Valid {
		s.AvgEaseFactor = &avg.Float64
	}

	var next string
	err = tx.QueryRow(`
		SELECT next_review FROM cards
		WHERE deleted_at IS NULL AND next_review > ?
		ORDER BY next_review ASC LIMIT 1
	`, nowStr).Scan(&next)
	switch {
	case err == sql.ErrNoRows:
		// No future review scheduled.
	case err != nil:
		return nil, fmt.Errorf("failed to find next scheduled review: %w", err)
	default:
		t, err := parseTime(next)
		if err != nil {
			return nil, err
		}
		s.NextScheduled = &t
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit stats transaction: %w", err)
	}
	return &s, nil
}
