package main

import (
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/teachback/srs/internal/archive"
	"github.com/teachback/srs/internal/config"
	"github.com/teachback/srs/internal/domain"
	"github.com/teachback/srs/internal/export"
	"github.com/teachback/srs/internal/review"
	"github.com/teachback/srs/internal/stats"
	"github.com/teachback/srs/internal/storage"
	"github.com/teachback/srs/internal/web"
)

const usageText = `Usage: srs <command> [flags]

Commands:
  init          Create the database and data directory
  add-session   Record a teach-back session
  add-card      Add a flashcard
  due           List cards due for review
  review        Record a review (--card-id, --quality 0-5)
  stats         Show learning statistics
  cards         List cards (--topic or --session-id filter)
  sessions      List all sessions
  delete-card   Soft-delete a card (--card-id)
  export        Export active cards (--format md|csv)
  archive       Commit a Markdown export snapshot to a git archive
  serve         Run the local JSON API
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usageText)
		os.Exit(2)
	}
	command := os.Args[1]
	args := os.Args[2:]

	flags := pflag.NewFlagSet(command, pflag.ExitOnError)
	config.RegisterFlags(flags)

	switch command {
	case "init":
		runInit(flags, args)
	case "add-session":
		runAddSession(flags, args)
	case "add-card":
		runAddCard(flags, args)
	case "due":
		runDue(flags, args)
	case "review":
		runReview(flags, args)
	case "stats":
		runStats(flags, args)
	case "cards":
		runCards(flags, args)
	case "sessions":
		runSessions(flags, args)
	case "delete-card":
		runDeleteCard(flags, args)
	case "export":
		runExport(flags, args)
	case "archive":
		runArchive(flags, args)
	case "serve":
		runServe(flags, args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n%s", command, usageText)
		os.Exit(2)
	}
}

func loadConfig(flags *pflag.FlagSet, args []string) *config.Config {
	flags.Parse(args)
	cfg, err := config.Load(flags)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	return cfg
}

func openStore(cfg *config.Config) *storage.DB {
	db, err := storage.Open(cfg.DB)
	if err != nil {
		log.Fatalf("Failed to open database: %v (run 'srs init' first)", err)
	}
	return db
}

func runInit(flags *pflag.FlagSet, args []string) {
	cfg := loadConfig(flags, args)
	db, err := storage.Init(cfg.DB)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()
	fmt.Printf("Initialized SRS database at %s\n", cfg.DB)
}

func runAddSession(flags *pflag.FlagSet, args []string) {
	topic := flags.String("topic", "", "Session topic (required)")
	summary := flags.String("summary", "", "Session summary")
	gaps := flags.Int("gaps", 0, "Number of knowledge gaps found")
	cards := flags.Int("cards", 0, "Number of cards generated")
	cfg := loadConfig(flags, args)

	input := domain.NewSession{Topic: *topic, Summary: *summary, GapsFound: *gaps, CardsGenerated: *cards}
	if err := input.Validate(); err != nil {
		log.Fatalf("Invalid session: %v", err)
	}

	db := openStore(cfg)
	defer db.Close()

	session, err := db.InsertSession(input, nowUTC())
	if err != nil {
		log.Fatalf("Failed to record session: %v", err)
	}
	fmt.Printf("Session #%d recorded: %s\n", session.ID, session.Topic)
}

func runAddCard(flags *pflag.FlagSet, args []string) {
	question := flags.String("question", "", "Card question (required)")
	answer := flags.String("answer", "", "Card answer (required)")
	context := flags.String("context", "", "Source context, e.g. a file path")
	tags := flags.String("tags", "", "Comma-separated tags")
	difficulty := flags.String("difficulty", "medium", "Card difficulty: easy, medium or hard")
	sessionID := flags.Int64("session-id", 0, "Owning session id")
	cfg := loadConfig(flags, args)

	input := domain.NewCard{
		Question:   *question,
		Answer:     *answer,
		Context:    *context,
		Tags:       *tags,
		Difficulty: *difficulty,
	}
	if flags.Changed("session-id") {
		input.SessionID = sessionID
	}
	if err := input.Validate(); err != nil {
		log.Fatalf("Invalid card: %v", err)
	}

	db := openStore(cfg)
	defer db.Close()

	card, err := db.InsertCard(input, nowUTC())
	if err != nil {
		log.Fatalf("Failed to add card: %v", err)
	}
	fmt.Printf("Card #%d added: %s\n", card.ID, truncate(card.Question, 60))
}

func runDue(flags *pflag.FlagSet, args []string) {
	cfg := loadConfig(flags, args)
	db := openStore(cfg)
	defer db.Close()

	cards, err := db.DueCards(nowUTC(), cfg.DueLimit)
	if err != nil {
		log.Fatalf("Failed to query due cards: %v", err)
	}
	if len(cards) == 0 {
		fmt.Println("No cards due for review.")
		return
	}
	fmt.Printf("%d card(s) due:\n\n", len(cards))
	for _, c := range cards {
		fmt.Printf("  #%d [%s] %s\n", c.ID, c.Difficulty, truncate(c.Question, 80))
		fmt.Printf("    EF=%.2f | interval=%dd | reps=%d\n", c.EaseFactor, c.IntervalDays, c.Repetitions)
	}
}

func runReview(flags *pflag.FlagSet, args []string) {
	cardID := flags.Int64("card-id", 0, "Card id (required)")
	quality := flags.Int("quality", -1, "Recall quality, 0-5 (required)")
	cfg := loadConfig(flags, args)

	db := openStore(cfg)
	defer db.Close()

	result, err := review.NewService(db).RecordReview(*cardID, *quality)
	if err != nil {
		log.Fatalf("Failed to record review: %v", err)
	}
	printJSON(result)
}

func runStats(flags *pflag.FlagSet, args []string) {
	cfg := loadConfig(flags, args)
	db := openStore(cfg)
	defer db.Close()

	snapshot, err := stats.NewService(db).Snapshot()
	if err != nil {
		log.Fatalf("Failed to compute stats: %v", err)
	}
	printJSON(snapshot)
}

func runCards(flags *pflag.FlagSet, args []string) {
	topic := flags.String("topic", "", "Filter by substring match on tags, context or question")
	sessionID := flags.Int64("session-id", 0, "Filter by session id")
	cfg := loadConfig(flags, args)

	db := openStore(cfg)
	defer db.Close()

	var filter storage.CardFilter
	if flags.Changed("session-id") {
		filter.SessionID = sessionID
	} else {
		filter.TextMatch = *topic
	}

	cards, err := db.ListCards(filter)
	if err != nil {
		log.Fatalf("Failed to list cards: %v", err)
	}
	if len(cards) == 0 {
		fmt.Println("No cards found.")
		return
	}
	for _, c := range cards {
		fmt.Printf("  #%d [%s] %s\n", c.ID, c.Difficulty, truncate(c.Question, 80))
	}
}

func runSessions(flags *pflag.FlagSet, args []string) {
	cfg := loadConfig(flags, args)
	db := openStore(cfg)
	defer db.Close()

	sessions, err := db.ListSessions()
	if err != nil {
		log.Fatalf("Failed to list sessions: %v", err)
	}
	if len(sessions) == 0 {
		fmt.Println("No sessions recorded.")
		return
	}
	for _, s := range sessions {
		fmt.Printf("  #%d %s (%d gaps, %d cards)\n", s.ID, s.Topic, s.GapsFound, s.CardsGenerated)
	}
}

func runDeleteCard(flags *pflag.FlagSet, args []string) {
	cardID := flags.Int64("card-id", 0, "Card id (required)")
	cfg := loadConfig(flags, args)

	db := openStore(cfg)
	defer db.Close()

	if err := db.SoftDeleteCard(*cardID, nowUTC()); err != nil {
		log.Fatalf("Failed to delete card: %v", err)
	}
	fmt.Printf("Card #%d deleted (review history retained).\n", *cardID)
}

func runExport(flags *pflag.FlagSet, args []string) {
	format := flags.String("format", "md", "Export format: md or csv")
	cfg := loadConfig(flags, args)

	db := openStore(cfg)
	defer db.Close()

	cards, err := db.ListCards(storage.CardFilter{})
	if err != nil {
		log.Fatalf("Failed to list cards: %v", err)
	}

	switch *format {
	case "md":
		fmt.Print(export.Markdown(cards))
	case "csv":
		out, err := export.CSV(cards)
		if err != nil {
			log.Fatalf("Failed to render CSV: %v", err)
		}
		fmt.Print(out)
	default:
		log.Fatalf("Unknown export format %q: must be md or csv", *format)
	}
}

func runArchive(flags *pflag.FlagSet, args []string) {
	cfg := loadConfig(flags, args)
	db := openStore(cfg)
	defer db.Close()

	cards, err := db.ListCards(storage.CardFilter{})
	if err != nil {
		log.Fatalf("Failed to list cards: %v", err)
	}

	hash, err := archive.Snapshot(cfg.ArchiveDir, []byte(export.Markdown(cards)), nowUTC())
	if err != nil {
		log.Fatalf("Failed to archive cards: %v", err)
	}
	if hash == "" {
		fmt.Println("Archive already up to date.")
		return
	}
	fmt.Printf("Archived %d card(s) to %s (%s)\n", len(cards), cfg.ArchiveDir, hash[:8])
}

func runServe(flags *pflag.FlagSet, args []string) {
	cfg := loadConfig(flags, args)
	db := openStore(cfg)
	defer db.Close()

	server := web.NewServer(db, review.NewService(db), stats.NewService(db), cfg.DueLimit)
	slog.Info("Starting SRS API", "addr", cfg.Listen, "db", cfg.DB)
	if err := server.Run(cfg.Listen); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode result: %v", err)
	}
	fmt.Println(string(out))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
