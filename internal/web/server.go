// Package web exposes the review workflow as a JSON API for local
// front-ends. It is a thin shell; all semantics live in the services.
package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/teachback/srs/internal/domain"
	"github.com/teachback/srs/internal/review"
	"github.com/teachback/srs/internal/stats"
	"github.com/teachback/srs/internal/storage"
)

// Server holds the dependencies for the HTTP API.
type Server struct {
	store    *storage.DB
	reviews  *review.Service
	stats    *stats.Service
	engine   *gin.Engine
	dueLimit int

	// NowFunc supplies the current instant. Overridable in tests.
	NowFunc func() time.Time
}

// NewServer creates and configures a new server. dueLimit caps the
// default size of the due queue response.
func NewServer(store *storage.DB, reviews *review.Service, statsSvc *stats.Service, dueLimit int) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		store:    store,
		reviews:  reviews,
		stats:    statsSvc,
		engine:   engine,
		dueLimit: dueLimit,
		NowFunc:  time.Now,
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}

// Run starts the server on addr and blocks.
func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

func (s *Server) routes() {
	api := s.engine.Group("/api")
	api.GET("/due", s.handleDue)
	api.POST("/reviews", s.handlePostReview)
	api.GET("/cards", s.handleListCards)
	api.POST("/cards", s.handlePostCard)
	api.DELETE("/cards/:id", s.handleDeleteCard)
	api.GET("/sessions", s.handleListSessions)
	api.POST("/sessions", s.handlePostSession)
	api.GET("/stats", s.handleStats)
}

func (s *Server) handleDue(c *gin.Context) {
	limit := s.dueLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	cards, err := s.store.DueCards(s.NowFunc(), limit)
	if err != nil {
		s.internalError(c, "failed to query due cards", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"due": cards, "count": len(cards)})
}

type reviewRequest struct {
	CardID  int64 `json:"card_id" binding:"required"`
	Quality *int  `json:"quality" binding:"required"`
}

func (s *Server) handlePostReview(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "card_id and quality are required"})
		return
	}

	result, err := s.reviews.RecordReview(req.CardID, *req.Quality)
	switch {
	case errors.Is(err, review.ErrInvalidQuality):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, storage.ErrCardNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case err != nil:
		s.internalError(c, "failed to record review", err)
	default:
		c.JSON(http.StatusOK, result)
	}
}

func (s *Server) handleListCards(c *gin.Context) {
	var filter storage.CardFilter
	if raw := c.Query("session_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "session_id must be an integer"})
			return
		}
		filter.SessionID = &id
	} else {
		filter.TextMatch = c.Query("q")
	}

	cards, err := s.store.ListCards(filter)
	if err != nil {
		s.internalError(c, "failed to list cards", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cards": cards, "count": len(cards)})
}

func (s *Server) handlePostCard(c *gin.Context) {
	var input domain.NewCard
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid card payload"})
		return
	}
	if err := input.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	card, err := s.store.InsertCard(input, s.NowFunc())
	switch {
	case errors.Is(err, storage.ErrSessionNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		s.internalError(c, "failed to insert card", err)
	default:
		c.JSON(http.StatusCreated, card)
	}
}

func (s *Server) handleDeleteCard(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "card id must be an integer"})
		return
	}

	err = s.store.SoftDeleteCard(id, s.NowFunc())
	switch {
	case errors.Is(err, storage.ErrCardNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case err != nil:
		s.internalError(c, "failed to delete card", err)
	default:
		c.Status(http.StatusNoContent)
	}
}

func (s *Server) handleListSessions(c *gin.Context) {
	sessions, err := s.store.ListSessions()
	if err != nil {
		s.internalError(c, "failed to list sessions", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions, "count": len(sessions)})
}

func (s *Server) handlePostSession(c *gin.Context) {
	var input domain.NewSession
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session payload"})
		return
	}
	if err := input.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := s.store.InsertSession(input, s.NowFunc())
	if err != nil {
		s.internalError(c, "failed to insert session", err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

func (s *Server) handleStats(c *gin.Context) {
	snapshot, err := s.stats.Snapshot()
	if err != nil {
		s.internalError(c, "failed to compute stats", err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (s *Server) internalError(c *gin.Context, msg string, err error) {
	slog.Error(msg, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
