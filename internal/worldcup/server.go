// Package worldcup serves elimination passes over HTTP and WebSocket: it owns
// the pass sessions, drives their animation frames and previews, and
// announces pass lifecycle events on Redis.
package worldcup

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"worldcup-service/internal/deck"
	"worldcup-service/internal/media"
)

// Options tunes the service. Zero values take defaults.
type Options struct {
	Deck           deck.Config
	Lookahead      int
	FrameInterval  time.Duration
	SessionTTL     time.Duration
	PersistTimeout time.Duration
	// WSRateLimit caps inbound move frames per second on one connection.
	WSRateLimit float64
}

func (o Options) withDefaults() Options {
	if o.FrameInterval <= 0 {
		o.FrameInterval = 16 * time.Millisecond
	}
	if o.SessionTTL <= 0 {
		o.SessionTTL = 30 * time.Minute
	}
	if o.WSRateLimit <= 0 {
		o.WSRateLimit = 120
	}
	return o
}

type Server struct {
	store     Store
	rdb       *redis.Client
	durations media.DurationLookup
	opts      Options
	sessions  *registry

	events    chan event
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewServer wires the service. rdb and durations may be nil: events are then
// not published and previews never end on their own.
func NewServer(st Store, rdb *redis.Client, durations media.DurationLookup, opts Options) *Server {
	s := &Server{
		store:     st,
		rdb:       rdb,
		durations: durations,
		opts:      opts.withDefaults(),
		sessions:  newRegistry(),
		events:    make(chan event, eventQueueSize),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	if rdb != nil {
		go s.runEvents()
	} else {
		close(s.done)
	}
	return s
}

func (s *Server) Router(middlewares ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	for _, mw := range middlewares {
		r.Use(mw)
	}

	r.Get("/health", s.handleHealth)

	// categories
	r.Get("/categories", s.handleListCategories)
	r.Post("/categories", s.handleCreateCategory)
	r.Post("/categories/{id}/songs", s.handleAddSong)
	r.Get("/categories/{id}/ranking", s.handleRanking)

	// passes
	r.Post("/categories/{id}/passes", s.handleStartPass)
	r.Get("/passes/{sid}", s.handleGetPass)
	r.Delete("/passes/{sid}", s.handleDeletePass)
	r.Post("/passes/{sid}/gesture", s.handleGesture)
	r.Post("/passes/{sid}/media-ended", s.handleMediaEnded)
	r.Post("/passes/{sid}/decide", s.handleDecide)
	r.Post("/passes/{sid}/restart", s.handleRestart)
	r.Get("/passes/{sid}/liked", s.handleLiked)
	r.Post("/passes/{sid}/persist", s.handleRetryPersist)
	r.Get("/passes/{sid}/ws", s.handleWS)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"service":  "worldcup-service",
		"sessions": s.sessions.len(),
	})
}

// Close ends every open pass, waiting for their pending writes, then stops
// the event publisher.
func (s *Server) Close() {
	for _, sess := range s.sessions.drain() {
		sess.close()
	}
	s.closeOnce.Do(func() {
		close(s.quit)
	})
	<-s.done
}

func (s *Server) wsLimiter() *rate.Limiter {
	burst := int(s.opts.WSRateLimit / 4)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(s.opts.WSRateLimit), burst)
}

func (s *Server) flushTimeout() time.Duration {
	if s.opts.PersistTimeout > 0 {
		return s.opts.PersistTimeout
	}
	return 10 * time.Second
}
