package worldcup

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"worldcup-service/internal/deck"
	"worldcup-service/internal/store"
)

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps service and deck errors to HTTP statuses.
func statusFor(err error) int {
	var re *requestError
	var le *deck.LoadError
	var pe *deck.PersistError
	switch {
	case errors.As(err, &re):
		return re.status
	case errors.As(err, &le):
		switch {
		case errors.Is(err, store.ErrNotFound):
			return http.StatusNotFound
		case errors.Is(err, deck.ErrNoCandidates):
			return http.StatusUnprocessableEntity
		default:
			return http.StatusServiceUnavailable
		}
	case errors.As(err, &pe):
		return http.StatusBadGateway
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrConflict),
		errors.Is(err, deck.ErrCommitPending),
		errors.Is(err, deck.ErrPassFinished),
		errors.Is(err, deck.ErrPassInProgress),
		errors.Is(err, deck.ErrPassAborted),
		errors.Is(err, deck.ErrDuplicateVerdict):
		return http.StatusConflict
	case errors.Is(err, deck.ErrNoCandidates):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeDeckError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Printf("worldcup-service: %v", err)
	}
	writeError(w, status, err.Error())
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &requestError{status: http.StatusBadRequest, msg: err.Error()}
	}
	return nil
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

const (
	eventQueueSize   = 256
	publishTimeout   = 2 * time.Second
	broadcastChannel = "broadcast"
)

type event struct {
	eventType string
	payload   any
}

// publishEvent queues an event for Redis. It never blocks: pass input runs
// under the session lock and must not wait on the network.
func (s *Server) publishEvent(eventType string, payload any) {
	if s.rdb == nil {
		return
	}
	select {
	case s.events <- event{eventType: eventType, payload: payload}:
	default:
		log.Printf("worldcup-service: event queue full, dropping %s", eventType)
	}
}

func (s *Server) runEvents() {
	defer close(s.done)
	for {
		select {
		case ev := <-s.events:
			s.publish(ev)
		case <-s.quit:
			for {
				select {
				case ev := <-s.events:
					s.publish(ev)
				default:
					return
				}
			}
		}
	}
}

func (s *Server) publish(ev event) {
	body := map[string]any{
		"type":    ev.eventType,
		"payload": ev.payload,
	}
	data, err := json.Marshal(body)
	if err != nil {
		log.Printf("worldcup-service: encode %s: %v", ev.eventType, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := s.rdb.Publish(ctx, broadcastChannel, string(data)).Err(); err != nil {
		log.Printf("worldcup-service: publish %s: %v", ev.eventType, err)
	}
}

// publishingSink announces every successfully persisted batch.
type publishingSink struct {
	next deck.PersistenceSink
	srv  *Server
}

func (p publishingSink) ApplyOps(ctx context.Context, categoryID string, ops []deck.PersistOp) error {
	if err := p.next.ApplyOps(ctx, categoryID, ops); err != nil {
		return err
	}
	p.srv.publishEvent(eventRankingUpdated, map[string]any{
		"categoryId": categoryID,
		"ops":        ops,
	})
	return nil
}
