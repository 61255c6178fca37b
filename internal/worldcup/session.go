package worldcup

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"worldcup-service/internal/deck"
	"worldcup-service/internal/media"
)

var errPassNotFound = &requestError{status: http.StatusNotFound, msg: "pass not found"}

// session is one client's pass over a category. Every access to the
// controller happens under mu, so the deck sees one ordered event stream.
type session struct {
	id  string
	srv *Server

	mu         sync.Mutex
	ctrl       *deck.Controller
	preview    *media.Preview
	playingFor string
	clients    map[*wsClient]struct{}
	lastSeen   time.Time
	framing    bool
	closed     bool
}

type registry struct {
	mu       sync.RWMutex
	sessions map[string]*session
}

func newRegistry() *registry {
	return &registry{sessions: make(map[string]*session)}
}

func (r *registry) put(s *session) {
	r.mu.Lock()
	r.sessions[s.id] = s
	r.mu.Unlock()
}

func (r *registry) get(id string) (*session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, errPassNotFound
	}
	return s, nil
}

func (r *registry) remove(id string) (*session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	return s, ok
}

func (r *registry) drain() []*session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*session, 0, len(r.sessions))
	for id, s := range r.sessions {
		out = append(out, s)
		delete(r.sessions, id)
	}
	return out
}

func (r *registry) snapshot() []*session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

func (r *registry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// startPass loads a category and opens a new session on it.
func (s *Server) startPass(ctx context.Context, categoryID string, shuffle bool) (*session, PassSnapshot, error) {
	sess := &session{
		id:       uuid.NewString(),
		srv:      s,
		clients:  make(map[*wsClient]struct{}),
		lastSeen: time.Now(),
	}
	sess.ctrl = deck.NewController(s.store, publishingSink{next: s.store, srv: s}, deck.Options{
		Config:         s.opts.Deck,
		Lookahead:      s.opts.Lookahead,
		PersistTimeout: s.opts.PersistTimeout,
		OnFinish:       sess.onFinish,
	})
	if err := sess.ctrl.Load(ctx, categoryID); err != nil {
		sess.ctrl.Close()
		return nil, PassSnapshot{}, err
	}
	if shuffle {
		if err := sess.ctrl.Shuffle(nil); err != nil {
			sess.ctrl.Close()
			return nil, PassSnapshot{}, err
		}
	}
	sess.preview = media.NewPreview(s.durations, sess.onPreviewEnded)

	sess.mu.Lock()
	sess.afterInput()
	snap := sess.snapshotLocked()
	sess.mu.Unlock()

	s.sessions.put(sess)
	s.publishEvent(eventPassStarted, map[string]any{
		"passId":     sess.id,
		"categoryId": categoryID,
		"total":      snap.Total,
	})
	return sess, snap, nil
}

// do runs fn against the controller and then refreshes previews, frames and
// WebSocket subscribers.
func (s *session) do(fn func(c *deck.Controller) error) (PassSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return PassSnapshot{}, errPassNotFound
	}
	s.lastSeen = time.Now()
	err := fn(s.ctrl)
	s.afterInput()
	return s.snapshotLocked(), err
}

func (s *session) afterInput() {
	s.syncPreview()
	s.kickFrames()
	s.broadcastLocked()
}

// syncPreview plays the front card's media once per card.
func (s *session) syncPreview() {
	cur, ok := s.ctrl.Current()
	if !ok || s.ctrl.Aborted() != nil {
		s.preview.Stop()
		s.playingFor = ""
		return
	}
	if cur.ID == s.playingFor {
		return
	}
	s.playingFor = cur.ID
	s.preview.Play(context.Background(), cur.MediaRef)
}

func (s *session) kickFrames() {
	if s.framing || s.closed || !s.ctrl.Animating() {
		return
	}
	s.framing = true
	go s.runFrames(s.srv.opts.FrameInterval)
}

func (s *session) runFrames(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		s.mu.Lock()
		if s.closed {
			s.framing = false
			s.mu.Unlock()
			return
		}
		if err := s.ctrl.Step(interval); err != nil {
			log.Printf("worldcup-service: pass %s: %v", s.id, err)
		}
		s.syncPreview()
		s.broadcastLocked()
		if !s.ctrl.Animating() {
			s.framing = false
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()
	}
}

// onFinish runs under the session lock, so the event is only queued here.
func (s *session) onFinish(res deck.PassResult) {
	liked := make([]string, 0, len(res.Liked))
	for _, c := range res.Liked {
		liked = append(liked, c.ID)
	}
	s.srv.publishEvent(eventPassCompleted, map[string]any{
		"passId":     s.id,
		"categoryId": res.CategoryID,
		"ledger":     res.Ledger,
		"liked":      liked,
	})
}

func (s *session) onPreviewEnded(ref string) {
	_, _ = s.do(func(c *deck.Controller) error {
		c.MediaEnded(ref)
		return nil
	})
}

func (s *session) snapshotLocked() PassSnapshot {
	c := s.ctrl
	snap := PassSnapshot{
		ID:         s.id,
		CategoryID: c.CategoryID(),
		State:      c.GestureState().String(),
		Cursor:     c.Cursor(),
		Total:      c.Len(),
		Finished:   c.IsFinished(),
		Feedback:   c.Feedback(),
		Stack:      c.Stack(),
		LikedCount: len(c.LikedList()),
	}
	if cur, ok := c.Current(); ok {
		v := songView(cur)
		snap.Current = &v
	}
	if next, ok := c.Lookahead(); ok {
		v := songView(next)
		snap.Lookahead = &v
	}
	if err := c.Aborted(); err != nil {
		snap.Aborted = err.Error()
	}
	return snap
}

func (s *session) broadcastLocked() {
	if len(s.clients) == 0 {
		return
	}
	data, err := json.Marshal(wsEnvelope{Type: "pass.snapshot", Payload: s.snapshotLocked()})
	if err != nil {
		log.Printf("worldcup-service: encode snapshot: %v", err)
		return
	}
	for c := range s.clients {
		select {
		case c.send <- data:
		default:
			// Slow reader; the next snapshot supersedes this one.
		}
	}
}

func (s *session) addClient(c *wsClient) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.clients[c] = struct{}{}
	s.lastSeen = time.Now()
	return true
}

func (s *session) removeClient(c *wsClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
	s.lastSeen = time.Now()
}

// close stops the session and waits for its pending writes.
func (s *session) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.preview.Stop()
	for c := range s.clients {
		delete(s.clients, c)
		close(c.send)
	}
	s.mu.Unlock()

	s.ctrl.Close()
}

func (s *session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.clients) > 0 {
		return 0
	}
	return now.Sub(s.lastSeen)
}

// StartJanitor closes sessions idle for longer than the session TTL.
func (s *Server) StartJanitor(ctx context.Context) {
	interval := s.opts.SessionTTL / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case now := <-ticker.C:
				s.sweepSessions(now)
			}
		}
	}()
}

func (s *Server) sweepSessions(now time.Time) int {
	n := 0
	for _, sess := range s.sessions.snapshot() {
		if sess.idleSince(now) <= s.opts.SessionTTL {
			continue
		}
		if _, ok := s.sessions.remove(sess.id); ok {
			log.Printf("worldcup-service: closing idle pass %s", sess.id)
			sess.close()
			n++
		}
	}
	return n
}
