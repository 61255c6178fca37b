package worldcup

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"worldcup-service/internal/deck"
)

func (s *Server) handleStartPass(w http.ResponseWriter, r *http.Request) {
	categoryID := chi.URLParam(r, "id")
	shuffle := r.URL.Query().Get("shuffle") == "true"

	_, snap, err := s.startPass(r.Context(), categoryID, shuffle)
	if err != nil {
		writeDeckError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

func (s *Server) passFor(r *http.Request) (*session, error) {
	return s.sessions.get(chi.URLParam(r, "sid"))
}

func (s *Server) handleGetPass(w http.ResponseWriter, r *http.Request) {
	sess, err := s.passFor(r)
	if err != nil {
		writeDeckError(w, err)
		return
	}
	snap, err := sess.do(func(*deck.Controller) error { return nil })
	if err != nil {
		writeDeckError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleGesture(w http.ResponseWriter, r *http.Request) {
	sess, err := s.passFor(r)
	if err != nil {
		writeDeckError(w, err)
		return
	}
	var body gestureRequest
	if err := decodeJSON(r, &body); err != nil {
		writeDeckError(w, err)
		return
	}

	res := deck.ResolutionIgnored
	var fn func(c *deck.Controller) error
	switch body.Type {
	case "move":
		fn = func(c *deck.Controller) error {
			c.Move(body.DX, body.DY)
			return nil
		}
	case "release":
		fn = func(c *deck.Controller) error {
			res = c.Release(body.DX, body.DY)
			return nil
		}
	default:
		writeError(w, http.StatusBadRequest, "type must be move or release")
		return
	}

	snap, err := sess.do(fn)
	if err != nil {
		writeDeckError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gestureResponse{Resolution: res.String(), Pass: snap})
}

func (s *Server) handleMediaEnded(w http.ResponseWriter, r *http.Request) {
	sess, err := s.passFor(r)
	if err != nil {
		writeDeckError(w, err)
		return
	}
	var body mediaEndedRequest
	if err := decodeJSON(r, &body); err != nil {
		writeDeckError(w, err)
		return
	}
	if body.MediaRef == "" {
		writeError(w, http.StatusBadRequest, "mediaRef is required")
		return
	}

	res := deck.ResolutionIgnored
	snap, err := sess.do(func(c *deck.Controller) error {
		res = c.MediaEnded(body.MediaRef)
		return nil
	})
	if err != nil {
		writeDeckError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gestureResponse{Resolution: res.String(), Pass: snap})
}

func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	sess, err := s.passFor(r)
	if err != nil {
		writeDeckError(w, err)
		return
	}
	var body decideRequest
	if err := decodeJSON(r, &body); err != nil {
		writeDeckError(w, err)
		return
	}
	if !body.Verdict.Valid() {
		writeError(w, http.StatusBadRequest, "verdict must be YES or NO")
		return
	}

	snap, err := sess.do(func(c *deck.Controller) error {
		return c.Decide(body.Verdict)
	})
	if err != nil {
		writeDeckError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	sess, err := s.passFor(r)
	if err != nil {
		writeDeckError(w, err)
		return
	}
	snap, err := sess.do(func(c *deck.Controller) error {
		sess.playingFor = ""
		return c.Restart()
	})
	if err != nil {
		writeDeckError(w, err)
		return
	}
	s.publishEvent(eventPassRestarted, map[string]any{
		"passId":     sess.id,
		"categoryId": snap.CategoryID,
	})
	writeJSON(w, http.StatusOK, snap)
}

// handleLiked returns the songs liked in this pass. The list is computed
// locally, so it is served even when persisting the pass failed.
func (s *Server) handleLiked(w http.ResponseWriter, r *http.Request) {
	sess, err := s.passFor(r)
	if err != nil {
		writeDeckError(w, err)
		return
	}

	var resp LikedResponse
	_, err = sess.do(func(c *deck.Controller) error {
		resp = LikedResponse{
			PassID:     sess.id,
			CategoryID: c.CategoryID(),
			Finished:   c.IsFinished(),
			Items:      songViews(c.LikedList()),
		}
		return nil
	})
	if err != nil {
		writeDeckError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.flushTimeout())
	defer cancel()
	if err := sess.ctrl.Flush(ctx); err != nil {
		resp.PersistError = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleRetryPersist resubmits the pass's failed writes, in order.
func (s *Server) handleRetryPersist(w http.ResponseWriter, r *http.Request) {
	sess, err := s.passFor(r)
	if err != nil {
		writeDeckError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.flushTimeout())
	defer cancel()
	if err := sess.ctrl.RetryPersist(ctx); err != nil {
		writeDeckError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"passId":    sess.id,
		"persisted": true,
	})
}

func (s *Server) handleDeletePass(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.remove(chi.URLParam(r, "sid"))
	if !ok {
		writeDeckError(w, errPassNotFound)
		return
	}
	sess.close()
	w.WriteHeader(http.StatusNoContent)
}
