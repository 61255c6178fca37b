package worldcup

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"worldcup-service/internal/deck"
	"worldcup-service/internal/media"
)

const maxRankingLimit = 200

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.store.ListCategories(r.Context())
	if err != nil {
		writeDeckError(w, err)
		return
	}

	items := make([]CategoryView, 0, len(cats))
	for _, c := range cats {
		items = append(items, CategoryView{
			Category:          c,
			CoverThumbnailURL: media.ThumbnailURL(c.CoverMediaRef),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
	})
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var body createCategoryRequest
	if err := decodeJSON(r, &body); err != nil {
		writeDeckError(w, err)
		return
	}
	if strings.TrimSpace(body.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	c, err := s.store.CreateCategory(r.Context(), body.Name)
	if err != nil {
		writeDeckError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleAddSong(w http.ResponseWriter, r *http.Request) {
	categoryID := chi.URLParam(r, "id")
	var body addSongRequest
	if err := decodeJSON(r, &body); err != nil {
		writeDeckError(w, err)
		return
	}
	if strings.TrimSpace(body.Title) == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	song, err := s.store.AddSong(r.Context(), categoryID, deck.Candidate{
		ID:       body.ID,
		Title:    strings.TrimSpace(body.Title),
		Artist:   strings.TrimSpace(body.Artist),
		MediaRef: strings.TrimSpace(body.MediaRef),
	})
	if err != nil {
		writeDeckError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, songView(song))
}

func (s *Server) handleRanking(w http.ResponseWriter, r *http.Request) {
	categoryID := chi.URLParam(r, "id")
	limit := queryInt(r, "limit", 50)
	if limit > maxRankingLimit {
		limit = maxRankingLimit
	}

	songs, err := s.store.Ranking(r.Context(), categoryID, limit)
	if err != nil {
		writeDeckError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"categoryId": categoryID,
		"items":      songViews(songs),
	})
}
