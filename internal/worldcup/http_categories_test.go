package worldcup

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"worldcup-service/internal/deck"
	"worldcup-service/internal/store"
)

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t, new(MockStore), nil, testOptions())

	rec := doRequest(t, srv.Router(), "GET", "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "worldcup-service", body["service"])
	assert.EqualValues(t, 0, body["sessions"])
}

func TestHandleListCategories(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		st := new(MockStore)
		st.On("ListCategories", mock.Anything).Return([]store.Category{
			{ID: "c1", Name: "Rock", SongCount: 12, CoverMediaRef: "abc"},
			{ID: "c2", Name: "Empty"},
		}, nil)
		srv := newTestServer(t, st, nil, testOptions())

		rec := doRequest(t, srv.Router(), "GET", "/categories", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody[struct {
			Items []CategoryView `json:"items"`
		}](t, rec)
		require.Len(t, body.Items, 2)
		assert.Equal(t, "Rock", body.Items[0].Name)
		assert.Equal(t, 12, body.Items[0].SongCount)
		assert.Equal(t, "https://img.youtube.com/vi/abc/0.jpg", body.Items[0].CoverThumbnailURL)
		assert.Empty(t, body.Items[1].CoverThumbnailURL)
	})

	t.Run("store error", func(t *testing.T) {
		st := new(MockStore)
		st.On("ListCategories", mock.Anything).Return(nil, errors.New("db error"))
		srv := newTestServer(t, st, nil, testOptions())

		rec := doRequest(t, srv.Router(), "GET", "/categories", nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestHandleCreateCategory(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		st := new(MockStore)
		st.On("CreateCategory", mock.Anything, "Rock").Return(store.Category{ID: "c1", Name: "Rock"}, nil)
		srv := newTestServer(t, st, nil, testOptions())

		rec := doRequest(t, srv.Router(), "POST", "/categories", map[string]string{"name": "Rock"})
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "c1", decodeBody[store.Category](t, rec).ID)
	})

	t.Run("missing name", func(t *testing.T) {
		srv := newTestServer(t, new(MockStore), nil, testOptions())
		rec := doRequest(t, srv.Router(), "POST", "/categories", map[string]string{"name": "  "})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid body", func(t *testing.T) {
		srv := newTestServer(t, new(MockStore), nil, testOptions())
		req := httptest.NewRequest("POST", "/categories", bytes.NewBufferString("{invalid}"))
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("duplicate name", func(t *testing.T) {
		st := new(MockStore)
		st.On("CreateCategory", mock.Anything, "Rock").Return(store.Category{}, store.ErrConflict)
		srv := newTestServer(t, st, nil, testOptions())

		rec := doRequest(t, srv.Router(), "POST", "/categories", map[string]string{"name": "Rock"})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestHandleAddSong(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		st := new(MockStore)
		st.On("AddSong", mock.Anything, "c1", deck.Candidate{Title: "One", Artist: "U2", MediaRef: "xyz"}).
			Return(deck.Candidate{ID: "s1", Title: "One", Artist: "U2", MediaRef: "xyz"}, nil)
		srv := newTestServer(t, st, nil, testOptions())

		rec := doRequest(t, srv.Router(), "POST", "/categories/c1/songs", map[string]string{
			"title": " One ", "artist": "U2", "mediaRef": "xyz",
		})
		require.Equal(t, http.StatusCreated, rec.Code)
		song := decodeBody[SongView](t, rec)
		assert.Equal(t, "s1", song.ID)
		assert.Equal(t, "https://www.youtube.com/watch?v=xyz", song.WatchURL)
	})

	t.Run("missing title", func(t *testing.T) {
		srv := newTestServer(t, new(MockStore), nil, testOptions())
		rec := doRequest(t, srv.Router(), "POST", "/categories/c1/songs", map[string]string{"mediaRef": "xyz"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown category", func(t *testing.T) {
		st := new(MockStore)
		st.On("AddSong", mock.Anything, "nope", mock.Anything).Return(deck.Candidate{}, store.ErrNotFound)
		srv := newTestServer(t, st, nil, testOptions())

		rec := doRequest(t, srv.Router(), "POST", "/categories/nope/songs", map[string]string{"title": "One"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHandleRanking(t *testing.T) {
	t.Run("default limit", func(t *testing.T) {
		st := new(MockStore)
		st.On("Ranking", mock.Anything, "c1", 50).Return([]deck.Candidate{
			{ID: "s2", Count: 9},
			{ID: "s1", Count: 4},
		}, nil)
		srv := newTestServer(t, st, nil, testOptions())

		rec := doRequest(t, srv.Router(), "GET", "/categories/c1/ranking", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody[struct {
			CategoryID string     `json:"categoryId"`
			Items      []SongView `json:"items"`
		}](t, rec)
		assert.Equal(t, "c1", body.CategoryID)
		require.Len(t, body.Items, 2)
		assert.Equal(t, "s2", body.Items[0].ID)
	})

	t.Run("limit is capped", func(t *testing.T) {
		st := new(MockStore)
		st.On("Ranking", mock.Anything, "c1", maxRankingLimit).Return([]deck.Candidate{}, nil)
		srv := newTestServer(t, st, nil, testOptions())

		rec := doRequest(t, srv.Router(), "GET", "/categories/c1/ranking?limit=5000", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		st.AssertExpectations(t)
	})

	t.Run("unknown category", func(t *testing.T) {
		st := new(MockStore)
		st.On("Ranking", mock.Anything, "nope", 50).Return(nil, store.ErrNotFound)
		srv := newTestServer(t, st, nil, testOptions())

		rec := doRequest(t, srv.Router(), "GET", "/categories/nope/ranking", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
