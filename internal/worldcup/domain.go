package worldcup

import (
	"context"

	"worldcup-service/internal/deck"
	"worldcup-service/internal/media"
	"worldcup-service/internal/store"
)

// Store is everything the service needs from persistence.
type Store interface {
	deck.CandidateSource
	deck.PersistenceSink
	ListCategories(ctx context.Context) ([]store.Category, error)
	Ranking(ctx context.Context, categoryID string, limit int) ([]deck.Candidate, error)
	CreateCategory(ctx context.Context, name string) (store.Category, error)
	AddSong(ctx context.Context, categoryID string, song deck.Candidate) (deck.Candidate, error)
}

const (
	eventPassStarted    = "worldcup.pass.started"
	eventPassCompleted  = "worldcup.pass.completed"
	eventPassRestarted  = "worldcup.pass.restarted"
	eventRankingUpdated = "worldcup.ranking.updated"
)

// SongView is a candidate as the client renders it.
type SongView struct {
	deck.Candidate
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	WatchURL     string `json:"watchUrl,omitempty"`
}

func songView(c deck.Candidate) SongView {
	return SongView{
		Candidate:    c,
		ThumbnailURL: media.ThumbnailURL(c.MediaRef),
		WatchURL:     media.WatchURL(c.MediaRef),
	}
}

func songViews(cs []deck.Candidate) []SongView {
	out := make([]SongView, 0, len(cs))
	for _, c := range cs {
		out = append(out, songView(c))
	}
	return out
}

type CategoryView struct {
	store.Category
	CoverThumbnailURL string `json:"coverThumbnailUrl,omitempty"`
}

// PassSnapshot is the full client-visible state of one pass.
type PassSnapshot struct {
	ID         string          `json:"id"`
	CategoryID string          `json:"categoryId"`
	State      string          `json:"state"`
	Cursor     int             `json:"cursor"`
	Total      int             `json:"total"`
	Finished   bool            `json:"finished"`
	Current    *SongView       `json:"current,omitempty"`
	Lookahead  *SongView       `json:"lookahead,omitempty"`
	Feedback   deck.Feedback   `json:"feedback"`
	Stack      []deck.CardView `json:"stack"`
	LikedCount int             `json:"likedCount"`
	Aborted    string          `json:"aborted,omitempty"`
}

type LikedResponse struct {
	PassID       string     `json:"passId"`
	CategoryID   string     `json:"categoryId"`
	Finished     bool       `json:"finished"`
	Items        []SongView `json:"items"`
	PersistError string     `json:"persistError,omitempty"`
}

type gestureRequest struct {
	Type string  `json:"type"`
	DX   float64 `json:"dx"`
	DY   float64 `json:"dy"`
}

type gestureResponse struct {
	Resolution string       `json:"resolution"`
	Pass       PassSnapshot `json:"pass"`
}

type mediaEndedRequest struct {
	MediaRef string `json:"mediaRef"`
}

type decideRequest struct {
	Verdict deck.Verdict `json:"verdict"`
}

type createCategoryRequest struct {
	Name string `json:"name"`
}

type addSongRequest struct {
	ID       string `json:"id,omitempty"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	MediaRef string `json:"mediaRef"`
}

// wsMessage is an inbound WebSocket frame.
type wsMessage struct {
	Type     string       `json:"type"`
	DX       float64      `json:"dx"`
	DY       float64      `json:"dy"`
	MediaRef string       `json:"mediaRef,omitempty"`
	Verdict  deck.Verdict `json:"verdict,omitempty"`
}

type wsEnvelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// err domain
type requestError struct {
	status int
	msg    string
}

func (e *requestError) Error() string {
	return e.msg
}
