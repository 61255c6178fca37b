// Package store keeps categories and their songs, in PostgreSQL or SQLite.
// Both stores act as the deck's candidate source and persistence sink.
package store

import (
	"errors"

	"worldcup-service/internal/deck"
)

var (
	ErrNotFound = errors.New("store: not found")
	ErrConflict = errors.New("store: already exists")
)

// Category is a named group of songs a pass runs over.
type Category struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	SongCount     int    `json:"songCount"`
	CoverMediaRef string `json:"coverMediaRef,omitempty"`
}

var (
	_ deck.CandidateSource = (*PostgresStore)(nil)
	_ deck.PersistenceSink = (*PostgresStore)(nil)
	_ deck.CandidateSource = (*SQLiteStore)(nil)
	_ deck.PersistenceSink = (*SQLiteStore)(nil)
)

const defaultRankingLimit = 50

func rankingLimit(limit int) int {
	if limit <= 0 {
		return defaultRankingLimit
	}
	return limit
}
