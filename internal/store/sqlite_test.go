package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worldcup-service/internal/deck"
)

func setupSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "worldcup.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedCategory(t *testing.T, s *SQLiteStore, name string, songs ...deck.Candidate) Category {
	t.Helper()
	ctx := context.Background()
	c, err := s.CreateCategory(ctx, name)
	require.NoError(t, err)
	for _, song := range songs {
		_, err := s.AddSong(ctx, c.ID, song)
		require.NoError(t, err)
	}
	return c
}

func TestSQLiteStore_LoadCandidatesSkipsMissingMedia(t *testing.T) {
	s := setupSQLiteStore(t)
	c := seedCategory(t, s, "Rock",
		deck.Candidate{ID: "a", Title: "One", MediaRef: "yt-a"},
		deck.Candidate{ID: "b", Title: "Two"},
		deck.Candidate{ID: "c", Title: "Three", MediaRef: "yt-c"},
	)

	got, err := s.LoadCandidates(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, []string{got[0].ID, got[1].ID})
	assert.Len(t, got, 2)

	_, err = s.LoadCandidates(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_ApplyOpsAndRanking(t *testing.T) {
	s := setupSQLiteStore(t)
	ctx := context.Background()
	c := seedCategory(t, s, "Pop",
		deck.Candidate{ID: "a", Title: "A", MediaRef: "yt-a"},
		deck.Candidate{ID: "b", Title: "B", MediaRef: "yt-b"},
	)

	require.NoError(t, s.ApplyOps(ctx, c.ID, []deck.PersistOp{
		{ID: "a", Count: intPtr(0), IsYES: boolPtr(false)},
		{ID: "b", Count: intPtr(1), IsYES: boolPtr(true)},
	}))

	ranked, err := s.Ranking(ctx, c.ID, 10)
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, "b", ranked[0].ID)
	assert.Equal(t, 1, ranked[0].Count)
	assert.True(t, ranked[0].IsYES)

	require.NoError(t, s.ApplyOps(ctx, c.ID, []deck.PersistOp{{ID: "b", IsYES: boolPtr(false)}}))
	ranked, err = s.Ranking(ctx, c.ID, 1)
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, 1, ranked[0].Count, "a nil count leaves the stored count alone")
	assert.False(t, ranked[0].IsYES)

	loaded, err := s.LoadCandidates(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "b", loaded[0].ID, "deck order follows count")
}

func TestSQLiteStore_ApplyOpsIsAtomic(t *testing.T) {
	s := setupSQLiteStore(t)
	ctx := context.Background()
	c := seedCategory(t, s, "Jazz", deck.Candidate{ID: "a", MediaRef: "yt-a"})

	err := s.ApplyOps(ctx, c.ID, []deck.PersistOp{
		{ID: "a", Count: intPtr(5), IsYES: boolPtr(true)},
		{ID: "ghost", Count: intPtr(1)},
	})
	assert.ErrorIs(t, err, ErrNotFound)

	ranked, err := s.Ranking(ctx, c.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, ranked[0].Count)
}

func TestSQLiteStore_ListCategories(t *testing.T) {
	s := setupSQLiteStore(t)
	ctx := context.Background()
	rock := seedCategory(t, s, "Rock",
		deck.Candidate{ID: "a", MediaRef: "yt-a"},
		deck.Candidate{ID: "b", MediaRef: "yt-b"},
		deck.Candidate{ID: "x"},
	)
	seedCategory(t, s, "Ambient")

	require.NoError(t, s.ApplyOps(ctx, rock.ID, []deck.PersistOp{{ID: "b", Count: intPtr(4)}}))

	got, err := s.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, Category{ID: got[0].ID, Name: "Ambient"}, got[0])
	assert.Equal(t, Category{ID: rock.ID, Name: "Rock", SongCount: 2, CoverMediaRef: "yt-b"}, got[1])
}

func TestSQLiteStore_Conflicts(t *testing.T) {
	s := setupSQLiteStore(t)
	ctx := context.Background()
	c := seedCategory(t, s, "Rock", deck.Candidate{ID: "a"})

	_, err := s.CreateCategory(ctx, "Rock")
	assert.ErrorIs(t, err, ErrConflict)

	_, err = s.AddSong(ctx, c.ID, deck.Candidate{ID: "a"})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = s.AddSong(ctx, "missing", deck.Candidate{ID: "z"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_SongIDsAreScopedToCategory(t *testing.T) {
	s := setupSQLiteStore(t)
	ctx := context.Background()
	rock := seedCategory(t, s, "Rock", deck.Candidate{ID: "a", MediaRef: "yt-rock"})
	pop := seedCategory(t, s, "Pop", deck.Candidate{ID: "a", MediaRef: "yt-pop"})

	require.NoError(t, s.ApplyOps(ctx, pop.ID, []deck.PersistOp{{ID: "a", Count: intPtr(3), IsYES: boolPtr(true)}}))

	got, err := s.Ranking(ctx, rock.ID, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "yt-rock", got[0].MediaRef)
	assert.Equal(t, 0, got[0].Count)
	assert.False(t, got[0].IsYES)

	got, err = s.Ranking(ctx, pop.ID, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].Count)

	_, err = s.AddSong(ctx, pop.ID, deck.Candidate{ID: "a"})
	assert.ErrorIs(t, err, ErrConflict)
}
