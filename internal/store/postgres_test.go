package store

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worldcup-service/internal/deck"
)

func setupMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return NewPostgresStore(mock), mock
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func TestPostgresStore_LoadCandidates(t *testing.T) {
	s, mock := setupMockStore(t)
	defer mock.Close()
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs("cat-1").
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectQuery("SELECT id, title, artist, youtube_id, count\\s+FROM songs").
			WithArgs("cat-1").
			WillReturnRows(pgxmock.NewRows([]string{"id", "title", "artist", "youtube_id", "count"}).
				AddRow("s2", "Hey Jude", "The Beatles", "A_MjCqQoLLA", 7).
				AddRow("s1", "Yesterday", "The Beatles", "NrgmdOz227I", 2))

		got, err := s.LoadCandidates(ctx, "cat-1")
		require.NoError(t, err)
		assert.Equal(t, []deck.Candidate{
			{ID: "s2", Title: "Hey Jude", Artist: "The Beatles", MediaRef: "A_MjCqQoLLA", Count: 7},
			{ID: "s1", Title: "Yesterday", Artist: "The Beatles", MediaRef: "NrgmdOz227I", Count: 2},
		}, got)
	})

	t.Run("UnknownCategory", func(t *testing.T) {
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs("nope").
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

		_, err := s.LoadCandidates(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ApplyOps(t *testing.T) {
	ctx := context.Background()
	ops := []deck.PersistOp{
		{ID: "a", Count: intPtr(3), IsYES: boolPtr(true)},
		{ID: "b", IsYES: boolPtr(false)},
	}

	t.Run("CommitsBatch", func(t *testing.T) {
		s, mock := setupMockStore(t)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE songs").
			WithArgs("cat-1", "a", pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectExec("UPDATE songs").
			WithArgs("cat-1", "b", pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectCommit()

		require.NoError(t, s.ApplyOps(ctx, "cat-1", ops))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("RollsBackOnUnknownSong", func(t *testing.T) {
		s, mock := setupMockStore(t)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE songs").
			WithArgs("cat-1", "a", pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectExec("UPDATE songs").
			WithArgs("cat-1", "b", pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectRollback()

		err := s.ApplyOps(ctx, "cat-1", ops)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("EmptyBatchIsNoop", func(t *testing.T) {
		s, mock := setupMockStore(t)
		defer mock.Close()

		assert.NoError(t, s.ApplyOps(ctx, "cat-1", nil))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresStore_ListCategories(t *testing.T) {
	s, mock := setupMockStore(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT c.id, c.name").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "count", "youtube_id"}).
			AddRow("c1", "80s", 12, "djV11Xbc914").
			AddRow("c2", "Empty", 0, ""))

	got, err := s.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Category{
		{ID: "c1", Name: "80s", SongCount: 12, CoverMediaRef: "djV11Xbc914"},
		{ID: "c2", Name: "Empty"},
	}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Ranking(t *testing.T) {
	s, mock := setupMockStore(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("c1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("ORDER BY count DESC, id\\s+LIMIT").
		WithArgs("c1", defaultRankingLimit).
		WillReturnRows(pgxmock.NewRows([]string{"id", "title", "artist", "youtube_id", "count", "is_yes"}).
			AddRow("s1", "Take On Me", "a-ha", "djV11Xbc914", 9, true))

	got, err := s.Ranking(context.Background(), "c1", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 9, got[0].Count)
	assert.True(t, got[0].IsYES)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateCategory(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		s, mock := setupMockStore(t)
		defer mock.Close()

		mock.ExpectExec("INSERT INTO categories").
			WithArgs(pgxmock.AnyArg(), "90s").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		c, err := s.CreateCategory(ctx, "  90s ")
		require.NoError(t, err)
		assert.Equal(t, "90s", c.Name)
		assert.NotEmpty(t, c.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Duplicate", func(t *testing.T) {
		s, mock := setupMockStore(t)
		defer mock.Close()

		mock.ExpectExec("INSERT INTO categories").
			WithArgs(pgxmock.AnyArg(), "90s").
			WillReturnError(&pgconn.PgError{Code: "23505"})

		_, err := s.CreateCategory(ctx, "90s")
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("BlankName", func(t *testing.T) {
		s, mock := setupMockStore(t)
		defer mock.Close()

		_, err := s.CreateCategory(ctx, "   ")
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresStore_AddSong(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		s, mock := setupMockStore(t)
		defer mock.Close()

		mock.ExpectExec("INSERT INTO songs").
			WithArgs("s1", "c1", "Africa", "Toto", "FTQbiNvZqaY").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		song, err := s.AddSong(ctx, "c1", deck.Candidate{ID: "s1", Title: "Africa", Artist: "Toto", MediaRef: "FTQbiNvZqaY", Count: 99})
		require.NoError(t, err)
		assert.Equal(t, 0, song.Count, "new songs start at zero")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("UnknownCategory", func(t *testing.T) {
		s, mock := setupMockStore(t)
		defer mock.Close()

		mock.ExpectExec("INSERT INTO songs").
			WithArgs(pgxmock.AnyArg(), "missing", "Africa", "Toto", "").
			WillReturnError(&pgconn.PgError{Code: "23503"})

		_, err := s.AddSong(ctx, "missing", deck.Candidate{Title: "Africa", Artist: "Toto"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("DriverError", func(t *testing.T) {
		s, mock := setupMockStore(t)
		defer mock.Close()

		mock.ExpectExec("INSERT INTO songs").
			WithArgs(pgxmock.AnyArg(), "c1", "", "", "").
			WillReturnError(errors.New("conn reset"))

		_, err := s.AddSong(ctx, "c1", deck.Candidate{})
		assert.EqualError(t, err, "conn reset")
	})
}

func TestAutoMigrate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS categories").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS songs(?s:.*)PRIMARY KEY \(category_id, id\)`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS").WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, AutoMigrate(context.Background(), mock))
	assert.NoError(t, mock.ExpectationsWereMet())
}
