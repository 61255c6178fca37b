package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"worldcup-service/internal/deck"
)

// DB is the subset of *pgxpool.Pool the store needs. pgxmock pools satisfy it too.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type PostgresStore struct {
	db DB
}

func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) categoryExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM categories WHERE id=$1)`, id).Scan(&exists)
	return exists, err
}

// LoadCandidates returns the category's playable songs, most liked first.
// Songs without a media ref are skipped.
func (s *PostgresStore) LoadCandidates(ctx context.Context, categoryID string) ([]deck.Candidate, error) {
	ok, err := s.categoryExists(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("category %s: %w", categoryID, ErrNotFound)
	}

	rows, err := s.db.Query(ctx, `
        SELECT id, title, artist, youtube_id, count
        FROM songs
        WHERE category_id=$1 AND youtube_id <> ''
        ORDER BY count DESC, id
    `, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []deck.Candidate
	for rows.Next() {
		var c deck.Candidate
		if err := rows.Scan(&c.ID, &c.Title, &c.Artist, &c.MediaRef, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ApplyOps applies a batch of partial updates in one transaction. A batch
// naming an unknown song is rolled back as a whole.
func (s *PostgresStore) ApplyOps(ctx context.Context, categoryID string, ops []deck.PersistOp) error {
	if len(ops) == 0 {
		return nil
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, op := range ops {
		res, err := tx.Exec(ctx, `
            UPDATE songs
            SET count = COALESCE($3, count), is_yes = COALESCE($4, is_yes)
            WHERE category_id=$1 AND id=$2
        `, categoryID, op.ID, op.Count, op.IsYES)
		if err != nil {
			return err
		}
		if res.RowsAffected() == 0 {
			return fmt.Errorf("song %s in category %s: %w", op.ID, categoryID, ErrNotFound)
		}
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.db.Query(ctx, `
        SELECT c.id, c.name, COUNT(s.id),
               COALESCE((
                   SELECT s2.youtube_id FROM songs s2
                   WHERE s2.category_id = c.id AND s2.youtube_id <> ''
                   ORDER BY s2.count DESC, s2.id
                   LIMIT 1
               ), '')
        FROM categories c
        LEFT JOIN songs s ON s.category_id = c.id AND s.youtube_id <> ''
        GROUP BY c.id, c.name
        ORDER BY c.name
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Category, 0)
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.SongCount, &c.CoverMediaRef); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Ranking lists a category's songs by accumulated YES count.
func (s *PostgresStore) Ranking(ctx context.Context, categoryID string, limit int) ([]deck.Candidate, error) {
	ok, err := s.categoryExists(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("category %s: %w", categoryID, ErrNotFound)
	}

	rows, err := s.db.Query(ctx, `
        SELECT id, title, artist, youtube_id, count, is_yes
        FROM songs
        WHERE category_id=$1
        ORDER BY count DESC, id
        LIMIT $2
    `, categoryID, rankingLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]deck.Candidate, 0)
	for rows.Next() {
		var c deck.Candidate
		if err := rows.Scan(&c.ID, &c.Title, &c.Artist, &c.MediaRef, &c.Count, &c.IsYES); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) CreateCategory(ctx context.Context, name string) (Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Category{}, errors.New("store: category name is required")
	}
	c := Category{ID: uuid.NewString(), Name: name}
	_, err := s.db.Exec(ctx, `INSERT INTO categories(id, name) VALUES($1,$2)`, c.ID, c.Name)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Category{}, ErrConflict
		}
		return Category{}, err
	}
	return c, nil
}

// AddSong inserts a song into a category with a zero count.
func (s *PostgresStore) AddSong(ctx context.Context, categoryID string, song deck.Candidate) (deck.Candidate, error) {
	if song.ID == "" {
		song.ID = uuid.NewString()
	}
	song.Count, song.IsYES = 0, false
	_, err := s.db.Exec(ctx, `
        INSERT INTO songs(id, category_id, title, artist, youtube_id)
        VALUES($1,$2,$3,$4,$5)
    `, song.ID, categoryID, song.Title, song.Artist, song.MediaRef)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23503":
				return deck.Candidate{}, fmt.Errorf("category %s: %w", categoryID, ErrNotFound)
			case "23505":
				return deck.Candidate{}, ErrConflict
			}
		}
		return deck.Candidate{}, err
	}
	return song, nil
}
