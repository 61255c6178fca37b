package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"worldcup-service/internal/deck"
)

// SQLiteStore is the embedded alternative to PostgresStore, selected with
// DATABASE_TYPE=sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One writer at a time; also keeps ":memory:" on a single connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite %s: %w", path, err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) categoryExists(ctx context.Context, id string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories WHERE id = ?`, id).Scan(&n)
	return n > 0, err
}

func (s *SQLiteStore) LoadCandidates(ctx context.Context, categoryID string) ([]deck.Candidate, error) {
	ok, err := s.categoryExists(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("category %s: %w", categoryID, ErrNotFound)
	}

	rows, err := s.db.QueryContext(ctx, `
        SELECT id, title, artist, youtube_id, count
        FROM songs
        WHERE category_id = ? AND youtube_id <> ''
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
	return out, rows.Err()
}

func (s *SQLiteStore) ApplyOps(ctx context.Context, categoryID string, ops []deck.PersistOp) error {
	if len(ops) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, op := range ops {
		res, err := tx.ExecContext(ctx, `
            UPDATE songs
            SET count = COALESCE(?, count), is_yes = COALESCE(?, is_yes)
            WHERE category_id = ? AND id = ?
        `, nullInt(op.Count), nullBool(op.IsYES), categoryID, op.ID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("song %s in category %s: %w", op.ID, categoryID, ErrNotFound)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.db.QueryContext(ctx, `
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
	return out, rows.Err()
}

func (s *SQLiteStore) Ranking(ctx context.Context, categoryID string, limit int) ([]deck.Candidate, error) {
	ok, err := s.categoryExists(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("category %s: %w", categoryID, ErrNotFound)
	}

	rows, err := s.db.QueryContext(ctx, `
        SELECT id, title, artist, youtube_id, count, is_yes
        FROM songs
        WHERE category_id = ?
        ORDER BY count DESC, id
        LIMIT ?
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
	return out, rows.Err()
}

func (s *SQLiteStore) CreateCategory(ctx context.Context, name string) (Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Category{}, errors.New("store: category name is required")
	}
	c := Category{ID: uuid.NewString(), Name: name}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO categories(id, name) VALUES(?, ?)`, c.ID, c.Name); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return Category{}, ErrConflict
		}
		return Category{}, err
	}
	return c, nil
}

func (s *SQLiteStore) AddSong(ctx context.Context, categoryID string, song deck.Candidate) (deck.Candidate, error) {
	ok, err := s.categoryExists(ctx, categoryID)
	if err != nil {
		return deck.Candidate{}, err
	}
	if !ok {
		return deck.Candidate{}, fmt.Errorf("category %s: %w", categoryID, ErrNotFound)
	}
	if song.ID == "" {
		song.ID = uuid.NewString()
	}
	song.Count, song.IsYES = 0, false
	_, err = s.db.ExecContext(ctx, `
        INSERT INTO songs(id, category_id, title, artist, youtube_id)
        VALUES(?, ?, ?, ?, ?)
    `, song.ID, categoryID, song.Title, song.Artist, song.MediaRef)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return deck.Candidate{}, ErrConflict
		}
		return deck.Candidate{}, err
	}
	return song, nil
}

func nullInt(p *int) any {
	if p == nil {
		return nil
	}
	return int64(*p)
}

func nullBool(p *bool) any {
	if p == nil {
		return nil
	}
	if *p {
		return int64(1)
	}
	return int64(0)
}
