package store

import (
	"context"
	"log"
)

// AutoMigrate creates the PostgreSQL schema if it is missing.
func AutoMigrate(ctx context.Context, db DB) error {
	_, err := db.Exec(ctx, `
      CREATE TABLE IF NOT EXISTS categories(
          id TEXT PRIMARY KEY,
          name TEXT NOT NULL UNIQUE,
          created_at TIMESTAMPTZ NOT NULL DEFAULT now()
      )
  `)
	if err != nil {
		log.Printf("migrate worldcup-service: %v", err)
		return err
	}

	if _, err := db.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS songs(
            id TEXT NOT NULL,
            category_id TEXT NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
            title TEXT NOT NULL DEFAULT '',
            artist TEXT NOT NULL DEFAULT '',
            youtube_id TEXT NOT NULL DEFAULT '',
            count INT NOT NULL DEFAULT 0 CHECK (count >= 0),
            is_yes BOOLEAN NOT NULL DEFAULT false,
            created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
            PRIMARY KEY (category_id, id)
        )
    `); err != nil {
		log.Printf("migrate worldcup-service: %v", err)
		return err
	}

	if _, err := db.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_songs_category_count ON songs(category_id, count DESC)`); err != nil {
		log.Printf("migrate index idx_songs_category_count: %v", err)
	}
	return nil
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS categories(
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS songs(
    id TEXT NOT NULL,
    category_id TEXT NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
    title TEXT NOT NULL DEFAULT '',
    artist TEXT NOT NULL DEFAULT '',
    youtube_id TEXT NOT NULL DEFAULT '',
    count INTEGER NOT NULL DEFAULT 0 CHECK (count >= 0),
    is_yes INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (category_id, id)
);
CREATE INDEX IF NOT EXISTS idx_songs_category_count ON songs(category_id, count DESC);
`
