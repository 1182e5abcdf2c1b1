package db

import "database/sql"

// MigrateUp creates the feeds/items/read_state/fetch_log/categories schema
// if it does not already exist. Statements are idempotent (IF NOT EXISTS)
// so MigrateUp is safe to call on every process start, matching this
// project's migration-at-boot convention.
func MigrateUp(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS feeds (
    id               UUID PRIMARY KEY,
    url              TEXT NOT NULL UNIQUE,
    title            TEXT,
    etag             TEXT,
    last_modified    TIMESTAMPTZ,
    last_fetch_at    TIMESTAMPTZ,
    last_status      INTEGER,
    next_run_at      TIMESTAMPTZ NOT NULL,
    interval_seconds INTEGER NOT NULL DEFAULT 900,
    per_host_key     TEXT NOT NULL,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS items (
    id            UUID PRIMARY KEY,
    feed_id       UUID NOT NULL REFERENCES feeds(id) ON DELETE CASCADE,
    guid          TEXT NOT NULL,
    title         TEXT,
    url           TEXT,
    image_url     TEXT,
    content_html  TEXT,
    content_text  TEXT,
    published_at  TIMESTAMPTZ,
    fetched_at    TIMESTAMPTZ NOT NULL,
    hash          TEXT NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
    CONSTRAINT uq_items_feed_guid UNIQUE (feed_id, guid)
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS read_state (
    item_id UUID PRIMARY KEY REFERENCES items(id) ON DELETE CASCADE,
    read_at TIMESTAMPTZ,
    starred BOOLEAN NOT NULL DEFAULT FALSE
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS fetch_log (
    id          UUID PRIMARY KEY,
    feed_id     UUID NOT NULL REFERENCES feeds(id) ON DELETE CASCADE,
    status_code INTEGER NOT NULL,
    duration_ms INTEGER NOT NULL,
    bytes       INTEGER,
    error       TEXT,
    fetched_at  TIMESTAMPTZ NOT NULL
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS categories (
    id          UUID PRIMARY KEY,
    name        TEXT NOT NULL UNIQUE,
    description TEXT,
    color       TEXT,
    "order"     INTEGER NOT NULL DEFAULT 0
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS category_feed (
    category_id UUID NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
    feed_id     UUID NOT NULL REFERENCES feeds(id) ON DELETE CASCADE,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (category_id, feed_id)
)`); err != nil {
		return err
	}

	indexes := []string{
		// Scheduler due-feed scan, ordered by (next_run_at, id).
		`CREATE INDEX IF NOT EXISTS ix_feeds_next_run_at ON feeds(next_run_at, id)`,
		// Politeness-gate bootstrap / diagnostics by origin.
		`CREATE INDEX IF NOT EXISTS ix_feeds_per_host_key ON feeds(per_host_key)`,
		// Item listing ordered by recency.
		`CREATE INDEX IF NOT EXISTS ix_items_published_at ON items(published_at DESC)`,
		`CREATE INDEX IF NOT EXISTS ix_items_created_at ON items(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS ix_items_feed_id ON items(feed_id)`,
		`CREATE INDEX IF NOT EXISTS ix_categories_name ON categories(name)`,
		`CREATE INDEX IF NOT EXISTS ix_categories_order ON categories("order")`,
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return err
		}
	}

	return nil
}

// MigrateDown rolls back the feed pipeline schema. Use with caution: this
// deletes all feed, item, and fetch-log data.
func MigrateDown(db *sql.DB) error {
	dropStatements := []string{
		`DROP TABLE IF EXISTS category_feed CASCADE`,
		`DROP TABLE IF EXISTS categories CASCADE`,
		`DROP TABLE IF EXISTS fetch_log CASCADE`,
		`DROP TABLE IF EXISTS read_state CASCADE`,
		`DROP TABLE IF EXISTS items CASCADE`,
		`DROP TABLE IF EXISTS feeds CASCADE`,
	}

	for _, stmt := range dropStatements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
