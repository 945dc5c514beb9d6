package store

import "database/sql"

// Schema is the complete crawl schema.
const Schema = `
-- Long-lived product records, one per canonical URL
CREATE TABLE IF NOT EXISTS products (
    url             TEXT PRIMARY KEY,
    site_id         TEXT NOT NULL,
    name            TEXT NOT NULL DEFAULT '',
    price           REAL,
    in_stock        INTEGER,
    rating          REAL,
    image_url       TEXT NOT NULL DEFAULT '',
    overview        TEXT NOT NULL DEFAULT '',
    description     TEXT NOT NULL DEFAULT '',
    last_fetched_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_products_site ON products(site_id);

-- One row per distinct (query, identity); re-issuing updates issued_at
CREATE TABLE IF NOT EXISTS searches (
    id        INTEGER PRIMARY KEY AUTOINCREMENT,
    query     TEXT NOT NULL,
    identity  TEXT NOT NULL DEFAULT '',
    issued_at INTEGER NOT NULL,
    UNIQUE(query, identity)
);

-- Ephemeral hits, fully replaced when their search is re-run
CREATE TABLE IF NOT EXISTS search_hits (
    id        INTEGER PRIMARY KEY AUTOINCREMENT,
    search_id INTEGER NOT NULL REFERENCES searches(id) ON DELETE CASCADE,
    site_id   TEXT NOT NULL,
    title     TEXT NOT NULL,
    price     REAL,
    in_stock  INTEGER,
    rating    REAL NOT NULL DEFAULT 0,
    url       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_hits_search ON search_hits(search_id, price);
CREATE INDEX IF NOT EXISTS idx_hits_url ON search_hits(url);

-- Fetch attempts, durable trail for every network call
CREATE TABLE IF NOT EXISTS fetch_log (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    site_id     TEXT NOT NULL,
    url         TEXT NOT NULL,
    kind        TEXT NOT NULL,
    status      TEXT NOT NULL,
    error       TEXT NOT NULL DEFAULT '',
    duration_ms INTEGER NOT NULL,
    fetched_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fetch_log_site ON fetch_log(site_id, fetched_at DESC);
`

// ApplySchema creates all tables and indexes. Idempotent.
func ApplySchema(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
