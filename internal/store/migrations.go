package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "cards: raw card catalog",
		SQL: `
CREATE TABLE cards (
    code           TEXT PRIMARY KEY,
    name           TEXT NOT NULL,
    type_code      TEXT NOT NULL DEFAULT '',
    faction_name   TEXT NOT NULL DEFAULT '',
    cost           INTEGER,
    pack_code      TEXT NOT NULL DEFAULT '',
    pack_name      TEXT NOT NULL DEFAULT '',
    card_set_name  TEXT NOT NULL DEFAULT '',
    deck_limit     INTEGER NOT NULL DEFAULT 1,
    image_src      TEXT NOT NULL DEFAULT '',
    fetched_at     INTEGER NOT NULL
);

CREATE INDEX idx_cards_type    ON cards(type_code);
CREATE INDEX idx_cards_faction ON cards(faction_name);
`,
	},
	{
		Version:     2,
		Description: "decks: raw decklists",
		SQL: `
CREATE TABLE decks (
    id             INTEGER PRIMARY KEY,
    name           TEXT NOT NULL DEFAULT '',
    hero_code      TEXT NOT NULL DEFAULT '',
    hero_name      TEXT NOT NULL DEFAULT '',
    date_creation  TEXT NOT NULL,
    user_id        INTEGER,
    slots          TEXT NOT NULL,
    meta           TEXT NOT NULL DEFAULT '',
    tags           TEXT NOT NULL DEFAULT '',
    version        TEXT NOT NULL DEFAULT ''
);

CREATE INDEX idx_decks_hero    ON decks(hero_code);
CREATE INDEX idx_decks_created ON decks(date_creation);
`,
	},
	{
		Version:     3,
		Description: "fetch_days: per-day retrieval checkpoints",
		SQL: `
CREATE TABLE fetch_days (
    day        TEXT PRIMARY KEY,
    deck_count INTEGER NOT NULL DEFAULT 0,
    skipped    INTEGER NOT NULL DEFAULT 0,
    fetched_at INTEGER NOT NULL
);
`,
	},
}

func (db *DB) migrate() error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
