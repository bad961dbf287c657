package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/deckrec/deckrec/internal/stats"
)

// Deck is one archived decklist row.
type Deck struct {
	ID           int64
	Name         string
	HeroCode     string
	HeroName     string
	DateCreation time.Time
	UserID       *int64
	Slots        map[string]int
	Meta         string
	Tags         string
	Version      string
}

// Record converts the deck to the pipeline's input shape.
func (d Deck) Record() stats.Record {
	return stats.Record{
		HeroCode: d.HeroCode,
		HeroName: d.HeroName,
		Created:  d.DateCreation,
		Meta:     d.Meta,
		Slots:    d.Slots,
	}
}

// SaveDay stores one day's decklists and its checkpoint in a single
// transaction, so a crash mid-day re-fetches the whole day rather than
// leaving half of it behind. Decks upsert by ID: the API may return the
// same deck on adjacent days after edits.
func (db *DB) SaveDay(day string, decks []Deck, skipped bool) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO decks (id, name, hero_code, hero_name, date_creation, user_id, slots, meta, tags, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			hero_code = excluded.hero_code,
			hero_name = excluded.hero_name,
			date_creation = excluded.date_creation,
			user_id = excluded.user_id,
			slots = excluded.slots,
			meta = excluded.meta,
			tags = excluded.tags,
			version = excluded.version
	`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, d := range decks {
		slots, err := json.Marshal(d.Slots)
		if err != nil {
			return fmt.Errorf("encode slots for deck %d: %w", d.ID, err)
		}
		var userID any
		if d.UserID != nil {
			userID = *d.UserID
		}
		if _, err := stmt.Exec(d.ID, d.Name, d.HeroCode, d.HeroName,
			d.DateCreation.UTC().Format(time.RFC3339), userID,
			string(slots), d.Meta, d.Tags, d.Version); err != nil {
			return fmt.Errorf("insert deck %d: %w", d.ID, err)
		}
	}

	var skippedInt int
	if skipped {
		skippedInt = 1
	}
	if _, err := tx.Exec(`
		INSERT INTO fetch_days (day, deck_count, skipped, fetched_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(day) DO UPDATE SET
			deck_count = excluded.deck_count,
			skipped = excluded.skipped,
			fetched_at = excluded.fetched_at
	`, day, len(decks), skippedInt, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("checkpoint day %s: %w", day, err)
	}

	return tx.Commit()
}

// DayFetched reports whether a day already has a successful checkpoint.
// Skipped days return false so a re-run retries them.
func (db *DB) DayFetched(day string) (bool, error) {
	var skipped int
	err := db.QueryRow("SELECT skipped FROM fetch_days WHERE day = ?", day).Scan(&skipped)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check day %s: %w", day, err)
	}
	return skipped == 0, nil
}

// FetchedDayCount returns how many days have successful checkpoints.
func (db *DB) FetchedDayCount() (int, error) {
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM fetch_days WHERE skipped = 0").Scan(&n)
	return n, err
}

// DeckCount returns the number of archived decks.
func (db *DB) DeckCount() (int, error) {
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM decks").Scan(&n)
	return n, err
}

// AllDecks loads every archived deck. The corpus fits comfortably in
// memory; the pipeline wants it all at once anyway.
func (db *DB) AllDecks() ([]Deck, error) {
	rows, err := db.Query(`
		SELECT id, name, hero_code, hero_name, date_creation, user_id, slots, meta, tags, version
		FROM decks ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query decks: %w", err)
	}
	defer rows.Close()

	var decks []Deck
	for rows.Next() {
		var d Deck
		var created, slots string
		var userID sql.NullInt64
		if err := rows.Scan(&d.ID, &d.Name, &d.HeroCode, &d.HeroName, &created,
			&userID, &slots, &d.Meta, &d.Tags, &d.Version); err != nil {
			return nil, fmt.Errorf("scan deck: %w", err)
		}
		t, err := time.Parse(time.RFC3339, created)
		if err != nil {
			return nil, fmt.Errorf("parse date for deck %d: %w", d.ID, err)
		}
		d.DateCreation = t
		if userID.Valid {
			v := userID.Int64
			d.UserID = &v
		}
		if err := json.Unmarshal([]byte(slots), &d.Slots); err != nil {
			return nil, fmt.Errorf("decode slots for deck %d: %w", d.ID, err)
		}
		decks = append(decks, d)
	}
	return decks, rows.Err()
}

// DeckCountsByHero returns deck counts keyed by raw hero code.
func (db *DB) DeckCountsByHero() (map[string]int, error) {
	rows, err := db.Query("SELECT hero_code, COUNT(*) FROM decks GROUP BY hero_code")
	if err != nil {
		return nil, fmt.Errorf("query hero counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var code string
		var n int
		if err := rows.Scan(&code, &n); err != nil {
			return nil, fmt.Errorf("scan hero count: %w", err)
		}
		counts[code] = n
	}
	return counts, rows.Err()
}
