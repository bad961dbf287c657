package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/deckrec/deckrec/internal/catalog"
)

// ReplaceCards replaces the entire card table with a fresh fetch. The card
// list is small and the API returns it whole, so a wholesale swap is
// simpler than reconciling diffs.
func (db *DB) ReplaceCards(cards []catalog.Card) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM cards"); err != nil {
		return fmt.Errorf("clear cards: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO cards (code, name, type_code, faction_name, cost,
			pack_code, pack_name, card_set_name, deck_limit, image_src, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UnixMilli()
	for _, c := range cards {
		var cost any
		if c.Cost != nil {
			cost = *c.Cost
		}
		if _, err := stmt.Exec(c.Code, c.Name, c.TypeCode, c.FactionName, cost,
			c.PackCode, c.PackName, c.CardSetName, c.DeckLimit, c.ImageSrc, now); err != nil {
			return fmt.Errorf("insert card %s: %w", c.Code, err)
		}
	}

	return tx.Commit()
}

// AllCards loads the archived card list.
func (db *DB) AllCards() ([]catalog.Card, error) {
	rows, err := db.Query(`
		SELECT code, name, type_code, faction_name, cost,
			pack_code, pack_name, card_set_name, deck_limit, image_src
		FROM cards ORDER BY code
	`)
	if err != nil {
		return nil, fmt.Errorf("query cards: %w", err)
	}
	defer rows.Close()

	var cards []catalog.Card
	for rows.Next() {
		var c catalog.Card
		var cost sql.NullInt64
		if err := rows.Scan(&c.Code, &c.Name, &c.TypeCode, &c.FactionName, &cost,
			&c.PackCode, &c.PackName, &c.CardSetName, &c.DeckLimit, &c.ImageSrc); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		if cost.Valid {
			v := int(cost.Int64)
			c.Cost = &v
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// CardCount returns the number of archived cards.
func (db *DB) CardCount() (int, error) {
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM cards").Scan(&n)
	return n, err
}
