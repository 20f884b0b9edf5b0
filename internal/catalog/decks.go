package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v4/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// DeckEntry is one line of a saved deck: a catalog card and how many copies.
type DeckEntry struct {
	CardID string `json:"cardId"`
	Count  int    `json:"count"`
}

type DeckInfo struct {
	ID    string `json:"id"`
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

var (
	ErrDeckNotFound      = errors.New("deck not found")
	ErrUnsupportedDriver = errors.New("unsupported deck database driver")
)

// DeckStore reads user decks saved by the deck builder. The room subsystem
// never writes to it.
//
// Expected schema:
//
//	decks(id TEXT PRIMARY KEY, owner TEXT, name TEXT)
//	deck_cards(deck_id TEXT, position INTEGER, card_id TEXT, count INTEGER)
type DeckStore struct {
	db *sql.DB
}

// OpenDeckStore opens the store with driver "sqlite3" or "pgx".
func OpenDeckStore(ctx context.Context, driver, dsn string) (*DeckStore, error) {
	switch driver {
	case "sqlite3", "pgx":
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open deck store: %w", err)
	}
	if driver == "sqlite3" {
		// every connection to ":memory:" is a separate database
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping deck store: %w", err)
	}
	return &DeckStore{db: db}, nil
}

// NewDeckStore wraps an existing handle.
func NewDeckStore(db *sql.DB) *DeckStore {
	return &DeckStore{db: db}
}

func (s *DeckStore) DB() *sql.DB { return s.db }

func (s *DeckStore) Close() error { return s.db.Close() }

func (s *DeckStore) ListDecks(ctx context.Context, owner string) ([]DeckInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner, name FROM decks WHERE owner = $1 ORDER BY name, id`, owner)
	if err != nil {
		return nil, fmt.Errorf("list decks: %w", err)
	}
	defer rows.Close()

	var out []DeckInfo
	for rows.Next() {
		var d DeckInfo
		if err := rows.Scan(&d.ID, &d.Owner, &d.Name); err != nil {
			return nil, fmt.Errorf("scan deck: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Entries returns the saved lines of a deck in builder order.
func (s *DeckStore) Entries(ctx context.Context, deckID string) ([]DeckEntry, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM decks WHERE id = $1`, deckID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("lookup deck %s: %w", deckID, err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", ErrDeckNotFound, deckID)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT card_id, count FROM deck_cards WHERE deck_id = $1 ORDER BY position`, deckID)
	if err != nil {
		return nil, fmt.Errorf("deck entries %s: %w", deckID, err)
	}
	defer rows.Close()

	var out []DeckEntry
	for rows.Next() {
		var e DeckEntry
		if err := rows.Scan(&e.CardID, &e.Count); err != nil {
			return nil, fmt.Errorf("scan deck entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
