package catalog

import (
	"context"
	"errors"
	"strings"
	"testing"
)

const cardsJSON = `[
	{"id": "CM-001", "name": "Vanguard", "image": "img/001.png", "power": 3},
	{"id": "CM-002", "name": "Archivist", "image": "img/002.png"},
	{"id": "CM-003", "name": "Gatekeeper", "image": "img/003.png", "power": 5}
]`

func TestLoadCatalog(t *testing.T) {
	c, err := Load(strings.NewReader(cardsJSON))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Len() != 3 {
		t.Fatalf("len = %d", c.Len())
	}
	card, ok := c.Lookup("CM-002")
	if !ok || card.ImageURL != "img/002.png" || card.Power != 0 {
		t.Fatalf("lookup = %+v ok=%v", card, ok)
	}
}

func TestLoadCatalogRejectsBadEntries(t *testing.T) {
	cases := map[string]string{
		"missing image": `[{"id":"x"}]`,
		"duplicate":     `[{"id":"x","image":"a"},{"id":"x","image":"b"}]`,
		"not json":      `{`,
	}
	for name, in := range cases {
		if _, err := Load(strings.NewReader(in)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func newSQLiteStore(t *testing.T) *DeckStore {
	t.Helper()
	ctx := context.Background()
	s, err := OpenDeckStore(ctx, "sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	stmts := []string{
		`CREATE TABLE decks (id TEXT PRIMARY KEY, owner TEXT, name TEXT)`,
		`CREATE TABLE deck_cards (deck_id TEXT, position INTEGER, card_id TEXT, count INTEGER)`,
		`INSERT INTO decks VALUES ('d1', 'alice', 'Aggro'), ('d2', 'alice', 'Control'), ('d3', 'bob', 'Mill')`,
		`INSERT INTO deck_cards VALUES
			('d1', 2, 'CM-003', 1),
			('d1', 0, 'CM-001', 3),
			('d1', 1, 'CM-999', 2),
			('d1', 3, 'CM-001', 1)`,
	}
	for _, q := range stmts {
		if _, err := s.DB().ExecContext(ctx, q); err != nil {
			t.Fatalf("seed %q: %v", q, err)
		}
	}
	return s
}

func TestDeckStoreAndBuildDeck(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	decks, err := s.ListDecks(ctx, "alice")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(decks) != 2 || decks[0].Name != "Aggro" {
		t.Fatalf("decks = %+v", decks)
	}

	entries, err := s.Entries(ctx, "d1")
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 4 || entries[0].CardID != "CM-001" || entries[0].Count != 3 {
		t.Fatalf("entries = %+v", entries)
	}

	c, _ := Load(strings.NewReader(cardsJSON))
	deck, missing := c.BuildDeck(entries)
	if deck.Len() != 2 {
		t.Fatalf("deck should hold unique known types, got %d", deck.Len())
	}
	if first, _ := deck.At(0); first.ID != "CM-001" {
		t.Fatalf("first template = %s", first.ID)
	}
	if len(missing) != 1 || missing[0] != "CM-999" {
		t.Fatalf("missing = %v", missing)
	}
}

func TestDeckNotFound(t *testing.T) {
	s := newSQLiteStore(t)
	if _, err := s.Entries(context.Background(), "nope"); !errors.Is(err, ErrDeckNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestUnsupportedDriver(t *testing.T) {
	if _, err := OpenDeckStore(context.Background(), "mongo", "x"); !errors.Is(err, ErrUnsupportedDriver) {
		t.Fatalf("err = %v", err)
	}
}
