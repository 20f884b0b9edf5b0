package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"cross-matrix/internal/game"

	"github.com/go-playground/validator/v10"
)

// Entry is one card as published in the catalog file.
type Entry struct {
	ID    string `json:"id" validate:"required"`
	Name  string `json:"name"`
	Image string `json:"image" validate:"required"`
	Power int    `json:"power"`
}

// Catalog resolves catalog ids to card templates. It is read-only after load.
type Catalog struct {
	cards map[string]game.Card
	order []string
}

// Load parses a JSON array of entries. Entries without an id or image are rejected.
func Load(r io.Reader) (*Catalog, error) {
	var entries []Entry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	v := validator.New()
	c := &Catalog{cards: make(map[string]game.Card, len(entries))}
	for i, e := range entries {
		if err := v.Struct(e); err != nil {
			return nil, fmt.Errorf("catalog entry %d: %w", i, err)
		}
		if _, dup := c.cards[e.ID]; dup {
			return nil, fmt.Errorf("catalog entry %d: duplicate id %q", i, e.ID)
		}
		c.cards[e.ID] = game.Card{ID: e.ID, Name: e.Name, ImageURL: e.Image, Power: e.Power}
		c.order = append(c.order, e.ID)
	}
	return c, nil
}

func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func (c *Catalog) Lookup(id string) (game.Card, bool) {
	card, ok := c.cards[id]
	return card, ok
}

func (c *Catalog) Len() int { return len(c.order) }

// BuildDeck resolves stored deck entries into a deck of unique templates in
// entry order. Unknown ids are returned separately and left out of the deck.
func (c *Catalog) BuildDeck(entries []DeckEntry) (game.Deck, []string) {
	var (
		cards   []game.Card
		missing []string
	)
	for _, e := range entries {
		card, ok := c.Lookup(e.CardID)
		if !ok {
			missing = append(missing, e.CardID)
			continue
		}
		cards = append(cards, card)
	}
	return game.NewDeck(cards), missing
}
