package game

import (
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	suffixAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	suffixLen      = 5
)

// Minter stamps deck templates into distinct card instances.
type Minter struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewMinter constructs a Minter with provided rng or a time-seeded default.
func NewMinter(rng *rand.Rand, now func() time.Time) *Minter {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if now == nil {
		now = time.Now
	}
	return &Minter{rng: rng, now: now}
}

// Mint copies tpl and gives it the id "<catalogId>-<unixMillis>-<suffix>".
func (m *Minter) Mint(tpl Card) Card {
	m.mu.Lock()
	defer m.mu.Unlock()

	var sb strings.Builder
	sb.WriteString(tpl.ID)
	sb.WriteByte('-')
	sb.WriteString(strconv.FormatInt(m.now().UnixMilli(), 10))
	sb.WriteByte('-')
	for i := 0; i < suffixLen; i++ {
		sb.WriteByte(suffixAlphabet[m.rng.Intn(len(suffixAlphabet))])
	}

	c := tpl
	c.ID = sb.String()
	return c
}

// CatalogID recovers the catalog identity of a minted instance.
func CatalogID(instanceID string) string {
	parts := strings.Split(instanceID, "-")
	if len(parts) < 3 {
		return instanceID
	}
	return strings.Join(parts[:len(parts)-2], "-")
}

// Deck is the ordered, immutable set of templates a player places from.
// Placing never consumes a template.
type Deck struct {
	templates []Card
}

// NewDeck keeps the first occurrence of each catalog id.
func NewDeck(cards []Card) Deck {
	seen := make(map[string]bool, len(cards))
	out := make([]Card, 0, len(cards))
	for _, c := range cards {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		out = append(out, c)
	}
	return Deck{templates: out}
}

func (d Deck) Len() int { return len(d.templates) }

func (d Deck) At(i int) (Card, bool) {
	if i < 0 || i >= len(d.templates) {
		return Card{}, false
	}
	return d.templates[i], true
}

func (d Deck) Cards() []Card {
	return append([]Card(nil), d.templates...)
}
