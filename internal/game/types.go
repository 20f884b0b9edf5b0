package game

import (
	"encoding/json"
	"errors"
	"fmt"
)

// CellCount is the number of fixed board positions (4 columns x 5 rows).
const CellCount = 20

// Card is a placed card instance. ID is unique per instance; the catalog
// identity is its prefix (see Minter).
type Card struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	ImageURL string `json:"imageUrl"`
	Power    int    `json:"power"`
}

// Stack is the ordered content of one cell; the last element is the top card.
type Stack []Card

// MarshalJSON writes an empty cell as [] rather than null.
func (s Stack) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Card(s))
}

func (s Stack) Top() (Card, bool) {
	if len(s) == 0 {
		return Card{}, false
	}
	return s[len(s)-1], true
}

// Power sums the power of every card in the stack.
func (s Stack) Power() int {
	total := 0
	for _, c := range s {
		total += c.Power
	}
	return total
}

// Board is one client's replica of the shared table.
type Board [CellCount]Stack

var ErrMalformedSnapshot = errors.New("malformed board snapshot")

// Snapshot is the payload of sync_state / state_synced.
type Snapshot struct {
	Board Board `json:"board"`
}

// UnmarshalJSON accepts exactly CellCount cells.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var raw struct {
		Board []Stack `json:"board"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	if len(raw.Board) != CellCount {
		return fmt.Errorf("%w: %d cells, want %d", ErrMalformedSnapshot, len(raw.Board), CellCount)
	}
	var b Board
	copy(b[:], raw.Board)
	s.Board = b
	return nil
}

func validCell(i int) bool {
	return i >= 0 && i < CellCount
}

func (b *Board) Empty(cell int) bool {
	return !validCell(cell) || len(b[cell]) == 0
}

// Stack returns a copy of the stack at cell.
func (b *Board) Stack(cell int) Stack {
	if !validCell(cell) {
		return nil
	}
	return append(Stack(nil), b[cell]...)
}

// Clone deep-copies the board.
func (b *Board) Clone() Board {
	var out Board
	for i, s := range b {
		if s != nil {
			out[i] = append(Stack(nil), s...)
		}
	}
	return out
}

// Equal compares two boards by card identity and order.
func (b *Board) Equal(o *Board) bool {
	for i := range b {
		if len(b[i]) != len(o[i]) {
			return false
		}
		for j := range b[i] {
			if b[i][j] != o[i][j] {
				return false
			}
		}
	}
	return true
}

// CardCount totals every card on the board.
func (b *Board) CardCount() int {
	n := 0
	for _, s := range b {
		n += len(s)
	}
	return n
}
