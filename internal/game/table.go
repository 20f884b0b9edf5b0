package game

// Mode is the interaction state of a local table.
type Mode int

const (
	// ModeIdle: nothing selected.
	ModeIdle Mode = iota
	// ModeCardSelected: a deck template is chosen and waits for a target cell.
	ModeCardSelected
	// ModeMovePending: a board card or whole stack waits for a destination cell.
	ModeMovePending
)

func (m Mode) String() string {
	switch m {
	case ModeCardSelected:
		return "card-selected"
	case ModeMovePending:
		return "move-pending"
	default:
		return "idle"
	}
}

type moveSource struct {
	cell  int
	card  int
	group bool
}

// Inspection is what tapping an occupied cell in idle mode opens: the stack,
// from which a card or the whole stack can be moved or disposed.
type Inspection struct {
	Cell  int
	Cards Stack
}

// Table couples a local board replica with the tap-driven interaction machine.
// Every method that returns a non-nil Action has already applied it locally;
// the caller only has to relay it. A read-only table ignores all input.
type Table struct {
	board    Board
	deck     Deck
	minter   *Minter
	readOnly bool

	mode     Mode
	selected int
	src      moveSource
}

func NewTable(deck Deck, minter *Minter, readOnly bool) *Table {
	if minter == nil {
		minter = NewMinter(nil, nil)
	}
	return &Table{deck: deck, minter: minter, readOnly: readOnly}
}

func (t *Table) Board() Board { return t.board.Clone() }

func (t *Table) Mode() Mode { return t.mode }

func (t *Table) Deck() Deck { return t.deck }

func (t *Table) ReadOnly() bool { return t.readOnly }

// Cancel drops any selection or pending move.
func (t *Table) Cancel() { t.reset() }

func (t *Table) reset() {
	t.mode = ModeIdle
	t.src = moveSource{}
}

// ReplaceBoard installs a received snapshot wholesale.
func (t *Table) ReplaceBoard(b Board) {
	t.board = b.Clone()
	t.reset()
}

// ApplyRemote applies a relayed action. Stale references are skipped.
func (t *Table) ApplyRemote(a Action) bool {
	return t.board.Apply(a)
}

// SelectDeckCard toggles selection of deck template i and cancels a pending move.
func (t *Table) SelectDeckCard(i int) {
	if t.readOnly {
		return
	}
	if _, ok := t.deck.At(i); !ok {
		return
	}
	if t.mode == ModeCardSelected && t.selected == i {
		t.reset()
		return
	}
	t.src = moveSource{}
	t.mode = ModeCardSelected
	t.selected = i
}

// TapCell advances the machine for a tap on cell. It returns the action to relay,
// or the inspection to show when an occupied cell is tapped while idle.
func (t *Table) TapCell(cell int) (Action, *Inspection) {
	if t.readOnly || !validCell(cell) {
		return nil, nil
	}
	switch t.mode {
	case ModeMovePending:
		src := t.src
		t.reset()
		if src.cell == cell {
			return nil, nil
		}
		var a Action
		if src.group {
			a = MoveStack{FromIndex: src.cell, ToIndex: cell}
		} else {
			a = MoveCard{FromIndex: src.cell, FromCardIndex: src.card, ToIndex: cell}
		}
		return t.local(a), nil

	case ModeCardSelected:
		tpl, _ := t.deck.At(t.selected)
		t.reset()
		return t.local(PlaceCard{CellIndex: cell, Card: t.minter.Mint(tpl)}), nil
	}

	if t.board.Empty(cell) {
		return nil, nil
	}
	return nil, &Inspection{Cell: cell, Cards: t.board.Stack(cell)}
}

// StartMove picks one card of a stack as the source of a move.
func (t *Table) StartMove(cell, cardIndex int) bool {
	if t.readOnly || !validCell(cell) || cardIndex < 0 || cardIndex >= len(t.board[cell]) {
		return false
	}
	t.mode = ModeMovePending
	t.src = moveSource{cell: cell, card: cardIndex}
	return true
}

// StartGroupMove picks a whole stack as the source of a move.
func (t *Table) StartGroupMove(cell int) bool {
	if t.readOnly || t.board.Empty(cell) {
		return false
	}
	t.mode = ModeMovePending
	t.src = moveSource{cell: cell, group: true}
	return true
}

func (t *Table) DisposeCard(cell, cardIndex int) Action {
	if t.readOnly {
		return nil
	}
	t.reset()
	return t.local(RemoveCard{CellIndex: cell, CardIndex: cardIndex})
}

func (t *Table) DisposeStack(cell int) Action {
	if t.readOnly {
		return nil
	}
	t.reset()
	return t.local(RemoveStack{CellIndex: cell})
}

// local applies a optimistically; a stale action is not worth relaying.
func (t *Table) local(a Action) Action {
	if !t.board.Apply(a) {
		return nil
	}
	return a
}
