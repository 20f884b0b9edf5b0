package game

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ActionKind names an entry of the relayed action vocabulary.
type ActionKind string

const (
	ActionPlaceCard   ActionKind = "place_card"
	ActionMoveCard    ActionKind = "move_card"
	ActionMoveStack   ActionKind = "move_stack"
	ActionRemoveCard  ActionKind = "remove_card"
	ActionRemoveStack ActionKind = "remove_stack"
)

var (
	ErrUnknownAction     = errors.New("unknown action")
	ErrIncompletePayload = errors.New("incomplete action payload")
)

// Action is one board mutation. The same value is applied locally by the sender
// and remotely by every receiver, so Apply must be deterministic.
type Action interface {
	Kind() ActionKind
	// apply mutates b and reports false when a referenced position no longer
	// exists; the board is then left untouched.
	apply(b *Board) bool
}

type PlaceCard struct {
	CellIndex int  `json:"cellIndex"`
	Card      Card `json:"card"`
}

type MoveCard struct {
	FromIndex     int `json:"fromIndex"`
	FromCardIndex int `json:"fromCardIndex"`
	ToIndex       int `json:"toIndex"`
}

type MoveStack struct {
	FromIndex int `json:"fromIndex"`
	ToIndex   int `json:"toIndex"`
}

type RemoveCard struct {
	CellIndex int `json:"cellIndex"`
	CardIndex int `json:"cardIndex"`
}

type RemoveStack struct {
	CellIndex int `json:"cellIndex"`
}

func (PlaceCard) Kind() ActionKind   { return ActionPlaceCard }
func (MoveCard) Kind() ActionKind    { return ActionMoveCard }
func (MoveStack) Kind() ActionKind   { return ActionMoveStack }
func (RemoveCard) Kind() ActionKind  { return ActionRemoveCard }
func (RemoveStack) Kind() ActionKind { return ActionRemoveStack }

func (a PlaceCard) apply(b *Board) bool {
	if !validCell(a.CellIndex) {
		return false
	}
	b[a.CellIndex] = append(b[a.CellIndex], a.Card)
	return true
}

func (a MoveCard) apply(b *Board) bool {
	if !validCell(a.FromIndex) || !validCell(a.ToIndex) {
		return false
	}
	src := b[a.FromIndex]
	if a.FromCardIndex < 0 || a.FromCardIndex >= len(src) {
		return false
	}
	moved := src[a.FromCardIndex]
	b[a.FromIndex] = append(src[:a.FromCardIndex:a.FromCardIndex], src[a.FromCardIndex+1:]...)
	b[a.ToIndex] = append(b[a.ToIndex], moved)
	return true
}

func (a MoveStack) apply(b *Board) bool {
	if !validCell(a.FromIndex) || !validCell(a.ToIndex) {
		return false
	}
	src := b[a.FromIndex]
	if len(src) == 0 {
		return false
	}
	if a.FromIndex == a.ToIndex {
		return true
	}
	b[a.FromIndex] = nil
	b[a.ToIndex] = append(b[a.ToIndex], src...)
	return true
}

func (a RemoveCard) apply(b *Board) bool {
	if !validCell(a.CellIndex) {
		return false
	}
	s := b[a.CellIndex]
	if a.CardIndex < 0 || a.CardIndex >= len(s) {
		return false
	}
	b[a.CellIndex] = append(s[:a.CardIndex:a.CardIndex], s[a.CardIndex+1:]...)
	return true
}

func (a RemoveStack) apply(b *Board) bool {
	if !validCell(a.CellIndex) {
		return false
	}
	b[a.CellIndex] = nil
	return true
}

// Apply runs a on the board. A stale reference is skipped silently and
// reported as false.
func (b *Board) Apply(a Action) bool {
	return a.apply(b)
}

// requiredFields lists the payload keys each action cannot do without. A zero
// index is a real cell, so a missing key must not decode to 0.
var requiredFields = map[ActionKind][]string{
	ActionPlaceCard:   {"cellIndex", "card"},
	ActionMoveCard:    {"fromIndex", "fromCardIndex", "toIndex"},
	ActionMoveStack:   {"fromIndex", "toIndex"},
	ActionRemoveCard:  {"cellIndex", "cardIndex"},
	ActionRemoveStack: {"cellIndex"},
}

func checkFields(kind ActionKind, payload json.RawMessage) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return err
	}
	for _, f := range requiredFields[kind] {
		v, ok := fields[f]
		if !ok || string(v) == "null" {
			return fmt.Errorf("%w: missing %s", ErrIncompletePayload, f)
		}
	}
	return nil
}

// DecodeAction rebuilds an Action from the relay's action name and raw payload.
// A payload without every position the action refers to is rejected.
func DecodeAction(kind string, payload json.RawMessage) (Action, error) {
	k := ActionKind(kind)
	if _, ok := requiredFields[k]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, kind)
	}
	if len(payload) == 0 {
		return nil, fmt.Errorf("decode %s: %w: empty payload", kind, ErrIncompletePayload)
	}
	if err := checkFields(k, payload); err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}

	var (
		a   Action
		err error
	)
	switch k {
	case ActionPlaceCard:
		var v PlaceCard
		if err = json.Unmarshal(payload, &v); err == nil && v.Card.ID == "" {
			err = fmt.Errorf("%w: card without id", ErrIncompletePayload)
		}
		a = v
	case ActionMoveCard:
		var v MoveCard
		err = json.Unmarshal(payload, &v)
		a = v
	case ActionMoveStack:
		var v MoveStack
		err = json.Unmarshal(payload, &v)
		a = v
	case ActionRemoveCard:
		var v RemoveCard
		err = json.Unmarshal(payload, &v)
		a = v
	case ActionRemoveStack:
		var v RemoveStack
		err = json.Unmarshal(payload, &v)
		a = v
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	return a, nil
}
