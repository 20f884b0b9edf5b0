package room

import (
	"fmt"
	"math/rand"
	"slices"
	"time"

	"cross-matrix/internal/shared"
)

// Room is the registry record for one shared game session.
// Players and Spectators hold connection ids in join order.
type Room struct {
	ID         string    `json:"id"`
	Players    []string  `json:"players"`
	Spectators []string  `json:"spectators"`
	CreatedAt  time.Time `json:"createdAt"`
}

func NewRoom(id string, now time.Time) *Room {
	return &Room{
		ID:         id,
		Players:    []string{},
		Spectators: []string{},
		CreatedAt:  now,
	}
}

// Clone returns a deep copy safe to hand across goroutines.
func (r *Room) Clone() *Room {
	c := *r
	c.Players = slices.Clone(r.Players)
	c.Spectators = slices.Clone(r.Spectators)
	if c.Players == nil {
		c.Players = []string{}
	}
	if c.Spectators == nil {
		c.Spectators = []string{}
	}
	return &c
}

func (r *Room) Empty() bool {
	return len(r.Players) == 0 && len(r.Spectators) == 0
}

func (r *Room) Status() shared.RoomUpdate {
	return shared.RoomUpdate{
		PlayerCount:    len(r.Players),
		SpectatorCount: len(r.Spectators),
	}
}

// Members lists every connection in the room, players first.
func (r *Room) Members() []string {
	out := make([]string, 0, len(r.Players)+len(r.Spectators))
	out = append(out, r.Players...)
	return append(out, r.Spectators...)
}

// RoleOf reports the role connID holds in the room, if any.
func (r *Room) RoleOf(connID string) (shared.Role, bool) {
	if slices.Contains(r.Players, connID) {
		return shared.RolePlayer, true
	}
	if slices.Contains(r.Spectators, connID) {
		return shared.RoleSpectator, true
	}
	return "", false
}

func (r *Room) add(connID string, role shared.Role) {
	if role == shared.RolePlayer {
		r.Players = append(r.Players, connID)
		return
	}
	r.Spectators = append(r.Spectators, connID)
}

// remove drops connID from whichever list holds it and reports its role.
func (r *Room) remove(connID string) (shared.Role, bool) {
	if i := slices.Index(r.Players, connID); i >= 0 {
		r.Players = slices.Delete(r.Players, i, i+1)
		return shared.RolePlayer, true
	}
	if i := slices.Index(r.Spectators, connID); i >= 0 {
		r.Spectators = slices.Delete(r.Spectators, i, i+1)
		return shared.RoleSpectator, true
	}
	return "", false
}

// RandomCode returns a 4-digit room id in [1000, 9999]. Collisions with a live
// room are possible and joining a colliding id simply joins that room.
func RandomCode(rng *rand.Rand) string {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return fmt.Sprintf("%04d", 1000+rng.Intn(9000))
}
