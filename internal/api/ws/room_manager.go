package ws

import (
	"cross-matrix/internal/room"
	"cross-matrix/internal/shared"
)

// RoomManager is what the hub needs from the membership layer. Every method
// is called from the hub's event loop only.
type RoomManager interface {
	SetBroadcaster(b room.Broadcaster)
	Join(connID, roomID string, role shared.Role) (*room.Room, error)
	Leave(connID string)
	RelayAction(connID string, msg shared.GameAction) error
	RelaySignal(connID string, msg shared.Signal) error
	DeliverState(connID string, msg shared.SyncState) error
}
