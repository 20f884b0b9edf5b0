package room

import (
	"errors"
	"log/slog"
	"time"

	"cross-matrix/internal/config"
	"cross-matrix/internal/shared"
)

// Store is the room registry. Implementations hand out copies, so a *Room
// obtained from GetRoom must be saved back for a change to take effect.
type Store interface {
	GetRoom(id string) (*Room, bool)
	SaveRoom(r *Room)
	DeleteRoom(id string)
	ListRooms() []*Room
}

var (
	ErrRoomFull      = errors.New("room is full")
	ErrNoSuchRoom    = errors.New("room does not exist")
	ErrNotPlayer     = errors.New("sender is not a player in the room")
	ErrUnknownTarget = errors.New("sync target is not in a room")
)

// RoomFullMessage is the text sent with error_message on a capacity rejection.
const RoomFullMessage = "Room is full"

// Manager runs membership, state sync routing and both relays.
// It is not safe for concurrent use: the websocket hub calls it from its single
// event loop, which is what makes every join and leave atomic.
type Manager struct {
	store  Store
	cfg    config.Config
	out    Broadcaster
	logger *slog.Logger
	now    func() time.Time

	// conn id -> room id
	conns map[string]string
}

func NewManager(s Store, cfg config.Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:  s,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		conns:  map[string]string{},
	}
}

func (m *Manager) SetBroadcaster(b Broadcaster) {
	m.out = b
}

func (m *Manager) Get(roomID string) (*Room, bool) {
	return m.store.GetRoom(roomID)
}

// RoomOf reports the room a connection currently belongs to.
func (m *Manager) RoomOf(connID string) (string, bool) {
	id, ok := m.conns[connID]
	return id, ok
}

func (m *Manager) send(connID, action string, data any) {
	if m.out == nil {
		return
	}
	m.out.Send(connID, action, data)
}

func (m *Manager) sendAll(ids []string, except, action string, data any) {
	for _, id := range ids {
		if id != except {
			m.send(id, action, data)
		}
	}
}

// Join admits connID to roomID with the given role, creating the room on first
// reference. A connection already in a room leaves it first.
func (m *Manager) Join(connID, roomID string, role shared.Role) (*Room, error) {
	if _, ok := m.conns[connID]; ok {
		m.Leave(connID)
	}

	r, ok := m.store.GetRoom(roomID)
	if !ok {
		r = NewRoom(roomID, m.now())
	}
	if role == shared.RolePlayer && len(r.Players) >= m.cfg.MaxPlayers {
		m.logger.Info("join rejected", "conn_id", connID, "room_id", roomID, "players", len(r.Players))
		m.send(connID, shared.ActionErrorMessage, RoomFullMessage)
		return nil, ErrRoomFull
	}

	r.add(connID, role)
	m.store.SaveRoom(r)
	m.conns[connID] = roomID
	m.logger.Info("joined room", "conn_id", connID, "room_id", roomID, "role", role,
		"players", len(r.Players), "spectators", len(r.Spectators))

	m.sendAll(r.Members(), "", shared.ActionRoomUpdate, r.Status())

	switch role {
	case shared.RolePlayer:
		m.sendAll(r.Members(), connID, shared.ActionPlayerJoined, shared.PlayerJoined{NewPlayerID: connID})
		if m.cfg.Flags.SyncLatePlayers && r.Players[0] != connID {
			m.requestState(r, connID)
		}
	case shared.RoleSpectator:
		if len(r.Players) > 0 {
			m.requestState(r, connID)
		}
	}
	return r.Clone(), nil
}

// requestState asks the first-joined player for a snapshot on behalf of requester.
func (m *Manager) requestState(r *Room, requester string) {
	source := r.Players[0]
	m.logger.Debug("requesting state", "room_id", r.ID, "source", source, "requester", requester)
	m.send(source, shared.ActionRequestState, shared.RequestState{RequesterID: requester})
}

// Leave removes connID from its room. It is called both for an explicit
// leave_room and on disconnect; a connection in no room is ignored.
func (m *Manager) Leave(connID string) {
	roomID, ok := m.conns[connID]
	if !ok {
		return
	}
	delete(m.conns, connID)

	r, ok := m.store.GetRoom(roomID)
	if !ok {
		return
	}
	role, ok := r.remove(connID)
	if !ok {
		return
	}

	if r.Empty() && m.cfg.Flags.SweepEmptyRooms {
		m.store.DeleteRoom(roomID)
		m.logger.Info("room swept", "room_id", roomID)
	} else {
		m.store.SaveRoom(r)
	}
	m.logger.Info("left room", "conn_id", connID, "room_id", roomID, "role", role)

	if role == shared.RolePlayer {
		m.sendAll(r.Members(), "", shared.ActionPlayerLeft, connID)
	}
	m.sendAll(r.Members(), "", shared.ActionRoomUpdate, r.Status())
}

// checkSender applies the optional server-side role check.
func (m *Manager) checkSender(r *Room, connID string) error {
	if !m.cfg.Flags.EnforcePlayerActions {
		return nil
	}
	if role, ok := r.RoleOf(connID); !ok || role != shared.RolePlayer {
		return ErrNotPlayer
	}
	return nil
}

// RelayAction forwards a game action to every other member of msg.RoomID.
// The payload is neither inspected nor validated.
func (m *Manager) RelayAction(connID string, msg shared.GameAction) error {
	r, ok := m.store.GetRoom(msg.RoomID)
	if !ok {
		return ErrNoSuchRoom
	}
	if err := m.checkSender(r, connID); err != nil {
		return err
	}
	m.sendAll(r.Members(), connID, shared.ActionGameUpdate, shared.GameUpdate{
		Action:  msg.Action,
		Payload: msg.Payload,
		From:    connID,
	})
	return nil
}

// RelaySignal forwards a handshake payload to the other player of msg.RoomID.
func (m *Manager) RelaySignal(connID string, msg shared.Signal) error {
	r, ok := m.store.GetRoom(msg.RoomID)
	if !ok {
		return ErrNoSuchRoom
	}
	if err := m.checkSender(r, connID); err != nil {
		return err
	}
	m.sendAll(r.Players, connID, shared.ActionSignal, shared.SignalRelay{
		Type:    msg.Type,
		Payload: msg.Payload,
		From:    connID,
	})
	return nil
}

// DeliverState hands a board snapshot to the connection that requested it.
func (m *Manager) DeliverState(connID string, msg shared.SyncState) error {
	if _, ok := m.conns[msg.TargetID]; !ok {
		return ErrUnknownTarget
	}
	if m.cfg.Flags.EnforcePlayerActions {
		roomID, ok := m.conns[connID]
		if !ok {
			return ErrNotPlayer
		}
		r, ok := m.store.GetRoom(roomID)
		if !ok {
			return ErrNoSuchRoom
		}
		if err := m.checkSender(r, connID); err != nil {
			return err
		}
	}
	m.send(msg.TargetID, shared.ActionStateSynced, msg.State)
	return nil
}
