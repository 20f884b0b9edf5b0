package shared

import (
	"encoding/json"
	"fmt"
)

// Role is fixed for the lifetime of a connection's stay in a room.
type Role string

const (
	RolePlayer    Role = "player"
	RoleSpectator Role = "spectator"
)

// Client to server events.
const (
	ActionJoinRoom   = "join_room"
	ActionLeaveRoom  = "leave_room"
	ActionGameAction = "game_action"
	ActionSyncState  = "sync_state"
	ActionSignal     = "signal"
)

// Server to client events.
const (
	ActionWelcome      = "welcome"
	ActionRoomUpdate   = "room_update"
	ActionErrorMessage = "error_message"
	ActionRequestState = "request_state"
	ActionGameUpdate   = "game_update"
	ActionStateSynced  = "state_synced"
	ActionPlayerJoined = "player_joined"
	ActionPlayerLeft   = "player_left"
)

// Signal types relayed between the two players of a room.
const (
	SignalOffer     = "offer"
	SignalAnswer    = "answer"
	SignalCandidate = "candidate"
)

// Envelope is the frame exchanged on the socket in both directions.
type Envelope struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope marshals data into a frame for action.
func NewEnvelope(action string, data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s: %w", action, err)
	}
	return Envelope{Action: action, Data: raw}, nil
}

// Decode unmarshals the frame payload into v.
func (e Envelope) Decode(v any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("%s: empty payload", e.Action)
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("%s: %w", e.Action, err)
	}
	return nil
}

type JoinRoom struct {
	RoomID string `json:"roomId" validate:"required,len=4"`
	Role   Role   `json:"role" validate:"required,oneof=player spectator"`
}

type GameAction struct {
	RoomID  string          `json:"roomId" validate:"required"`
	Action  string          `json:"action" validate:"required"`
	Payload json.RawMessage `json:"payload"`
}

type SyncState struct {
	TargetID string          `json:"targetId" validate:"required"`
	State    json.RawMessage `json:"state" validate:"required"`
}

type Signal struct {
	RoomID  string          `json:"roomId" validate:"required"`
	Type    string          `json:"type" validate:"required,oneof=offer answer candidate"`
	Payload json.RawMessage `json:"payload"`
}

type Welcome struct {
	ConnectionID string `json:"connectionId"`
}

type RoomUpdate struct {
	PlayerCount    int `json:"playerCount"`
	SpectatorCount int `json:"spectatorCount"`
}

type RequestState struct {
	RequesterID string `json:"requesterId"`
}

type GameUpdate struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload"`
	From    string          `json:"from"`
}

type SignalRelay struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	From    string          `json:"from"`
}

type PlayerJoined struct {
	NewPlayerID string `json:"newPlayerId"`
}
