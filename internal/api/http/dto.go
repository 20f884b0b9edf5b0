package http

import (
	"time"

	"cross-matrix/internal/config"
)

// RoomSummary is one row of GET /rooms.
type RoomSummary struct {
	ID             string `json:"id"`
	PlayerCount    int    `json:"playerCount"`
	SpectatorCount int    `json:"spectatorCount"`
}

// RoomDetail is returned by GET /rooms/:roomId.
type RoomDetail struct {
	RoomSummary
	Full      bool      `json:"full"`
	CreatedAt time.Time `json:"createdAt"`
}

type HealthResponse struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
	Rooms       int    `json:"rooms"`
}

// ConfigResponse exposes the room policy a client may want to know about.
type ConfigResponse struct {
	MaxPlayers int          `json:"maxPlayers"`
	Flags      config.Flags `json:"flags"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
