package http

import (
	"net/http"

	"cross-matrix/internal/room"

	"github.com/gin-gonic/gin"
)

// ConnectionCounter is satisfied by the websocket hub.
type ConnectionCounter interface {
	Connected() int
}

// @Summary Health check
// @Description Liveness plus open connection and room counts
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func HealthHandler(rooms room.Store, conns ConnectionCounter) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, HealthResponse{
			Status:      "ok",
			Connections: conns.Connected(),
			Rooms:       len(rooms.ListRooms()),
		})
	}
}

// @Summary List rooms
// @Description Every live room with its member counts, ordered by id
// @Tags Room
// @Produce json
// @Success 200 {array} RoomSummary
// @Router /rooms [get]
func ListRoomsHandler(rooms room.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		out := []RoomSummary{}
		for _, r := range rooms.ListRooms() {
			out = append(out, summarize(r))
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary Get room
// @Description Member counts and creation time of one room
// @Tags Room
// @Produce json
// @Param roomId path string true "Room ID"
// @Success 200 {object} RoomDetail
// @Failure 404 {object} ErrorResponse
// @Router /rooms/{roomId} [get]
func GetRoomHandler(rooms room.Store, maxPlayers int) gin.HandlerFunc {
	return func(c *gin.Context) {
		r, ok := rooms.GetRoom(c.Param("roomId"))
		if !ok {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "room not found"})
			return
		}
		c.JSON(http.StatusOK, RoomDetail{
			RoomSummary: summarize(r),
			Full:        len(r.Players) >= maxPlayers,
			CreatedAt:   r.CreatedAt,
		})
	}
}

func summarize(r *room.Room) RoomSummary {
	st := r.Status()
	return RoomSummary{
		ID:             r.ID,
		PlayerCount:    st.PlayerCount,
		SpectatorCount: st.SpectatorCount,
	}
}
