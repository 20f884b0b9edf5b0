package http

import (
	"net/http"

	"cross-matrix/internal/config"

	"github.com/gin-gonic/gin"
)

// ConfigHandler returns the room capacity and policy flags in effect
// @Summary Get room policy
// @Description Returns the player capacity and the membership feature flags
// @Tags Config
// @Produce json
// @Success 200 {object} ConfigResponse
// @Router /config [get]
func ConfigHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, ConfigResponse{
			MaxPlayers: cfg.MaxPlayers,
			Flags:      cfg.Flags,
		})
	}
}
