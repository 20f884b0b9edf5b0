package http

import (
	"log/slog"
	"net/http"
	"time"

	"cross-matrix/internal/api/ws"
	"cross-matrix/internal/config"
	"cross-matrix/internal/room"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func NewRouter(cfg config.Config, rooms room.Store, hub *ws.Hub, logger *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger), corsMiddleware(cfg))

	// relay socket
	r.GET("/ws", hub.ServeWS)

	r.GET("/health", HealthHandler(rooms, hub))
	r.GET("/config", ConfigHandler(cfg))
	r.GET("/rooms", ListRoomsHandler(rooms))
	r.GET("/rooms/:roomId", GetRoomHandler(rooms, cfg.MaxPlayers))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})
	return r
}

func corsMiddleware(cfg config.Config) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOriginFunc: cfg.AllowsOrigin,
		AllowMethods:    []string{http.MethodGet, http.MethodOptions},
		AllowHeaders:    []string{"Origin", "Content-Type"},
		MaxAge:          12 * time.Hour,
	})
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if c.Request.URL.Path == "/health" {
			return
		}
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
