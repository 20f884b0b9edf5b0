package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "cross-matrix/internal/api/http"
	"cross-matrix/internal/api/ws"
	"cross-matrix/internal/config"
	"cross-matrix/internal/room"
	"cross-matrix/internal/store"

	// swagger packages
	_ "cross-matrix/docs"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v2"
)

// @title Cross Matrix Relay API
// @version 1.0
// @description Room relay for Cross Matrix: websocket membership, action and signaling relay, read-only room introspection
// @contact.name Backend Team
// @BasePath /
func main() {
	app := &cli.App{
		Name:  "cross-matrix-server",
		Usage: "room relay for Cross Matrix online play",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "env-file", Value: ".env", Usage: "dotenv file loaded before the environment"},
			&cli.StringFlag{Name: "addr", Usage: "listen address (HTTP_ADDR)"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error (LOG_LEVEL)"},
			&cli.IntFlag{Name: "max-players", Usage: "players per room (MAX_PLAYERS)"},
			&cli.BoolFlag{Name: "sweep-empty-rooms", Usage: "delete rooms once empty (SWEEP_EMPTY_ROOMS)"},
			&cli.BoolFlag{Name: "sync-late-players", Usage: "send a board snapshot to a joining second player (SYNC_LATE_PLAYERS)"},
			&cli.BoolFlag{Name: "enforce-player-actions", Usage: "drop actions and signals from spectators (ENFORCE_PLAYER_ACTIONS)"},
		},
		Action: serve,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig layers CLI flags over the environment.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Load(c.String("env-file"))
	if c.IsSet("addr") {
		cfg.HTTPAddr = c.String("addr")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("max-players") {
		cfg.MaxPlayers = c.Int("max-players")
	}
	if c.IsSet("sweep-empty-rooms") {
		cfg.Flags.SweepEmptyRooms = c.Bool("sweep-empty-rooms")
	}
	if c.IsSet("sync-late-players") {
		cfg.Flags.SyncLatePlayers = c.Bool("sync-late-players")
	}
	if c.IsSet("enforce-player-actions") {
		cfg.Flags.EnforcePlayerActions = c.Bool("enforce-player-actions")
	}
	return cfg, cfg.Validate()
}

func serve(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger := config.NewLogger(os.Stdout, cfg.LogLevel)
	gin.SetMode(cfg.GinMode)

	mem := store.NewMemoryStore()
	rm := room.NewManager(mem, cfg, logger)
	hub := ws.NewHub(cfg, rm, logger)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	hubCtx, stopHub := context.WithCancel(context.Background())
	hubDone := make(chan struct{})
	go func() {
		hub.Run(hubCtx)
		close(hubDone)
	}()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(cfg, mem, hub, logger),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.HTTPAddr, "max_players", cfg.MaxPlayers,
			"sweep_empty_rooms", cfg.Flags.SweepEmptyRooms,
			"sync_late_players", cfg.Flags.SyncLatePlayers,
			"enforce_player_actions", cfg.Flags.EnforcePlayerActions)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		stopHub()
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}

	// hijacked websocket connections are not tracked by Shutdown
	stopHub()
	select {
	case <-hubDone:
	case <-time.After(5 * time.Second):
		logger.Warn("hub stop timed out")
	}
	return nil
}
