package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Flags are the policy switches left open by the room design.
type Flags struct {
	// SweepEmptyRooms deletes a room record once it has no players and no spectators.
	SweepEmptyRooms bool `json:"sweepEmptyRooms"`
	// SyncLatePlayers makes a joining second player request a board snapshot
	// the same way a spectator does.
	SyncLatePlayers bool `json:"syncLatePlayers"`
	// EnforcePlayerActions drops game actions and signals sent by non-players.
	EnforcePlayerActions bool `json:"enforcePlayerActions"`
}

type Config struct {
	HTTPAddr       string
	AllowedOrigins []string
	GinMode        string
	LogLevel       string

	MaxPlayers      int
	SendBuffer      int
	MaxMessageBytes int64
	PingInterval    time.Duration
	PongWait        time.Duration
	WriteWait       time.Duration

	Flags Flags

	CatalogPath  string
	DeckDBDriver string
	DeckDBDSN    string
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Load reads the optional dotenv files and then the process environment.
// Missing dotenv files are not an error; malformed values fall back to defaults.
func Load(envFiles ...string) Config {
	for _, f := range envFiles {
		_ = godotenv.Load(f)
	}
	return Config{
		HTTPAddr:        getenv("HTTP_ADDR", ":8080"),
		AllowedOrigins:  splitList(getenv("ALLOWED_ORIGINS", "*")),
		GinMode:         getenv("GIN_MODE", "release"),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		MaxPlayers:      getenvInt("MAX_PLAYERS", 2),
		SendBuffer:      getenvInt("SEND_BUFFER", 64),
		MaxMessageBytes: int64(getenvInt("MAX_MESSAGE_BYTES", 1<<20)),
		PingInterval:    getenvDuration("PING_INTERVAL", 15*time.Second),
		PongWait:        getenvDuration("PONG_WAIT", 60*time.Second),
		WriteWait:       getenvDuration("WRITE_WAIT", 10*time.Second),
		Flags: Flags{
			SweepEmptyRooms:      getenvBool("SWEEP_EMPTY_ROOMS", true),
			SyncLatePlayers:      getenvBool("SYNC_LATE_PLAYERS", false),
			EnforcePlayerActions: getenvBool("ENFORCE_PLAYER_ACTIONS", false),
		},
		CatalogPath:  getenv("CATALOG_PATH", "cards.json"),
		DeckDBDriver: getenv("DECK_DB_DRIVER", "sqlite3"),
		DeckDBDSN:    getenv("DECK_DB_DSN", "decks.db"),
	}
}

var (
	ErrMaxPlayers   = errors.New("MAX_PLAYERS must be at least 1")
	ErrSendBuffer   = errors.New("SEND_BUFFER must be at least 1")
	ErrPingInterval = errors.New("PING_INTERVAL must be shorter than PONG_WAIT")
)

// Validate rejects combinations the hub cannot run with.
func (c Config) Validate() error {
	if c.MaxPlayers < 1 {
		return ErrMaxPlayers
	}
	if c.SendBuffer < 1 {
		return ErrSendBuffer
	}
	if c.PingInterval >= c.PongWait {
		return ErrPingInterval
	}
	return nil
}

// AllowsOrigin reports whether a browser origin may open a socket.
// An empty origin (non-browser client) is always allowed.
func (c Config) AllowsOrigin(origin string) bool {
	if origin == "" {
		return true
	}
	for _, o := range c.AllowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}
