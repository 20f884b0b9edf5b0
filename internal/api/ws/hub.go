package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"cross-matrix/internal/config"
	"cross-matrix/internal/room"
	"cross-matrix/internal/shared"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

type inbound struct {
	client *client
	env    shared.Envelope
}

// Hub owns every websocket connection. A single goroutine (Run) registers and
// unregisters clients and dispatches their frames to the room manager, so all
// membership changes happen one at a time and in per-connection read order.
type Hub struct {
	cfg      config.Config
	rooms    RoomManager
	logger   *slog.Logger
	validate *validator.Validate
	upgrader websocket.Upgrader

	register   chan *client
	unregister chan *client
	inbound    chan inbound
	done       chan struct{}

	// owned by Run
	clients map[string]*client

	connected atomic.Int64
}

func NewHub(cfg config.Config, rooms RoomManager, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		cfg:        cfg,
		rooms:      rooms,
		logger:     logger,
		validate:   validator.New(),
		register:   make(chan *client),
		unregister: make(chan *client),
		inbound:    make(chan inbound, 256),
		done:       make(chan struct{}),
		clients:    map[string]*client{},
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return cfg.AllowsOrigin(r.Header.Get("Origin"))
		},
	}
	rooms.SetBroadcaster(h)
	return h
}

// Connected reports the number of open connections.
func (h *Hub) Connected() int {
	return int(h.connected.Load())
}

// Run is the event loop. It returns when ctx is cancelled, closing every
// connection still open.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for id, c := range h.clients {
				delete(h.clients, id)
				close(c.send)
			}
			h.logger.Info("hub stopped")
			return
		case c := <-h.register:
			h.clients[c.id] = c
			h.connected.Add(1)
			h.logger.Info("client connected", "conn_id", c.id)
			h.Send(c.id, shared.ActionWelcome, shared.Welcome{ConnectionID: c.id})
		case c := <-h.unregister:
			if _, ok := h.clients[c.id]; !ok {
				continue
			}
			delete(h.clients, c.id)
			close(c.send)
			h.connected.Add(-1)
			h.rooms.Leave(c.id)
			h.logger.Info("client disconnected", "conn_id", c.id)
		case in := <-h.inbound:
			if _, ok := h.clients[in.client.id]; !ok {
				continue
			}
			h.dispatch(in.client, in.env)
		}
	}
}

// Send queues one event for connID. It implements room.Broadcaster and must
// only be called from the event loop.
func (h *Hub) Send(connID, action string, data any) {
	c, ok := h.clients[connID]
	if !ok {
		return
	}
	env, err := shared.NewEnvelope(action, data)
	if err != nil {
		h.logger.Error("encode event", "conn_id", connID, "action", action, "error", err)
		return
	}
	b, err := json.Marshal(env)
	if err != nil {
		h.logger.Error("encode frame", "conn_id", connID, "action", action, "error", err)
		return
	}
	select {
	case c.send <- b:
	default:
		h.logger.Warn("send queue full, dropping event", "conn_id", connID, "action", action)
	}
}

func (h *Hub) decode(env shared.Envelope, v any) error {
	if err := env.Decode(v); err != nil {
		return err
	}
	return h.validate.Struct(v)
}

func (h *Hub) dispatch(c *client, env shared.Envelope) {
	log := h.logger.With("conn_id", c.id, "action", env.Action)

	var err error
	switch env.Action {
	case shared.ActionJoinRoom:
		var msg shared.JoinRoom
		if err = h.decode(env, &msg); err == nil {
			_, err = h.rooms.Join(c.id, msg.RoomID, msg.Role)
		}
	case shared.ActionLeaveRoom:
		h.rooms.Leave(c.id)
	case shared.ActionGameAction:
		var msg shared.GameAction
		if err = h.decode(env, &msg); err == nil {
			err = h.rooms.RelayAction(c.id, msg)
		}
	case shared.ActionSyncState:
		var msg shared.SyncState
		if err = h.decode(env, &msg); err == nil {
			err = h.rooms.DeliverState(c.id, msg)
		}
	case shared.ActionSignal:
		var msg shared.Signal
		if err = h.decode(env, &msg); err == nil {
			err = h.rooms.RelaySignal(c.id, msg)
		}
	default:
		log.Warn("unknown action")
		return
	}

	switch {
	case err == nil:
	case errors.Is(err, room.ErrRoomFull):
		// already reported to the client
	default:
		log.Warn("frame dropped", "error", err)
	}
}

// ServeWS upgrades the request and starts the connection's pumps.
//
// @Summary Open a relay connection
// @Description Upgrades to a websocket. Frames are JSON {"action","data"}; the first server frame is welcome.
// @Tags Relay
// @Success 101 {string} string "Switching Protocols"
// @Router /ws [get]
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	cl := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, h.cfg.SendBuffer),
	}

	select {
	case h.register <- cl:
	case <-h.done:
		conn.Close()
		return
	}
	go h.writePump(cl)
	go h.readPump(cl)
}

func (h *Hub) readPump(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(h.cfg.MaxMessageBytes)
	c.conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("read failed", "conn_id", c.id, "error", err)
			}
			return
		}
		var env shared.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			h.logger.Warn("malformed frame", "conn_id", c.id, "error", err)
			continue
		}
		select {
		case h.inbound <- inbound{client: c, env: env}:
		case <-h.done:
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.logger.Warn("write failed", "conn_id", c.id, "error", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
