package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"cross-matrix/internal/game"
	"cross-matrix/internal/rtc"
	"cross-matrix/internal/shared"

	"github.com/gorilla/websocket"
)

var (
	ErrNotInRoom  = errors.New("session is not in a room")
	ErrNoWelcome  = errors.New("server did not send welcome")
	ErrSpectating = errors.New("spectators cannot act on the board")
)

const welcomeTimeout = 10 * time.Second

type Options struct {
	Role   shared.Role
	Deck   game.Deck
	Minter *game.Minter
	// NewPeer opens the media session for a player. Nil disables media.
	NewPeer rtc.PeerFactory
	Logger  *slog.Logger
	Header  http.Header
	// OnEvent is called after every server frame has been applied, outside
	// the session lock.
	OnEvent func(action string)
}

// Session is one browser-equivalent participant: a socket to the relay, a
// board replica with its interaction machine, and for players the media
// handshake.
type Session struct {
	conn   *websocket.Conn
	opts   Options
	logger *slog.Logger
	id     string

	writeMu sync.Mutex

	// mu guards everything below. It is never held while calling into media.
	mu      sync.Mutex
	roomID  string
	table   *game.Table
	status  shared.RoomUpdate
	lastErr string

	media *rtc.Handshake
}

// Dial connects to the relay at url and waits for the welcome frame.
func Dial(ctx context.Context, url string, opts Options) (*Session, error) {
	if opts.Role == "" {
		opts.Role = shared.RoleSpectator
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, opts.Header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	conn.SetReadDeadline(time.Now().Add(welcomeTimeout))
	var env shared.Envelope
	if err := conn.ReadJSON(&env); err != nil {
		conn.Close()
		return nil, fmt.Errorf("read welcome: %w", err)
	}
	var w shared.Welcome
	if env.Action != shared.ActionWelcome || env.Decode(&w) != nil || w.ConnectionID == "" {
		conn.Close()
		return nil, ErrNoWelcome
	}
	conn.SetReadDeadline(time.Time{})

	s := &Session{
		conn:   conn,
		opts:   opts,
		id:     w.ConnectionID,
		logger: opts.Logger.With("conn_id", w.ConnectionID),
	}
	s.table = s.newTable()
	if opts.Role == shared.RolePlayer && opts.NewPeer != nil {
		s.media = rtc.NewHandshake(opts.NewPeer, s.sendSignal, s.logger)
	}
	return s, nil
}

func (s *Session) newTable() *game.Table {
	return game.NewTable(s.opts.Deck, s.opts.Minter, s.opts.Role != shared.RolePlayer)
}

func (s *Session) ID() string { return s.id }

func (s *Session) Role() shared.Role { return s.opts.Role }

func (s *Session) Room() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomID
}

func (s *Session) Board() game.Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.Board()
}

func (s *Session) Mode() game.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.Mode()
}

func (s *Session) Deck() game.Deck { return s.opts.Deck }

// Status is the last room_update received.
func (s *Session) Status() shared.RoomUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// LastError is the last error_message received, if any.
func (s *Session) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// MediaState reports the handshake state; idle when media is disabled.
func (s *Session) MediaState() rtc.State {
	if s.media == nil {
		return rtc.StateIdle
	}
	return s.media.State()
}

func (s *Session) write(action string, data any) error {
	env, err := shared.NewEnvelope(action, data)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteJSON(env); err != nil {
		return fmt.Errorf("send %s: %w", action, err)
	}
	return nil
}

// Join enters roomID in the session's role with a fresh board.
func (s *Session) Join(roomID string) error {
	s.mu.Lock()
	s.roomID = roomID
	s.table = s.newTable()
	s.lastErr = ""
	s.mu.Unlock()
	return s.write(shared.ActionJoinRoom, shared.JoinRoom{RoomID: roomID, Role: s.opts.Role})
}

func (s *Session) Leave() error {
	s.reset()
	return s.write(shared.ActionLeaveRoom, struct{}{})
}

// reset drops all room-bound local state.
func (s *Session) reset() {
	s.mu.Lock()
	s.roomID = ""
	s.table = s.newTable()
	s.status = shared.RoomUpdate{}
	s.mu.Unlock()
	if s.media != nil {
		s.media.Teardown()
	}
}

func (s *Session) Close() error {
	if s.media != nil {
		s.media.Teardown()
	}
	s.writeMu.Lock()
	s.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	s.writeMu.Unlock()
	return s.conn.Close()
}

func (s *Session) sendSignal(signalType string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", signalType, err)
	}
	room := s.Room()
	if room == "" {
		return ErrNotInRoom
	}
	return s.write(shared.ActionSignal, shared.Signal{RoomID: room, Type: signalType, Payload: raw})
}

// relay sends an action that the table already applied. Must be called with
// s.mu held so the send order matches the local apply order.
func (s *Session) relay(a game.Action) error {
	if a == nil {
		return nil
	}
	if s.roomID == "" {
		return ErrNotInRoom
	}
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", a.Kind(), err)
	}
	return s.write(shared.ActionGameAction, shared.GameAction{
		RoomID:  s.roomID,
		Action:  string(a.Kind()),
		Payload: payload,
	})
}

func (s *Session) interact(fn func(t *game.Table) game.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.table.ReadOnly() {
		return ErrSpectating
	}
	return s.relay(fn(s.table))
}

func (s *Session) SelectDeckCard(i int) error {
	return s.interact(func(t *game.Table) game.Action {
		t.SelectDeckCard(i)
		return nil
	})
}

// TapCell places the selected card, completes a pending move or, on an
// occupied cell in idle mode, returns the stack for inspection.
func (s *Session) TapCell(cell int) (*game.Inspection, error) {
	var insp *game.Inspection
	err := s.interact(func(t *game.Table) game.Action {
		a, in := t.TapCell(cell)
		insp = in
		return a
	})
	return insp, err
}

func (s *Session) StartMove(cell, cardIndex int) (bool, error) {
	var ok bool
	err := s.interact(func(t *game.Table) game.Action {
		ok = t.StartMove(cell, cardIndex)
		return nil
	})
	return ok, err
}

func (s *Session) StartGroupMove(cell int) (bool, error) {
	var ok bool
	err := s.interact(func(t *game.Table) game.Action {
		ok = t.StartGroupMove(cell)
		return nil
	})
	return ok, err
}

func (s *Session) DisposeCard(cell, cardIndex int) error {
	return s.interact(func(t *game.Table) game.Action {
		return t.DisposeCard(cell, cardIndex)
	})
}

func (s *Session) DisposeStack(cell int) error {
	return s.interact(func(t *game.Table) game.Action {
		return t.DisposeStack(cell)
	})
}

func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table.Cancel()
}

// Run reads server frames until ctx is cancelled or the connection drops.
func (s *Session) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { s.conn.Close() })
	defer stop()

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		var env shared.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			s.logger.Warn("malformed frame", "error", err)
			continue
		}
		if err := s.handle(ctx, env); err != nil {
			s.logger.Warn("event not applied", "action", env.Action, "error", err)
		}
		if s.opts.OnEvent != nil {
			s.opts.OnEvent(env.Action)
		}
	}
}

func (s *Session) handle(ctx context.Context, env shared.Envelope) error {
	switch env.Action {
	case shared.ActionRoomUpdate:
		var u shared.RoomUpdate
		if err := env.Decode(&u); err != nil {
			return err
		}
		s.mu.Lock()
		s.status = u
		s.mu.Unlock()

	case shared.ActionErrorMessage:
		var msg string
		if err := env.Decode(&msg); err != nil {
			return err
		}
		s.logger.Warn("server error", "message", msg)
		s.reset()
		s.mu.Lock()
		s.lastErr = msg
		s.mu.Unlock()

	case shared.ActionRequestState:
		if s.opts.Role != shared.RolePlayer {
			return nil
		}
		var req shared.RequestState
		if err := env.Decode(&req); err != nil {
			return err
		}
		// Held through the write: an action applied after the snapshot is taken
		// must reach the relay after it, or the requester never sees it.
		s.mu.Lock()
		defer s.mu.Unlock()
		state, err := json.Marshal(game.Snapshot{Board: s.table.Board()})
		if err != nil {
			return err
		}
		return s.write(shared.ActionSyncState, shared.SyncState{TargetID: req.RequesterID, State: state})

	case shared.ActionStateSynced:
		var snap game.Snapshot
		if err := env.Decode(&snap); err != nil {
			return err
		}
		s.mu.Lock()
		s.table.ReplaceBoard(snap.Board)
		s.mu.Unlock()

	case shared.ActionGameUpdate:
		var u shared.GameUpdate
		if err := env.Decode(&u); err != nil {
			return err
		}
		a, err := game.DecodeAction(u.Action, u.Payload)
		if err != nil {
			return err
		}
		s.mu.Lock()
		applied := s.table.ApplyRemote(a)
		s.mu.Unlock()
		if !applied {
			s.logger.Debug("stale action skipped", "kind", u.Action, "from", u.From)
		}

	case shared.ActionPlayerJoined:
		var pj shared.PlayerJoined
		if err := env.Decode(&pj); err != nil {
			return err
		}
		if s.media == nil || pj.NewPlayerID == s.id {
			return nil
		}
		return s.media.Initiate(ctx)

	case shared.ActionSignal:
		if s.media == nil {
			return nil
		}
		var sig shared.SignalRelay
		if err := env.Decode(&sig); err != nil {
			return err
		}
		return s.media.HandleSignal(ctx, sig.Type, sig.Payload)

	case shared.ActionPlayerLeft:
		if s.media != nil {
			s.media.Teardown()
		}
	}
	return nil
}
