package client

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cross-matrix/internal/api/ws"
	"cross-matrix/internal/config"
	"cross-matrix/internal/game"
	"cross-matrix/internal/room"
	"cross-matrix/internal/rtc"
	"cross-matrix/internal/shared"
	"cross-matrix/internal/store"

	"github.com/gin-gonic/gin"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func startRelay(t *testing.T, flags config.Flags) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := config.Config{
		AllowedOrigins:  []string{"*"},
		MaxPlayers:      2,
		SendBuffer:      64,
		MaxMessageBytes: 1 << 20,
		PingInterval:    time.Second,
		PongWait:        5 * time.Second,
		WriteWait:       time.Second,
		Flags:           flags,
	}
	hub := ws.NewHub(cfg, room.NewManager(store.NewMemoryStore(), cfg, quiet), quiet)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	r := gin.New()
	r.GET("/ws", hub.ServeWS)
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

var testDeck = game.NewDeck([]game.Card{
	{ID: "c1", Name: "Vanguard", ImageURL: "c1.png", Power: 3},
	{ID: "c2", Name: "Archivist", ImageURL: "c2.png"},
})

func connect(t *testing.T, url string, role shared.Role, newPeer rtc.PeerFactory) *Session {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	s, err := Dial(ctx, url, Options{
		Role:    role,
		Deck:    testDeck,
		NewPeer: newPeer,
		Logger:  quiet,
	})
	if err != nil {
		cancel()
		t.Fatalf("dial: %v", err)
	}
	go s.Run(ctx)
	t.Cleanup(func() {
		cancel()
		s.Close()
	})
	return s
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func boardsEqual(a, b *Session) bool {
	ba, bb := a.Board(), b.Board()
	return ba.Equal(&bb)
}

func mustJoin(t *testing.T, s *Session, roomID string, players, spectators int) {
	t.Helper()
	if err := s.Join(roomID); err != nil {
		t.Fatalf("join: %v", err)
	}
	eventually(t, "room_update after join", func() bool {
		st := s.Status()
		return st.PlayerCount == players && st.SpectatorCount == spectators
	})
}

func place(t *testing.T, s *Session, deckIndex, cell int) {
	t.Helper()
	if err := s.SelectDeckCard(deckIndex); err != nil {
		t.Fatalf("select: %v", err)
	}
	if _, err := s.TapCell(cell); err != nil {
		t.Fatalf("tap: %v", err)
	}
}

func TestSpectatorConvergesAndLatePlayerSkipsStale(t *testing.T) {
	url := startRelay(t, config.Flags{SweepEmptyRooms: true})

	x := connect(t, url, shared.RolePlayer, nil)
	mustJoin(t, x, "4821", 1, 0)
	place(t, x, 0, 0)

	xb := x.Board()
	top, ok := xb[0].Top()
	if !ok || game.CatalogID(top.ID) != "c1" {
		t.Fatalf("x cell 0 = %+v", xb[0])
	}

	y := connect(t, url, shared.RolePlayer, nil)
	mustJoin(t, y, "4821", 2, 0)
	if yb := y.Board(); yb.CardCount() != 0 {
		t.Fatalf("late player should start empty, has %d cards", yb.CardCount())
	}

	z := connect(t, url, shared.RoleSpectator, nil)
	mustJoin(t, z, "4821", 2, 1)
	eventually(t, "spectator sync", func() bool { return boardsEqual(x, z) })

	if ok, _ := x.StartMove(0, 0); !ok {
		t.Fatalf("start move refused")
	}
	if _, err := x.TapCell(5); err != nil {
		t.Fatalf("tap: %v", err)
	}
	xb = x.Board()
	if !xb.Empty(0) || len(xb[5]) != 1 || xb[5][0].ID != top.ID {
		t.Fatalf("x after move: %+v / %+v", xb[0], xb[5])
	}
	eventually(t, "spectator follows move", func() bool { return boardsEqual(x, z) })

	// marker action: once y sees it, the earlier move has been processed too
	place(t, x, 1, 7)
	eventually(t, "y sees marker", func() bool {
		yb := y.Board()
		return !yb.Empty(7)
	})
	yb := y.Board()
	if !yb.Empty(0) || !yb.Empty(5) {
		t.Fatalf("move against an empty replica must be skipped: %+v / %+v", yb[0], yb[5])
	}
}

// A spectator joining while the player keeps acting must not lose any action
// that lands between the snapshot and its delivery.
func TestSpectatorJoinDuringPlacementsConverges(t *testing.T) {
	url := startRelay(t, config.Flags{SweepEmptyRooms: true})

	x := connect(t, url, shared.RolePlayer, nil)
	mustJoin(t, x, "6060", 1, 0)

	const placements = 200
	done := make(chan error, 1)
	go func() {
		for i := 0; i < placements; i++ {
			if err := x.SelectDeckCard(i % 2); err != nil {
				done <- err
				return
			}
			if _, err := x.TapCell(i % game.CellCount); err != nil {
				done <- err
				return
			}
			time.Sleep(time.Millisecond)
		}
		done <- nil
	}()

	time.Sleep(20 * time.Millisecond)
	z := connect(t, url, shared.RoleSpectator, nil)
	mustJoin(t, z, "6060", 1, 1)

	if err := <-done; err != nil {
		t.Fatalf("placing: %v", err)
	}
	xb := x.Board()
	if xb.CardCount() != placements {
		t.Fatalf("x holds %d cards, want %d", xb.CardCount(), placements)
	}
	eventually(t, "spectator converges", func() bool {
		zb := z.Board()
		return zb.CardCount() == placements && boardsEqual(x, z)
	})
}

func TestLatePlayerSyncFlag(t *testing.T) {
	url := startRelay(t, config.Flags{SweepEmptyRooms: true, SyncLatePlayers: true})

	x := connect(t, url, shared.RolePlayer, nil)
	mustJoin(t, x, "4821", 1, 0)
	place(t, x, 0, 0)

	y := connect(t, url, shared.RolePlayer, nil)
	mustJoin(t, y, "4821", 2, 0)
	eventually(t, "late player sync", func() bool { return boardsEqual(x, y) })

	x.StartMove(0, 0)
	x.TapCell(5)
	eventually(t, "late player follows move", func() bool { return boardsEqual(x, y) })

	// and back the other way
	y.StartGroupMove(5)
	y.TapCell(3)
	eventually(t, "x follows y", func() bool {
		xb := x.Board()
		return !xb.Empty(3) && boardsEqual(x, y)
	})
}

func TestRoomFullResetsSession(t *testing.T) {
	url := startRelay(t, config.Flags{SweepEmptyRooms: true})

	a := connect(t, url, shared.RolePlayer, nil)
	mustJoin(t, a, "1111", 1, 0)
	b := connect(t, url, shared.RolePlayer, nil)
	mustJoin(t, b, "1111", 2, 0)

	c := connect(t, url, shared.RolePlayer, nil)
	if err := c.Join("1111"); err != nil {
		t.Fatalf("join: %v", err)
	}
	eventually(t, "room full", func() bool { return c.LastError() == room.RoomFullMessage })
	if c.Room() != "" {
		t.Fatalf("rejected session still bound to %q", c.Room())
	}
	if err := c.DisposeStack(0); err != nil {
		t.Fatalf("stale dispose on a reset board should be a silent no-op, got %v", err)
	}

	// spectators are still admitted
	d := connect(t, url, shared.RoleSpectator, nil)
	mustJoin(t, d, "1111", 2, 1)
}

func TestSpectatorCannotAct(t *testing.T) {
	url := startRelay(t, config.Flags{})
	z := connect(t, url, shared.RoleSpectator, nil)
	mustJoin(t, z, "2222", 0, 1)
	if err := z.SelectDeckCard(0); err != ErrSpectating {
		t.Fatalf("err = %v", err)
	}
}

type loopbackPeer struct {
	remote *rtc.SessionDescription
}

func (p *loopbackPeer) CreateOffer(context.Context) (rtc.SessionDescription, error) {
	return rtc.SessionDescription{Type: "offer", SDP: "v=0"}, nil
}

func (p *loopbackPeer) CreateAnswer(context.Context) (rtc.SessionDescription, error) {
	return rtc.SessionDescription{Type: "answer", SDP: "v=0"}, nil
}

func (p *loopbackPeer) SetLocalDescription(context.Context, rtc.SessionDescription) error {
	return nil
}

func (p *loopbackPeer) SetRemoteDescription(_ context.Context, sd rtc.SessionDescription) error {
	p.remote = &sd
	return nil
}

func (p *loopbackPeer) AddICECandidate(context.Context, rtc.ICECandidate) error { return nil }

func (p *loopbackPeer) Close() error { return nil }

func newLoopback() (rtc.PeerConnection, error) { return &loopbackPeer{}, nil }

func TestMediaHandshakeThroughRelay(t *testing.T) {
	url := startRelay(t, config.Flags{SweepEmptyRooms: true})

	x := connect(t, url, shared.RolePlayer, newLoopback)
	mustJoin(t, x, "3333", 1, 0)
	y := connect(t, url, shared.RolePlayer, newLoopback)
	mustJoin(t, y, "3333", 2, 0)

	eventually(t, "both players connected", func() bool {
		return x.MediaState() == rtc.StateConnected && y.MediaState() == rtc.StateConnected
	})

	y.Close()
	eventually(t, "teardown after player left", func() bool {
		return x.MediaState() == rtc.StateIdle && x.Status().PlayerCount == 1
	})
}
