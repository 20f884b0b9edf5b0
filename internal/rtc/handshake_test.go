package rtc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"cross-matrix/internal/shared"
)

type fakePeer struct {
	calls      []string
	candidates []string
	remote     *SessionDescription
	closed     bool
	failAdd    string
}

func (p *fakePeer) CreateOffer(context.Context) (SessionDescription, error) {
	p.calls = append(p.calls, "create-offer")
	return SessionDescription{Type: "offer", SDP: "v=0 offer"}, nil
}

func (p *fakePeer) CreateAnswer(context.Context) (SessionDescription, error) {
	p.calls = append(p.calls, "create-answer")
	return SessionDescription{Type: "answer", SDP: "v=0 answer"}, nil
}

func (p *fakePeer) SetLocalDescription(_ context.Context, sd SessionDescription) error {
	p.calls = append(p.calls, "set-local-"+sd.Type)
	return nil
}

func (p *fakePeer) SetRemoteDescription(_ context.Context, sd SessionDescription) error {
	p.calls = append(p.calls, "set-remote-"+sd.Type)
	p.remote = &sd
	return nil
}

func (p *fakePeer) AddICECandidate(_ context.Context, c ICECandidate) error {
	if p.remote == nil {
		return errors.New("no remote description")
	}
	if c.Candidate == p.failAdd {
		return errors.New("rejected")
	}
	p.candidates = append(p.candidates, c.Candidate)
	return nil
}

func (p *fakePeer) Close() error {
	p.closed = true
	return nil
}

type outbox struct {
	sent []string
}

func (o *outbox) signal(t string, _ any) error {
	o.sent = append(o.sent, t)
	return nil
}

func newTestHandshake() (*Handshake, *fakePeer, *outbox, *int) {
	opened := 0
	peer := &fakePeer{}
	out := &outbox{}
	h := NewHandshake(func() (PeerConnection, error) {
		opened++
		return peer, nil
	}, out.signal, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return h, peer, out, &opened
}

func raw(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestOffererFlow(t *testing.T) {
	ctx := context.Background()
	h, peer, out, _ := newTestHandshake()

	if err := h.Initiate(ctx); err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if h.State() != StateHaveLocalOffer {
		t.Fatalf("state = %s", h.State())
	}
	if len(out.sent) != 1 || out.sent[0] != shared.SignalOffer {
		t.Fatalf("sent = %v", out.sent)
	}

	answer := raw(t, SessionDescription{Type: "answer", SDP: "v=0"})
	if err := h.HandleSignal(ctx, shared.SignalAnswer, answer); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if h.State() != StateConnected {
		t.Fatalf("state = %s", h.State())
	}
	want := []string{"create-offer", "set-local-offer", "set-remote-answer"}
	for i, w := range want {
		if peer.calls[i] != w {
			t.Fatalf("calls = %v, want %v", peer.calls, want)
		}
	}
}

func TestAnswererFlow(t *testing.T) {
	ctx := context.Background()
	h, peer, out, _ := newTestHandshake()

	offer := raw(t, SessionDescription{Type: "offer", SDP: "v=0"})
	if err := h.HandleSignal(ctx, shared.SignalOffer, offer); err != nil {
		t.Fatalf("offer: %v", err)
	}
	if h.State() != StateConnected {
		t.Fatalf("state = %s", h.State())
	}
	if len(out.sent) != 1 || out.sent[0] != shared.SignalAnswer {
		t.Fatalf("sent = %v", out.sent)
	}
	want := []string{"set-remote-offer", "create-answer", "set-local-answer"}
	for i, w := range want {
		if peer.calls[i] != w {
			t.Fatalf("calls = %v, want %v", peer.calls, want)
		}
	}
}

func TestEarlyCandidatesQueuedAndFlushedInOrder(t *testing.T) {
	ctx := context.Background()
	h, peer, _, _ := newTestHandshake()

	for _, c := range []string{"cand-1", "cand-2"} {
		if err := h.HandleSignal(ctx, shared.SignalCandidate, raw(t, ICECandidate{Candidate: c})); err != nil {
			t.Fatalf("candidate %s: %v", c, err)
		}
	}
	if h.Pending() != 2 || len(peer.candidates) != 0 {
		t.Fatalf("pending = %d applied = %v", h.Pending(), peer.candidates)
	}

	if err := h.HandleSignal(ctx, shared.SignalOffer, raw(t, SessionDescription{Type: "offer"})); err != nil {
		t.Fatalf("offer: %v", err)
	}
	if h.Pending() != 0 {
		t.Fatalf("queue not drained")
	}
	if len(peer.candidates) != 2 || peer.candidates[0] != "cand-1" || peer.candidates[1] != "cand-2" {
		t.Fatalf("applied = %v", peer.candidates)
	}

	if err := h.HandleSignal(ctx, shared.SignalCandidate, raw(t, ICECandidate{Candidate: "cand-3"})); err != nil {
		t.Fatalf("late candidate: %v", err)
	}
	if len(peer.candidates) != 3 || h.Pending() != 0 {
		t.Fatalf("late candidate should apply directly: %v", peer.candidates)
	}
}

func TestRejectedQueuedCandidateDoesNotBlockOthers(t *testing.T) {
	ctx := context.Background()
	h, peer, _, _ := newTestHandshake()
	peer.failAdd = "bad"

	for _, c := range []string{"bad", "good"} {
		h.HandleSignal(ctx, shared.SignalCandidate, raw(t, ICECandidate{Candidate: c}))
	}
	h.Initiate(ctx)
	h.HandleSignal(ctx, shared.SignalAnswer, raw(t, SessionDescription{Type: "answer"}))

	if len(peer.candidates) != 1 || peer.candidates[0] != "good" {
		t.Fatalf("applied = %v", peer.candidates)
	}
}

func TestTeardownDiscardsQueue(t *testing.T) {
	ctx := context.Background()
	h, peer, _, opened := newTestHandshake()

	h.Initiate(ctx)
	h.HandleSignal(ctx, shared.SignalCandidate, raw(t, ICECandidate{Candidate: "c"}))
	h.Teardown()

	if !peer.closed || h.Pending() != 0 || h.State() != StateIdle {
		t.Fatalf("closed=%v pending=%d state=%s", peer.closed, h.Pending(), h.State())
	}
	h.Initiate(ctx)
	if *opened != 2 {
		t.Fatalf("a new session should open a new peer, opened = %d", *opened)
	}
}

func TestUnknownSignal(t *testing.T) {
	h, _, _, _ := newTestHandshake()
	err := h.HandleSignal(context.Background(), "renegotiate", json.RawMessage(`{}`))
	if !errors.Is(err, ErrUnknownSignal) {
		t.Fatalf("err = %v", err)
	}
}

func TestLocalCandidateIsSent(t *testing.T) {
	h, _, out, _ := newTestHandshake()
	if err := h.LocalCandidate(ICECandidate{Candidate: "local"}); err != nil {
		t.Fatalf("local candidate: %v", err)
	}
	if len(out.sent) != 1 || out.sent[0] != shared.SignalCandidate {
		t.Fatalf("sent = %v", out.sent)
	}
}
