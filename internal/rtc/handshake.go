package rtc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"cross-matrix/internal/shared"
)

// State is the signaling progress of one peer session.
type State string

const (
	StateIdle            State = "idle"
	StateHaveLocalOffer  State = "have-local-offer"
	StateHaveRemoteOffer State = "have-remote-offer"
	StateConnected       State = "connected"
)

// SessionDescription mirrors the browser RTCSessionDescriptionInit.
type SessionDescription struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

// ICECandidate mirrors the browser RTCIceCandidateInit.
type ICECandidate struct {
	Candidate        string  `json:"candidate"`
	SDPMid           *string `json:"sdpMid,omitempty"`
	SDPMLineIndex    *uint16 `json:"sdpMLineIndex,omitempty"`
	UsernameFragment *string `json:"usernameFragment,omitempty"`
}

// PeerConnection is the media transport the handshake drives. Media itself is
// out of scope; any WebRTC stack can be adapted to this.
type PeerConnection interface {
	CreateOffer(ctx context.Context) (SessionDescription, error)
	CreateAnswer(ctx context.Context) (SessionDescription, error)
	SetLocalDescription(ctx context.Context, sd SessionDescription) error
	SetRemoteDescription(ctx context.Context, sd SessionDescription) error
	AddICECandidate(ctx context.Context, c ICECandidate) error
	Close() error
}

// PeerFactory opens a fresh PeerConnection for a new session.
type PeerFactory func() (PeerConnection, error)

// Signaler sends one signal frame through the relay.
type Signaler func(signalType string, payload any) error

var ErrUnknownSignal = errors.New("unknown signal type")

// Handshake is the per-player offer/answer/candidate state machine.
// Remote candidates that arrive before the remote description is applied are
// queued and flushed in arrival order right after it is.
type Handshake struct {
	mu        sync.Mutex
	newPeer   PeerFactory
	signal    Signaler
	logger    *slog.Logger
	peer      PeerConnection
	state     State
	remoteSet bool
	pending   []ICECandidate
}

func NewHandshake(newPeer PeerFactory, signal Signaler, logger *slog.Logger) *Handshake {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handshake{newPeer: newPeer, signal: signal, logger: logger, state: StateIdle}
}

func (h *Handshake) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Pending reports how many remote candidates are waiting for a remote description.
func (h *Handshake) Pending() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.pending)
}

// ensurePeer must be called with h.mu held.
func (h *Handshake) ensurePeer() error {
	if h.peer != nil {
		return nil
	}
	p, err := h.newPeer()
	if err != nil {
		return fmt.Errorf("open peer: %w", err)
	}
	h.peer = p
	return nil
}

// Initiate is run by the player already in the room when a second player
// is admitted: it creates and sends the offer.
func (h *Handshake) Initiate(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.ensurePeer(); err != nil {
		return err
	}
	offer, err := h.peer.CreateOffer(ctx)
	if err != nil {
		return fmt.Errorf("create offer: %w", err)
	}
	if err := h.peer.SetLocalDescription(ctx, offer); err != nil {
		return fmt.Errorf("set local offer: %w", err)
	}
	h.state = StateHaveLocalOffer
	if err := h.signal(shared.SignalOffer, offer); err != nil {
		return fmt.Errorf("send offer: %w", err)
	}
	return nil
}

// HandleSignal consumes one relayed signal frame.
func (h *Handshake) HandleSignal(ctx context.Context, signalType string, payload json.RawMessage) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.ensurePeer(); err != nil {
		return err
	}
	switch signalType {
	case shared.SignalOffer:
		var sd SessionDescription
		if err := json.Unmarshal(payload, &sd); err != nil {
			return fmt.Errorf("decode offer: %w", err)
		}
		return h.answer(ctx, sd)
	case shared.SignalAnswer:
		var sd SessionDescription
		if err := json.Unmarshal(payload, &sd); err != nil {
			return fmt.Errorf("decode answer: %w", err)
		}
		if err := h.peer.SetRemoteDescription(ctx, sd); err != nil {
			return fmt.Errorf("set remote answer: %w", err)
		}
		h.remoteSet = true
		h.flush(ctx)
		h.state = StateConnected
		return nil
	case shared.SignalCandidate:
		var c ICECandidate
		if err := json.Unmarshal(payload, &c); err != nil {
			return fmt.Errorf("decode candidate: %w", err)
		}
		if !h.remoteSet {
			h.logger.Debug("queueing ice candidate", "pending", len(h.pending)+1)
			h.pending = append(h.pending, c)
			return nil
		}
		if err := h.peer.AddICECandidate(ctx, c); err != nil {
			h.logger.Warn("add ice candidate failed", "error", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSignal, signalType)
	}
}

func (h *Handshake) answer(ctx context.Context, offer SessionDescription) error {
	if err := h.peer.SetRemoteDescription(ctx, offer); err != nil {
		return fmt.Errorf("set remote offer: %w", err)
	}
	h.remoteSet = true
	h.state = StateHaveRemoteOffer

	ans, err := h.peer.CreateAnswer(ctx)
	if err != nil {
		return fmt.Errorf("create answer: %w", err)
	}
	if err := h.peer.SetLocalDescription(ctx, ans); err != nil {
		return fmt.Errorf("set local answer: %w", err)
	}
	if err := h.signal(shared.SignalAnswer, ans); err != nil {
		return fmt.Errorf("send answer: %w", err)
	}
	h.flush(ctx)
	h.state = StateConnected
	return nil
}

// flush applies queued candidates in arrival order. A candidate the peer rejects
// is logged and dropped; the rest still go through.
func (h *Handshake) flush(ctx context.Context) {
	if len(h.pending) > 0 {
		h.logger.Debug("flushing ice candidates", "count", len(h.pending))
	}
	for _, c := range h.pending {
		if err := h.peer.AddICECandidate(ctx, c); err != nil {
			h.logger.Warn("add queued ice candidate failed", "error", err)
		}
	}
	h.pending = nil
}

// LocalCandidate forwards a locally gathered candidate to the other player.
func (h *Handshake) LocalCandidate(c ICECandidate) error {
	return h.signal(shared.SignalCandidate, c)
}

// Teardown closes the media session and forgets queued candidates. The
// handshake can be initiated again afterwards.
func (h *Handshake) Teardown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.peer != nil {
		if err := h.peer.Close(); err != nil {
			h.logger.Warn("close peer failed", "error", err)
		}
	}
	h.peer = nil
	h.pending = nil
	h.remoteSet = false
	h.state = StateIdle
}
