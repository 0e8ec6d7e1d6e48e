// Copyright 2026 The Doula Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/bureau-foundation/doula/lib/clock"
)

// gatherTimeout bounds ICE candidate gathering before a code can be
// produced. Gathering normally completes in a few seconds; 45s covers
// slow TURN allocations.
const gatherTimeout = 45 * time.Second

// channelOpenTimeout bounds the wait between applying the peer's code
// and the data channel opening. The idle time before the codes are
// exchanged out of band is deliberately unbounded; only this final
// wait is tight.
const channelOpenTimeout = 60 * time.Second

// dataChannelLabel names the single sync channel the host opens.
const dataChannelLabel = "session"

// Config carries the shared dependencies of a connection attempt.
type Config struct {
	// ICE builds the server list for the peer connection.
	ICE *ICEConfigBuilder

	// ForceSTUN is set on relay-signaled paths, which cross networks by
	// construction.
	ForceSTUN bool

	Clock  clock.Clock
	Logger *slog.Logger
}

// Channel is a live, open data channel together with the peer
// connection that owns it. Closing the Channel tears both down.
type Channel struct {
	net.Conn

	pc        *webrtc.PeerConnection
	closeOnce sync.Once
}

// Close shuts the data channel and its peer connection. Idempotent.
func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.Conn.Close()
		if pcErr := c.pc.Close(); err == nil {
			err = pcErr
		}
	})
	return err
}

// HostOffer is the host's half of a private handshake: a code to hand
// to the guest, and the means to finish or abandon the attempt.
type HostOffer struct {
	// Code is the compact offer the guest feeds to Join.
	Code string

	cfg        Config
	pc         *webrtc.PeerConnection
	openedConn chan net.Conn
	cancelOnce sync.Once
}

// GuestAnswer is the guest's half: a code to hand back to the host,
// and a wait for the host's channel to arrive.
type GuestAnswer struct {
	// Code is the compact answer the host feeds to WaitForAnswer.
	Code string

	cfg        Config
	pc         *webrtc.PeerConnection
	openedConn chan net.Conn
	cancelOnce sync.Once
}

// Host starts the host side of a private connection: creates the peer
// connection and sync data channel, gathers all ICE candidates, and
// returns the encoded offer. The caller shows or sends the code to
// the guest, then calls WaitForAnswer with the code the guest
// produced.
func Host(ctx context.Context, cfg Config) (*HostOffer, error) {
	pc, err := newPeerConnection(cfg)
	if err != nil {
		return nil, err
	}

	host := &HostOffer{
		cfg:        cfg,
		pc:         pc,
		openedConn: make(chan net.Conn, 1),
	}

	ordered := true
	dc, err := pc.CreateDataChannel(dataChannelLabel, &webrtc.DataChannelInit{Ordered: &ordered})
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("creating data channel: %w", err)
	}
	registerChannelOpen(dc, host.openedConn, cfg.Logger)

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("creating offer: %w", err)
	}
	if err := gatherComplete(ctx, cfg, pc, offer); err != nil {
		pc.Close()
		return nil, err
	}

	code, err := EncodeDescription(*pc.LocalDescription())
	if err != nil {
		pc.Close()
		return nil, err
	}
	host.Code = code

	cfg.Logger.Info("private offer created", "code_length", len(code))
	return host, nil
}

// WaitForAnswer applies the guest's answer code and waits for the
// data channel to open. Once the connection has left the
// have-local-offer state the offer cannot be completed again;
// ErrHandshakeExpired tells the user to create a fresh invite.
func (h *HostOffer) WaitForAnswer(ctx context.Context, answerCode string) (*Channel, error) {
	if h.pc.SignalingState() != webrtc.SignalingStateHaveLocalOffer {
		return nil, ErrHandshakeExpired
	}

	answer, err := DecodeDescription(answerCode)
	if err != nil {
		return nil, err
	}
	if answer.Type != webrtc.SDPTypeAnswer {
		return nil, fmt.Errorf("%w: expected an answer code", ErrMalformedCode)
	}
	if err := h.pc.SetRemoteDescription(answer); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCode, err)
	}

	conn, err := awaitOpen(ctx, h.cfg, h.pc, h.openedConn)
	if err != nil {
		return nil, err
	}
	h.cfg.Logger.Info("private connection established", "role", "host")
	return &Channel{Conn: conn, pc: h.pc}, nil
}

// Cancel abandons the handshake and releases the peer connection.
// Idempotent; safe after WaitForAnswer has failed.
func (h *HostOffer) Cancel() {
	h.cancelOnce.Do(func() { h.pc.Close() })
}

// Join starts the guest side: decodes the host's offer, produces the
// answer, gathers candidates, and returns the encoded answer code plus
// a wait for the host's data channel.
func Join(ctx context.Context, cfg Config, offerCode string) (*GuestAnswer, error) {
	offer, err := DecodeDescription(offerCode)
	if err != nil {
		return nil, err
	}
	if offer.Type != webrtc.SDPTypeOffer {
		return nil, fmt.Errorf("%w: expected an offer code", ErrMalformedCode)
	}

	pc, err := newPeerConnection(cfg)
	if err != nil {
		return nil, err
	}

	guest := &GuestAnswer{
		cfg:        cfg,
		pc:         pc,
		openedConn: make(chan net.Conn, 1),
	}
	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() != dataChannelLabel {
			cfg.Logger.Warn("ignoring unexpected data channel", "label", dc.Label())
			return
		}
		registerChannelOpen(dc, guest.openedConn, cfg.Logger)
	})

	if err := pc.SetRemoteDescription(offer); err != nil {
		pc.Close()
		return nil, fmt.Errorf("%w: %v", ErrMalformedCode, err)
	}
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("creating answer: %w", err)
	}
	if err := gatherComplete(ctx, cfg, pc, answer); err != nil {
		pc.Close()
		return nil, err
	}

	code, err := EncodeDescription(*pc.LocalDescription())
	if err != nil {
		pc.Close()
		return nil, err
	}
	guest.Code = code

	cfg.Logger.Info("private answer created", "code_length", len(code))
	return guest, nil
}

// WaitForConnection waits for the host's data channel to arrive and
// open.
func (g *GuestAnswer) WaitForConnection(ctx context.Context) (*Channel, error) {
	conn, err := awaitOpen(ctx, g.cfg, g.pc, g.openedConn)
	if err != nil {
		return nil, err
	}
	g.cfg.Logger.Info("private connection established", "role", "guest")
	return &Channel{Conn: conn, pc: g.pc}, nil
}

// Cancel abandons the handshake and releases the peer connection.
func (g *GuestAnswer) Cancel() {
	g.cancelOnce.Do(func() { g.pc.Close() })
}

// newPeerConnection builds a pion peer connection with data channel
// detach (stream access) and loopback candidates (same-machine tests)
// enabled.
func newPeerConnection(cfg Config) (*webrtc.PeerConnection, error) {
	settingEngine := webrtc.SettingEngine{}
	settingEngine.DetachDataChannels()
	settingEngine.SetIncludeLoopbackCandidate(true)

	api := webrtc.NewAPI(webrtc.WithSettingEngine(settingEngine))
	pc, err := api.NewPeerConnection(cfg.ICE.Config(cfg.ForceSTUN))
	if err != nil {
		return nil, fmt.Errorf("creating peer connection: %w", err)
	}
	return pc, nil
}

// registerChannelOpen detaches the channel when it opens and delivers
// it as a net.Conn.
func registerChannelOpen(dc *webrtc.DataChannel, opened chan<- net.Conn, logger *slog.Logger) {
	dc.OnOpen(func() {
		raw, err := dc.Detach()
		if err != nil {
			logger.Error("detaching data channel failed", "label", dc.Label(), "error", err)
			return
		}
		conn := NewDataChannelConn(raw, "local/"+dc.Label(), "peer/"+dc.Label())
		select {
		case opened <- conn:
		default:
			conn.Close()
		}
	})
}

// gatherComplete sets the local description and waits for vanilla ICE
// gathering to finish, bounded by gatherTimeout.
func gatherComplete(ctx context.Context, cfg Config, pc *webrtc.PeerConnection, desc webrtc.SessionDescription) error {
	done := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(desc); err != nil {
		return fmt.Errorf("setting local description: %w", err)
	}
	select {
	case <-done:
		return nil
	case <-cfg.Clock.After(gatherTimeout):
		return &TimeoutError{Stage: StageGathering, Wait: gatherTimeout}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// awaitOpen waits for the sync channel to open, bounded by
// channelOpenTimeout.
func awaitOpen(ctx context.Context, cfg Config, pc *webrtc.PeerConnection, opened <-chan net.Conn) (net.Conn, error) {
	select {
	case conn := <-opened:
		return conn, nil
	case <-cfg.Clock.After(channelOpenTimeout):
		pc.Close()
		return nil, &TimeoutError{Stage: StageChannel, Wait: channelOpenTimeout}
	case <-ctx.Done():
		pc.Close()
		return nil, ctx.Err()
	}
}
