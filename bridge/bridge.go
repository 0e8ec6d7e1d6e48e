// Copyright 2026 The Doula Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/doula/lib/clock"
	"github.com/bureau-foundation/doula/lib/roomcode"
	"github.com/bureau-foundation/doula/lib/settings"
	"github.com/bureau-foundation/doula/replica"
	"github.com/bureau-foundation/doula/session"
	"github.com/bureau-foundation/doula/syncproto"
	"github.com/bureau-foundation/doula/transport"
)

// Role selects which side of the handshake this session plays.
type Role string

const (
	RoleHost  Role = "host"
	RoleGuest Role = "guest"
)

// QRRenderer turns a connection code into an image. Supplied by the
// UI layer; the bridge never renders pixels itself.
type QRRenderer func(text string) ([]byte, error)

// QRScanner extracts a connection code from a camera frame, reporting
// false when the frame holds none. Supplied by the UI layer.
type QRScanner func(frame []byte) (string, bool)

// Invite is a connection code ready to hand to the other side, with a
// rendered QR image when the caller supplied a renderer.
type Invite struct {
	Code string
	QR   []byte
}

// Options configures a shared session.
type Options struct {
	// Mode selects the connection path. Relay modes go through Start;
	// the private mode uses StartPrivateHost / JoinPrivateOffer.
	Mode settings.SignalingMode

	// Role is host or guest. Only consulted by Start.
	Role Role

	// RoomCode and Password key the relay handshake. Unused on the
	// private path.
	RoomCode string
	Password string

	// Store is the local session storage to synchronize.
	Store Store

	// ICE builds the NAT-traversal configuration.
	ICE *transport.ICEConfigBuilder

	// Signaler is the relay mailbox. Required for relay modes.
	Signaler transport.Signaler

	// ReplicaID identifies this peer's writes. Defaults to a fresh
	// random ID.
	ReplicaID string

	// Clock defaults to the real clock; tests inject a fake.
	Clock clock.Clock

	Logger *slog.Logger

	// OnStatus, when set, receives every phase change.
	OnStatus func(Status)

	// RenderQR, when set, fills Invite.QR for generated codes.
	RenderQR QRRenderer
}

// SharedSession is one active sharing session. The handle owns the
// connection, the replicated document, and the store subscription;
// Stop releases all of it. There is no package-level current session —
// whoever holds the handle holds the session.
type SharedSession struct {
	opts      Options
	logger    *slog.Logger
	clk       clock.Clock
	replicaID string

	mu                 sync.Mutex
	phase              Phase
	hostOffer          *transport.HostOffer
	guestAnswer        *transport.GuestAnswer
	channel            io.Closer
	provider           *syncproto.Provider
	doc                *replica.Document
	lastSnapshot       *session.Document
	generation         uint64
	observedGeneration uint64
	unsubscribe        func()
	cancelHandshake    context.CancelFunc
	done               chan struct{}
}

// newSession validates options and builds an idle handle.
func newSession(opts Options) (*SharedSession, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("bridge: Store is required")
	}
	if opts.ICE == nil {
		return nil, fmt.Errorf("bridge: ICE builder is required")
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ReplicaID == "" {
		opts.ReplicaID = replica.NewID()
	}
	return &SharedSession{
		opts:      opts,
		logger:    opts.Logger,
		clk:       opts.Clock,
		replicaID: opts.ReplicaID,
		phase:     PhaseIdle,
		done:      make(chan struct{}),
	}, nil
}

// Start establishes a relay-signaled session end to end: it creates
// the connection, exchanges encrypted codes through the mailbox, and
// returns a connected session. Blocks until connected or failed; the
// wait is cancellable through ctx.
func Start(ctx context.Context, opts Options) (*SharedSession, error) {
	switch opts.Mode {
	case settings.SignalingRelayHTTP, settings.SignalingRelaySocket:
	default:
		return nil, fmt.Errorf("bridge: mode %q uses StartPrivateHost/JoinPrivateOffer", opts.Mode)
	}
	if opts.Signaler == nil {
		return nil, fmt.Errorf("bridge: relay modes require a Signaler")
	}
	if !roomcode.IsValid(opts.RoomCode) {
		return nil, fmt.Errorf("%w: room code %q", ErrMalformedCode, opts.RoomCode)
	}

	s, err := newSession(opts)
	if err != nil {
		return nil, err
	}
	connector := &transport.RelayConnector{
		Signaler: opts.Signaler,
		Clock:    s.clk,
		Logger:   s.logger,
	}

	handshakeCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancelHandshake = cancel
	s.mu.Unlock()

	var channel *transport.Channel
	switch opts.Role {
	case RoleHost:
		s.transition(PhaseCreatingOffer, "")
		offer, err := transport.Host(handshakeCtx, s.transportConfig(true))
		if err != nil {
			s.failWith(err)
			return nil, err
		}
		s.mu.Lock()
		s.hostOffer = offer
		s.mu.Unlock()
		s.transition(PhaseAwaitingAnswer, "")

		channel, err = connector.HostExchange(handshakeCtx, opts.RoomCode, opts.Password, offer)
		if err != nil {
			s.failWith(err)
			return nil, err
		}
		s.mu.Lock()
		s.hostOffer = nil
		s.mu.Unlock()

	case RoleGuest:
		s.transition(PhaseGeneratingAnswer, "")
		channel, err = connector.GuestExchange(handshakeCtx, s.transportConfig(true), opts.RoomCode, opts.Password)
		if err != nil {
			s.failWith(err)
			return nil, err
		}

	default:
		s.failWith(fmt.Errorf("bridge: unknown role %q", opts.Role))
		return nil, fmt.Errorf("bridge: unknown role %q", opts.Role)
	}

	s.transition(PhaseAwaitingConnection, "")
	if err := s.attachChannel(channel); err != nil {
		s.failWith(err)
		return nil, err
	}
	return s, nil
}

// StartPrivateHost creates the host half of a manual code exchange:
// the returned Invite carries the offer code for the guest, and the
// session sits in PhaseAwaitingAnswer until CompletePrivateHost is
// called with the guest's answer. The idle time in between is
// unbounded.
func StartPrivateHost(ctx context.Context, opts Options) (*SharedSession, *Invite, error) {
	s, err := newSession(opts)
	if err != nil {
		return nil, nil, err
	}

	handshakeCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancelHandshake = cancel
	s.mu.Unlock()

	s.transition(PhaseCreatingOffer, "")
	offer, err := transport.Host(handshakeCtx, s.transportConfig(false))
	if err != nil {
		s.failWith(err)
		return nil, nil, err
	}
	s.mu.Lock()
	s.hostOffer = offer
	s.mu.Unlock()
	s.transition(PhaseAwaitingAnswer, "")

	return s, s.invite(offer.Code), nil
}

// CompletePrivateHost applies the guest's answer code and brings the
// session to PhaseConnected. Calling it on an expired or finished
// session fails without hanging.
func (s *SharedSession) CompletePrivateHost(ctx context.Context, answerCode string) error {
	s.mu.Lock()
	offer := s.hostOffer
	phase := s.phase
	s.mu.Unlock()
	if offer == nil || phase != PhaseAwaitingAnswer {
		return ErrSessionFinished
	}

	s.transition(PhaseAwaitingConnection, "")
	channel, err := offer.WaitForAnswer(ctx, answerCode)
	if err != nil {
		s.failWith(err)
		return err
	}
	s.mu.Lock()
	s.hostOffer = nil
	s.mu.Unlock()

	if err := s.attachChannel(channel); err != nil {
		s.failWith(err)
		return err
	}
	return nil
}

// JoinPrivateOffer creates the guest half: it decodes the host's offer
// and returns the answer code to hand back, leaving the session in
// PhaseAwaitingConnection. AwaitConnection then blocks until the
// host's channel opens.
func JoinPrivateOffer(ctx context.Context, opts Options, offerCode string) (*SharedSession, *Invite, error) {
	s, err := newSession(opts)
	if err != nil {
		return nil, nil, err
	}

	handshakeCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancelHandshake = cancel
	s.mu.Unlock()

	s.transition(PhaseGeneratingAnswer, "")
	guest, err := transport.Join(handshakeCtx, s.transportConfig(false), offerCode)
	if err != nil {
		s.failWith(err)
		return nil, nil, err
	}
	s.mu.Lock()
	s.guestAnswer = guest
	s.mu.Unlock()
	s.transition(PhaseAwaitingConnection, "")

	return s, s.invite(guest.Code), nil
}

// AwaitConnection waits for the host's data channel after
// JoinPrivateOffer and brings the session to PhaseConnected.
func (s *SharedSession) AwaitConnection(ctx context.Context) error {
	s.mu.Lock()
	guest := s.guestAnswer
	s.mu.Unlock()
	if guest == nil {
		return ErrSessionFinished
	}

	channel, err := guest.WaitForConnection(ctx)
	if err != nil {
		s.failWith(err)
		return err
	}
	s.mu.Lock()
	s.guestAnswer = nil
	s.mu.Unlock()

	if err := s.attachChannel(channel); err != nil {
		s.failWith(err)
		return err
	}
	return nil
}

// Phase returns the session's current lifecycle phase.
func (s *SharedSession) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Stop tears the session down: cancels any in-flight handshake,
// detaches the store subscription, destroys the sync provider and
// document, and closes the connection. Uniform across all four
// connection paths, and idempotent.
func (s *SharedSession) Stop() {
	s.mu.Lock()
	if s.phase.terminal() {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.teardown()
	s.transition(PhaseClosed, "")
	s.logger.Info("session stopped")
}

// attachChannel wires a live stream into the sync machinery: seeds the
// replicated document from the store, starts the protocol provider,
// and subscribes to store changes.
func (s *SharedSession) attachChannel(conn io.ReadWriteCloser) error {
	current := s.opts.Store.Load()
	doc, err := replica.FromSession(current, s.replicaID)
	if err != nil {
		conn.Close()
		return fmt.Errorf("seeding replicated document: %w", err)
	}
	provider := syncproto.New(doc, conn, s.logger, s.onChannelClosed)

	s.mu.Lock()
	if s.phase.terminal() {
		s.mu.Unlock()
		conn.Close()
		return ErrSessionFinished
	}
	s.doc = doc
	s.channel = conn
	s.provider = provider
	s.lastSnapshot = current
	done := s.done
	s.mu.Unlock()

	if err := provider.Start(); err != nil {
		return fmt.Errorf("starting sync provider: %w", err)
	}
	go s.changePump(doc.Changes(), done)

	unsubscribe := s.opts.Store.Subscribe(s.onStoreChange)
	s.mu.Lock()
	s.unsubscribe = unsubscribe
	s.mu.Unlock()

	s.transition(PhaseConnected, "")
	s.logger.Info("session connected", "replica_id", s.replicaID)
	return nil
}

// changePump applies remote change batches to the store. The
// generation counter is bumped before the store mutation so the
// subscriber — however promptly it fires — already sees the new
// generation and classifies the event as an echo.
func (s *SharedSession) changePump(changes <-chan replica.Change, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case change := <-changes:
			s.mu.Lock()
			if s.phase != PhaseConnected {
				s.mu.Unlock()
				continue
			}
			s.generation++
			s.lastSnapshot = change.Snapshot
			s.mu.Unlock()

			s.opts.Store.Replace(change.Snapshot)
			s.logger.Debug("remote change applied to store")
		}
	}
}

// onStoreChange handles a store notification: echoes of remote writes
// are skipped (and the bookmark advanced); genuine local edits are
// diffed against the last snapshot and pushed as one update batch.
func (s *SharedSession) onStoreChange() {
	s.mu.Lock()
	if s.phase != PhaseConnected {
		s.mu.Unlock()
		return
	}
	if s.observedGeneration != s.generation {
		s.observedGeneration = s.generation
		s.mu.Unlock()
		return
	}
	doc := s.doc
	provider := s.provider
	last := s.lastSnapshot
	s.mu.Unlock()

	// Teardown nils the machinery under the lock before the phase
	// turns terminal; a notification landing in that window has
	// nothing left to push to.
	if doc == nil {
		return
	}

	current := s.opts.Store.Load()
	update, err := doc.ApplyDelta(last, current)
	if err != nil {
		s.logger.Error("diffing local edit failed", "error", err)
		return
	}

	s.mu.Lock()
	s.lastSnapshot = current
	s.mu.Unlock()

	if update == nil {
		return
	}
	if err := provider.SendUpdate(update); err != nil {
		s.logger.Warn("pushing local edit failed", "error", err)
	}
}

// onChannelClosed fires when the stream ends for any reason other than
// Stop. Equivalent to a user stop plus a Failed status; never a
// reconnect.
func (s *SharedSession) onChannelClosed(err error) {
	s.failWith(fmt.Errorf("%w: %v", ErrChannelClosed, err))
}

// failWith tears down and records the failure cause. No-op once the
// session is terminal.
func (s *SharedSession) failWith(err error) {
	s.mu.Lock()
	if s.phase.terminal() {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.teardown()
	s.transition(PhaseFailed, err.Error())
	s.logger.Warn("session failed", "error", err)
}

// teardown releases every held resource exactly once. Phase handling
// is the caller's business.
func (s *SharedSession) teardown() {
	s.mu.Lock()
	cancel := s.cancelHandshake
	unsubscribe := s.unsubscribe
	provider := s.provider
	channel := s.channel
	hostOffer := s.hostOffer
	guestAnswer := s.guestAnswer
	done := s.done
	s.cancelHandshake = nil
	s.unsubscribe = nil
	s.provider = nil
	s.channel = nil
	s.hostOffer = nil
	s.guestAnswer = nil
	s.doc = nil
	s.done = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if unsubscribe != nil {
		unsubscribe()
	}
	if provider != nil {
		provider.Destroy()
	}
	if channel != nil {
		channel.Close()
	}
	if hostOffer != nil {
		hostOffer.Cancel()
	}
	if guestAnswer != nil {
		guestAnswer.Cancel()
	}
	if done != nil {
		close(done)
	}
}

// transition moves the phase machine and notifies the status callback.
// Transitions out of a terminal phase are ignored (Stop racing a
// failure is normal); other illegal edges are logged as bugs.
func (s *SharedSession) transition(to Phase, cause string) bool {
	s.mu.Lock()
	from := s.phase
	if from.terminal() {
		s.mu.Unlock()
		return false
	}
	if !canTransition(from, to) {
		s.mu.Unlock()
		s.logger.Error("illegal phase transition", "from", from, "to", to)
		return false
	}
	s.phase = to
	s.mu.Unlock()

	s.logger.Debug("phase change", "from", from, "to", to, "cause", cause)
	if s.opts.OnStatus != nil {
		s.opts.OnStatus(Status{Phase: to, Cause: cause})
	}
	return true
}

func (s *SharedSession) transportConfig(forceSTUN bool) transport.Config {
	return transport.Config{
		ICE:       s.opts.ICE,
		ForceSTUN: forceSTUN,
		Clock:     s.clk,
		Logger:    s.logger,
	}
}

// invite wraps a code, rendering the QR when a renderer is configured.
func (s *SharedSession) invite(code string) *Invite {
	invite := &Invite{Code: code}
	if s.opts.RenderQR != nil {
		image, err := s.opts.RenderQR(code)
		if err != nil {
			s.logger.Warn("QR rendering failed", "error", err)
		} else {
			invite.QR = image
		}
	}
	return invite
}
