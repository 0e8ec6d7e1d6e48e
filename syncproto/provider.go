// Copyright 2026 The Doula Authors
// SPDX-License-Identifier: Apache-2.0

// Package syncproto carries replica updates between two peers over a
// single reliable, ordered byte stream (in production, a detached
// WebRTC data channel).
//
// The protocol is two message types. On open, each side sends SYNC
// with its state vector; the receiver replies once with its own SYNC
// carrying the delta the sender is missing, and marks itself synced.
// After that, every local edit travels as an UPDATE frame and is
// applied on arrival with the document's own last-writer-wins rules.
// Loop prevention at this layer is structural: the provider only sends
// what the bridge hands it via SendUpdate, and remote batches surface
// through the document's change queue, never back onto the wire.
//
// Frame layout: one type tag byte, a uvarint payload length, then the
// zstd-compressed payload. SYNC payloads are CBOR; UPDATE payloads are
// encoded replica updates.
package syncproto

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/klauspost/compress/zstd"

	"github.com/bureau-foundation/doula/lib/codec"
	"github.com/bureau-foundation/doula/replica"
)

// Frame type tags. Wire constants.
const (
	frameSync   byte = 0
	frameUpdate byte = 1
)

// maxFramePayload bounds a frame on both sides of the codec: the
// compressed length read off the wire, and the decompressed size via
// the decoder's memory limit. A session document is a few kilobytes;
// anything near this limit is a broken or hostile peer.
const maxFramePayload = 16 << 20

// sendQueueCapacity bounds outbound frames waiting for the writer
// goroutine. Reads and writes must not share a goroutine: two peers
// answering each other's SYNC simultaneously would otherwise deadlock
// on an unbuffered transport.
const sendQueueCapacity = 64

var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil)
	if err != nil {
		panic("syncproto: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxFramePayload))
	if err != nil {
		panic("syncproto: zstd decoder initialization failed: " + err.Error())
	}
}

// syncPayload is the SYNC frame body.
type syncPayload struct {
	StateVector []byte `cbor:"sv"`
	Update      []byte `cbor:"u,omitempty"`
}

// Provider runs the sync protocol for one document over one stream.
type Provider struct {
	doc    *replica.Document
	stream io.ReadWriteCloser
	logger *slog.Logger

	// onClose is invoked once if the stream fails or closes while the
	// provider is live. Destroy suppresses it.
	onClose func(error)

	synced    atomic.Bool
	sendQueue chan []byte
	done      chan struct{}

	destroyOnce sync.Once
	closeOnce   sync.Once
}

// New creates a provider. onClose may be nil; it fires at most once,
// from the read loop, when the stream ends for any reason other than
// Destroy.
func New(doc *replica.Document, stream io.ReadWriteCloser, logger *slog.Logger, onClose func(error)) *Provider {
	return &Provider{
		doc:       doc,
		stream:    stream,
		logger:    logger,
		onClose:   onClose,
		sendQueue: make(chan []byte, sendQueueCapacity),
		done:      make(chan struct{}),
	}
}

// Start begins the protocol: spawns the reader and writer and queues
// the initial SYNC carrying the local state vector.
func (p *Provider) Start() error {
	sv, err := replica.EncodeStateVector(p.doc.StateVector())
	if err != nil {
		return err
	}
	frame, err := buildFrame(frameSync, mustMarshal(syncPayload{StateVector: sv}))
	if err != nil {
		return err
	}

	go p.writeLoop()
	go p.readLoop()

	p.enqueue(frame)
	return nil
}

// Synced reports whether the first sync exchange has completed.
func (p *Provider) Synced() bool {
	return p.synced.Load()
}

// SendUpdate transmits a locally produced update batch (the return
// value of the document's ApplyDelta) to the peer.
func (p *Provider) SendUpdate(update []byte) error {
	if len(update) == 0 {
		return nil
	}
	frame, err := buildFrame(frameUpdate, update)
	if err != nil {
		return err
	}
	if !p.enqueue(frame) {
		return errors.New("syncproto: provider destroyed")
	}
	return nil
}

// Destroy stops both loops and closes the stream. Idempotent; the
// onClose callback does not fire for a Destroy-initiated shutdown.
func (p *Provider) Destroy() {
	p.destroyOnce.Do(func() {
		close(p.done)
		p.stream.Close()
	})
}

// enqueue hands a frame to the writer. Returns false after Destroy.
func (p *Provider) enqueue(frame []byte) bool {
	// Check done first: if Destroy already ran, both select cases below
	// could be ready and Go would pick one at random.
	select {
	case <-p.done:
		return false
	default:
	}
	select {
	case p.sendQueue <- frame:
		return true
	case <-p.done:
		return false
	}
}

func (p *Provider) writeLoop() {
	for {
		select {
		case frame := <-p.sendQueue:
			if _, err := p.stream.Write(frame); err != nil {
				p.logger.Debug("sync stream write failed", "error", err)
				p.handleStreamEnd(err)
				return
			}
		case <-p.done:
			return
		}
	}
}

func (p *Provider) readLoop() {
	reader := bufio.NewReader(p.stream)
	for {
		tag, payload, err := readFrame(reader)
		if err != nil {
			p.handleStreamEnd(err)
			return
		}

		switch tag {
		case frameSync:
			err = p.handleSync(payload)
		case frameUpdate:
			err = p.handleUpdate(payload)
		default:
			err = fmt.Errorf("syncproto: unknown frame tag %d", tag)
		}
		if err != nil {
			p.logger.Warn("sync frame handling failed", "error", err)
			p.handleStreamEnd(err)
			return
		}
	}
}

// handleStreamEnd reports an unexpected stream termination exactly
// once, unless Destroy already ran.
func (p *Provider) handleStreamEnd(err error) {
	select {
	case <-p.done:
		return
	default:
	}
	p.closeOnce.Do(func() {
		if p.onClose != nil {
			p.onClose(err)
		}
	})
}

// handleSync applies any update included in a peer SYNC and, on the
// first exchange, replies with the delta the peer is missing.
func (p *Provider) handleSync(payload []byte) error {
	var sync syncPayload
	if err := codec.Unmarshal(payload, &sync); err != nil {
		return fmt.Errorf("syncproto: decoding SYNC: %w", err)
	}

	if len(sync.Update) > 0 {
		result, err := p.doc.Apply(sync.Update)
		if err != nil {
			return err
		}
		p.logger.Debug("applied sync delta", "applied", result.Applied, "stale", result.Stale)
	}

	if p.synced.CompareAndSwap(false, true) {
		remoteSV, err := replica.DecodeStateVector(sync.StateVector)
		if err != nil {
			return err
		}
		delta, err := p.doc.DeltaSince(remoteSV)
		if err != nil {
			return err
		}
		localSV, err := replica.EncodeStateVector(p.doc.StateVector())
		if err != nil {
			return err
		}
		frame, err := buildFrame(frameSync, mustMarshal(syncPayload{
			StateVector: localSV,
			Update:      delta,
		}))
		if err != nil {
			return err
		}
		p.enqueue(frame)
		p.logger.Debug("sync reply queued", "delta_bytes", len(delta))
	}
	return nil
}

func (p *Provider) handleUpdate(payload []byte) error {
	result, err := p.doc.Apply(payload)
	if err != nil {
		return err
	}
	p.logger.Debug("applied update", "applied", result.Applied, "stale", result.Stale)
	return nil
}

// buildFrame assembles tag ‖ uvarint(len) ‖ compressed payload.
func buildFrame(tag byte, payload []byte) ([]byte, error) {
	compressed := zstdEncoder.EncodeAll(payload, nil)
	frame := make([]byte, 0, 1+binary.MaxVarintLen64+len(compressed))
	frame = append(frame, tag)
	frame = binary.AppendUvarint(frame, uint64(len(compressed)))
	return append(frame, compressed...), nil
}

// readFrame reads one frame and decompresses its payload.
func readFrame(reader *bufio.Reader) (byte, []byte, error) {
	tag, err := reader.ReadByte()
	if err != nil {
		return 0, nil, err
	}
	length, err := binary.ReadUvarint(reader)
	if err != nil {
		return 0, nil, err
	}
	if length > maxFramePayload {
		return 0, nil, fmt.Errorf("syncproto: frame payload %d exceeds limit", length)
	}
	compressed := make([]byte, length)
	if _, err := io.ReadFull(reader, compressed); err != nil {
		return 0, nil, err
	}
	payload, err := zstdDecoder.DecodeAll(compressed, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("syncproto: decompressing frame: %w", err)
	}
	return tag, payload, nil
}

// mustMarshal encodes a wire struct that cannot fail to encode.
func mustMarshal(v any) []byte {
	encoded, err := codec.Marshal(v)
	if err != nil {
		panic("syncproto: marshal: " + err.Error())
	}
	return encoded
}
