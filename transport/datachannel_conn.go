// Copyright 2026 The Doula Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"io"
	"net"
	"sync"
	"time"
)

// DataChannelConn wraps a detached pion data channel ReadWriteCloser
// as a net.Conn. The detached channel is stream-oriented (SCTP handles
// fragmentation and reassembly), so the sync layer can treat it like a
// TCP connection.
//
// Deadlines use timer-based cancellation: when one fires, the
// underlying stream is closed and pending reads or writes return an
// error. A deadline-closed conn is permanently broken, which matches
// how the session layer uses deadlines (teardown only).
type DataChannelConn struct {
	rwc         io.ReadWriteCloser
	localLabel  string
	remoteLabel string

	mu             sync.Mutex
	readTimer      *time.Timer
	writeTimer     *time.Timer
	deadlineClosed bool
}

var _ net.Conn = (*DataChannelConn)(nil)

// NewDataChannelConn wraps a detached data channel. The labels only
// feed the Addr methods for logging.
func NewDataChannelConn(rwc io.ReadWriteCloser, localLabel, remoteLabel string) *DataChannelConn {
	return &DataChannelConn{
		rwc:         rwc,
		localLabel:  localLabel,
		remoteLabel: remoteLabel,
	}
}

func (c *DataChannelConn) Read(buffer []byte) (int, error) {
	return c.rwc.Read(buffer)
}

func (c *DataChannelConn) Write(buffer []byte) (int, error) {
	return c.rwc.Write(buffer)
}

func (c *DataChannelConn) Close() error {
	c.mu.Lock()
	c.stopTimersLocked()
	c.mu.Unlock()
	return c.rwc.Close()
}

func (c *DataChannelConn) LocalAddr() net.Addr {
	return &dataChannelAddr{label: c.localLabel}
}

func (c *DataChannelConn) RemoteAddr() net.Addr {
	return &dataChannelAddr{label: c.remoteLabel}
}

// SetDeadline sets both read and write deadlines. Zero clears them.
func (c *DataChannelConn) SetDeadline(deadline time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readTimer = c.resetTimerLocked(c.readTimer, deadline)
	c.writeTimer = c.resetTimerLocked(c.writeTimer, deadline)
	return nil
}

func (c *DataChannelConn) SetReadDeadline(deadline time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readTimer = c.resetTimerLocked(c.readTimer, deadline)
	return nil
}

func (c *DataChannelConn) SetWriteDeadline(deadline time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeTimer = c.resetTimerLocked(c.writeTimer, deadline)
	return nil
}

func (c *DataChannelConn) resetTimerLocked(timer *time.Timer, deadline time.Time) *time.Timer {
	if timer != nil {
		timer.Stop()
	}
	if deadline.IsZero() || c.deadlineClosed {
		return nil
	}
	duration := time.Until(deadline)
	if duration <= 0 {
		c.closeFromDeadlineLocked()
		return nil
	}
	return time.AfterFunc(duration, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.closeFromDeadlineLocked()
	})
}

func (c *DataChannelConn) closeFromDeadlineLocked() {
	if c.deadlineClosed {
		return
	}
	c.deadlineClosed = true
	c.rwc.Close()
}

func (c *DataChannelConn) stopTimersLocked() {
	if c.readTimer != nil {
		c.readTimer.Stop()
		c.readTimer = nil
	}
	if c.writeTimer != nil {
		c.writeTimer.Stop()
		c.writeTimer = nil
	}
}

// dataChannelAddr is a synthetic net.Addr for data channel endpoints.
type dataChannelAddr struct {
	label string
}

func (a *dataChannelAddr) Network() string { return "webrtc" }
func (a *dataChannelAddr) String() string  { return a.label }
