// Copyright 2026 The Doula Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"net"
	"testing"
	"time"
)

func connPair(t *testing.T) (*DataChannelConn, net.Conn) {
	t.Helper()
	near, far := net.Pipe()
	conn := NewDataChannelConn(near, "local/session", "peer/session")
	t.Cleanup(func() {
		conn.Close()
		far.Close()
	})
	return conn, far
}

func TestDataChannelConnPassesBytesThrough(t *testing.T) {
	conn, far := connPair(t)

	go far.Write([]byte("hello"))
	buffer := make([]byte, 5)
	n, err := conn.Read(buffer)
	if err != nil || string(buffer[:n]) != "hello" {
		t.Fatalf("Read = %q, %v", buffer[:n], err)
	}

	go func() {
		received := make([]byte, 5)
		far.Read(received)
	}()
	if _, err := conn.Write([]byte("world")); err != nil {
		t.Fatalf("Write: %v", err)
	}
}

func TestDataChannelConnAddrs(t *testing.T) {
	conn, _ := connPair(t)
	if conn.LocalAddr().Network() != "webrtc" {
		t.Errorf("network = %q", conn.LocalAddr().Network())
	}
	if conn.LocalAddr().String() != "local/session" || conn.RemoteAddr().String() != "peer/session" {
		t.Errorf("addrs = %s / %s", conn.LocalAddr(), conn.RemoteAddr())
	}
}

func TestReadDeadlineUnblocksRead(t *testing.T) {
	conn, _ := connPair(t)

	if err := conn.SetReadDeadline(time.Now().Add(50 * time.Millisecond)); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() {
		buffer := make([]byte, 1)
		_, err := conn.Read(buffer)
		done <- err
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Error("read returned without error after deadline")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("read still blocked long after the deadline")
	}
}

func TestPastDeadlineFailsImmediately(t *testing.T) {
	conn, _ := connPair(t)

	if err := conn.SetDeadline(time.Now().Add(-time.Second)); err != nil {
		t.Fatal(err)
	}
	buffer := make([]byte, 1)
	if _, err := conn.Read(buffer); err == nil {
		t.Error("read succeeded on a conn with an expired deadline")
	}
}

func TestClearingDeadlineStopsTimer(t *testing.T) {
	conn, far := connPair(t)

	if err := conn.SetReadDeadline(time.Now().Add(30 * time.Millisecond)); err != nil {
		t.Fatal(err)
	}
	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		t.Fatal(err)
	}
	time.Sleep(60 * time.Millisecond)

	// The cancelled deadline must not have broken the conn.
	go far.Write([]byte("x"))
	buffer := make([]byte, 1)
	if _, err := conn.Read(buffer); err != nil {
		t.Errorf("conn broken after cleared deadline: %v", err)
	}
}
