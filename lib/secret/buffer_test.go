// Copyright 2026 The Doula Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestFromBytesZerosSource(t *testing.T) {
	source := []byte("room-password")
	buffer, err := FromBytes(source)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	defer buffer.Close()

	if got := buffer.String(); got != "room-password" {
		t.Errorf("buffer content = %q, want %q", got, "room-password")
	}
	for index, value := range source {
		if value != 0 {
			t.Fatalf("source[%d] = %d, want 0 (source must be zeroed)", index, value)
		}
	}
}

func TestCloseIsIdempotentAndPanicsOnUse(t *testing.T) {
	buffer, err := FromBytes([]byte("key material"))
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	if err := buffer.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := buffer.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Error("Bytes() after Close did not panic")
		}
	}()
	buffer.Bytes()
}

func TestNewRejectsNonPositiveSize(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Error("New(0) succeeded, want error")
	}
	if _, err := New(-4); err == nil {
		t.Error("New(-4) succeeded, want error")
	}
}

func TestReadFromPathTrimsWhitespace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "turn-secret")
	if err := os.WriteFile(path, []byte("  shared-secret-value\n"), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	buffer, err := ReadFromPath(path)
	if err != nil {
		t.Fatalf("ReadFromPath: %v", err)
	}
	defer buffer.Close()

	if !bytes.Equal(buffer.Bytes(), []byte("shared-secret-value")) {
		t.Errorf("content = %q, want trimmed secret", buffer.Bytes())
	}
}

func TestReadFromPathEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")
	if err := os.WriteFile(path, []byte("\n\n"), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	if _, err := ReadFromPath(path); err == nil {
		t.Error("ReadFromPath on whitespace-only file succeeded, want error")
	}
}
