// Copyright 2026 The Doula Authors
// SPDX-License-Identifier: Apache-2.0

// Package cryptobox provides the end-to-end encryption for signaling
// payloads. Both peers derive the same AES-256-GCM key from the room
// code alone (or from the optional password when one is set), so the
// relay in the middle stores only opaque blobs it cannot read and a
// routing key it cannot reverse into the room code.
//
// Blob layout on the wire: nonce (12 bytes) ‖ ciphertext ‖ GCM tag
// (16 bytes), transported as standard base64.
package cryptobox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/pbkdf2"

	"github.com/bureau-foundation/doula/lib/secret"
)

// KeySize is the derived AES key length in bytes (AES-256).
const KeySize = 32

// NonceSize is the GCM nonce length prepended to every blob.
const NonceSize = 12

// TagSize is the GCM authentication tag length appended to every blob.
const TagSize = 16

// Iterations is the PBKDF2 iteration count. Key derivation happens a
// handful of times per sharing session, so the cost lands on humans
// typing passwords, not on the sync path.
const Iterations = 100_000

// Domain tags keep the routing-key hash and the key-derivation salt
// from ever colliding: an observer who sees a routing key must not be
// able to test it against candidate salts. Protocol constants.
var (
	saltDomain    = []byte("doula.cryptobox.salt.v1")
	routingDomain = []byte("doula.cryptobox.routing.v1")
)

// ErrDecryptFailed is returned when a blob fails authentication. The
// wrong key, a truncated blob, and tampered ciphertext are deliberately
// indistinguishable; the relay layer decides whether to present this as
// "wrong password" based on whether any blob was seen at all.
var ErrDecryptFailed = errors.New("cryptobox: decryption failed")

// Key is a derived symmetric key held in protected memory. Close it
// when the sharing session ends.
type Key struct {
	buffer *secret.Buffer
}

// DeriveKey derives the session key from a secret and the room code.
// The salt is a hash of the room code, so two peers that know only the
// room code derive identical keys. When the room has a password, the
// password is the secret; otherwise the room code itself is.
func DeriveKey(sharedSecret, roomCode string) (*Key, error) {
	salt := blake3.Sum256(append(append([]byte{}, saltDomain...), roomCode...))

	material := pbkdf2.Key([]byte(sharedSecret), salt[:], Iterations, KeySize, sha256.New)
	buffer, err := secret.FromBytes(material)
	if err != nil {
		return nil, fmt.Errorf("cryptobox: protecting derived key: %w", err)
	}
	return &Key{buffer: buffer}, nil
}

// Close zeros and releases the key material. Idempotent.
func (k *Key) Close() error {
	return k.buffer.Close()
}

// Encrypt seals plaintext under the key with a fresh random nonce.
// Never reuses a nonce under one key: the nonce comes from crypto/rand
// for every call.
func Encrypt(key *Key, plaintext []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	blob := make([]byte, NonceSize, NonceSize+len(plaintext)+TagSize)
	if _, err := io.ReadFull(rand.Reader, blob[:NonceSize]); err != nil {
		return nil, fmt.Errorf("cryptobox: generating nonce: %w", err)
	}

	return aead.Seal(blob, blob[:NonceSize], plaintext, nil), nil
}

// Decrypt opens a blob produced by Encrypt. Returns ErrDecryptFailed
// on any authentication failure — never partial plaintext, and never a
// panic across the authentication boundary.
func Decrypt(key *Key, blob []byte) ([]byte, error) {
	if len(blob) < NonceSize+TagSize {
		return nil, ErrDecryptFailed
	}

	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, blob[:NonceSize], blob[NonceSize:], nil)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return plaintext, nil
}

// RoutingKey returns the relay mailbox key for a room code: 64 lowercase
// hex characters of a domain-tagged BLAKE3 hash. The relay never sees
// the room code itself.
func RoutingKey(roomCode string) string {
	digest := blake3.Sum256(append(append([]byte{}, routingDomain...), roomCode...))
	return hex.EncodeToString(digest[:])
}

// EncodeBlob renders a blob for raw-text transports (relay mailbox
// bodies, pub/sub messages).
func EncodeBlob(blob []byte) string {
	return base64.StdEncoding.EncodeToString(blob)
}

// DecodeBlob reverses EncodeBlob. A body that is not base64 at all is
// a malformed message, not a decryption failure.
func DecodeBlob(encoded string) ([]byte, error) {
	blob, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("cryptobox: decoding blob: %w", err)
	}
	return blob, nil
}

func newGCM(key *Key) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key.buffer.Bytes())
	if err != nil {
		return nil, fmt.Errorf("cryptobox: creating cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cryptobox: creating GCM: %w", err)
	}
	return aead, nil
}
