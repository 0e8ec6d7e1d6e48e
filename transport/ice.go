// Copyright 2026 The Doula Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/bureau-foundation/doula/lib/clock"
	"github.com/bureau-foundation/doula/lib/secret"
	"github.com/bureau-foundation/doula/lib/settings"
)

// defaultSTUNServers are the public servers used by the "default"
// preset and injected on forced-STUN paths.
var defaultSTUNServers = []string{
	"stun:stun.l.google.com:19302",
	"stun:stun1.l.google.com:19302",
}

// managedTURNURLs are the managed relay endpoints reached with
// short-lived HMAC credentials.
var managedTURNURLs = []string{
	"turn:turn.doula.dev:3478?transport=udp",
	"turn:turn.doula.dev:3478?transport=tcp",
}

// turnCredentialTTL is the validity window of a managed TURN
// credential. The expiry is baked into the username, so a credential
// minted at connection time outlives any plausible session.
const turnCredentialTTL = 24 * time.Hour

// ICEConfigBuilder assembles the NAT-traversal server list from the
// user's persisted preferences. The TURN shared secret, when the
// managed preset is active, stays in locked memory.
type ICEConfigBuilder struct {
	prefs       settings.ICEPreferences
	turnAccount string
	turnSecret  *secret.Buffer
	clock       clock.Clock
}

// NewICEConfigBuilder creates a builder. turnSecret may be nil when
// the managed TURN preset is not in use; the builder then skips the
// managed entry rather than emitting unusable credentials.
func NewICEConfigBuilder(prefs settings.ICEPreferences, turnAccount string, turnSecret *secret.Buffer, clk clock.Clock) *ICEConfigBuilder {
	return &ICEConfigBuilder{
		prefs:       prefs,
		turnAccount: turnAccount,
		turnSecret:  turnSecret,
		clock:       clk,
	}
}

// BuildServers returns the ICE server list for a new peer connection.
//
// forceSTUN injects the default STUN servers even when the user preset
// is "none". Relay-signaled paths always set it: those connections are
// cross-network by construction, and host candidates alone cannot
// reach the peer.
func (b *ICEConfigBuilder) BuildServers(forceSTUN bool) []webrtc.ICEServer {
	var servers []webrtc.ICEServer

	switch b.prefs.STUNPreset {
	case settings.STUNDefault:
		servers = append(servers, webrtc.ICEServer{URLs: defaultSTUNServers})
	case settings.STUNCustom:
		if len(b.prefs.CustomSTUN) > 0 {
			servers = append(servers, webrtc.ICEServer{URLs: b.prefs.CustomSTUN})
		}
	case settings.STUNNone:
		if forceSTUN {
			servers = append(servers, webrtc.ICEServer{URLs: defaultSTUNServers})
		}
	}

	switch b.prefs.TURNPreset {
	case settings.TURNManaged:
		if b.turnSecret != nil {
			username, credential := managedTURNCredentials(b.turnAccount, b.turnSecret.Bytes(), b.clock.Now())
			servers = append(servers, webrtc.ICEServer{
				URLs:       managedTURNURLs,
				Username:   username,
				Credential: credential,
			})
		}
	case settings.TURNCustom:
		for _, turn := range b.prefs.CustomTURN {
			servers = append(servers, webrtc.ICEServer{
				URLs:       turn.URLs,
				Username:   turn.Username,
				Credential: turn.Credential,
			})
		}
	case settings.TURNNone:
	}

	return servers
}

// Config returns the server list wrapped as a webrtc.Configuration.
func (b *ICEConfigBuilder) Config(forceSTUN bool) webrtc.Configuration {
	return webrtc.Configuration{ICEServers: b.BuildServers(forceSTUN)}
}

// ServerURLs returns the flat URL list, the shape the settings surface
// displays.
func (b *ICEConfigBuilder) ServerURLs(forceSTUN bool) []string {
	var urls []string
	for _, server := range b.BuildServers(forceSTUN) {
		urls = append(urls, server.URLs...)
	}
	return urls
}

// managedTURNCredentials mints a time-limited TURN credential pair:
// username "<expiryUnix>:<account>", credential the base64 HMAC-SHA1
// of the username under the relay's shared secret. This is the
// long-standing coturn REST credential scheme.
func managedTURNCredentials(account string, sharedSecret []byte, now time.Time) (username, credential string) {
	expiry := now.Add(turnCredentialTTL).Unix()
	username = fmt.Sprintf("%d:%s", expiry, account)
	mac := hmac.New(sha1.New, sharedSecret)
	mac.Write([]byte(username))
	credential = base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return username, credential
}
