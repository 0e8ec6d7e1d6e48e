// Copyright 2026 The Doula Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"encoding/base64"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/pion/sdp/v3"
	"github.com/pion/webrtc/v4"
)

// sampleSDP is a realistic data-channel offer: session-level BUNDLE,
// media-level ICE credentials, a sha-256 fingerprint, one host and one
// server-reflexive candidate.
const sampleSDP = "v=0\r\n" +
	"o=- 8052986528229931232 2 IN IP4 127.0.0.1\r\n" +
	"s=-\r\n" +
	"t=0 0\r\n" +
	"a=group:BUNDLE 0\r\n" +
	"m=application 9 UDP/DTLS/SCTP webrtc-datachannel\r\n" +
	"c=IN IP4 0.0.0.0\r\n" +
	"a=mid:0\r\n" +
	"a=ice-ufrag:yHzF\r\n" +
	"a=ice-pwd:VZoeDByOSTLNYoOqYJvxWerZ\r\n" +
	"a=fingerprint:sha-256 2F:32:BA:9C:7F:55:20:D6:11:02:9C:85:23:C5:22:C8:90:2F:9D:04:24:BF:0A:E0:28:EF:63:13:37:B0:F0:72\r\n" +
	"a=setup:actpass\r\n" +
	"a=sctp-port:5000\r\n" +
	"a=candidate:2880323124 1 udp 2122260223 192.168.1.17 54187 typ host generation 0\r\n" +
	"a=candidate:842163049 1 udp 1686052607 203.0.113.40 54187 typ srflx raddr 192.168.1.17 rport 54187 generation 0\r\n"

func sampleOffer() webrtc.SessionDescription {
	return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: sampleSDP}
}

func TestCodeRoundTripPreservesFields(t *testing.T) {
	code, err := EncodeDescription(sampleOffer())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := DecodeDescription(code)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Type != webrtc.SDPTypeOffer {
		t.Errorf("decoded type = %s, want offer", decoded.Type)
	}

	original, err := extractFields(sampleOffer())
	if err != nil {
		t.Fatal(err)
	}
	roundTripped, err := extractFields(decoded)
	if err != nil {
		t.Fatalf("reconstructed description does not re-extract: %v", err)
	}
	if !reflect.DeepEqual(original, roundTripped) {
		t.Errorf("fields changed across roundtrip\n got: %+v\nwant: %+v", roundTripped, original)
	}
}

func TestDecodedDescriptionIsValidSDP(t *testing.T) {
	code, err := EncodeDescription(sampleOffer())
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := DecodeDescription(code)
	if err != nil {
		t.Fatal(err)
	}

	var parsed sdp.SessionDescription
	if err := parsed.Unmarshal([]byte(decoded.SDP)); err != nil {
		t.Fatalf("reconstructed SDP does not parse: %v\n%s", err, decoded.SDP)
	}
	if len(parsed.MediaDescriptions) != 1 {
		t.Fatalf("expected exactly one media section, got %d", len(parsed.MediaDescriptions))
	}
	media := parsed.MediaDescriptions[0]
	if media.MediaName.Media != "application" {
		t.Errorf("media = %q, want application", media.MediaName.Media)
	}
	if setup, _ := media.Attribute("setup"); setup != "actpass" {
		t.Errorf("offer setup = %q, want actpass", setup)
	}
}

func TestAnswerGetsActiveSetup(t *testing.T) {
	answer := webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  strings.ReplaceAll(sampleSDP, "a=setup:actpass", "a=setup:active"),
	}
	code, err := EncodeDescription(answer)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := DecodeDescription(code)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.Type != webrtc.SDPTypeAnswer {
		t.Errorf("type = %s, want answer", decoded.Type)
	}
	if !strings.Contains(decoded.SDP, "a=setup:active") {
		t.Error("answer reconstruction missing setup:active")
	}
}

func TestCodeIsURLSafeWithoutPadding(t *testing.T) {
	code, err := EncodeDescription(sampleOffer())
	if err != nil {
		t.Fatal(err)
	}
	if strings.ContainsAny(code, "+/=") {
		t.Errorf("code contains non-URL-safe characters: %q", code)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	cases := map[string]string{
		"not base64":      "!!!not-base64!!!",
		"empty":           "",
		"random text":     base64.RawURLEncoding.EncodeToString([]byte("hello world")),
		"bad tag":         base64.RawURLEncoding.EncodeToString([]byte("x9z\nufrag\npwd\n" + strings.Repeat("ab", 32) + "\n0")),
		"bad fingerprint": base64.RawURLEncoding.EncodeToString([]byte("d1o\nufrag\npwd\nnothex\n0")),
		"count mismatch":  base64.RawURLEncoding.EncodeToString([]byte("d1o\nufrag\npwd\n" + strings.Repeat("ab", 32) + "\n3")),
		"bad candidate":   base64.RawURLEncoding.EncodeToString([]byte("d1o\nufrag\npwd\n" + strings.Repeat("ab", 32) + "\n1\nnot-a-candidate")),
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeDescription(input)
			if !errors.Is(err, ErrMalformedCode) {
				t.Errorf("DecodeDescription(%q) error = %v, want ErrMalformedCode", input, err)
			}
		})
	}
}

func TestEncodeRejectsDescriptionWithoutCredentials(t *testing.T) {
	bare := webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  "v=0\r\no=- 1 1 IN IP4 0.0.0.0\r\ns=-\r\nt=0 0\r\n",
	}
	if _, err := EncodeDescription(bare); err == nil {
		t.Error("expected error for description without ICE credentials")
	}
}
