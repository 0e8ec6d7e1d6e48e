// Copyright 2026 The Doula Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/pion/sdp/v3"
	"github.com/pion/webrtc/v4"
)

// Role tags, the first line of a decoded record. The digit is the
// format version.
const (
	offerTag  = "d1o"
	answerTag = "d1a"
)

// sctpPort is the fixed SCTP port announced in reconstructed
// descriptions. Pion negotiates the real port over DTLS.
const sctpPort = 5000

// candidate is the subset of an ICE candidate that survives encoding:
// enough for the remote agent to attempt the pair, nothing else.
type candidate struct {
	Protocol string
	Priority uint32
	Address  string
	Port     int
	Type     string
}

// descriptionFields is everything a data-channel-only session
// description actually carries: ICE credentials, the DTLS certificate
// digest, and the candidate list.
type descriptionFields struct {
	Role        webrtc.SDPType
	Ufrag       string
	Password    string
	Fingerprint string // 64 lowercase hex chars, colons stripped
	Candidates  []candidate
}

// EncodeDescription compresses a full session description into a
// short code suitable for QR display or manual exchange. Only the
// ICE username fragment, ICE password, sha-256 DTLS fingerprint, and
// candidate list are kept; everything else in the SDP is boilerplate
// a data-channel-only peer can reconstruct.
func EncodeDescription(desc webrtc.SessionDescription) (string, error) {
	fields, err := extractFields(desc)
	if err != nil {
		return "", err
	}

	var record strings.Builder
	switch fields.Role {
	case webrtc.SDPTypeOffer:
		record.WriteString(offerTag)
	case webrtc.SDPTypeAnswer:
		record.WriteString(answerTag)
	default:
		return "", fmt.Errorf("encoding description: unsupported type %s", desc.Type)
	}
	record.WriteByte('\n')
	record.WriteString(fields.Ufrag)
	record.WriteByte('\n')
	record.WriteString(fields.Password)
	record.WriteByte('\n')
	record.WriteString(fields.Fingerprint)
	record.WriteByte('\n')
	record.WriteString(strconv.Itoa(len(fields.Candidates)))
	for _, c := range fields.Candidates {
		record.WriteByte('\n')
		fmt.Fprintf(&record, "%s|%d|%s|%d|%s", c.Protocol, c.Priority, c.Address, c.Port, c.Type)
	}

	return base64.RawURLEncoding.EncodeToString([]byte(record.String())), nil
}

// DecodeDescription rebuilds a minimal, standards-acceptable session
// description from a code produced by EncodeDescription. Offers get
// setup:actpass, answers setup:active, so DTLS roles resolve
// deterministically. Any parse failure reports ErrMalformedCode.
func DecodeDescription(code string) (webrtc.SessionDescription, error) {
	fields, err := parseCode(code)
	if err != nil {
		return webrtc.SessionDescription{}, err
	}

	setup := "actpass"
	if fields.Role == webrtc.SDPTypeAnswer {
		setup = "active"
	}

	media := &sdp.MediaDescription{
		MediaName: sdp.MediaName{
			Media:   "application",
			Port:    sdp.RangedPort{Value: 9},
			Protos:  []string{"UDP", "DTLS", "SCTP"},
			Formats: []string{"webrtc-datachannel"},
		},
		ConnectionInformation: &sdp.ConnectionInformation{
			NetworkType: "IN",
			AddressType: "IP4",
			Address:     &sdp.Address{Address: "0.0.0.0"},
		},
		Attributes: []sdp.Attribute{
			sdp.NewAttribute("mid", "0"),
			sdp.NewAttribute("ice-ufrag", fields.Ufrag),
			sdp.NewAttribute("ice-pwd", fields.Password),
			sdp.NewAttribute("fingerprint", "sha-256 "+colonHex(fields.Fingerprint)),
			sdp.NewAttribute("setup", setup),
			sdp.NewAttribute("sctp-port", strconv.Itoa(sctpPort)),
		},
	}
	for i, c := range fields.Candidates {
		media.Attributes = append(media.Attributes, sdp.NewAttribute("candidate", candidateLine(i+1, c)))
	}

	session := &sdp.SessionDescription{
		Origin: sdp.Origin{
			Username:       "-",
			SessionID:      1,
			SessionVersion: 1,
			NetworkType:    "IN",
			AddressType:    "IP4",
			UnicastAddress: "0.0.0.0",
		},
		SessionName:       "-",
		TimeDescriptions:  []sdp.TimeDescription{{}},
		Attributes:        []sdp.Attribute{sdp.NewAttribute("group", "BUNDLE 0")},
		MediaDescriptions: []*sdp.MediaDescription{media},
	}

	raw, err := session.Marshal()
	if err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("marshalling reconstructed description: %w", err)
	}

	return webrtc.SessionDescription{Type: fields.Role, SDP: string(raw)}, nil
}

// extractFields parses the SDP text and pulls out the encoded subset.
func extractFields(desc webrtc.SessionDescription) (descriptionFields, error) {
	var parsed sdp.SessionDescription
	if err := parsed.Unmarshal([]byte(desc.SDP)); err != nil {
		return descriptionFields{}, fmt.Errorf("parsing session description: %w", err)
	}

	fields := descriptionFields{Role: desc.Type}

	// Credentials and fingerprint can sit at session or media level;
	// take the first occurrence of each.
	scan := func(attrs []sdp.Attribute) error {
		for _, attr := range attrs {
			switch attr.Key {
			case "ice-ufrag":
				if fields.Ufrag == "" {
					fields.Ufrag = attr.Value
				}
			case "ice-pwd":
				if fields.Password == "" {
					fields.Password = attr.Value
				}
			case "fingerprint":
				if fields.Fingerprint != "" {
					continue
				}
				algorithm, digest, ok := strings.Cut(attr.Value, " ")
				if !ok || !strings.EqualFold(algorithm, "sha-256") {
					return fmt.Errorf("unsupported fingerprint %q", attr.Value)
				}
				fields.Fingerprint = strings.ToLower(strings.ReplaceAll(digest, ":", ""))
			case "candidate":
				c, err := parseCandidate(attr.Value)
				if err != nil {
					return err
				}
				fields.Candidates = append(fields.Candidates, c)
			}
		}
		return nil
	}

	if err := scan(parsed.Attributes); err != nil {
		return descriptionFields{}, err
	}
	for _, media := range parsed.MediaDescriptions {
		if err := scan(media.Attributes); err != nil {
			return descriptionFields{}, err
		}
	}

	if fields.Ufrag == "" || fields.Password == "" {
		return descriptionFields{}, fmt.Errorf("description has no ICE credentials")
	}
	if len(fields.Fingerprint) != 64 || !isHex(fields.Fingerprint) {
		return descriptionFields{}, fmt.Errorf("description has no sha-256 fingerprint")
	}
	return fields, nil
}

// parseCandidate reads the attribute value form:
// "<foundation> <component> <protocol> <priority> <address> <port> typ <type> ...".
func parseCandidate(value string) (candidate, error) {
	tokens := strings.Fields(value)
	if len(tokens) < 8 || tokens[6] != "typ" {
		return candidate{}, fmt.Errorf("unparseable candidate %q", value)
	}
	priority, err := strconv.ParseUint(tokens[3], 10, 32)
	if err != nil {
		return candidate{}, fmt.Errorf("candidate priority %q: %w", tokens[3], err)
	}
	port, err := strconv.Atoi(tokens[5])
	if err != nil || port < 0 || port > 65535 {
		return candidate{}, fmt.Errorf("candidate port %q", tokens[5])
	}
	return candidate{
		Protocol: strings.ToLower(tokens[2]),
		Priority: uint32(priority),
		Address:  tokens[4],
		Port:     port,
		Type:     tokens[7],
	}, nil
}

// parseCode decodes the base64 record back into fields. Every failure
// path wraps ErrMalformedCode so callers get one stable sentinel.
func parseCode(code string) (descriptionFields, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(code))
	if err != nil {
		return descriptionFields{}, fmt.Errorf("%w: not base64", ErrMalformedCode)
	}
	lines := strings.Split(string(raw), "\n")
	if len(lines) < 5 {
		return descriptionFields{}, fmt.Errorf("%w: truncated record", ErrMalformedCode)
	}

	var fields descriptionFields
	switch lines[0] {
	case offerTag:
		fields.Role = webrtc.SDPTypeOffer
	case answerTag:
		fields.Role = webrtc.SDPTypeAnswer
	default:
		return descriptionFields{}, fmt.Errorf("%w: unknown version tag %q", ErrMalformedCode, lines[0])
	}

	fields.Ufrag = lines[1]
	fields.Password = lines[2]
	fields.Fingerprint = lines[3]
	if fields.Ufrag == "" || fields.Password == "" {
		return descriptionFields{}, fmt.Errorf("%w: missing ICE credentials", ErrMalformedCode)
	}
	if len(fields.Fingerprint) != 64 || !isHex(fields.Fingerprint) {
		return descriptionFields{}, fmt.Errorf("%w: bad fingerprint", ErrMalformedCode)
	}

	count, err := strconv.Atoi(lines[4])
	if err != nil || count < 0 || count != len(lines)-5 {
		return descriptionFields{}, fmt.Errorf("%w: bad candidate count", ErrMalformedCode)
	}
	for _, line := range lines[5:] {
		parts := strings.Split(line, "|")
		if len(parts) != 5 {
			return descriptionFields{}, fmt.Errorf("%w: bad candidate line", ErrMalformedCode)
		}
		priority, err := strconv.ParseUint(parts[1], 10, 32)
		if err != nil {
			return descriptionFields{}, fmt.Errorf("%w: bad candidate priority", ErrMalformedCode)
		}
		port, err := strconv.Atoi(parts[3])
		if err != nil || port < 0 || port > 65535 {
			return descriptionFields{}, fmt.Errorf("%w: bad candidate port", ErrMalformedCode)
		}
		fields.Candidates = append(fields.Candidates, candidate{
			Protocol: parts[0],
			Priority: uint32(priority),
			Address:  parts[2],
			Port:     port,
			Type:     parts[4],
		})
	}
	return fields, nil
}

// candidateLine renders one reconstructed a=candidate value. The
// foundation is synthetic (the index); agents only compare foundations
// within one description. Reflexive and relayed candidates need a
// related address in the grammar; zero is acceptable since the remote
// agent ignores it for pairing.
func candidateLine(foundation int, c candidate) string {
	line := fmt.Sprintf("%d 1 %s %d %s %d typ %s", foundation, c.Protocol, c.Priority, c.Address, c.Port, c.Type)
	if c.Type != "host" {
		line += " raddr 0.0.0.0 rport 0"
	}
	return line
}

// colonHex renders a lowercase hex digest in the AA:BB:CC form the
// fingerprint attribute requires.
func colonHex(digest string) string {
	upper := strings.ToUpper(digest)
	pairs := make([]string, 0, len(upper)/2)
	for i := 0; i+2 <= len(upper); i += 2 {
		pairs = append(pairs, upper[i:i+2])
	}
	return strings.Join(pairs, ":")
}

func isHex(s string) bool {
	_, err := hex.DecodeString(s)
	return err == nil
}
