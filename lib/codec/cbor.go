// Copyright 2026 The Doula Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR encoding used for replica updates,
// state vectors, and field values on the sync wire.
//
// Encoding is RFC 8949 Core Deterministic: sorted map keys, smallest
// integer form, no indefinite-length items. Determinism matters here —
// a field register stores the encoded value bytes, and two replicas
// encoding the same logical value must produce identical register
// contents or spurious conflicts appear in tests and diffs.
package codec

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

var encMode cbor.EncMode

var decMode cbor.DecMode

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// Meta values decode into any-typed targets; without this the
		// decoder would pick map[interface{}]interface{}, which nothing
		// downstream (encoding/json included) can work with.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		// Integers in any-typed targets decode as int64 rather than
		// the CBOR default of uint64-for-positive. Snapshot equality
		// depends on a round-tripped timestamp coming back as the
		// int64 it went in as.
		IntDec: cbor.IntDecConvertSigned,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v with Core Deterministic Encoding.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v. Unknown fields are ignored for
// forward compatibility between peers running different builds.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// RawMessage is a raw encoded CBOR value, used to carry field values
// through the replica without re-encoding. Type alias so consumers
// import only lib/codec, not fxamacker/cbor directly.
type RawMessage = cbor.RawMessage
