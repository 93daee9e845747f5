// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package qos

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/tidwall/jsonc"
)

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error
	// Core Deterministic Encoding: equal policy lists produce equal bytes,
	// which Fingerprint relies on.
	cborEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("qos: CBOR encoder initialization failed: " + err.Error())
	}
	cborDec, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("qos: CBOR decoder initialization failed: " + err.Error())
	}
}

// MarshalJSON renders w as a JSON array.
func MarshalJSON(w Wire) ([]byte, error) {
	if w == nil {
		w = Wire{}
	}
	return json.Marshal(w)
}

// ParseJSON parses JSON text into a generic wire value suitable for
// Decode. Comments and trailing commas are accepted; numbers keep their
// textual form so integer fields are not rounded through float64.
func ParseJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("qos: parse json: %w", err)
	}
	return v, nil
}

// MarshalCBOR renders w in deterministic CBOR.
func MarshalCBOR(w Wire) ([]byte, error) {
	if w == nil {
		w = Wire{}
	}
	return cborEnc.Marshal(w)
}

// ParseCBOR parses CBOR bytes into a generic wire value suitable for
// Decode.
func ParseCBOR(data []byte) (any, error) {
	var v any
	if err := cborDec.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("qos: parse cbor: %w", err)
	}
	return v, nil
}

// EncodeJSON encodes policies and renders them as JSON.
func EncodeJSON(policies []Policy) ([]byte, error) {
	w, err := Encode(policies)
	if err != nil {
		return nil, err
	}
	return MarshalJSON(w)
}

// DecodeJSON parses JSON text and decodes the policies it holds.
func DecodeJSON(data []byte) ([]Policy, error) {
	v, err := ParseJSON(data)
	if err != nil {
		return nil, err
	}
	return Decode(v)
}

// EncodeCBOR encodes policies and renders them as CBOR.
func EncodeCBOR(policies []Policy) ([]byte, error) {
	w, err := Encode(policies)
	if err != nil {
		return nil, err
	}
	return MarshalCBOR(w)
}

// DecodeCBOR parses CBOR bytes and decodes the policies they hold.
func DecodeCBOR(data []byte) ([]Policy, error) {
	v, err := ParseCBOR(data)
	if err != nil {
		return nil, err
	}
	return Decode(v)
}
