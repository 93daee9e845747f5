// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package qos_test

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"testing"
	"testing/quick"

	"code.hybscloud.com/idiom/qos"
)

func reliable(d qos.Duration) qos.Policy {
	return qos.Reliability{Kind: qos.Reliable}.WithMaxBlockingTime(d)
}

func roundTripCases() []qos.Policy {
	return []qos.Policy{
		qos.Durability{Kind: qos.Volatile},
		qos.Durability{Kind: qos.TransientLocal},
		qos.Durability{Kind: qos.Transient},
		qos.Durability{Kind: qos.Persistent},
		qos.Reliability{Kind: qos.BestEffort},
		reliable(qos.Infinite()),
		reliable(qos.Zero()),
		reliable(qos.Millis(0)),
		reliable(qos.Millis(1)),
		reliable(qos.Millis(500)),
		reliable(qos.Millis(1 << 40)),
	}
}

func TestRoundTrip(t *testing.T) {
	for _, p := range roundTripCases() {
		w, err := qos.Encode([]qos.Policy{p})
		if err != nil {
			t.Fatalf("encode %v: %v", p, err)
		}
		got, err := qos.Decode(w)
		if err != nil {
			t.Fatalf("decode %v: %v", p, err)
		}
		if !reflect.DeepEqual(got, []qos.Policy{p}) {
			t.Fatalf("round trip %v: got %v", p, got)
		}
	}
}

func TestRoundTripJSONAndCBOR(t *testing.T) {
	in := roundTripCases()

	js, err := qos.EncodeJSON(in)
	if err != nil {
		t.Fatalf("encode json: %v", err)
	}
	got, err := qos.DecodeJSON(js)
	if err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if !reflect.DeepEqual(got, in) {
		t.Fatalf("json round trip:\n got %v\nwant %v", got, in)
	}

	cb, err := qos.EncodeCBOR(in)
	if err != nil {
		t.Fatalf("encode cbor: %v", err)
	}
	got, err = qos.DecodeCBOR(cb)
	if err != nil {
		t.Fatalf("decode cbor: %v", err)
	}
	if !reflect.DeepEqual(got, in) {
		t.Fatalf("cbor round trip:\n got %v\nwant %v", got, in)
	}
}

// TestPropertyFiniteRoundTrip checks Reliable+Finite(d) for arbitrary d
// over both wire forms, including values past the int64 range.
func TestPropertyFiniteRoundTrip(t *testing.T) {
	roundTrip := func(ms uint64) error {
		p := reliable(qos.Millis(ms))
		js, err := qos.EncodeJSON([]qos.Policy{p})
		if err != nil {
			return err
		}
		got, err := qos.DecodeJSON(js)
		if err != nil {
			return err
		}
		if !reflect.DeepEqual(got, []qos.Policy{p}) {
			return fmt.Errorf("json: got %v", got)
		}
		cb, err := qos.EncodeCBOR([]qos.Policy{p})
		if err != nil {
			return err
		}
		got, err = qos.DecodeCBOR(cb)
		if err != nil {
			return err
		}
		if !reflect.DeepEqual(got, []qos.Policy{p}) {
			return fmt.Errorf("cbor: got %v", got)
		}
		return nil
	}
	for _, ms := range []uint64{0, math.MaxInt64, 1 << 63, 1<<63 + 5, math.MaxUint64} {
		if err := roundTrip(ms); err != nil {
			t.Fatalf("Millis(%d): %v", ms, err)
		}
	}
	prop := func(ms uint64) bool { return roundTrip(ms) == nil }
	if err := quick.Check(prop, nil); err != nil {
		t.Fatal(err)
	}
}

func TestDecodeMillisAsFloat(t *testing.T) {
	w := qos.Wire{{"id": 11, "k": 1, "mbt": map[string]any{"d": float64(1 << 63)}}}
	got, err := qos.Decode(w)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if want := []qos.Policy{reliable(qos.Millis(1 << 63))}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	// An id of 2^63 overflows int64 and is skipped as unrecognized.
	got, err = qos.Decode(qos.Wire{{"id": float64(1 << 63), "k": 1}})
	if err != nil || len(got) != 0 {
		t.Fatalf("id 2^63: got %v, %v", got, err)
	}
}

func TestEncodeExample(t *testing.T) {
	w, err := qos.Encode([]qos.Policy{
		qos.Durability{Kind: qos.Persistent},
		reliable(qos.Millis(500)),
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	data, err := qos.MarshalJSON(w)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	const want = `[{"id":2,"k":3},{"id":11,"k":1,"mbt":{"d":500,"i":false,"z":false}}]`
	if string(data) != want {
		t.Fatalf("got %s\nwant %s", data, want)
	}

	got, err := qos.DecodeJSON([]byte(`[{"k":3,"id":2},{"mbt":{"i":false,"z":false,"d":500},"id":11,"k":1}]`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want2 := []qos.Policy{qos.Durability{Kind: qos.Persistent}, reliable(qos.Millis(500))}
	if !reflect.DeepEqual(got, want2) {
		t.Fatalf("got %v, want %v", got, want2)
	}
}

func TestEncodeDurabilityCodes(t *testing.T) {
	cases := []struct {
		kind qos.DurabilityKind
		code int
	}{
		{qos.Volatile, 0},
		{qos.TransientLocal, 1},
		{qos.Transient, 2},
		{qos.Persistent, 3},
	}
	for _, tc := range cases {
		w, err := qos.Encode([]qos.Policy{qos.Durability{Kind: tc.kind}})
		if err != nil {
			t.Fatalf("encode %v: %v", tc.kind, err)
		}
		if len(w) != 1 || w[0]["id"] != 2 || w[0]["k"] != tc.code {
			t.Fatalf("%v: got %v, want id=2 k=%d", tc.kind, w, tc.code)
		}
	}
}

func TestEncodeReliableWithoutMaxBlockingTime(t *testing.T) {
	w, err := qos.Encode([]qos.Policy{qos.Reliability{Kind: qos.Reliable}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	mbt, ok := w[0]["mbt"].(qos.Record)
	if !ok {
		t.Fatalf("reliable record without mbt: %v", w[0])
	}
	if mbt["d"] != uint64(100) || mbt["i"] != false || mbt["z"] != false {
		t.Fatalf("default mbt: got %v", mbt)
	}
}

func TestEncodeBestEffortHasNoMaxBlockingTime(t *testing.T) {
	p := qos.Reliability{Kind: qos.BestEffort}.WithMaxBlockingTime(qos.Millis(5))
	w, err := qos.Encode([]qos.Policy{p})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, ok := w[0]["mbt"]; ok {
		t.Fatalf("best effort record carries mbt: %v", w[0])
	}
}

func TestEncodeOmitsKindsWithoutBody(t *testing.T) {
	in := []qos.Policy{
		qos.UserData{Value: []byte("x")},
		qos.History{Kind: qos.KeepLast, Depth: 4},
		qos.Durability{Kind: qos.Transient},
		qos.ResourceLimits{MaxSamples: 1},
		qos.Partition{Names: []string{"a"}},
		qos.DurabilityService{HistoryDepth: 1},
		qos.Lifespan{Duration: qos.Infinite()},
	}
	w, err := qos.Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(w) != 1 || w[0]["id"] != 2 {
		t.Fatalf("got %v, want the durability record only", w)
	}
}

type customPolicy struct {
	qos.Durability
}

func TestEncodeRejectsUnrecognizedKind(t *testing.T) {
	cases := map[string]qos.Policy{
		"embedding": customPolicy{qos.Durability{Kind: qos.Persistent}},
		"pointer":   &qos.Durability{Kind: qos.Persistent},
		"nil":       nil,
	}
	for name, p := range cases {
		_, err := qos.Encode([]qos.Policy{qos.Durability{}, p})
		if !errors.Is(err, qos.ErrUnrecognizedPolicyType) {
			t.Fatalf("%s: got %v, want ErrUnrecognizedPolicyType", name, err)
		}
	}
}

func TestEncodeRejectsInvalidKindValue(t *testing.T) {
	_, err := qos.Encode([]qos.Policy{qos.Durability{Kind: qos.DurabilityKind(9)}})
	if !errors.Is(err, qos.ErrInvalidPolicy) {
		t.Fatalf("got %v, want ErrInvalidPolicy", err)
	}
}

func TestDecodeRejectsNonSequence(t *testing.T) {
	for _, v := range []any{
		nil,
		42,
		"[]",
		true,
		map[string]any{"id": 2, "k": 0},
		qos.Record{"id": 2, "k": 0},
	} {
		if _, err := qos.Decode(v); !errors.Is(err, qos.ErrNotASequence) {
			t.Fatalf("decode %#v: got %v, want ErrNotASequence", v, err)
		}
	}
	for _, doc := range []string{`{"id":2,"k":0}`, `7`, `"x"`} {
		if _, err := qos.DecodeJSON([]byte(doc)); !errors.Is(err, qos.ErrNotASequence) {
			t.Fatalf("decode %s: got %v, want ErrNotASequence", doc, err)
		}
	}
}

func TestDecodeSkipsUnknownTags(t *testing.T) {
	doc := `[
		{"id": 13, "k": 0, "depth": 4},
		{"id": 0},
		{"id": 99, "anything": [1, 2, 3]},
		{"id": 2, "k": 1}, // the only record with a body
		{"no_id": true},
		"not a record",
		17,
		{"id": 22, "k": 3},
	]`
	got, err := qos.DecodeJSON([]byte(doc))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []qos.Policy{qos.Durability{Kind: qos.TransientLocal}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

// Decoding is lenient where encoding is strict: unknown tags are
// dropped on the way in, unrecognized kinds fail on the way out.
func TestDecodeEncodeAsymmetry(t *testing.T) {
	if _, err := qos.Decode([]any{map[string]any{"id": 42}}); err != nil {
		t.Fatalf("decode unknown tag: %v", err)
	}
	if _, err := qos.Encode([]qos.Policy{customPolicy{}}); err == nil {
		t.Fatalf("encode unrecognized kind: expected error")
	}
}

func TestDecodeOutOfRangeKindIsDropped(t *testing.T) {
	got, err := qos.Decode(qos.Wire{
		{"id": 2, "k": 4},
		{"id": 2, "k": -1},
		{"id": 11, "k": 2},
		{"id": 11, "k": 0},
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []qos.Policy{qos.Reliability{Kind: qos.BestEffort}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestDecodeReliableWithoutMaxBlockingTime(t *testing.T) {
	got, err := qos.Decode([]any{map[string]any{"id": 11, "k": 1}})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []qos.Policy{qos.Reliability{Kind: qos.Reliable}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestDecodeMalformed(t *testing.T) {
	cases := map[string]string{
		"durability without k":  `[{"id":2}]`,
		"durability string k":   `[{"id":2,"k":"3"}]`,
		"reliability without k": `[{"id":11}]`,
		"reliability float k":   `[{"id":11,"k":0.5}]`,
		"mbt not a record":      `[{"id":11,"k":1,"mbt":500}]`,
		"finite mbt without d":  `[{"id":11,"k":1,"mbt":{"i":false,"z":false}}]`,
		"mbt negative d":        `[{"id":11,"k":1,"mbt":{"i":false,"z":false,"d":-5}}]`,
		"mbt fractional d":      `[{"id":11,"k":1,"mbt":{"d":2.5}}]`,
		"mbt d past uint64":     `[{"id":11,"k":1,"mbt":{"d":18446744073709551616}}]`,
		"mbt non-bool infinite": `[{"id":11,"k":1,"mbt":{"i":1}}]`,
	}
	for name, doc := range cases {
		if _, err := qos.DecodeJSON([]byte(doc)); !errors.Is(err, qos.ErrMalformedRecord) {
			t.Fatalf("%s: got %v, want ErrMalformedRecord", name, err)
		}
	}
}

func TestDecodeMaxBlockingFlags(t *testing.T) {
	cases := []struct {
		doc  string
		want qos.Duration
	}{
		{`[{"id":11,"k":1,"mbt":{"i":true,"z":false}}]`, qos.Infinite()},
		{`[{"id":11,"k":1,"mbt":{"i":true,"z":true}}]`, qos.Infinite()},
		{`[{"id":11,"k":1,"mbt":{"z":true}}]`, qos.Zero()},
		{`[{"id":11,"k":1,"mbt":{"d":250}}]`, qos.Millis(250)},
	}
	for _, tc := range cases {
		got, err := qos.DecodeJSON([]byte(tc.doc))
		if err != nil {
			t.Fatalf("%s: %v", tc.doc, err)
		}
		want := []qos.Policy{reliable(tc.want)}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("%s: got %v, want %v", tc.doc, got, want)
		}
	}
}

func TestDecodeNumericShapes(t *testing.T) {
	in := []map[string]any{
		{"id": float64(2), "k": float64(3)},
		{"id": uint8(11), "k": int64(1), "mbt": map[string]any{"d": uint32(7)}},
	}
	got, err := qos.Decode(in)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []qos.Policy{qos.Durability{Kind: qos.Persistent}, reliable(qos.Millis(7))}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestDecodeEmpty(t *testing.T) {
	got, err := qos.DecodeJSON([]byte(`[]`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %v, want empty", got)
	}
	data, err := qos.EncodeJSON(nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(data) != "[]" {
		t.Fatalf("got %s, want []", data)
	}
}

func TestParseJSONRejectsGarbage(t *testing.T) {
	if _, err := qos.ParseJSON([]byte(`[{"id":`)); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := qos.ParseCBOR([]byte{0xff, 0x00}); err == nil {
		t.Fatalf("expected parse error")
	}
}
