// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package qos

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

var (
	// ErrNotASequence is returned by Decode when the top-level wire value
	// is not an ordered sequence of records.
	ErrNotASequence = errors.New("qos: wire value is not a sequence")

	// ErrUnrecognizedPolicyType is returned by Encode for a value whose
	// type is not one of the policy kinds declared in this package.
	ErrUnrecognizedPolicyType = errors.New("qos: unrecognized policy type")

	// ErrInvalidPolicy is returned by Encode for a recognized kind that
	// carries a value with no wire code.
	ErrInvalidPolicy = errors.New("qos: invalid policy value")

	// ErrMalformedRecord is returned by Decode for a Durability or
	// Reliability record whose required fields are missing or mistyped.
	ErrMalformedRecord = errors.New("qos: malformed policy record")
)

// Wire field names.
const (
	fieldID          = "id"
	fieldKind        = "k"
	fieldMaxBlocking = "mbt"
	fieldInfinite    = "i"
	fieldZero        = "z"
	fieldMillis      = "d"
)

// DefaultMaxBlockingTime is emitted for a reliable policy that carries no
// explicit max blocking time, since the wire form requires one.
var DefaultMaxBlockingTime = Millis(100)

// Record is one encoded policy: {"id": <PolicyID>, ...kind fields}.
type Record map[string]any

// Wire is the encoded form of a policy list.
type Wire []Record

// Durability wire codes. TransientLocal and Transient are 1 and 2; the
// gap in declaration order is part of the wire contract.
const (
	wireVolatile       = 0
	wireTransientLocal = 1
	wireTransient      = 2
	wirePersistent     = 3
)

const (
	wireBestEffort = 0
	wireReliable   = 1
)

// Encode converts policies to their wire records, in order. Durability
// and Reliability produce one record each; the other recognized kinds
// hold reserved tags without a body and are omitted.
func Encode(policies []Policy) (Wire, error) {
	w := make(Wire, 0, len(policies))
	for i, p := range policies {
		switch p := p.(type) {
		case Durability:
			rec, err := encodeDurability(p)
			if err != nil {
				return nil, fmt.Errorf("policy %d: %w", i, err)
			}
			w = append(w, rec)
		case Reliability:
			rec, err := encodeReliability(p)
			if err != nil {
				return nil, fmt.Errorf("policy %d: %w", i, err)
			}
			w = append(w, rec)
		case UserData, Presentation, Deadline, LatencyBudget, Ownership,
			OwnershipStrength, Liveliness, TimeBasedFilter, Partition,
			DestinationOrder, History, ResourceLimits, EntityFactory,
			WriterDataLifecycle, ReaderDataLifecycle, TopicData, GroupData,
			TransportPriority, Lifespan, DurabilityService:
		default:
			return nil, fmt.Errorf("%w: %T at index %d", ErrUnrecognizedPolicyType, p, i)
		}
	}
	return w, nil
}

func encodeDurability(d Durability) (Record, error) {
	var k int
	switch d.Kind {
	case Volatile:
		k = wireVolatile
	case TransientLocal:
		k = wireTransientLocal
	case Transient:
		k = wireTransient
	case Persistent:
		k = wirePersistent
	default:
		return nil, fmt.Errorf("%w: %v", ErrInvalidPolicy, d.Kind)
	}
	return Record{fieldID: int(DurabilityPolicyID), fieldKind: k}, nil
}

func encodeReliability(r Reliability) (Record, error) {
	switch r.Kind {
	case BestEffort:
		return Record{fieldID: int(ReliabilityPolicyID), fieldKind: wireBestEffort}, nil
	case Reliable:
		mbt := DefaultMaxBlockingTime
		if r.MaxBlockingTime != nil {
			mbt = *r.MaxBlockingTime
		}
		return Record{
			fieldID:          int(ReliabilityPolicyID),
			fieldKind:        wireReliable,
			fieldMaxBlocking: encodeDuration(mbt),
		}, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrInvalidPolicy, r.Kind)
}

func encodeDuration(d Duration) Record {
	rec := Record{fieldInfinite: d.IsInfinite(), fieldZero: d.IsZero()}
	if ms, ok := d.Milliseconds(); ok {
		rec[fieldMillis] = ms
	}
	return rec
}

// Decode reconstructs policies from a wire value. The value must be a
// sequence; elements that are not records, records without an id, and
// records with ids that have no body are skipped. A Durability or
// Reliability record carrying a kind code outside the known range yields
// no policy.
func Decode(wire any) ([]Policy, error) {
	elems, ok := sequence(wire)
	if !ok {
		return nil, ErrNotASequence
	}
	policies := make([]Policy, 0, len(elems))
	for i, e := range elems {
		rec, ok := record(e)
		if !ok {
			continue
		}
		raw, ok := rec[fieldID]
		if !ok {
			continue
		}
		id, ok := asInt(raw)
		if !ok {
			continue
		}
		var (
			p   Policy
			err error
		)
		switch PolicyID(id) {
		case DurabilityPolicyID:
			p, err = decodeDurability(rec)
		case ReliabilityPolicyID:
			p, err = decodeReliability(rec)
		default:
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if p != nil {
			policies = append(policies, p)
		}
	}
	return policies, nil
}

func decodeDurability(rec map[string]any) (Policy, error) {
	k, err := requiredInt(rec, fieldKind)
	if err != nil {
		return nil, err
	}
	switch k {
	case wireVolatile:
		return Durability{Kind: Volatile}, nil
	case wireTransientLocal:
		return Durability{Kind: TransientLocal}, nil
	case wireTransient:
		return Durability{Kind: Transient}, nil
	case wirePersistent:
		return Durability{Kind: Persistent}, nil
	}
	return nil, nil
}

func decodeReliability(rec map[string]any) (Policy, error) {
	k, err := requiredInt(rec, fieldKind)
	if err != nil {
		return nil, err
	}
	switch k {
	case wireBestEffort:
		return Reliability{Kind: BestEffort}, nil
	case wireReliable:
		r := Reliability{Kind: Reliable}
		raw, ok := rec[fieldMaxBlocking]
		if !ok {
			return r, nil
		}
		mbt, ok := record(raw)
		if !ok {
			return nil, fmt.Errorf("%w: %q is not a record", ErrMalformedRecord, fieldMaxBlocking)
		}
		d, err := decodeDuration(mbt)
		if err != nil {
			return nil, err
		}
		return r.WithMaxBlockingTime(d), nil
	}
	return nil, nil
}

func decodeDuration(rec map[string]any) (Duration, error) {
	inf, err := optionalBool(rec, fieldInfinite)
	if err != nil {
		return Duration{}, err
	}
	if inf {
		return Infinite(), nil
	}
	zero, err := optionalBool(rec, fieldZero)
	if err != nil {
		return Duration{}, err
	}
	if zero {
		return Zero(), nil
	}
	ms, err := requiredUint(rec, fieldMillis)
	if err != nil {
		return Duration{}, err
	}
	return Millis(ms), nil
}

// requiredUint reads an unsigned field over the full uint64 range.
func requiredUint(rec map[string]any, field string) (uint64, error) {
	raw, ok := rec[field]
	if !ok {
		return 0, fmt.Errorf("%w: missing %q", ErrMalformedRecord, field)
	}
	if i, ok := asInt(raw); ok && i < 0 {
		return 0, fmt.Errorf("%w: negative %q", ErrMalformedRecord, field)
	}
	v, ok := asUint(raw)
	if !ok {
		return 0, fmt.Errorf("%w: %q is %T, want unsigned integer", ErrMalformedRecord, field, raw)
	}
	return v, nil
}

func requiredInt(rec map[string]any, field string) (int64, error) {
	raw, ok := rec[field]
	if !ok {
		return 0, fmt.Errorf("%w: missing %q", ErrMalformedRecord, field)
	}
	v, ok := asInt(raw)
	if !ok {
		return 0, fmt.Errorf("%w: %q is %T, want integer", ErrMalformedRecord, field, raw)
	}
	return v, nil
}

func optionalBool(rec map[string]any, field string) (bool, error) {
	raw, ok := rec[field]
	if !ok {
		return false, nil
	}
	b, ok := raw.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %q is %T, want bool", ErrMalformedRecord, field, raw)
	}
	return b, nil
}

// sequence unwraps the shapes a decoded wire value can take: the typed
// Wire produced by Encode, or generic trees from JSON and CBOR decoders.
func sequence(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case Wire:
		out := make([]any, len(s))
		for i := range s {
			out[i] = s[i]
		}
		return out, true
	case []Record:
		out := make([]any, len(s))
		for i := range s {
			out[i] = s[i]
		}
		return out, true
	case []map[string]any:
		out := make([]any, len(s))
		for i := range s {
			out[i] = s[i]
		}
		return out, true
	}
	return nil, false
}

func record(v any) (map[string]any, bool) {
	switch r := v.(type) {
	case Record:
		return r, r != nil
	case map[string]any:
		return r, r != nil
	}
	return nil, false
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return uintToInt(uint64(n))
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return uintToInt(n)
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}

func uintToInt(n uint64) (int64, bool) {
	if n > math.MaxInt64 {
		return 0, false
	}
	return int64(n), true
}

func floatToInt(f float64) (int64, bool) {
	if f != math.Trunc(f) || f < math.MinInt64 || f >= 0x1p63 {
		return 0, false
	}
	return int64(f), true
}

func asUint(v any) (uint64, bool) {
	switch n := v.(type) {
	case uint:
		return uint64(n), true
	case uint8:
		return uint64(n), true
	case uint16:
		return uint64(n), true
	case uint32:
		return uint64(n), true
	case uint64:
		return n, true
	case float32:
		return floatToUint(float64(n))
	case float64:
		return floatToUint(n)
	case json.Number:
		u, err := strconv.ParseUint(n.String(), 10, 64)
		return u, err == nil
	}
	i, ok := asInt(v)
	if !ok || i < 0 {
		return 0, false
	}
	return uint64(i), true
}

func floatToUint(f float64) (uint64, bool) {
	if f != math.Trunc(f) || f < 0 || f >= 0x1p64 {
		return 0, false
	}
	return uint64(f), true
}
