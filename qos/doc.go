// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package qos models quality-of-service policies and their wire form.
//
// # Policies
//
// [Policy] is a closed union over the 22 policy kinds, each identified on
// the wire by a stable [PolicyID]. Time values use [Duration], which is
// exactly one of Infinite, Zero, or a finite number of milliseconds.
//
// # Codec
//
// [Encode] turns a policy list into [Wire], an ordered list of records of
// the form {"id": <PolicyID>, ...}. Only Durability and Reliability carry
// a body; the other kinds keep their tags reserved and are omitted.
// [Decode] is the inverse and is lenient where Encode is strict: unknown
// tags are skipped, while Encode rejects values outside the closed set.
//
//	w, _ := qos.Encode([]qos.Policy{
//		qos.Durability{Kind: qos.Persistent},
//		qos.Reliability{Kind: qos.Reliable}.WithMaxBlockingTime(qos.Millis(500)),
//	})
//	// [{"id":2,"k":3},{"id":11,"k":1,"mbt":{"d":500,"i":false,"z":false}}]
//
// The records render as JSON ([MarshalJSON], [ParseJSON]) or deterministic
// CBOR ([MarshalCBOR], [ParseCBOR]); [Fingerprint] hashes the CBOR form.
//
// # Tables
//
// [Profile] selects how reader, writer and topic policies are derived from
// a durability kind and history depth: [DeriveState], [DeriveSoft] or
// [DeriveEvent].
package qos
