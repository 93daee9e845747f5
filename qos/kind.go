// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package qos

import (
	"fmt"
	"strings"
)

// DurabilityKind controls how long data is retained for late-joining
// or disconnected readers.
type DurabilityKind uint8

const (
	Volatile DurabilityKind = iota
	TransientLocal
	Transient
	Persistent
)

func (k DurabilityKind) String() string {
	switch k {
	case Volatile:
		return "volatile"
	case TransientLocal:
		return "transient_local"
	case Transient:
		return "transient"
	case Persistent:
		return "persistent"
	default:
		return fmt.Sprintf("DurabilityKind(%d)", uint8(k))
	}
}

// ParseDurabilityKind accepts the String form in any case, with '-' or
// '_' separators.
func ParseDurabilityKind(s string) (DurabilityKind, error) {
	switch normalize(s) {
	case "volatile":
		return Volatile, nil
	case "transient_local", "transientlocal":
		return TransientLocal, nil
	case "transient":
		return Transient, nil
	case "persistent":
		return Persistent, nil
	}
	return 0, fmt.Errorf("qos: unknown durability kind %q", s)
}

// ReliabilityKind selects guaranteed or best-effort delivery.
type ReliabilityKind uint8

const (
	BestEffort ReliabilityKind = iota
	Reliable
)

func (k ReliabilityKind) String() string {
	switch k {
	case BestEffort:
		return "best_effort"
	case Reliable:
		return "reliable"
	default:
		return fmt.Sprintf("ReliabilityKind(%d)", uint8(k))
	}
}

// ParseReliabilityKind accepts "reliable" and "best_effort" in any case,
// with '-' or '_' separators.
func ParseReliabilityKind(s string) (ReliabilityKind, error) {
	switch normalize(s) {
	case "best_effort", "besteffort":
		return BestEffort, nil
	case "reliable":
		return Reliable, nil
	}
	return 0, fmt.Errorf("qos: unknown reliability kind %q", s)
}

// HistoryKind selects bounded or unbounded per-instance retention.
type HistoryKind uint8

const (
	KeepLast HistoryKind = iota
	KeepAll
)

func (k HistoryKind) String() string {
	if k == KeepAll {
		return "keep_all"
	}
	return "keep_last"
}

type OwnershipKind uint8

const (
	Shared OwnershipKind = iota
	Exclusive
)

type DestinationOrderKind uint8

const (
	ByReceptionTimestamp DestinationOrderKind = iota
	BySourceTimestamp
)

type LivelinessKind uint8

const (
	Automatic LivelinessKind = iota
	ManualByParticipant
	ManualByTopic
)

type PresentationScope uint8

const (
	InstanceScope PresentationScope = iota
	TopicScope
	GroupScope
)

func normalize(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
}
