// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package qos

import "fmt"

// DefaultResourceLimits bound the durability service of Transient and
// Persistent topics.
var DefaultResourceLimits = ResourceLimits{
	MaxSamples:            1,
	MaxInstances:          1024,
	MaxSamplesPerInstance: 1024 * 1024,
}

// Table holds the policies applied to the three entities of a stream.
type Table struct {
	Topic  Set
	Reader Set
	Writer Set
}

// Deriver computes a Table from a durability kind and history depth.
type Deriver func(durability DurabilityKind, depth uint32) Table

// StateReader is the reader policy set of a durable state stream.
func StateReader(durability DurabilityKind, depth uint32) Set {
	return Set{
		Reliability{Kind: Reliable},
		Durability{Kind: durability},
		History{Kind: KeepLast, Depth: depth},
		ReaderDataLifecycle{
			AutoPurgeNoWriterSamplesDelay: Infinite(),
			AutoPurgeDisposedSamplesDelay: Zero(),
		},
	}
}

// StateWriter is the writer policy set of a durable state stream.
func StateWriter(durability DurabilityKind, depth uint32) Set {
	return Set{
		Reliability{Kind: Reliable},
		Durability{Kind: durability},
		History{Kind: KeepLast, Depth: depth},
		WriterDataLifecycle{AutoDisposeUnregisteredInstances: false},
	}
}

// StateTopic is the topic policy set of a durable state stream.
// Transient and Persistent topics carry a durability service sized by
// DefaultResourceLimits. depth does not affect the topic.
func StateTopic(durability DurabilityKind, _ uint32) Set {
	s := Set{
		History{Kind: KeepLast, Depth: 1},
		Durability{Kind: durability},
	}
	if durability == Persistent || durability == Transient {
		s = append(s, DurabilityService{
			ServiceCleanupDelay:   Zero(),
			HistoryKind:           KeepLast,
			HistoryDepth:          1,
			MaxSamples:            DefaultResourceLimits.MaxSamples,
			MaxInstances:          DefaultResourceLimits.MaxInstances,
			MaxSamplesPerInstance: DefaultResourceLimits.MaxSamplesPerInstance,
		})
	}
	return s
}

// SoftReader is the reader policy set of a soft-state stream: best
// effort, volatile, keep last depth.
func SoftReader(depth uint32) Set {
	return Set{
		Reliability{Kind: BestEffort},
		Durability{Kind: Volatile},
		History{Kind: KeepLast, Depth: depth},
	}
}

// SoftWriter mirrors SoftReader.
func SoftWriter(depth uint32) Set {
	return Set{
		Reliability{Kind: BestEffort},
		Durability{Kind: Volatile},
		History{Kind: KeepLast, Depth: depth},
	}
}

// SoftTopic is the transport's default topic policy set.
func SoftTopic() Set { return Set{} }

// EventReader is the reader policy set of an event stream: reliable,
// keep all.
func EventReader(durability DurabilityKind) Set {
	return Set{
		Reliability{Kind: Reliable},
		Durability{Kind: durability},
		History{Kind: KeepAll},
		ReaderDataLifecycle{
			AutoPurgeNoWriterSamplesDelay: Infinite(),
			AutoPurgeDisposedSamplesDelay: Zero(),
		},
	}
}

// EventWriter mirrors EventReader with a writer lifecycle.
func EventWriter(durability DurabilityKind) Set {
	return Set{
		Reliability{Kind: Reliable},
		Durability{Kind: durability},
		History{Kind: KeepAll},
		WriterDataLifecycle{AutoDisposeUnregisteredInstances: false},
	}
}

// EventTopic is the transport's default topic policy set; event streams
// get no durability service even when Transient or Persistent.
func EventTopic() Set { return Set{} }

// DeriveState is the durability-driven Deriver.
func DeriveState(durability DurabilityKind, depth uint32) Table {
	return Table{
		Topic:  StateTopic(durability, depth),
		Reader: StateReader(durability, depth),
		Writer: StateWriter(durability, depth),
	}
}

// DeriveSoft ignores durability; soft state is always volatile.
func DeriveSoft(_ DurabilityKind, depth uint32) Table {
	return Table{
		Topic:  SoftTopic(),
		Reader: SoftReader(depth),
		Writer: SoftWriter(depth),
	}
}

// DeriveEvent ignores depth; events keep all samples.
func DeriveEvent(durability DurabilityKind, _ uint32) Table {
	return Table{
		Topic:  EventTopic(),
		Reader: EventReader(durability),
		Writer: EventWriter(durability),
	}
}

// Profile selects one of the policy derivations.
type Profile uint8

const (
	ProfileState Profile = iota
	ProfileSoft
	ProfileEvent
)

func (p Profile) String() string {
	switch p {
	case ProfileState:
		return "state"
	case ProfileSoft:
		return "soft"
	case ProfileEvent:
		return "event"
	default:
		return fmt.Sprintf("Profile(%d)", uint8(p))
	}
}

// ParseProfile accepts "state" (alias "hard"), "soft" and "event".
func ParseProfile(s string) (Profile, error) {
	switch normalize(s) {
	case "state", "hard", "hard_state", "":
		return ProfileState, nil
	case "soft", "soft_state":
		return ProfileSoft, nil
	case "event":
		return ProfileEvent, nil
	}
	return 0, fmt.Errorf("qos: unknown profile %q", s)
}

// Deriver returns the derivation function of p. Unknown profiles fall
// back to DeriveState.
func (p Profile) Deriver() Deriver {
	switch p {
	case ProfileSoft:
		return DeriveSoft
	case ProfileEvent:
		return DeriveEvent
	default:
		return DeriveState
	}
}

// Derive is shorthand for p.Deriver()(durability, depth).
func (p Profile) Derive(durability DurabilityKind, depth uint32) Table {
	return p.Deriver()(durability, depth)
}
