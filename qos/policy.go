// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package qos

import "fmt"

// Policy is one quality-of-service value attached to a topic, reader or
// writer. The set of kinds is closed: only the types declared in this
// package are recognized by the codec, including when another type
// embeds one of them.
type Policy interface {
	ID() PolicyID
	policy()
}

type UserData struct{ Value []byte }

type Durability struct{ Kind DurabilityKind }

type Presentation struct {
	Scope          PresentationScope
	CoherentAccess bool
	OrderedAccess  bool
}

type Deadline struct{ Period Duration }

type LatencyBudget struct{ Duration Duration }

type Ownership struct{ Kind OwnershipKind }

type OwnershipStrength struct{ Value int32 }

type Liveliness struct {
	Kind          LivelinessKind
	LeaseDuration Duration
}

type TimeBasedFilter struct{ MinimumSeparation Duration }

type Partition struct{ Names []string }

// Reliability selects the delivery guarantee. MaxBlockingTime is the
// longest a reliable write may wait for buffer space; nil leaves the
// transport default in effect.
type Reliability struct {
	Kind            ReliabilityKind
	MaxBlockingTime *Duration
}

// WithMaxBlockingTime returns a copy of r carrying d.
func (r Reliability) WithMaxBlockingTime(d Duration) Reliability {
	r.MaxBlockingTime = &d
	return r
}

type DestinationOrder struct{ Kind DestinationOrderKind }

// History sets the per-instance retention depth. Depth is ignored for
// KeepAll.
type History struct {
	Kind  HistoryKind
	Depth uint32
}

type ResourceLimits struct {
	MaxSamples            int32
	MaxInstances          int32
	MaxSamplesPerInstance int32
}

type EntityFactory struct{ AutoEnableCreatedEntities bool }

type WriterDataLifecycle struct{ AutoDisposeUnregisteredInstances bool }

type ReaderDataLifecycle struct {
	AutoPurgeNoWriterSamplesDelay Duration
	AutoPurgeDisposedSamplesDelay Duration
}

type TopicData struct{ Value []byte }

type GroupData struct{ Value []byte }

type TransportPriority struct{ Value int32 }

type Lifespan struct{ Duration Duration }

type DurabilityService struct {
	ServiceCleanupDelay   Duration
	HistoryKind           HistoryKind
	HistoryDepth          int32
	MaxSamples            int32
	MaxInstances          int32
	MaxSamplesPerInstance int32
}

func (UserData) ID() PolicyID            { return UserDataPolicyID }
func (Durability) ID() PolicyID          { return DurabilityPolicyID }
func (Presentation) ID() PolicyID        { return PresentationPolicyID }
func (Deadline) ID() PolicyID            { return DeadlinePolicyID }
func (LatencyBudget) ID() PolicyID       { return LatencyBudgetPolicyID }
func (Ownership) ID() PolicyID           { return OwnershipPolicyID }
func (OwnershipStrength) ID() PolicyID   { return OwnershipStrengthPolicyID }
func (Liveliness) ID() PolicyID          { return LivelinessPolicyID }
func (TimeBasedFilter) ID() PolicyID     { return TimeBasedFilterPolicyID }
func (Partition) ID() PolicyID           { return PartitionPolicyID }
func (Reliability) ID() PolicyID         { return ReliabilityPolicyID }
func (DestinationOrder) ID() PolicyID    { return DestinationOrderPolicyID }
func (History) ID() PolicyID             { return HistoryPolicyID }
func (ResourceLimits) ID() PolicyID      { return ResourceLimitsPolicyID }
func (EntityFactory) ID() PolicyID       { return EntityFactoryPolicyID }
func (WriterDataLifecycle) ID() PolicyID { return WriterDataLifecyclePolicyID }
func (ReaderDataLifecycle) ID() PolicyID { return ReaderDataLifecyclePolicyID }
func (TopicData) ID() PolicyID           { return TopicDataPolicyID }
func (GroupData) ID() PolicyID           { return GroupDataPolicyID }
func (TransportPriority) ID() PolicyID   { return TransportPriorityPolicyID }
func (Lifespan) ID() PolicyID            { return LifespanPolicyID }
func (DurabilityService) ID() PolicyID   { return DurabilityServicePolicyID }

func (UserData) policy()            {}
func (Durability) policy()          {}
func (Presentation) policy()        {}
func (Deadline) policy()            {}
func (LatencyBudget) policy()       {}
func (Ownership) policy()           {}
func (OwnershipStrength) policy()   {}
func (Liveliness) policy()          {}
func (TimeBasedFilter) policy()     {}
func (Partition) policy()           {}
func (Reliability) policy()         {}
func (DestinationOrder) policy()    {}
func (History) policy()             {}
func (ResourceLimits) policy()      {}
func (EntityFactory) policy()       {}
func (WriterDataLifecycle) policy() {}
func (ReaderDataLifecycle) policy() {}
func (TopicData) policy()           {}
func (GroupData) policy()           {}
func (TransportPriority) policy()   {}
func (Lifespan) policy()            {}
func (DurabilityService) policy()   {}

func (d Durability) String() string { return "Durability(" + d.Kind.String() + ")" }

func (r Reliability) String() string {
	if r.MaxBlockingTime == nil {
		return "Reliability(" + r.Kind.String() + ")"
	}
	return "Reliability(" + r.Kind.String() + ", mbt=" + r.MaxBlockingTime.String() + ")"
}

func (h History) String() string {
	if h.Kind == KeepAll {
		return "History(keep_all)"
	}
	return fmt.Sprintf("History(keep_last %d)", h.Depth)
}

// Set is an ordered collection of policies applied to one entity.
type Set []Policy

// With returns a copy of s where each override replaces the policy of
// the same kind, or is appended when s has none.
func (s Set) With(overrides ...Policy) Set {
	out := make(Set, len(s), len(s)+len(overrides))
	copy(out, s)
next:
	for _, o := range overrides {
		for i, p := range out {
			if p.ID() == o.ID() {
				out[i] = o
				continue next
			}
		}
		out = append(out, o)
	}
	return out
}

// Lookup returns the first policy of type P in s.
func Lookup[P Policy](s Set) (P, bool) {
	for _, p := range s {
		if v, ok := p.(P); ok {
			return v, true
		}
	}
	var zero P
	return zero, false
}
