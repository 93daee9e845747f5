// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package qos

import "strconv"

// PolicyID is the wire tag of a policy kind. Values are stable across
// versions; InvalidPolicyID is reserved and never emitted.
type PolicyID uint8

const (
	InvalidPolicyID PolicyID = iota
	UserDataPolicyID
	DurabilityPolicyID
	PresentationPolicyID
	DeadlinePolicyID
	LatencyBudgetPolicyID
	OwnershipPolicyID
	OwnershipStrengthPolicyID
	LivelinessPolicyID
	TimeBasedFilterPolicyID
	PartitionPolicyID
	ReliabilityPolicyID
	DestinationOrderPolicyID
	HistoryPolicyID
	ResourceLimitsPolicyID
	EntityFactoryPolicyID
	WriterDataLifecyclePolicyID
	ReaderDataLifecyclePolicyID
	TopicDataPolicyID
	GroupDataPolicyID
	TransportPriorityPolicyID
	LifespanPolicyID
	DurabilityServicePolicyID
)

var policyNames = [...]string{
	InvalidPolicyID:             "Invalid",
	UserDataPolicyID:            "UserData",
	DurabilityPolicyID:          "Durability",
	PresentationPolicyID:        "Presentation",
	DeadlinePolicyID:            "Deadline",
	LatencyBudgetPolicyID:       "LatencyBudget",
	OwnershipPolicyID:           "Ownership",
	OwnershipStrengthPolicyID:   "OwnershipStrength",
	LivelinessPolicyID:          "Liveliness",
	TimeBasedFilterPolicyID:     "TimeBasedFilter",
	PartitionPolicyID:           "Partition",
	ReliabilityPolicyID:         "Reliability",
	DestinationOrderPolicyID:    "DestinationOrder",
	HistoryPolicyID:             "History",
	ResourceLimitsPolicyID:      "ResourceLimits",
	EntityFactoryPolicyID:       "EntityFactory",
	WriterDataLifecyclePolicyID: "WriterDataLifecycle",
	ReaderDataLifecyclePolicyID: "ReaderDataLifecycle",
	TopicDataPolicyID:           "TopicData",
	GroupDataPolicyID:           "GroupData",
	TransportPriorityPolicyID:   "TransportPriority",
	LifespanPolicyID:            "Lifespan",
	DurabilityServicePolicyID:   "DurabilityService",
}

// String returns the policy kind name, or the numeric tag for ids
// outside the known range.
func (id PolicyID) String() string {
	if int(id) < len(policyNames) {
		return policyNames[id]
	}
	return "PolicyID(" + strconv.Itoa(int(id)) + ")"
}

// Known reports whether id names one of the reserved policy kinds.
func (id PolicyID) Known() bool {
	return id > InvalidPolicyID && id <= DurabilityServicePolicyID
}
