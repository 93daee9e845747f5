// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package entity

import (
	"time"

	"github.com/google/uuid"
)

// SampleState records whether a sample has been read before.
type SampleState uint8

const (
	NotRead SampleState = 1 << iota
	Read
)

// ViewState records whether the instance was seen by a previous access.
type ViewState uint8

const (
	NewView ViewState = 1 << iota
	NotNewView
)

// InstanceState is the liveliness of the sample's instance.
type InstanceState uint8

const (
	Alive InstanceState = 1 << iota
	NotAliveDisposed
	NotAliveNoWriters
)

const (
	anySampleState   = NotRead | Read
	anyViewState     = NewView | NotNewView
	anyInstanceState = Alive | NotAliveDisposed | NotAliveNoWriters
)

func (s SampleState) String() string {
	switch s {
	case NotRead:
		return "not_read"
	case Read:
		return "read"
	}
	return "any"
}

func (s ViewState) String() string {
	switch s {
	case NewView:
		return "new"
	case NotNewView:
		return "not_new"
	}
	return "any"
}

func (s InstanceState) String() string {
	switch s {
	case Alive:
		return "alive"
	case NotAliveDisposed:
		return "not_alive_disposed"
	case NotAliveNoWriters:
		return "not_alive_no_writers"
	}
	return "any"
}

// DataState selects samples by their sample, view and instance state.
// Each field is a mask; a sample matches when all three intersect.
type DataState struct {
	Sample   SampleState
	View     ViewState
	Instance InstanceState
}

var (
	// AllSamples matches every sample.
	AllSamples = DataState{anySampleState, anyViewState, anyInstanceState}

	// AllData matches samples of alive instances regardless of read or
	// view state.
	AllData = DataState{anySampleState, anyViewState, Alive}

	// NewData matches unread samples of alive instances.
	NewData = DataState{NotRead, anyViewState, Alive}

	// OldData matches already-read samples of alive instances.
	OldData = DataState{Read, anyViewState, Alive}

	// NewInstances matches samples of instances not seen before.
	NewInstances = DataState{anySampleState, NewView, anyInstanceState}

	// NotAliveInstances matches samples of instances with no live writer.
	NotAliveInstances = DataState{anySampleState, anyViewState, NotAliveNoWriters}

	// DisposedInstances matches samples of disposed instances.
	DisposedInstances = DataState{anySampleState, anyViewState, NotAliveDisposed}
)

// Matches reports whether info is selected by ds.
func (ds DataState) Matches(info SampleInfo) bool {
	return ds.Sample&info.SampleState != 0 &&
		ds.View&info.ViewState != 0 &&
		ds.Instance&info.InstanceState != 0
}

// SampleInfo is the delivery metadata of a sample.
type SampleInfo struct {
	SampleState     SampleState
	ViewState       ViewState
	InstanceState   InstanceState
	Sequence        uint64
	WriterGUID      uuid.UUID
	SourceTimestamp time.Time
}

// Sample is one unit of data delivered through a reader.
type Sample struct {
	Data []byte
	Info SampleInfo
}
