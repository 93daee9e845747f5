// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package qos

import (
	"math"
	"strconv"
	"time"
)

type durationState uint8

const (
	durationFinite durationState = iota
	durationInfinite
	durationZero
)

// Duration is a policy time value: Infinite, Zero, or a finite number of
// milliseconds. Exactly one of the three states holds.
//
// A finite duration of 0ms is distinct from Zero; the wire form keeps
// them apart and both round-trip unchanged.
type Duration struct {
	state  durationState
	millis uint64
}

// Infinite returns the infinite duration.
func Infinite() Duration { return Duration{state: durationInfinite} }

// Zero returns the zero duration.
func Zero() Duration { return Duration{state: durationZero} }

// Millis returns a finite duration of ms milliseconds.
func Millis(ms uint64) Duration { return Duration{state: durationFinite, millis: ms} }

// FromStd converts a time.Duration. Negative values map to Infinite,
// zero maps to Zero, anything else is truncated to whole milliseconds.
func FromStd(d time.Duration) Duration {
	switch {
	case d < 0:
		return Infinite()
	case d == 0:
		return Zero()
	}
	return Millis(uint64(d / time.Millisecond))
}

// IsInfinite reports whether d is the infinite duration.
func (d Duration) IsInfinite() bool { return d.state == durationInfinite }

// IsZero reports whether d is the zero duration.
func (d Duration) IsZero() bool { return d.state == durationZero }

// Milliseconds returns the finite length of d. ok is false for Infinite
// and Zero.
func (d Duration) Milliseconds() (ms uint64, ok bool) {
	if d.state != durationFinite {
		return 0, false
	}
	return d.millis, true
}

// Std converts d to a time.Duration. ok is false for Infinite. Finite
// durations past the time.Duration range saturate at its maximum.
func (d Duration) Std() (time.Duration, bool) {
	switch d.state {
	case durationInfinite:
		return 0, false
	case durationZero:
		return 0, true
	}
	if d.millis > uint64(math.MaxInt64/time.Millisecond) {
		return math.MaxInt64, true
	}
	return time.Duration(d.millis) * time.Millisecond, true
}

func (d Duration) String() string {
	switch d.state {
	case durationInfinite:
		return "infinite"
	case durationZero:
		return "zero"
	}
	return strconv.FormatUint(d.millis, 10) + "ms"
}
