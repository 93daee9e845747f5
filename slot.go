// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package idiom

import "sync/atomic"

// Slot holds a value installed at most once. The zero Slot is unset.
//
// Installation is a single compare-and-swap: every Load that follows a
// successful Install observes the same value.
type Slot[T any] struct {
	p atomic.Pointer[T]
}

// Load returns the installed value, if any.
func (s *Slot[T]) Load() (T, bool) {
	if p := s.p.Load(); p != nil {
		return *p, true
	}
	var zero T
	return zero, false
}

// Install stores v if the slot is unset. It returns the installed value
// and whether that value is v.
func (s *Slot[T]) Install(v T) (T, bool) {
	for {
		if s.p.CompareAndSwap(nil, &v) {
			return v, true
		}
		if p := s.p.Load(); p != nil {
			return *p, false
		}
	}
}

// Ensure returns the installed value, building one when the slot is
// unset. Concurrent callers may each build a candidate; exactly one is
// installed, and every other candidate is handed to release.
//
// A build error leaves the slot unset so a later call can retry.
func (s *Slot[T]) Ensure(build func() (T, error), release func(T)) (T, error) {
	if v, ok := s.Load(); ok {
		return v, nil
	}
	c, err := build()
	if err != nil {
		var zero T
		return zero, err
	}
	v, won := s.Install(c)
	if !won && release != nil {
		release(c)
	}
	return v, nil
}
