// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package idiom

import (
	"context"
	"fmt"

	"code.hybscloud.com/idiom/entity"
)

// Observe registers h to receive every newly available sample. Handlers
// run on the transport's callback goroutine, in registration order, once
// per sample. A handler registered while a notification is being
// delivered sees the next one. Handlers cannot be removed.
//
// The first Observe installs a single data-available listener on the
// reader, creating the reader if needed.
func (s *Session[T]) Observe(ctx context.Context, h func(Sample[T])) error {
	if h == nil {
		return fmt.Errorf("%w: nil handler", ErrInvalidConfig)
	}
	for {
		old := s.handlers.Load()
		var next []func(Sample[T])
		if old != nil {
			next = make([]func(Sample[T]), len(*old), len(*old)+1)
			copy(next, *old)
		}
		next = append(next, h)
		if s.handlers.CompareAndSwap(old, &next) {
			break
		}
	}

	if s.listening.Load() != 0 {
		return nil
	}
	r, err := s.Reader(ctx)
	if err != nil {
		return err
	}
	// Callers queue behind the installing one and retry if it failed.
	s.listenMu.Lock()
	defer s.listenMu.Unlock()
	if s.listening.Load() != 0 {
		return nil
	}
	if err := r.SetListener(s.dispatch); err != nil {
		return fmt.Errorf("idiom: install listener on %q: %w", s.cfg.Stream, err)
	}
	s.listening.Add(1)
	s.log.Debug("listener installed", "guid", r.GUID())
	return nil
}

// dispatch delivers the reader's unread samples to a snapshot of the
// registered handlers.
func (s *Session[T]) dispatch(r entity.Reader) {
	raw, err := r.Read(entity.NewData)
	if err != nil {
		s.log.Warn("read on data available", "err", err)
		return
	}
	hs := s.handlers.Load()
	if hs == nil {
		return
	}
	for _, smp := range raw {
		v, err := s.codec.Unmarshal(smp.Data)
		if err != nil {
			s.log.Warn("decode sample", "seq", smp.Info.Sequence, "err", err)
			continue
		}
		sample := Sample[T]{Value: v, Info: smp.Info}
		for _, h := range *hs {
			h(sample)
		}
		s.delivered.Add(1)
	}
}
