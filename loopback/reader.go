// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package loopback

import (
	"fmt"
	"sync"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/lfq"
	"github.com/google/uuid"

	"code.hybscloud.com/idiom/entity"
	"code.hybscloud.com/idiom/qos"
)

// reader drains a bounded SPSC inbox into its history. Writers share the
// producer side under prodMu; Take, Read and the callback share the
// consumer side under consMu.
type reader struct {
	guid     uuid.UUID
	serial   Serial
	f        *factory
	topic    *topic
	q        qos.Set
	reliable bool

	prodMu sync.Mutex
	consMu sync.Mutex
	inbox  lfq.SPSC[entity.Sample]

	cache    *entity.Cache
	notifier *entity.Notifier
	disposed atomix.Uint32
}

func newReader(f *factory, t *topic, q qos.Set) *reader {
	r := &reader{
		guid:     uuid.New(),
		serial:   nextSerial(),
		f:        f,
		topic:    t,
		q:        q,
		reliable: entity.IsReliable(q),
		cache:    entity.NewCache(q),
		notifier: entity.NewNotifier(),
	}
	r.inbox.Init(f.rt.opts.capacity)
	return r
}

func (r *reader) GUID() uuid.UUID     { return r.guid }
func (r *reader) Serial() Serial      { return r.serial }
func (r *reader) Topic() entity.Topic { return r.topic }
func (r *reader) Qos() qos.Set        { return r.q }

// deliver enqueues s without blocking. It returns iox.ErrWouldBlock
// when the inbox is full. A disposed reader accepts and discards s.
func (r *reader) deliver(s entity.Sample) error {
	if r.disposed.Load() != 0 {
		return nil
	}
	r.prodMu.Lock()
	err := r.inbox.Enqueue(&s)
	r.prodMu.Unlock()
	if err != nil {
		return err
	}
	r.notifier.Notify()
	return nil
}

// drain moves every queued sample into the history.
func (r *reader) drain() {
	r.consMu.Lock()
	defer r.consMu.Unlock()
	for {
		s, err := r.inbox.Dequeue()
		if err != nil {
			return
		}
		if !r.cache.Add(s) {
			r.f.rt.opts.log.Debug("history full, sample rejected",
				"topic", r.topic.Name(), "seq", s.Info.Sequence)
		}
	}
}

func (r *reader) Take(ds entity.DataState) ([]entity.Sample, error) {
	if r.disposed.Load() != 0 {
		return nil, fmt.Errorf("reader %q: %w", r.topic.Name(), entity.ErrDisposed)
	}
	r.drain()
	return r.cache.Take(ds), nil
}

func (r *reader) Read(ds entity.DataState) ([]entity.Sample, error) {
	if r.disposed.Load() != 0 {
		return nil, fmt.Errorf("reader %q: %w", r.topic.Name(), entity.ErrDisposed)
	}
	r.drain()
	return r.cache.Read(ds), nil
}

// SetListener installs fn and schedules one callback, so samples that
// arrived earlier are reported.
func (r *reader) SetListener(fn func(entity.Reader)) error {
	if r.disposed.Load() != 0 {
		return fmt.Errorf("reader %q: %w", r.topic.Name(), entity.ErrDisposed)
	}
	if fn == nil {
		r.notifier.Set(nil)
		return nil
	}
	r.notifier.Set(func() { fn(r) })
	r.notifier.Notify()
	return nil
}

// Dispose detaches the reader and stops its callback goroutine. It must
// not be called from the reader's own listener.
func (r *reader) Dispose() error {
	if r.disposed.Add(1) != 1 {
		return nil
	}
	r.topic.state.detach(r)
	r.notifier.Close()
	r.f.release(r)
	r.f.rt.readers.disposed.Add(1)
	return nil
}
