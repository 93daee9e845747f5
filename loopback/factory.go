// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package loopback

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"code.hybscloud.com/atomix"
	"github.com/google/uuid"

	"code.hybscloud.com/idiom/entity"
	"code.hybscloud.com/idiom/qos"
)

// errForeignTopic is returned when a topic from another runtime or
// participant is passed to CreateReader or CreateWriter.
var errForeignTopic = errors.New("loopback: topic not created by this participant")

// factory is one participant. It owns every entity it creates.
type factory struct {
	rt       *Runtime
	d        *domain
	serial   Serial
	mu       sync.Mutex
	owned    map[entity.Entity]struct{}
	disposed atomix.Uint32
}

func newFactory(rt *Runtime, d *domain) *factory {
	return &factory{
		rt:     rt,
		d:      d,
		serial: nextSerial(),
		owned:  map[entity.Entity]struct{}{},
	}
}

func (f *factory) own(e entity.Entity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.disposed.Load() != 0 {
		return entity.ErrDisposed
	}
	f.owned[e] = struct{}{}
	return nil
}

func (f *factory) release(e entity.Entity) {
	f.mu.Lock()
	delete(f.owned, e)
	f.mu.Unlock()
}

func (f *factory) CreateTopic(ctx context.Context, name, typeName string, q qos.Set) (entity.Topic, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.disposed.Load() != 0 {
		return nil, entity.ErrDisposed
	}
	f.d.mu.Lock()
	ts, ok := f.d.topics[name]
	if !ok {
		ts = newTopicState(name, typeName)
		f.d.topics[name] = ts
	} else if ts.typeName != typeName {
		f.d.mu.Unlock()
		return nil, fmt.Errorf("%w: %q is %q, not %q", entity.ErrInconsistentTopic, name, ts.typeName, typeName)
	}
	ts.refs++
	f.d.mu.Unlock()

	t := &topic{guid: uuid.New(), serial: nextSerial(), f: f, state: ts, q: q}
	if err := f.own(t); err != nil {
		t.unref()
		return nil, err
	}
	f.rt.topics.created.Add(1)
	return t, nil
}

func (f *factory) topicOf(t entity.Topic) (*topic, error) {
	lt, ok := t.(*topic)
	if !ok || lt.f != f {
		return nil, errForeignTopic
	}
	if lt.disposed.Load() != 0 {
		return nil, fmt.Errorf("topic %q: %w", lt.state.name, entity.ErrDisposed)
	}
	return lt, nil
}

func (f *factory) CreateReader(ctx context.Context, t entity.Topic, q qos.Set) (entity.Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lt, err := f.topicOf(t)
	if err != nil {
		return nil, err
	}
	r := newReader(f, lt, q)
	if err := f.own(r); err != nil {
		r.notifier.Close()
		return nil, err
	}
	lt.state.attach(r)
	f.rt.readers.created.Add(1)
	return r, nil
}

func (f *factory) CreateWriter(ctx context.Context, t entity.Topic, q qos.Set) (entity.Writer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lt, err := f.topicOf(t)
	if err != nil {
		return nil, err
	}
	w := newWriter(f, lt, q)
	if err := f.own(w); err != nil {
		return nil, err
	}
	lt.state.writerJoined()
	f.rt.writers.created.Add(1)
	return w, nil
}

// Dispose disposes every owned entity: readers and writers first, then
// topics.
func (f *factory) Dispose() error {
	f.mu.Lock()
	if f.disposed.Add(1) != 1 {
		f.mu.Unlock()
		return nil
	}
	var endpoints, topics []entity.Entity
	for e := range f.owned {
		if _, ok := e.(*topic); ok {
			topics = append(topics, e)
		} else {
			endpoints = append(endpoints, e)
		}
	}
	f.mu.Unlock()

	var errs []error
	for _, e := range append(endpoints, topics...) {
		if err := e.Dispose(); err != nil {
			errs = append(errs, err)
		}
	}
	f.rt.participants.disposed.Add(1)
	f.rt.opts.log.Info("participant disposed", "domain", f.d.id, "serial", f.serial)
	return errors.Join(errs...)
}
