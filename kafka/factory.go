// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"code.hybscloud.com/atomix"
	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"

	"code.hybscloud.com/idiom/entity"
	"code.hybscloud.com/idiom/qos"
)

var errForeignTopic = errors.New("kafka: topic not created by this participant")

// factory is one participant: a producer client shared by its writers
// and the set of entities it created.
type factory struct {
	rt       *Runtime
	domain   int
	client   *kgo.Client
	mu       sync.Mutex
	types    map[string]string
	owned    map[entity.Entity]struct{}
	disposed atomix.Uint32
}

func newFactory(rt *Runtime, domain int, cl *kgo.Client) *factory {
	return &factory{
		rt:     rt,
		domain: domain,
		client: cl,
		types:  map[string]string{},
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

// CreateTopic binds name to typeName for this participant. Records of
// another type found on the Kafka topic are skipped by readers.
func (f *factory) CreateTopic(ctx context.Context, name, typeName string, q qos.Set) (entity.Topic, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	if f.disposed.Load() != 0 {
		f.mu.Unlock()
		return nil, entity.ErrDisposed
	}
	if prev, ok := f.types[name]; ok && prev != typeName {
		f.mu.Unlock()
		return nil, fmt.Errorf("%w: %q is %q, not %q", entity.ErrInconsistentTopic, name, prev, typeName)
	}
	f.types[name] = typeName
	t := &topic{
		guid:     uuid.New(),
		f:        f,
		name:     name,
		typeName: typeName,
		kname:    TopicName(f.rt.cfg.TopicPrefix, f.domain, name),
		q:        q,
	}
	f.owned[t] = struct{}{}
	f.mu.Unlock()
	return t, nil
}

func (f *factory) topicOf(t entity.Topic) (*topic, error) {
	kt, ok := t.(*topic)
	if !ok || kt.f != f {
		return nil, errForeignTopic
	}
	if kt.disposed.Load() != 0 {
		return nil, fmt.Errorf("topic %q: %w", kt.name, entity.ErrDisposed)
	}
	return kt, nil
}

func (f *factory) CreateReader(ctx context.Context, t entity.Topic, q qos.Set) (entity.Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	kt, err := f.topicOf(t)
	if err != nil {
		return nil, err
	}
	r, err := newReader(f, kt, q)
	if err != nil {
		return nil, err
	}
	if err := f.own(r); err != nil {
		r.stop()
		return nil, err
	}
	return r, nil
}

func (f *factory) CreateWriter(ctx context.Context, t entity.Topic, q qos.Set) (entity.Writer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	kt, err := f.topicOf(t)
	if err != nil {
		return nil, err
	}
	w := newWriter(f, kt, q)
	if err := f.own(w); err != nil {
		return nil, err
	}
	return w, nil
}

// Dispose disposes every owned entity, flushes pending best-effort
// records and closes the producer client.
func (f *factory) Dispose() error {
	f.mu.Lock()
	if f.disposed.Add(1) != 1 {
		f.mu.Unlock()
		return nil
	}
	owned := make([]entity.Entity, 0, len(f.owned))
	for e := range f.owned {
		owned = append(owned, e)
	}
	f.mu.Unlock()

	var errs []error
	for _, e := range owned {
		if err := e.Dispose(); err != nil {
			errs = append(errs, err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if err := f.client.Flush(ctx); err != nil {
		errs = append(errs, fmt.Errorf("flush: %w", err))
	}
	f.client.Close()
	f.rt.opts.log.Info("kafka participant disposed", "domain", f.domain)
	return errors.Join(errs...)
}
