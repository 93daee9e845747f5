// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"code.hybscloud.com/atomix"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"code.hybscloud.com/idiom/entity"
	"code.hybscloud.com/idiom/qos"
)

var errForeignTopic = errors.New("rabbitmq: topic not created by this participant")

// factory is one participant: a connection whose channels belong to the
// entities it created.
type factory struct {
	rt       *Runtime
	domain   int
	conn     *amqp.Connection
	mu       sync.Mutex
	types    map[string]string
	owned    map[entity.Entity]struct{}
	disposed atomix.Uint32
}

func newFactory(rt *Runtime, domain int, conn *amqp.Connection) *factory {
	return &factory{
		rt:     rt,
		domain: domain,
		conn:   conn,
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

// exchangeDurable reports whether the exchange of a topic under q
// survives a broker restart.
func exchangeDurable(q qos.Set) bool {
	switch entity.DurabilityOf(q) {
	case qos.Transient, qos.Persistent:
		return true
	}
	return false
}

// CreateTopic declares the topic's fanout exchange.
func (f *factory) CreateTopic(ctx context.Context, name, typeName string, q qos.Set) (entity.Topic, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.disposed.Load() != 0 {
		return nil, entity.ErrDisposed
	}
	f.mu.Lock()
	if prev, ok := f.types[name]; ok && prev != typeName {
		f.mu.Unlock()
		return nil, fmt.Errorf("%w: %q is %q, not %q", entity.ErrInconsistentTopic, name, prev, typeName)
	}
	f.types[name] = typeName
	f.mu.Unlock()

	exchange := ExchangeName(f.rt.cfg.ExchangePrefix, f.domain, name)
	ch, err := f.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}
	defer ch.Close()
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeFanout, exchangeDurable(q), false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange %q: %w", exchange, err)
	}
	t := &topic{guid: uuid.New(), f: f, name: name, typeName: typeName, exchange: exchange, q: q}
	if err := f.own(t); err != nil {
		return nil, err
	}
	return t, nil
}

func (f *factory) topicOf(t entity.Topic) (*topic, error) {
	rt, ok := t.(*topic)
	if !ok || rt.f != f {
		return nil, errForeignTopic
	}
	if rt.disposed.Load() != 0 {
		return nil, fmt.Errorf("topic %q: %w", rt.name, entity.ErrDisposed)
	}
	return rt, nil
}

func (f *factory) CreateReader(ctx context.Context, t entity.Topic, q qos.Set) (entity.Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rt, err := f.topicOf(t)
	if err != nil {
		return nil, err
	}
	r, err := newReader(f, rt, q)
	if err != nil {
		return nil, err
	}
	if err := f.own(r); err != nil {
		_ = r.stop()
		return nil, err
	}
	return r, nil
}

func (f *factory) CreateWriter(ctx context.Context, t entity.Topic, q qos.Set) (entity.Writer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rt, err := f.topicOf(t)
	if err != nil {
		return nil, err
	}
	w, err := newWriter(f, rt, q)
	if err != nil {
		return nil, err
	}
	if err := f.own(w); err != nil {
		_ = w.ch.Close()
		return nil, err
	}
	return w, nil
}

// Dispose disposes every owned entity and closes the connection.
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
	if err := f.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		errs = append(errs, err)
	}
	f.rt.opts.log.Info("rabbitmq participant disposed", "domain", f.domain)
	return errors.Join(errs...)
}
