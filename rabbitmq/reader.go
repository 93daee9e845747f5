// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rabbitmq

import (
	"errors"
	"fmt"

	"code.hybscloud.com/atomix"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"code.hybscloud.com/idiom/entity"
	"code.hybscloud.com/idiom/qos"
)

// reader consumes an exclusive queue bound to the topic exchange.
type reader struct {
	guid  uuid.UUID
	f     *factory
	topic *topic
	q     qos.Set
	ch    *amqp.Channel
	queue string

	cache    *entity.Cache
	notifier *entity.Notifier
	done     chan struct{}
	disposed atomix.Uint32
}

func newReader(f *factory, t *topic, q qos.Set) (*reader, error) {
	ch, err := f.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}
	queue, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(queue.Name, "", t.exchange, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("bind queue to %q: %w", t.exchange, err)
	}
	deliveries, err := ch.Consume(queue.Name, "", true, true, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("consume queue: %w", err)
	}
	r := &reader{
		guid:     uuid.New(),
		f:        f,
		topic:    t,
		q:        q,
		ch:       ch,
		queue:    queue.Name,
		cache:    entity.NewCache(q),
		notifier: entity.NewNotifier(),
		done:     make(chan struct{}),
	}
	go r.consume(deliveries)
	return r, nil
}

func (r *reader) GUID() uuid.UUID     { return r.guid }
func (r *reader) Topic() entity.Topic { return r.topic }
func (r *reader) Qos() qos.Set        { return r.q }

// consume runs until the channel closes.
func (r *reader) consume(deliveries <-chan amqp.Delivery) {
	defer close(r.done)
	log := r.f.rt.opts.log
	for d := range deliveries {
		s, ok := sampleOf(d, r.topic.typeName)
		if !ok {
			log.Debug("message of another type skipped", "exchange", d.Exchange, "tag", d.DeliveryTag)
			continue
		}
		if !r.cache.Add(s) {
			log.Debug("history full, sample rejected", "exchange", d.Exchange, "seq", s.Info.Sequence)
			continue
		}
		r.notifier.Notify()
	}
}

func (r *reader) Take(ds entity.DataState) ([]entity.Sample, error) {
	if r.disposed.Load() != 0 {
		return nil, fmt.Errorf("reader %q: %w", r.topic.name, entity.ErrDisposed)
	}
	return r.cache.Take(ds), nil
}

func (r *reader) Read(ds entity.DataState) ([]entity.Sample, error) {
	if r.disposed.Load() != 0 {
		return nil, fmt.Errorf("reader %q: %w", r.topic.name, entity.ErrDisposed)
	}
	return r.cache.Read(ds), nil
}

func (r *reader) SetListener(fn func(entity.Reader)) error {
	if r.disposed.Load() != 0 {
		return fmt.Errorf("reader %q: %w", r.topic.name, entity.ErrDisposed)
	}
	if fn == nil {
		r.notifier.Set(nil)
		return nil
	}
	r.notifier.Set(func() { fn(r) })
	r.notifier.Notify()
	return nil
}

// stop closes the channel, which deletes the queue and ends consume.
func (r *reader) stop() error {
	err := r.ch.Close()
	<-r.done
	r.notifier.Close()
	if err != nil && !errors.Is(err, amqp.ErrClosed) {
		return fmt.Errorf("close reader channel: %w", err)
	}
	return nil
}

// Dispose must not be called from the reader's own listener.
func (r *reader) Dispose() error {
	if r.disposed.Add(1) != 1 {
		return nil
	}
	r.f.release(r)
	return r.stop()
}
