// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rabbitmq

import (
	"context"
	"errors"
	"fmt"

	"code.hybscloud.com/atomix"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"code.hybscloud.com/idiom/entity"
	"code.hybscloud.com/idiom/qos"
)

// errNacked is returned when the broker refuses a reliable publish.
var errNacked = errors.New("rabbitmq: publish not confirmed")

// writer publishes on its own channel, in confirm mode when reliable.
type writer struct {
	guid       uuid.UUID
	f          *factory
	topic      *topic
	q          qos.Set
	reliable   bool
	persistent bool
	mbt        qos.Duration

	ch       *amqp.Channel
	seq      atomix.Uint32
	disposed atomix.Uint32
}

func newWriter(f *factory, t *topic, q qos.Set) (*writer, error) {
	ch, err := f.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}
	w := &writer{
		guid:       uuid.New(),
		f:          f,
		topic:      t,
		q:          q,
		reliable:   entity.IsReliable(q),
		persistent: entity.DurabilityOf(q) == qos.Persistent,
		mbt:        entity.MaxBlockingTime(q),
		ch:         ch,
	}
	if w.reliable {
		if err := ch.Confirm(false); err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("enable confirms: %w", err)
		}
	}
	return w, nil
}

func (w *writer) GUID() uuid.UUID     { return w.guid }
func (w *writer) Topic() entity.Topic { return w.topic }
func (w *writer) Qos() qos.Set        { return w.q }

// Write publishes data to the topic exchange. A reliable write waits for
// the broker confirm, failing with entity.ErrTimeout when the max
// blocking time runs out first. With a Zero max blocking time the
// message is published once and the confirm is not awaited.
func (w *writer) Write(ctx context.Context, data []byte) error {
	if w.disposed.Load() != 0 {
		return fmt.Errorf("writer %q: %w", w.topic.name, entity.ErrDisposed)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := newPublishing(w.topic.typeName, w.guid, uint64(w.seq.Add(1)), data, w.persistent)
	if !w.reliable || w.mbt.IsZero() {
		if err := w.ch.PublishWithContext(ctx, w.topic.exchange, "", false, false, msg); err != nil {
			return fmt.Errorf("publish %q: %w", w.topic.exchange, err)
		}
		return nil
	}

	bctx, cancel := entity.WithMaxBlocking(ctx, w.mbt)
	defer cancel()
	dc, err := w.ch.PublishWithDeferredConfirmWithContext(bctx, w.topic.exchange, "", false, false, msg)
	if err != nil {
		if bctx.Err() != nil {
			return entity.Blocked(ctx, w.mbt)
		}
		return fmt.Errorf("publish %q: %w", w.topic.exchange, err)
	}
	ok, err := dc.WaitContext(bctx)
	if err != nil {
		if bctx.Err() != nil {
			return entity.Blocked(ctx, w.mbt)
		}
		return fmt.Errorf("confirm %q: %w", w.topic.exchange, err)
	}
	if !ok {
		return fmt.Errorf("%q: %w", w.topic.exchange, errNacked)
	}
	return nil
}

func (w *writer) Dispose() error {
	if w.disposed.Add(1) != 1 {
		return nil
	}
	w.f.release(w)
	if err := w.ch.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		return fmt.Errorf("close writer channel: %w", err)
	}
	return nil
}
