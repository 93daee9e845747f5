// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kafka

import (
	"context"
	"fmt"

	"code.hybscloud.com/atomix"
	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"

	"code.hybscloud.com/idiom/entity"
	"code.hybscloud.com/idiom/qos"
)

type writer struct {
	guid     uuid.UUID
	f        *factory
	topic    *topic
	q        qos.Set
	reliable bool
	mbt      qos.Duration
	seq      atomix.Uint32
	disposed atomix.Uint32
}

func newWriter(f *factory, t *topic, q qos.Set) *writer {
	return &writer{
		guid:     uuid.New(),
		f:        f,
		topic:    t,
		q:        q,
		reliable: entity.IsReliable(q),
		mbt:      entity.MaxBlockingTime(q),
	}
}

func (w *writer) GUID() uuid.UUID     { return w.guid }
func (w *writer) Topic() entity.Topic { return w.topic }
func (w *writer) Qos() qos.Set        { return w.q }

// Write produces data. A reliable write returns once the record is
// acknowledged, or fails with entity.ErrTimeout when the max blocking
// time runs out first. A best-effort write, or a reliable one with a Zero
// max blocking time, returns as soon as the record is buffered.
func (w *writer) Write(ctx context.Context, data []byte) error {
	if w.disposed.Load() != 0 {
		return fmt.Errorf("writer %q: %w", w.topic.name, entity.ErrDisposed)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	rec := newRecord(w.topic.kname, w.topic.typeName, w.guid, uint64(w.seq.Add(1)), data)
	if !w.reliable || w.mbt.IsZero() {
		w.f.client.Produce(context.WithoutCancel(ctx), rec, w.dropped)
		return nil
	}
	bctx, cancel := entity.WithMaxBlocking(ctx, w.mbt)
	defer cancel()
	if err := w.f.client.ProduceSync(bctx, rec).FirstErr(); err != nil {
		if bctx.Err() != nil {
			return entity.Blocked(ctx, w.mbt)
		}
		return fmt.Errorf("produce %q: %w", w.topic.kname, err)
	}
	return nil
}

func (w *writer) dropped(rec *kgo.Record, err error) {
	if err == nil {
		return
	}
	w.f.rt.dropped.Add(1)
	w.f.rt.opts.log.Warn("best-effort record dropped", "topic", rec.Topic, "err", err)
}

func (w *writer) Dispose() error {
	if w.disposed.Add(1) != 1 {
		return nil
	}
	w.f.release(w)
	return nil
}
