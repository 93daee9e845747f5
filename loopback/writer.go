// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package loopback

import (
	"context"
	"fmt"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"github.com/google/uuid"

	"code.hybscloud.com/idiom/entity"
	"code.hybscloud.com/idiom/qos"
)

type writer struct {
	guid     uuid.UUID
	serial   Serial
	f        *factory
	topic    *topic
	q        qos.Set
	reliable bool
	mbt      qos.Duration
	retain   int
	seq      atomix.Uint32
	disposed atomix.Uint32
}

func newWriter(f *factory, t *topic, q qos.Set) *writer {
	w := &writer{
		guid:     uuid.New(),
		serial:   nextSerial(),
		f:        f,
		topic:    t,
		q:        q,
		reliable: entity.IsReliable(q),
		mbt:      entity.MaxBlockingTime(q),
	}
	if entity.DurabilityOf(q) != qos.Volatile {
		h := entity.HistoryOf(q)
		switch {
		case h.Kind == qos.KeepAll:
			w.retain = maxRetained
		case h.Depth < 1:
			w.retain = 1
		default:
			w.retain = int(min(h.Depth, maxRetained))
		}
	}
	return w
}

func (w *writer) GUID() uuid.UUID     { return w.guid }
func (w *writer) Serial() Serial      { return w.serial }
func (w *writer) Topic() entity.Topic { return w.topic }
func (w *writer) Qos() qos.Set        { return w.q }

// Write delivers data to every reader of the topic, in reader
// attachment order. A full inbox of a reliable reader is retried with
// adaptive backoff until the max blocking time; best-effort delivery
// drops the sample for that reader instead.
func (w *writer) Write(ctx context.Context, data []byte) error {
	if w.disposed.Load() != 0 {
		return fmt.Errorf("writer %q: %w", w.topic.Name(), entity.ErrDisposed)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s := entity.Sample{
		Data: append([]byte(nil), data...),
		Info: entity.SampleInfo{
			Sequence:        uint64(w.seq.Add(1)),
			WriterGUID:      w.guid,
			SourceTimestamp: time.Now(),
		},
	}
	if w.retain > 0 {
		w.topic.state.retain(s, w.retain)
	}
	for _, r := range w.topic.state.destinations() {
		err := r.deliver(s)
		if err == nil {
			continue
		}
		if !iox.IsWouldBlock(err) {
			return err
		}
		if !w.reliable || !r.reliable {
			w.f.rt.dropped.Add(1)
			continue
		}
		if err := w.await(ctx, r, s); err != nil {
			return err
		}
	}
	return nil
}

// await retries delivery to r until it succeeds or the max blocking
// time runs out.
func (w *writer) await(ctx context.Context, r *reader, s entity.Sample) error {
	bctx, cancel := entity.WithMaxBlocking(ctx, w.mbt)
	defer cancel()
	var bo iox.Backoff
	for {
		err := r.deliver(s)
		if err == nil {
			return nil
		}
		if !iox.IsWouldBlock(err) {
			return err
		}
		if bctx.Err() != nil {
			return entity.Blocked(ctx, w.mbt)
		}
		bo.Wait()
	}
}

func (w *writer) Dispose() error {
	if w.disposed.Add(1) != 1 {
		return nil
	}
	w.topic.state.writerLeft()
	w.f.release(w)
	w.f.rt.writers.disposed.Add(1)
	return nil
}
