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

// reader owns a direct consumer client whose poll loop feeds the
// history.
type reader struct {
	guid   uuid.UUID
	f      *factory
	topic  *topic
	q      qos.Set
	client *kgo.Client

	cache    *entity.Cache
	notifier *entity.Notifier
	cancel   context.CancelFunc
	done     chan struct{}
	disposed atomix.Uint32
}

// resetOffset returns where a new reader under q starts consuming.
func resetOffset(q qos.Set) kgo.Offset {
	if entity.DurabilityOf(q) == qos.Volatile {
		return kgo.NewOffset().AtEnd()
	}
	return kgo.NewOffset().AtStart()
}

func newReader(f *factory, t *topic, q qos.Set) (*reader, error) {
	cl, err := kgo.NewClient(f.rt.clientOpts(
		kgo.ConsumeTopics(t.kname),
		kgo.ConsumeResetOffset(resetOffset(q)),
	)...)
	if err != nil {
		return nil, fmt.Errorf("new kafka consumer: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &reader{
		guid:     uuid.New(),
		f:        f,
		topic:    t,
		q:        q,
		client:   cl,
		cache:    entity.NewCache(q),
		notifier: entity.NewNotifier(),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go r.poll(ctx)
	return r, nil
}

func (r *reader) GUID() uuid.UUID     { return r.guid }
func (r *reader) Topic() entity.Topic { return r.topic }
func (r *reader) Qos() qos.Set        { return r.q }

func (r *reader) poll(ctx context.Context) {
	defer close(r.done)
	log := r.f.rt.opts.log
	for {
		fetches := r.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			log.Warn("kafka fetch failed", "topic", topic, "partition", partition, "err", err)
		})
		added := 0
		fetches.EachRecord(func(rec *kgo.Record) {
			s, ok := sampleOf(rec, r.topic.typeName)
			if !ok {
				log.Debug("record of another type skipped", "topic", rec.Topic, "offset", rec.Offset)
				return
			}
			if r.cache.Add(s) {
				added++
			}
		})
		if added > 0 {
			r.notifier.Notify()
		}
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

// stop ends the poll loop and closes the consumer.
func (r *reader) stop() {
	r.cancel()
	<-r.done
	r.client.Close()
	r.notifier.Close()
}

// Dispose must not be called from the reader's own listener.
func (r *reader) Dispose() error {
	if r.disposed.Add(1) != 1 {
		return nil
	}
	r.stop()
	r.f.release(r)
	return nil
}
