// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package idiom_test

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"code.hybscloud.com/idiom/entity"
	"code.hybscloud.com/idiom/qos"
)

// barrier holds the first n arrivals until all of them have arrived.
// Later arrivals pass straight through.
type barrier struct {
	n       int32
	arrived atomic.Int32
	wg      sync.WaitGroup
}

func newBarrier(n int) *barrier {
	b := &barrier{n: int32(n)}
	b.wg.Add(n)
	return b
}

func (b *barrier) wait() {
	if b == nil {
		return
	}
	if b.arrived.Add(1) > b.n {
		return
	}
	b.wg.Done()
	b.wg.Wait()
}

// fakeRuntime hands out fakeFactory values built by newFactory.
type fakeRuntime struct {
	created    atomic.Int32
	gate       *barrier
	newFactory func() *fakeFactory
}

func (rt *fakeRuntime) CreateParticipant(_ context.Context, _ int) (entity.Factory, error) {
	rt.created.Add(1)
	rt.gate.wait()
	return rt.newFactory(), nil
}

// fakeFactory records every entity it creates and disposes.
type fakeFactory struct {
	mu       sync.Mutex
	gates    map[string]*barrier
	created  map[string]int
	disposed map[string]int
	failNext map[string]error
	writeFn  func(data []byte) error
	readers  []*fakeReader
	writes   [][]byte
	gone     atomic.Bool
}

func newFactory() *fakeFactory {
	return &fakeFactory{
		gates:    map[string]*barrier{},
		created:  map[string]int{},
		disposed: map[string]int{},
		failNext: map[string]error{},
	}
}

func (f *fakeFactory) gate(kind string, n int) {
	f.mu.Lock()
	f.gates[kind] = newBarrier(n)
	f.mu.Unlock()
}

func (f *fakeFactory) fail(kind string, err error) {
	f.mu.Lock()
	f.failNext[kind] = err
	f.mu.Unlock()
}

func (f *fakeFactory) count(m map[string]int, kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return m[kind]
}

func (f *fakeFactory) createdN(kind string) int  { return f.count(f.created, kind) }
func (f *fakeFactory) disposedN(kind string) int { return f.count(f.disposed, kind) }

func (f *fakeFactory) create(kind string) error {
	f.mu.Lock()
	g := f.gates[kind]
	err := f.failNext[kind]
	delete(f.failNext, kind)
	if err == nil {
		f.created[kind]++
	}
	f.mu.Unlock()
	if err != nil {
		return err
	}
	g.wait()
	return nil
}

func (f *fakeFactory) dispose(kind string) {
	f.mu.Lock()
	f.disposed[kind]++
	f.mu.Unlock()
}

func (f *fakeFactory) CreateTopic(_ context.Context, name, typeName string, q qos.Set) (entity.Topic, error) {
	if err := f.create("topic"); err != nil {
		return nil, err
	}
	return &fakeTopic{fakeEntity: fakeEntity{f: f, kind: "topic", guid: uuid.New()}, name: name, typeName: typeName, q: q}, nil
}

func (f *fakeFactory) CreateReader(_ context.Context, t entity.Topic, q qos.Set) (entity.Reader, error) {
	if err := f.create("reader"); err != nil {
		return nil, err
	}
	r := &fakeReader{fakeEntity: fakeEntity{f: f, kind: "reader", guid: uuid.New()}, topic: t, q: q}
	f.mu.Lock()
	f.readers = append(f.readers, r)
	f.mu.Unlock()
	return r, nil
}

func (f *fakeFactory) CreateWriter(_ context.Context, t entity.Topic, q qos.Set) (entity.Writer, error) {
	if err := f.create("writer"); err != nil {
		return nil, err
	}
	return &fakeWriter{fakeEntity: fakeEntity{f: f, kind: "writer", guid: uuid.New()}, topic: t, q: q}, nil
}

func (f *fakeFactory) Dispose() error {
	f.gone.Store(true)
	f.dispose("factory")
	return nil
}

func (f *fakeFactory) written() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.writes...)
}

type fakeEntity struct {
	f    *fakeFactory
	kind string
	guid uuid.UUID
}

func (e *fakeEntity) GUID() uuid.UUID { return e.guid }

func (e *fakeEntity) Dispose() error {
	e.f.dispose(e.kind)
	return nil
}

type fakeTopic struct {
	fakeEntity
	name, typeName string
	q              qos.Set
}

func (t *fakeTopic) Name() string     { return t.name }
func (t *fakeTopic) TypeName() string { return t.typeName }
func (t *fakeTopic) Qos() qos.Set     { return t.q }

type fakeReader struct {
	fakeEntity
	topic     entity.Topic
	q         qos.Set
	mu        sync.Mutex
	samples   []entity.Sample
	listener  func(entity.Reader)
	listeners atomic.Int32
	// listenHook, when set, runs before SetListener installs and may
	// refuse the listener.
	listenHook func() error
	seq        uint64
}

func (r *fakeReader) Topic() entity.Topic { return r.topic }
func (r *fakeReader) Qos() qos.Set        { return r.q }

func (r *fakeReader) push(data ...[]byte) {
	r.mu.Lock()
	for _, d := range data {
		r.seq++
		r.samples = append(r.samples, entity.Sample{
			Data: d,
			Info: entity.SampleInfo{
				SampleState:   entity.NotRead,
				ViewState:     entity.NewView,
				InstanceState: entity.Alive,
				Sequence:      r.seq,
			},
		})
	}
	r.mu.Unlock()
}

// notify runs the installed listener on the calling goroutine.
func (r *fakeReader) notify() {
	r.mu.Lock()
	fn := r.listener
	r.mu.Unlock()
	if fn != nil {
		fn(r)
	}
}

func (r *fakeReader) Take(ds entity.DataState) ([]entity.Sample, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out, kept []entity.Sample
	for _, s := range r.samples {
		if ds.Matches(s.Info) {
			out = append(out, s)
		} else {
			kept = append(kept, s)
		}
	}
	r.samples = kept
	return out, nil
}

func (r *fakeReader) Read(ds entity.DataState) ([]entity.Sample, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Sample
	for i := range r.samples {
		if ds.Matches(r.samples[i].Info) {
			out = append(out, r.samples[i])
			r.samples[i].Info.SampleState = entity.Read
		}
	}
	return out, nil
}

func (r *fakeReader) SetListener(fn func(entity.Reader)) error {
	if r.listenHook != nil {
		if err := r.listenHook(); err != nil {
			return err
		}
	}
	r.listeners.Add(1)
	r.mu.Lock()
	r.listener = fn
	r.mu.Unlock()
	return nil
}

type fakeWriter struct {
	fakeEntity
	topic entity.Topic
	q     qos.Set
}

func (w *fakeWriter) Topic() entity.Topic { return w.topic }
func (w *fakeWriter) Qos() qos.Set        { return w.q }

func (w *fakeWriter) Write(_ context.Context, data []byte) error {
	if fn := w.f.writeFn; fn != nil {
		if err := fn(data); err != nil {
			return err
		}
	}
	w.f.mu.Lock()
	w.f.writes = append(w.f.writes, data)
	w.f.mu.Unlock()
	return nil
}

// single returns a runtime whose participants all share f.
func single(f *fakeFactory) *fakeRuntime {
	return &fakeRuntime{newFactory: func() *fakeFactory { return f }}
}
