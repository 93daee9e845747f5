// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package idiom_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/fxamacker/cbor/v2"

	"code.hybscloud.com/idiom"
	"code.hybscloud.com/idiom/entity"
	"code.hybscloud.com/idiom/qos"
)

type reading struct {
	ID      string  `cbor:"id"`
	Celsius float64 `cbor:"c"`
}

func newSession(t *testing.T, f *fakeFactory, cfg idiom.Config) *idiom.Session[reading] {
	t.Helper()
	p := idiom.NewParticipant(single(f), 0)
	if _, err := p.Factory(context.Background()); err != nil {
		t.Fatalf("Factory: %v", err)
	}
	s, err := idiom.New[reading](p, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func mustCBOR(t *testing.T, v any) []byte {
	t.Helper()
	data, err := cbor.Marshal(v)
	if err != nil {
		t.Fatalf("cbor: %v", err)
	}
	return data
}

func TestNewValidates(t *testing.T) {
	p := idiom.NewParticipant(single(newFactory()), 0)
	cases := map[string]idiom.Config{
		"empty stream":   {},
		"bad profile":    {Stream: "s", Profile: qos.Profile(7)},
		"bad durability": {Stream: "s", Durability: qos.DurabilityKind(9)},
		"nil override":   {Stream: "s", Overrides: []qos.Policy{nil}},
	}
	for name, cfg := range cases {
		if _, err := idiom.New[reading](p, cfg); !errors.Is(err, idiom.ErrInvalidConfig) {
			t.Fatalf("%s: got %v, want ErrInvalidConfig", name, err)
		}
	}
	if _, err := idiom.New[reading](nil, idiom.Config{Stream: "s"}); !errors.Is(err, idiom.ErrInvalidConfig) {
		t.Fatalf("nil participant: got %v", err)
	}
}

func TestNewDefaults(t *testing.T) {
	s := newSession(t, newFactory(), idiom.Config{Stream: "temps"})
	cfg := s.Config()
	if cfg.TypeName != "idiom_test.reading" {
		t.Fatalf("TypeName = %q", cfg.TypeName)
	}
	if cfg.History != 1 {
		t.Fatalf("History = %d, want 1", cfg.History)
	}
}

func TestSessionQosTable(t *testing.T) {
	mbt := qos.Reliability{Kind: qos.Reliable}.WithMaxBlockingTime(qos.Millis(20))
	s := newSession(t, newFactory(), idiom.Config{
		Stream:     "temps",
		Profile:    qos.ProfileState,
		Durability: qos.Persistent,
		History:    4,
		Overrides:  []qos.Policy{mbt},
	})
	tbl := s.Qos()
	if _, ok := qos.Lookup[qos.DurabilityService](tbl.Topic); !ok {
		t.Fatalf("persistent topic without durability service: %v", tbl.Topic)
	}
	for name, set := range map[string]qos.Set{"reader": tbl.Reader, "writer": tbl.Writer} {
		if got := entity.MaxBlockingTime(set); got != qos.Millis(20) {
			t.Fatalf("%s max blocking time = %v", name, got)
		}
		if h := entity.HistoryOf(set); h.Depth != 4 {
			t.Fatalf("%s history = %v", name, h)
		}
	}
}

func TestEnsureCreatesTopicFirst(t *testing.T) {
	f := newFactory()
	s := newSession(t, f, idiom.Config{Stream: "temps", TypeName: "Reading"})
	ctx := context.Background()

	w, err := s.Writer(ctx)
	if err != nil {
		t.Fatalf("Writer: %v", err)
	}
	if f.createdN("topic") != 1 || f.createdN("writer") != 1 || f.createdN("reader") != 0 {
		t.Fatalf("created %v", f.created)
	}
	if w.Topic().Name() != "temps" || w.Topic().TypeName() != "Reading" {
		t.Fatalf("writer topic %q/%q", w.Topic().Name(), w.Topic().TypeName())
	}
	r, err := s.Reader(ctx)
	if err != nil {
		t.Fatalf("Reader: %v", err)
	}
	if r.Topic() != w.Topic() {
		t.Fatalf("reader and writer use different topics")
	}
	if f.createdN("topic") != 1 {
		t.Fatalf("topic created %d times", f.createdN("topic"))
	}
}

func TestEnsureSingleWinner(t *testing.T) {
	const callers = 16
	for _, kind := range []string{"topic", "reader", "writer"} {
		t.Run(kind, func(t *testing.T) {
			f := newFactory()
			f.gate(kind, callers)
			s := newSession(t, f, idiom.Config{Stream: "temps"})
			ctx := context.Background()

			handles := make([]any, callers)
			var wg sync.WaitGroup
			for i := range callers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					var (
						h   any
						err error
					)
					switch kind {
					case "topic":
						h, err = s.Topic(ctx)
					case "reader":
						h, err = s.Reader(ctx)
					case "writer":
						h, err = s.Writer(ctx)
					}
					if err != nil {
						t.Errorf("ensure %s: %v", kind, err)
					}
					handles[i] = h
				}()
			}
			wg.Wait()

			for _, h := range handles[1:] {
				if h != handles[0] {
					t.Fatalf("callers observed different %s handles", kind)
				}
			}
			created, disposed := f.createdN(kind), f.disposedN(kind)
			if created != callers || disposed != callers-1 {
				t.Fatalf("%s: created %d, disposed %d; want %d, %d", kind, created, disposed, callers, callers-1)
			}
			st := s.Stats()
			races := map[string]uint32{"topic": st.TopicRaces, "reader": st.ReaderRaces, "writer": st.WriterRaces}[kind]
			if races != callers-1 {
				t.Fatalf("%s races = %d, want %d", kind, races, callers-1)
			}
		})
	}
}

func TestEnsureRetriesAfterFailure(t *testing.T) {
	f := newFactory()
	boom := errors.New("transport down")
	f.fail("reader", boom)
	s := newSession(t, f, idiom.Config{Stream: "temps"})
	ctx := context.Background()

	if _, err := s.Reader(ctx); !errors.Is(err, boom) {
		t.Fatalf("got %v, want transport error", err)
	}
	if _, err := s.Reader(ctx); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if f.createdN("reader") != 1 {
		t.Fatalf("readers created %d", f.createdN("reader"))
	}
}

func TestParticipantSingleFactory(t *testing.T) {
	const callers = 8
	var (
		mu        sync.Mutex
		factories []*fakeFactory
	)
	rt := &fakeRuntime{
		gate: newBarrier(callers),
		newFactory: func() *fakeFactory {
			f := newFactory()
			mu.Lock()
			factories = append(factories, f)
			mu.Unlock()
			return f
		},
	}
	p := idiom.NewParticipant(rt, 3)
	ctx := context.Background()

	got := make([]entity.Factory, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got[i], _ = p.Factory(ctx)
		}()
	}
	wg.Wait()

	for _, f := range got[1:] {
		if f != got[0] {
			t.Fatalf("callers observed different factories")
		}
	}
	disposed := 0
	for _, f := range factories {
		disposed += f.disposedN("factory")
	}
	if len(factories) != callers || disposed != callers-1 || p.Races() != callers-1 {
		t.Fatalf("factories %d, disposed %d, races %d", len(factories), disposed, p.Races())
	}

	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !got[0].(*fakeFactory).gone.Load() {
		t.Fatalf("Close did not dispose the factory")
	}
	if _, err := p.Factory(ctx); !errors.Is(err, idiom.ErrClosed) {
		t.Fatalf("Factory after Close: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

// heldRuntime blocks CreateParticipant until release is closed.
type heldRuntime struct {
	entered chan struct{}
	release chan struct{}
	f       *fakeFactory
}

func (rt *heldRuntime) CreateParticipant(context.Context, int) (entity.Factory, error) {
	close(rt.entered)
	<-rt.release
	return rt.f, nil
}

func TestParticipantCloseDuringCreate(t *testing.T) {
	rt := &heldRuntime{entered: make(chan struct{}), release: make(chan struct{}), f: newFactory()}
	p := idiom.NewParticipant(rt, 0)

	type result struct {
		f   entity.Factory
		err error
	}
	done := make(chan result, 1)
	go func() {
		f, err := p.Factory(context.Background())
		done <- result{f, err}
	}()
	<-rt.entered
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	close(rt.release)

	res := <-done
	if !errors.Is(res.err, idiom.ErrClosed) || res.f != nil {
		t.Fatalf("Factory = %v, %v; want ErrClosed", res.f, res.err)
	}
	if n := rt.f.disposedN("factory"); n != 1 {
		t.Fatalf("factory disposed %d times, want 1", n)
	}
	if err := p.Close(); err != nil || rt.f.disposedN("factory") != 1 {
		t.Fatalf("second Close: %v, disposed %d", err, rt.f.disposedN("factory"))
	}
}

func TestTake(t *testing.T) {
	f := newFactory()
	s := newSession(t, f, idiom.Config{Stream: "temps"})
	ctx := context.Background()

	if got, err := s.Take(ctx); err != nil || len(got) != 0 {
		t.Fatalf("empty take = %v, %v", got, err)
	}
	r := f.readers[0]
	r.push(
		mustCBOR(t, reading{"a", 1}),
		mustCBOR(t, reading{"b", 2}),
	)
	// Already-read samples are still alive data.
	if _, err := r.Read(entity.AllSamples); err != nil {
		t.Fatalf("Read: %v", err)
	}
	r.push(mustCBOR(t, reading{"c", 3}))

	got, err := s.Take(ctx)
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	want := []reading{{"a", 1}, {"b", 2}, {"c", 3}}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if again, _ := s.Take(ctx); len(again) != 0 {
		t.Fatalf("Take did not remove samples: %v", again)
	}
	if s.Stats().Taken != 3 {
		t.Fatalf("Taken = %d", s.Stats().Taken)
	}
}

func TestTakeSamplesReportsUndecodable(t *testing.T) {
	f := newFactory()
	s := newSession(t, f, idiom.Config{Stream: "temps"})
	ctx := context.Background()
	if _, err := s.Reader(ctx); err != nil {
		t.Fatalf("Reader: %v", err)
	}
	f.readers[0].push(mustCBOR(t, reading{"a", 1}), []byte{0xff}, mustCBOR(t, reading{"b", 2}))

	got, err := s.TakeSamples(ctx)
	if err == nil {
		t.Fatalf("expected a decode error")
	}
	if len(got) != 2 || got[0].Value.ID != "a" || got[1].Value.ID != "b" {
		t.Fatalf("got %+v", got)
	}
	if got[1].Info.Sequence != 3 {
		t.Fatalf("sequence %d, want 3", got[1].Info.Sequence)
	}
}

func TestWrite(t *testing.T) {
	f := newFactory()
	s := newSession(t, f, idiom.Config{Stream: "temps"})
	if err := s.Write(context.Background(), reading{"a", 1}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	var got reading
	if err := cbor.Unmarshal(f.written()[0], &got); err != nil || got != (reading{"a", 1}) {
		t.Fatalf("payload %v, %v", got, err)
	}
}

func TestWriteTimeout(t *testing.T) {
	f := newFactory()
	f.writeFn = func([]byte) error { return entity.ErrTimeout }
	s := newSession(t, f, idiom.Config{Stream: "temps"})
	err := s.Write(context.Background(), reading{"a", 1})
	if !errors.Is(err, idiom.ErrWriteTimeout) || !errors.Is(err, entity.ErrTimeout) {
		t.Fatalf("got %v, want ErrWriteTimeout wrapping entity.ErrTimeout", err)
	}
}

func TestBytesCodec(t *testing.T) {
	f := newFactory()
	p := idiom.NewParticipant(single(f), 0)
	s, err := idiom.New[[]byte](p, idiom.Config{Stream: "raw"}, idiom.WithCodec[[]byte](idiom.Bytes{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Write(context.Background(), []byte("hello")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if string(f.written()[0]) != "hello" {
		t.Fatalf("payload %q", f.written()[0])
	}
}
