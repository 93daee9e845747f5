// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package idiom_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"code.hybscloud.com/idiom"
	"code.hybscloud.com/idiom/loopback"
	"code.hybscloud.com/idiom/qos"
)

func TestLoopbackPublishTake(t *testing.T) {
	skipRace(t)
	rt := loopback.New()
	p := idiom.NewParticipant(rt, 0)
	defer p.Close()
	ctx := context.Background()

	cfg := idiom.Config{Stream: "temps", Durability: qos.TransientLocal, History: 4}
	pub, err := idiom.New[reading](p, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if n, err := pub.WriteAll(ctx, []reading{{"a", 1}, {"b", 2}}); err != nil || n != 2 {
		t.Fatalf("WriteAll = %d, %v", n, err)
	}

	// A session created later on the same stream joins late and still
	// sees the retained history.
	sub, err := idiom.New[reading](p, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := sub.Take(ctx)
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	if fmt.Sprint(got) != "[{a 1} {b 2}]" {
		t.Fatalf("got %v", got)
	}
	if st := rt.Stats(); st.Topics.Live() != 2 || st.Participants.Live() != 1 {
		t.Fatalf("stats %+v", st)
	}
}

func TestLoopbackObserve(t *testing.T) {
	skipRace(t)
	p := idiom.NewParticipant(loopback.New(), 0)
	defer p.Close()
	ctx := context.Background()

	s, err := idiom.New[reading](p, idiom.Config{Stream: "events", Profile: qos.ProfileEvent})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got := make(chan reading, 8)
	if err := s.Observe(ctx, func(smp idiom.Sample[reading]) { got <- smp.Value }); err != nil {
		t.Fatalf("Observe: %v", err)
	}
	if err := s.Write(ctx, reading{"x", 7}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	select {
	case v := <-got:
		if v != (reading{"x", 7}) {
			t.Fatalf("got %v", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("handler not called")
	}
}

func TestLoopbackWriteAllTimeout(t *testing.T) {
	skipRace(t)
	p := idiom.NewParticipant(loopback.New(loopback.WithQueueCapacity(4)), 0)
	defer p.Close()
	ctx := context.Background()

	s, err := idiom.New[reading](p, idiom.Config{
		Stream:    "temps",
		Overrides: []qos.Policy{qos.Reliability{Kind: qos.Reliable}.WithMaxBlockingTime(qos.Millis(5))},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// A reader nobody drains fills up and blocks the writer.
	if _, err := s.Reader(ctx); err != nil {
		t.Fatalf("Reader: %v", err)
	}
	batch := make([]reading, 64)
	n, err := s.WriteAll(ctx, batch)
	if !errors.Is(err, idiom.ErrWriteTimeout) {
		t.Fatalf("got %v, want ErrWriteTimeout", err)
	}
	if n == 0 || n >= len(batch) || s.Stats().Written != uint32(n) {
		t.Fatalf("written %d, stats %d", n, s.Stats().Written)
	}
}

func TestLoopbackClose(t *testing.T) {
	skipRace(t)
	p := idiom.NewParticipant(loopback.New(), 0)
	ctx := context.Background()
	s, err := idiom.New[reading](p, idiom.Config{Stream: "temps"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Write(ctx, reading{"a", 1}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Write(ctx, reading{"b", 2}); err == nil {
		t.Fatalf("write after Close succeeded")
	}
	other, _ := idiom.New[reading](p, idiom.Config{Stream: "other"})
	if _, err := other.Take(ctx); !errors.Is(err, idiom.ErrClosed) {
		t.Fatalf("new session after Close: %v", err)
	}
}
