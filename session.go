// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package idiom

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"

	"code.hybscloud.com/atomix"

	"code.hybscloud.com/idiom/entity"
	"code.hybscloud.com/idiom/qos"
)

// Config fixes the stream a Session manages.
type Config struct {
	// Stream is the topic name. Required.
	Stream string
	// TypeName is the registered sample type. Empty uses the Go type
	// name of the session's value type.
	TypeName string
	// Profile selects the policy derivation.
	Profile qos.Profile
	// Durability is passed to the derivation. Ignored by ProfileSoft.
	Durability qos.DurabilityKind
	// History is the KeepLast depth. Zero means 1. Ignored by
	// ProfileEvent.
	History uint32
	// Overrides replace or extend the derived reader and writer policies.
	Overrides []qos.Policy
}

// Validate reports whether c can derive a policy table.
func (c Config) Validate() error {
	if c.Stream == "" {
		return fmt.Errorf("%w: empty stream name", ErrInvalidConfig)
	}
	if c.Profile > qos.ProfileEvent {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, c.Profile)
	}
	if c.Durability > qos.Persistent {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, c.Durability)
	}
	if _, err := qos.Encode(c.Overrides); err != nil {
		return fmt.Errorf("%w: overrides: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Sample is a decoded value with its delivery metadata.
type Sample[T any] struct {
	Value T
	Info  entity.SampleInfo
}

// Option configures a Session.
type Option[T any] func(*Session[T])

// WithCodec replaces the default CBOR payload codec.
func WithCodec[T any](c Codec[T]) Option[T] {
	return func(s *Session[T]) {
		if c != nil {
			s.codec = c
		}
	}
}

// Stats counts session activity.
type Stats struct {
	TopicRaces  uint32
	ReaderRaces uint32
	WriterRaces uint32
	Written     uint32
	Taken       uint32
	Delivered   uint32
}

// Session owns the topic, reader and writer of one stream. Each entity
// is created on first use and kept for the life of the participant;
// concurrent first uses create it once.
type Session[T any] struct {
	p     *Participant
	cfg   Config
	table qos.Table
	codec Codec[T]
	log   *slog.Logger

	topic    Slot[entity.Topic]
	reader   Slot[entity.Reader]
	writer   Slot[entity.Writer]
	handlers atomic.Pointer[[]func(Sample[T])]

	listenMu  sync.Mutex
	listening atomix.Uint32

	topicRaces  atomix.Uint32
	readerRaces atomix.Uint32
	writerRaces atomix.Uint32
	written     atomix.Uint32
	taken       atomix.Uint32
	delivered   atomix.Uint32
}

// New returns a session for cfg on p. No entity is created until first
// use.
func New[T any](p *Participant, cfg Config, opts ...Option[T]) (*Session[T], error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil participant", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.TypeName == "" {
		cfg.TypeName = reflect.TypeFor[T]().String()
	}
	if cfg.History == 0 {
		cfg.History = 1
	}
	table := cfg.Profile.Derive(cfg.Durability, cfg.History)
	if len(cfg.Overrides) > 0 {
		table.Reader = table.Reader.With(cfg.Overrides...)
		table.Writer = table.Writer.With(cfg.Overrides...)
	}
	s := &Session[T]{
		p:     p,
		cfg:   cfg,
		table: table,
		codec: CBOR[T]{},
		log: p.log.With(
			"stream", cfg.Stream,
			"type", cfg.TypeName,
			"profile", cfg.Profile.String(),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Config returns the session configuration with defaults applied.
func (s *Session[T]) Config() Config { return s.cfg }

// Qos returns the derived policy table.
func (s *Session[T]) Qos() qos.Table { return s.table }

// Stats returns a snapshot of the session counters.
func (s *Session[T]) Stats() Stats {
	return Stats{
		TopicRaces:  s.topicRaces.Load(),
		ReaderRaces: s.readerRaces.Load(),
		WriterRaces: s.writerRaces.Load(),
		Written:     s.written.Load(),
		Taken:       s.taken.Load(),
		Delivered:   s.delivered.Load(),
	}
}

// Topic returns the stream's topic, creating it on first call.
func (s *Session[T]) Topic(ctx context.Context) (entity.Topic, error) {
	if t, ok := s.topic.Load(); ok {
		return t, nil
	}
	f, err := s.p.Factory(ctx)
	if err != nil {
		return nil, err
	}
	return s.topic.Ensure(func() (entity.Topic, error) {
		t, err := f.CreateTopic(ctx, s.cfg.Stream, s.cfg.TypeName, s.table.Topic)
		if err != nil {
			return nil, fmt.Errorf("idiom: create topic %q: %w", s.cfg.Stream, err)
		}
		return t, nil
	}, discard[entity.Topic](s.log, "topic", &s.topicRaces))
}

// Reader returns the stream's reader, creating it and its topic on
// first call.
func (s *Session[T]) Reader(ctx context.Context) (entity.Reader, error) {
	if r, ok := s.reader.Load(); ok {
		return r, nil
	}
	t, err := s.Topic(ctx)
	if err != nil {
		return nil, err
	}
	f, err := s.p.Factory(ctx)
	if err != nil {
		return nil, err
	}
	return s.reader.Ensure(func() (entity.Reader, error) {
		r, err := f.CreateReader(ctx, t, s.table.Reader)
		if err != nil {
			return nil, fmt.Errorf("idiom: create reader %q: %w", s.cfg.Stream, err)
		}
		return r, nil
	}, discard[entity.Reader](s.log, "reader", &s.readerRaces))
}

// Writer returns the stream's writer, creating it and its topic on
// first call.
func (s *Session[T]) Writer(ctx context.Context) (entity.Writer, error) {
	if w, ok := s.writer.Load(); ok {
		return w, nil
	}
	t, err := s.Topic(ctx)
	if err != nil {
		return nil, err
	}
	f, err := s.p.Factory(ctx)
	if err != nil {
		return nil, err
	}
	return s.writer.Ensure(func() (entity.Writer, error) {
		w, err := f.CreateWriter(ctx, t, s.table.Writer)
		if err != nil {
			return nil, fmt.Errorf("idiom: create writer %q: %w", s.cfg.Stream, err)
		}
		return w, nil
	}, discard[entity.Writer](s.log, "writer", &s.writerRaces))
}

// discard releases a candidate entity that lost its slot.
func discard[E entity.Entity](log *slog.Logger, kind string, races *atomix.Uint32) func(E) {
	return func(e E) {
		races.Add(1)
		log.Debug("candidate discarded", "entity", kind, "guid", e.GUID(), "err", errCreationRace)
		if err := e.Dispose(); err != nil {
			log.Warn("dispose candidate", "entity", kind, "guid", e.GUID(), "err", err)
		}
	}
}

// Take removes and returns every available sample of alive instances,
// regardless of read or view state, in delivery order.
func (s *Session[T]) Take(ctx context.Context) ([]T, error) {
	samples, err := s.TakeSamples(ctx)
	values := make([]T, len(samples))
	for i, smp := range samples {
		values[i] = smp.Value
	}
	return values, err
}

// TakeSamples is Take with delivery metadata. Samples whose payload does
// not decode are dropped from the result and reported in err.
func (s *Session[T]) TakeSamples(ctx context.Context) ([]Sample[T], error) {
	r, err := s.Reader(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := r.Take(entity.AllData)
	if err != nil {
		return nil, fmt.Errorf("idiom: take %q: %w", s.cfg.Stream, err)
	}
	out := make([]Sample[T], 0, len(raw))
	var errs []error
	for _, smp := range raw {
		v, err := s.codec.Unmarshal(smp.Data)
		if err != nil {
			errs = append(errs, fmt.Errorf("idiom: decode sample %d: %w", smp.Info.Sequence, err))
			continue
		}
		out = append(out, Sample[T]{Value: v, Info: smp.Info})
	}
	s.taken.Add(uint32(len(out)))
	return out, errors.Join(errs...)
}

// Write publishes v. A write that blocks past the writer's max blocking
// time fails with ErrWriteTimeout.
func (s *Session[T]) Write(ctx context.Context, v T) error {
	w, err := s.Writer(ctx)
	if err != nil {
		return err
	}
	return s.write(ctx, w, v)
}

func (s *Session[T]) write(ctx context.Context, w entity.Writer, v T) error {
	data, err := s.codec.Marshal(v)
	if err != nil {
		return fmt.Errorf("idiom: encode sample: %w", err)
	}
	if err := w.Write(ctx, data); err != nil {
		if errors.Is(err, entity.ErrTimeout) {
			return fmt.Errorf("%w: %w", ErrWriteTimeout, err)
		}
		return err
	}
	s.written.Add(1)
	return nil
}
