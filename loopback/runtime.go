// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package loopback is an in-process [entity.Runtime].
//
// Participants of one [Runtime] that join the same domain share topics by
// name. Each reader owns a bounded lock-free inbox
// ([code.hybscloud.com/lfq.SPSC]); writers are its producers and the
// reader drains it into its history on Take, Read and data-available
// callbacks. A full inbox returns [code.hybscloud.com/iox.ErrWouldBlock]:
// reliable writers back off until their max blocking time, best-effort
// writers drop the sample.
//
// Topics written by a non-volatile writer retain the writer's last
// History.Depth samples for readers that join later with non-volatile
// durability.
package loopback

import (
	"context"
	"log/slog"
	"sync"

	"code.hybscloud.com/atomix"

	"code.hybscloud.com/idiom/entity"
)

// DefaultQueueCapacity is the reader inbox capacity.
const DefaultQueueCapacity = 64

// maxRetained bounds the samples a KeepAll writer leaves on a topic.
const maxRetained = 1024

type options struct {
	capacity int
	log      *slog.Logger
}

// Option configures a Runtime.
type Option func(*options)

// WithQueueCapacity sets the reader inbox capacity. Values below 1 keep
// the default.
func WithQueueCapacity(n int) Option {
	return func(o *options) {
		if n >= 1 {
			o.capacity = n
		}
	}
}

// WithLogger sets the runtime logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// Runtime holds the domains of one in-process bus.
type Runtime struct {
	opts    options
	mu      sync.Mutex
	domains map[int]*domain

	participants counts
	topics       counts
	readers      counts
	writers      counts
	dropped      atomix.Uint32
}

// New returns an empty runtime.
func New(opts ...Option) *Runtime {
	o := options{capacity: DefaultQueueCapacity, log: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}
	return &Runtime{opts: o, domains: map[int]*domain{}}
}

// CreateParticipant joins domain.
func (rt *Runtime) CreateParticipant(ctx context.Context, domainID int) (entity.Factory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rt.mu.Lock()
	d, ok := rt.domains[domainID]
	if !ok {
		d = &domain{id: domainID, topics: map[string]*topicState{}}
		rt.domains[domainID] = d
	}
	rt.mu.Unlock()

	f := newFactory(rt, d)
	rt.participants.created.Add(1)
	rt.opts.log.Info("participant created", "domain", domainID, "serial", f.serial)
	return f, nil
}

// Counts are the created and disposed totals of one entity kind.
type Counts struct {
	Created  uint32
	Disposed uint32
}

// Live returns the entities not yet disposed.
func (c Counts) Live() uint32 { return c.Created - c.Disposed }

// Stats reports entity lifecycle totals and dropped samples.
type Stats struct {
	Participants Counts
	Topics       Counts
	Readers      Counts
	Writers      Counts
	// Dropped counts samples a best-effort writer could not deliver.
	Dropped uint32
}

// Stats returns a snapshot of the runtime counters.
func (rt *Runtime) Stats() Stats {
	return Stats{
		Participants: rt.participants.load(),
		Topics:       rt.topics.load(),
		Readers:      rt.readers.load(),
		Writers:      rt.writers.load(),
		Dropped:      rt.dropped.Load(),
	}
}

type counts struct {
	created  atomix.Uint32
	disposed atomix.Uint32
}

func (c *counts) load() Counts {
	return Counts{Created: c.created.Load(), Disposed: c.disposed.Load()}
}

// domain is the set of topics shared by participants of one domain id.
type domain struct {
	id     int
	mu     sync.Mutex
	topics map[string]*topicState
}
