// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package idiom

import (
	"context"
	"fmt"
	"log/slog"

	"code.hybscloud.com/atomix"

	"code.hybscloud.com/idiom/entity"
)

// Participant is the explicit context shared by the sessions of one
// domain. It owns the entity factory, created on first use.
type Participant struct {
	rt       entity.Runtime
	domain   int
	log      *slog.Logger
	factory  Slot[entity.Factory]
	closed   atomix.Uint32
	released atomix.Uint32
	races    atomix.Uint32
}

// ParticipantOption configures a Participant.
type ParticipantOption func(*Participant)

// WithLogger sets the logger of the participant and its sessions.
func WithLogger(l *slog.Logger) ParticipantOption {
	return func(p *Participant) {
		if l != nil {
			p.log = l
		}
	}
}

// NewParticipant returns a participant joining domain on rt. No
// transport resources are acquired until Factory is called.
func NewParticipant(rt entity.Runtime, domain int, opts ...ParticipantOption) *Participant {
	p := &Participant{
		rt:     rt,
		domain: domain,
		log:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.With("domain", domain)
	return p
}

// Domain returns the domain number.
func (p *Participant) Domain() int { return p.domain }

// Factory returns the entity factory, creating it on first call. Under
// concurrent first calls one factory is kept and the others are disposed.
// A factory that finishes creation after Close is disposed at once.
func (p *Participant) Factory(ctx context.Context) (entity.Factory, error) {
	if p.closed.Load() != 0 {
		return nil, ErrClosed
	}
	f, err := p.factory.Ensure(func() (entity.Factory, error) {
		f, err := p.rt.CreateParticipant(ctx, p.domain)
		if err != nil {
			return nil, fmt.Errorf("idiom: create participant: %w", err)
		}
		return f, nil
	}, func(f entity.Factory) {
		p.races.Add(1)
		p.log.Debug("participant candidate discarded", "err", errCreationRace)
		if err := f.Dispose(); err != nil {
			p.log.Warn("dispose participant candidate", "err", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if p.closed.Load() != 0 {
		if err := p.release(f); err != nil {
			p.log.Warn("dispose participant created during close", "err", err)
		}
		return nil, ErrClosed
	}
	return f, nil
}

// release disposes the installed factory once, whichever of Close and
// Factory gets there first.
func (p *Participant) release(f entity.Factory) error {
	if p.released.Add(1) != 1 {
		return nil
	}
	return f.Dispose()
}

// Close disposes the factory and every entity created through it.
// Sessions of a closed participant fail with ErrClosed until their
// entities exist; entities already created report entity.ErrDisposed.
func (p *Participant) Close() error {
	if p.closed.Add(1) != 1 {
		return nil
	}
	f, ok := p.factory.Load()
	if !ok {
		return nil
	}
	if err := p.release(f); err != nil {
		return fmt.Errorf("idiom: dispose participant: %w", err)
	}
	p.log.Info("participant closed")
	return nil
}

// Races returns how many participant candidates lost their creation race.
func (p *Participant) Races() uint32 { return p.races.Load() }
