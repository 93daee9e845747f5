// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package entity defines the boundary between sessions and a pub/sub
// transport: a [Runtime] yields a per-domain [Factory], which creates
// [Topic], [Reader] and [Writer] entities.
//
// The package also holds the pieces every transport shares: the reader
// history [Cache], the data-available [Notifier], and [MaxBlockingTime].
package entity

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"code.hybscloud.com/idiom/qos"
)

var (
	// ErrTimeout is returned by Writer.Write when the transport could not
	// accept the sample within the writer's max blocking time.
	ErrTimeout = errors.New("entity: max blocking time exceeded")

	// ErrDisposed is returned by operations on a disposed entity.
	ErrDisposed = errors.New("entity: disposed")

	// ErrInconsistentTopic is returned by CreateTopic when a topic of the
	// same name exists with a different type name.
	ErrInconsistentTopic = errors.New("entity: inconsistent topic")
)

// Runtime bootstraps participants on a transport.
type Runtime interface {
	CreateParticipant(ctx context.Context, domain int) (Factory, error)
}

// Factory creates entities within one domain participant. Disposing the
// factory disposes every entity it created.
type Factory interface {
	CreateTopic(ctx context.Context, name, typeName string, q qos.Set) (Topic, error)
	CreateReader(ctx context.Context, t Topic, q qos.Set) (Reader, error)
	CreateWriter(ctx context.Context, t Topic, q qos.Set) (Writer, error)
	Dispose() error
}

// Entity is a created transport object with its own lifecycle.
type Entity interface {
	GUID() uuid.UUID
	Dispose() error
}

// Topic is a named, typed stream.
type Topic interface {
	Entity
	Name() string
	TypeName() string
	Qos() qos.Set
}

// Reader receives samples published on a topic.
type Reader interface {
	Entity
	Topic() Topic
	Qos() qos.Set

	// Take returns the samples matching ds and removes them from the
	// reader history.
	Take(ds DataState) ([]Sample, error)

	// Read returns the samples matching ds and marks them read.
	Read(ds DataState) ([]Sample, error)

	// SetListener installs fn as the data-available callback, replacing
	// any previous one. fn runs on a goroutine owned by the transport;
	// nil removes the callback.
	SetListener(fn func(Reader)) error
}

// Writer publishes samples on a topic.
type Writer interface {
	Entity
	Topic() Topic
	Qos() qos.Set

	// Write publishes data. A reliable writer may block up to its max
	// blocking time and then fails with ErrTimeout.
	Write(ctx context.Context, data []byte) error
}
