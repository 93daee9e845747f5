// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package entity

import (
	"context"
	"fmt"

	"code.hybscloud.com/idiom/qos"
)

// HistoryOf returns the History policy of q, or KeepLast(1).
func HistoryOf(q qos.Set) qos.History {
	if h, ok := qos.Lookup[qos.History](q); ok {
		return h
	}
	return qos.History{Kind: qos.KeepLast, Depth: 1}
}

// DurabilityOf returns the durability kind of q, or Volatile.
func DurabilityOf(q qos.Set) qos.DurabilityKind {
	if d, ok := qos.Lookup[qos.Durability](q); ok {
		return d.Kind
	}
	return qos.Volatile
}

// IsReliable reports whether q asks for reliable delivery. Sets without
// a Reliability policy are best effort.
func IsReliable(q qos.Set) bool {
	r, ok := qos.Lookup[qos.Reliability](q)
	return ok && r.Kind == qos.Reliable
}

// MaxBlockingTime returns how long a write under q may wait for the
// transport. Reliable writers use their explicit max blocking time or
// qos.DefaultMaxBlockingTime; best-effort writers never wait.
func MaxBlockingTime(q qos.Set) qos.Duration {
	r, ok := qos.Lookup[qos.Reliability](q)
	if !ok || r.Kind != qos.Reliable {
		return qos.Zero()
	}
	if r.MaxBlockingTime != nil {
		return *r.MaxBlockingTime
	}
	return qos.DefaultMaxBlockingTime
}

// WithMaxBlocking derives a context that expires after d. Zero yields an
// already-expired context; Infinite only inherits ctx's deadline.
func WithMaxBlocking(ctx context.Context, d qos.Duration) (context.Context, context.CancelFunc) {
	std, ok := d.Std()
	if !ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, std)
}

// Blocked maps the failure of a wait bounded by WithMaxBlocking. A
// cancelled or expired parent ctx wins; otherwise the max blocking time
// ran out and the result wraps ErrTimeout.
func Blocked(ctx context.Context, d qos.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fmt.Errorf("%w after %v", ErrTimeout, d)
}
