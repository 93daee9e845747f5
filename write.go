// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package idiom

import (
	"context"
	"errors"
	"fmt"

	"code.hybscloud.com/kont"

	"code.hybscloud.com/idiom/entity"
)

// publish is the effect of writing one batch element.
// Perform(publish[T]{Index: i, Value: v}) resumes once v is accepted.
type publish[T any] struct {
	kont.Phantom[struct{}]
	Index int
	Value T
}

// publishHandler runs publish effects against one writer. A failed write
// aborts the protocol with Left, so later elements are never performed.
type publishHandler[T any] struct {
	ctx context.Context
	s   *Session[T]
	w   entity.Writer
}

// Dispatch implements kont.Handler.
func (h publishHandler[T]) Dispatch(op kont.Operation) (kont.Resumed, bool) {
	p, ok := op.(publish[T])
	if !ok {
		panic("idiom: unhandled effect in publishHandler")
	}
	if err := h.s.write(h.ctx, h.w, p.Value); err != nil {
		return kont.Left[error, int](&BatchError{Index: p.Index, Err: err}), false
	}
	return struct{}{}, true
}

// loop runs step from initial until it yields Right.
func loop[S, A any](initial S, step func(S) kont.Eff[kont.Either[S, A]]) kont.Eff[A] {
	return kont.Bind(step(initial), func(e kont.Either[S, A]) kont.Eff[A] {
		if left, ok := e.GetLeft(); ok {
			return loop(left, step)
		}
		right, _ := e.GetRight()
		return kont.Pure(right)
	})
}

// writeLoop performs one publish per value, in order, and returns the
// number of values published.
func writeLoop[T any](values []T) kont.Eff[int] {
	return loop(0, func(i int) kont.Eff[kont.Either[int, int]] {
		if i == len(values) {
			return kont.Pure(kont.Right[int, int](i))
		}
		return kont.Then(
			kont.Perform(publish[T]{Index: i, Value: values[i]}),
			kont.Pure(kont.Left[int, int](i+1)),
		)
	})
}

// BatchError reports the element at which WriteAll stopped. Index is
// also the number of elements written before it.
type BatchError struct {
	Index int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("idiom: write element %d: %v", e.Index, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// WriteAll publishes values in order and stops at the first failure,
// which it returns as a *BatchError together with the number of values
// written. A timeout matches ErrWriteTimeout; no element after the
// failing one is attempted.
func (s *Session[T]) WriteAll(ctx context.Context, values []T) (int, error) {
	w, err := s.Writer(ctx)
	if err != nil {
		return 0, err
	}
	protocol := kont.Map[kont.Resumed, int, kont.Either[error, int]](writeLoop(values), func(n int) kont.Either[error, int] {
		return kont.Right[error, int](n)
	})
	result := kont.Handle(protocol, publishHandler[T]{ctx: ctx, s: s, w: w})
	if err, ok := result.GetLeft(); ok {
		var be *BatchError
		if errors.As(err, &be) {
			return be.Index, err
		}
		return 0, err
	}
	n, _ := result.GetRight()
	return n, nil
}
