// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package idiom

import "errors"

var (
	// ErrWriteTimeout is returned when a write blocks past the writer's
	// max blocking time. It wraps the transport's entity.ErrTimeout.
	ErrWriteTimeout = errors.New("idiom: write timeout")

	// ErrInvalidConfig is returned by New for an unusable Config.
	ErrInvalidConfig = errors.New("idiom: invalid session config")

	// ErrClosed is returned by Participant.Factory after Close.
	ErrClosed = errors.New("idiom: participant closed")
)

// errCreationRace marks a candidate entity that lost its slot to a
// concurrent creator. It is logged, never returned.
var errCreationRace = errors.New("idiom: creation race lost")
