// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package idiom provides lazily created pub/sub sessions over an
// [code.hybscloud.com/idiom/entity.Runtime].
//
// A [Session] owns the topic, reader and writer of one named, typed
// stream. Each entity is created on first use through the participant's
// factory, with policies derived by a [code.hybscloud.com/idiom/qos.Profile].
//
// # Architecture
//
//   - Context: a [Participant] is passed to every session; it creates the
//     entity factory once and disposes it on [Participant.Close].
//   - Creation: every entity lives in a [Slot]. Concurrent first uses may
//     each build a candidate; one is installed and the others are disposed.
//   - Retrieval: [Session.Take] drains all alive samples; [Session.Observe]
//     fans newly available samples out to handlers in registration order.
//   - Publication: [Session.Write] publishes one value. [Session.WriteAll]
//     runs a batch as a [code.hybscloud.com/kont] effect protocol that
//     stops at the first failure and returns it as a [*BatchError].
//
// # Example
//
//	p := idiom.NewParticipant(loopback.New(), 0)
//	defer p.Close()
//	s, _ := idiom.New[Reading](p, idiom.Config{
//		Stream:     "sensors",
//		Profile:    qos.ProfileState,
//		Durability: qos.TransientLocal,
//		History:    8,
//	})
//	_ = s.Write(ctx, Reading{ID: "t1", Celsius: 21.5})
//	readings, _ := s.Take(ctx)
package idiom
