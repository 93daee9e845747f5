// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package loopback

import (
	"sync"

	"code.hybscloud.com/atomix"
	"github.com/google/uuid"

	"code.hybscloud.com/idiom/entity"
	"code.hybscloud.com/idiom/qos"
)

// topicState is the domain-wide state of one topic name, shared by the
// topic handles of every participant.
type topicState struct {
	name     string
	typeName string
	refs     int // guarded by domain.mu

	mu       sync.Mutex
	readers  []*reader
	writers  int
	retained []entity.Sample
}

func newTopicState(name, typeName string) *topicState {
	return &topicState{name: name, typeName: typeName}
}

// attach adds r as a destination and hands it the retained samples when
// it asks for non-volatile durability.
func (ts *topicState) attach(r *reader) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.readers = append(ts.readers, r)
	if entity.DurabilityOf(r.q) == qos.Volatile {
		return
	}
	for _, s := range ts.retained {
		r.cache.Add(s)
	}
}

func (ts *topicState) detach(r *reader) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	for i, x := range ts.readers {
		if x == r {
			ts.readers = append(ts.readers[:i], ts.readers[i+1:]...)
			return
		}
	}
}

// destinations returns the current readers.
func (ts *topicState) destinations() []*reader {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return append([]*reader(nil), ts.readers...)
}

// retain keeps s for late joiners, bounded by limit.
func (ts *topicState) retain(s entity.Sample, limit int) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if len(ts.retained) >= limit {
		n := copy(ts.retained, ts.retained[len(ts.retained)-limit+1:])
		clear(ts.retained[n:])
		ts.retained = ts.retained[:n]
	}
	ts.retained = append(ts.retained, s)
}

func (ts *topicState) writerJoined() {
	ts.mu.Lock()
	ts.writers++
	ts.mu.Unlock()
}

// writerLeft marks the instance not alive in every reader once no
// writer remains.
func (ts *topicState) writerLeft() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.writers--
	if ts.writers > 0 {
		return
	}
	for _, r := range ts.readers {
		r.cache.SetInstanceState(entity.NotAliveNoWriters)
	}
}

// topic is one participant's handle on a topicState.
type topic struct {
	guid     uuid.UUID
	serial   Serial
	f        *factory
	state    *topicState
	q        qos.Set
	disposed atomix.Uint32
}

func (t *topic) GUID() uuid.UUID  { return t.guid }
func (t *topic) Serial() Serial   { return t.serial }
func (t *topic) Name() string     { return t.state.name }
func (t *topic) TypeName() string { return t.state.typeName }
func (t *topic) Qos() qos.Set     { return t.q }

// Dispose releases the handle. The topic name is freed, and its retained
// samples dropped, once every participant has disposed its handle.
func (t *topic) Dispose() error {
	if t.disposed.Add(1) != 1 {
		return nil
	}
	t.unref()
	t.f.release(t)
	t.f.rt.topics.disposed.Add(1)
	return nil
}

func (t *topic) unref() {
	d := t.f.d
	d.mu.Lock()
	defer d.mu.Unlock()
	t.state.refs--
	if t.state.refs == 0 && d.topics[t.state.name] == t.state {
		delete(d.topics, t.state.name)
	}
}
