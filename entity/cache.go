// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package entity

import (
	"sync"

	"code.hybscloud.com/idiom/qos"
)

// Cache is the sample history of one reader. Topics are keyless, so the
// cache tracks a single instance.
//
// KeepLast evicts the oldest sample once depth samples are held; KeepAll
// rejects samples beyond the reader's ResourceLimits.MaxSamples, when set.
type Cache struct {
	mu       sync.Mutex
	keepAll  bool
	depth    int
	limit    int
	samples  []Sample
	instance InstanceState
	viewed   bool
}

// NewCache returns an empty cache sized by the History and ResourceLimits
// policies of q.
func NewCache(q qos.Set) *Cache {
	h := HistoryOf(q)
	c := &Cache{instance: Alive, keepAll: h.Kind == qos.KeepAll, depth: int(h.Depth)}
	if c.depth < 1 {
		c.depth = 1
	}
	if rl, ok := qos.Lookup[qos.ResourceLimits](q); ok && rl.MaxSamples > 0 {
		c.limit = int(rl.MaxSamples)
	}
	return c
}

// Add appends s as an unread sample. It reports false when a KeepAll
// cache is full and the sample was not stored. A sample arriving on a
// not-alive instance revives it as a new view.
func (c *Cache) Add(s Sample) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.keepAll {
		if c.limit > 0 && len(c.samples) >= c.limit {
			return false
		}
	} else if len(c.samples) >= c.depth {
		n := copy(c.samples, c.samples[len(c.samples)-c.depth+1:])
		clear(c.samples[n:])
		c.samples = c.samples[:n]
	}
	if c.instance != Alive {
		c.instance = Alive
		c.viewed = false
	}
	s.Info.SampleState = NotRead
	c.samples = append(c.samples, s)
	return true
}

// Read returns the samples matching ds, in arrival order, and marks them
// read.
func (c *Cache) Read(ds DataState) []Sample {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Sample
	for i := range c.samples {
		s := c.view(c.samples[i])
		if !ds.Matches(s.Info) {
			continue
		}
		out = append(out, s)
		c.samples[i].Info.SampleState = Read
	}
	if len(out) > 0 {
		c.viewed = true
	}
	return out
}

// Take returns the samples matching ds, in arrival order, and removes
// them.
func (c *Cache) Take(ds DataState) []Sample {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Sample
	kept := c.samples[:0]
	for _, s := range c.samples {
		v := c.view(s)
		if ds.Matches(v.Info) {
			out = append(out, v)
			continue
		}
		kept = append(kept, s)
	}
	clear(c.samples[len(kept):])
	c.samples = kept
	if len(out) > 0 {
		c.viewed = true
	}
	return out
}

// SetInstanceState records a liveliness change of the instance.
func (c *Cache) SetInstanceState(st InstanceState) {
	c.mu.Lock()
	c.instance = st
	c.mu.Unlock()
}

// Len returns the number of samples held.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.samples)
}

func (c *Cache) view(s Sample) Sample {
	s.Info.InstanceState = c.instance
	if c.viewed {
		s.Info.ViewState = NotNewView
	} else {
		s.Info.ViewState = NewView
	}
	return s
}
