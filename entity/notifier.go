// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package entity

import (
	"sync"
	"sync/atomic"
)

// Notifier runs a data-available callback on its own goroutine.
// Notifications that arrive while the callback runs coalesce into a
// single follow-up call.
type Notifier struct {
	fn      atomic.Pointer[func()]
	signal  chan struct{}
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

// NewNotifier starts the callback goroutine. Close stops it.
func NewNotifier() *Notifier {
	n := &Notifier{
		signal:  make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go n.run()
	return n
}

// Set installs fn, replacing the previous callback. nil removes it.
func (n *Notifier) Set(fn func()) {
	if fn == nil {
		n.fn.Store(nil)
		return
	}
	n.fn.Store(&fn)
}

// Notify schedules a callback. It never blocks.
func (n *Notifier) Notify() {
	select {
	case n.signal <- struct{}{}:
	default:
	}
}

// Close stops the goroutine and waits for an in-flight callback to
// return. Close must not be called from the callback itself.
func (n *Notifier) Close() {
	n.once.Do(func() { close(n.done) })
	<-n.stopped
}

func (n *Notifier) run() {
	defer close(n.stopped)
	for {
		select {
		case <-n.done:
			return
		case <-n.signal:
		}
		if fn := n.fn.Load(); fn != nil {
			(*fn)()
		}
	}
}
