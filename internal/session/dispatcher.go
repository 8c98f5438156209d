package session

import (
	"sync"
	"sync/atomic"
)

type subscriber struct {
	fn     func(Snapshot)
	active atomic.Bool
}

type delivery struct {
	snap    Snapshot
	targets []*subscriber
}

// dispatcher delivers snapshots from one goroutine in enqueue order. The
// targets of a delivery are fixed when it is queued.
type dispatcher struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []delivery
	closed bool
	exited chan struct{}
}

func newDispatcher() *dispatcher {
	d := &dispatcher{exited: make(chan struct{})}
	d.cond = sync.NewCond(&d.mu)
	go d.run()
	return d
}

func (d *dispatcher) enqueue(snap Snapshot, targets []*subscriber) {
	if len(targets) == 0 {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.queue = append(d.queue, delivery{snap: snap, targets: targets})
	d.cond.Signal()
}

// close delivers what is queued and stops the goroutine
func (d *dispatcher) close() {
	d.mu.Lock()
	d.closed = true
	d.cond.Signal()
	d.mu.Unlock()
	<-d.exited
}

func (d *dispatcher) run() {
	defer close(d.exited)

	for {
		d.mu.Lock()
		for len(d.queue) == 0 && !d.closed {
			d.cond.Wait()
		}
		if len(d.queue) == 0 {
			d.mu.Unlock()
			return
		}
		next := d.queue[0]
		d.queue[0] = delivery{}
		d.queue = d.queue[1:]
		d.mu.Unlock()

		for _, sub := range next.targets {
			if sub.active.Load() {
				sub.fn(next.snap)
			}
		}
	}
}
