package lifecycle

import "sync"

// notifier fans state change events out to registered observers.
//
// Events are queued by publish (called while the service mutex is held, so
// the queue order is the transition order) and delivered by flush. Only one
// goroutine delivers at a time; others that call flush while a delivery is in
// progress return at once and leave their events to that goroutine. Observers
// therefore see events one at a time and in order, and may call back into the
// Service without deadlocking.
//
// A panicking observer is recovered and reported to recovered, if set, and
// delivery continues with the next observer.
type notifier struct {
	recovered func(event StateChangeEvent, r any)

	mu        sync.Mutex
	observers []subscription
	nextID    uint64
	queue     []StateChangeEvent
	flushing  bool
}

type subscription struct {
	id       uint64
	observer Observer
}

// subscribe adds o and returns a function that removes it again.
func (n *notifier) subscribe(o Observer) func() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	id := n.nextID
	n.observers = append(n.observers, subscription{id: id, observer: o})

	var once sync.Once
	return func() {
		once.Do(func() { n.unsubscribe(id) })
	}
}

func (n *notifier) unsubscribe(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for i, s := range n.observers {
		if s.id == id {
			// Copy so a delivery loop holding the old slice is unaffected.
			observers := make([]subscription, 0, len(n.observers)-1)
			observers = append(observers, n.observers[:i]...)
			n.observers = append(observers, n.observers[i+1:]...)
			return
		}
	}
}

// publish enqueues an event for delivery.
func (n *notifier) publish(event StateChangeEvent) {
	n.mu.Lock()
	n.queue = append(n.queue, event)
	n.mu.Unlock()
}

// flush delivers queued events unless another goroutine is already doing so.
func (n *notifier) flush() {
	n.mu.Lock()
	if n.flushing {
		n.mu.Unlock()
		return
	}
	n.flushing = true

	for len(n.queue) > 0 {
		event := n.queue[0]
		n.queue = n.queue[1:]
		observers := n.observers
		n.mu.Unlock()

		n.deliver(event, observers)

		n.mu.Lock()
	}

	n.queue = nil
	n.flushing = false
	n.mu.Unlock()
}

// deliver calls each observer in turn.
func (n *notifier) deliver(event StateChangeEvent, observers []subscription) {
	for _, s := range observers {
		n.call(s.observer, event)
	}
}

func (n *notifier) call(o Observer, event StateChangeEvent) {
	defer func() {
		if r := recover(); r != nil && n.recovered != nil {
			n.recovered(event, r)
		}
	}()
	o.OnStateChange(event)
}
