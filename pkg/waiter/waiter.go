package waiter

import (
	"sync"
)

// Latch is a one-shot event carrying a value. The value is stored before
// the event fires, so any waiter that wakes observes it.
type Latch[T any] struct {
	once sync.Once
	mu   sync.Mutex
	done chan struct{}

	fired bool
	value T
}

func (l *Latch[T]) init() {
	l.once.Do(func() {
		l.done = make(chan struct{})
	})
}

// Fire sets the value and wakes all waiters. Only the first call has any
// effect; later calls return false.
func (l *Latch[T]) Fire(v T) bool {
	l.init()

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fired {
		return false
	}

	l.value = v
	l.fired = true

	close(l.done)

	return true
}

// Wait blocks until the latch fires and returns its value.
func (l *Latch[T]) Wait() T {
	l.init()

	<-l.done

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.value
}

// Done returns a channel closed once the latch has fired.
func (l *Latch[T]) Done() <-chan struct{} {
	l.init()
	return l.done
}

// Peek returns the value and true if the latch has already fired.
func (l *Latch[T]) Peek() (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.value, l.fired
}
