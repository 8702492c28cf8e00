package reader

import "sync"

// Cell holds a single value that many readers can observe. Writes replace the
// value and notify every subscriber; subscribers only ever see the latest value.
type Cell[T any] struct {
	mu     sync.RWMutex
	value  T
	subs   map[int]chan T
	nextID int
}

// NewCell returns a cell holding initial.
func NewCell[T any](initial T) *Cell[T] {
	return &Cell[T]{value: initial, subs: make(map[int]chan T)}
}

// Get returns the current value.
func (c *Cell[T]) Get() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Set replaces the value and notifies subscribers.
func (c *Cell[T]) Set(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = v
	c.broadcast()
}

// Update atomically applies fn to the current value. The value is replaced
// only when fn reports a change; Update returns whether it did.
func (c *Cell[T]) Update(fn func(T) (T, bool)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	next, changed := fn(c.value)
	if !changed {
		return false
	}
	c.value = next
	c.broadcast()
	return true
}

// Subscribe returns a channel that receives the current value immediately and
// then every later value. Slow readers miss intermediate values, never the
// latest one. The returned func stops the subscription and closes the channel.
func (c *Cell[T]) Subscribe() (<-chan T, func()) {
	ch := make(chan T, 1)

	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = ch
	ch <- c.value
	c.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			close(ch)
			c.mu.Unlock()
		})
	}
	return ch, cancel
}

// broadcast must be called with mu held for writing.
func (c *Cell[T]) broadcast() {
	for _, ch := range c.subs {
		select {
		case <-ch:
		default:
		}
		ch <- c.value
	}
}
