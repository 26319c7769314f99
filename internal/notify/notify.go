// Package notify is the transient success/error message channel shared by the
// session store, the resource controllers and the console views.
package notify

import (
	"sync"
	"time"
)

// Severity of a notification.
type Severity int

const (
	// Info reports a completed action.
	Info Severity = iota
	// Error reports a failed action.
	Error
)

// String returns the lower-case severity name.
func (s Severity) String() string {
	if s == Error {
		return "error"
	}
	return "info"
}

// Notification is a fire-and-forget message for the operator.
type Notification struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Severity    Severity  `json:"severity"`
	At          time.Time `json:"at"`
}

// Notifier is what producers depend on.
type Notifier interface {
	Notify(n Notification)
}

// DefaultCapacity bounds the pending queue.
const DefaultCapacity = 32

// Channel queues notifications until they are drained and fans them out to
// subscribers as they arrive. When the queue is full the oldest entry is dropped.
type Channel struct {
	mu       sync.Mutex
	queue    []Notification
	capacity int
	subs     map[int]func(Notification)
	nextSub  int
	now      func() time.Time
}

// NewChannel creates a channel holding at most capacity pending entries.
func NewChannel(capacity int) *Channel {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Channel{
		capacity: capacity,
		subs:     make(map[int]func(Notification)),
		now:      time.Now,
	}
}

// Notify enqueues n and delivers it to subscribers.
func (c *Channel) Notify(n Notification) {
	c.mu.Lock()
	if n.At.IsZero() {
		n.At = c.now()
	}
	if len(c.queue) == c.capacity {
		c.queue = c.queue[1:]
	}
	c.queue = append(c.queue, n)
	subs := make([]func(Notification), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(n)
	}
}

// Info enqueues an informational notification.
func (c *Channel) Info(title, description string) {
	c.Notify(Notification{Title: title, Description: description, Severity: Info})
}

// Error enqueues an error notification.
func (c *Channel) Error(title, description string) {
	c.Notify(Notification{Title: title, Description: description, Severity: Error})
}

// Drain returns and clears every pending notification, oldest first.
func (c *Channel) Drain() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.queue
	c.queue = nil
	return out
}

// Pending returns the number of undrained notifications.
func (c *Channel) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Subscribe registers fn for every future notification. The returned
// function removes the subscription.
func (c *Channel) Subscribe(fn func(Notification)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// Discard is a Notifier that drops everything.
type Discard struct{}

// Notify implements Notifier.
func (Discard) Notify(Notification) {}

var (
	_ Notifier = (*Channel)(nil)
	_ Notifier = Discard{}
)
