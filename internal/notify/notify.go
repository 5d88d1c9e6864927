// Package notify holds the transient user-facing notification.
package notify

import (
	"sync"
	"time"
)

// Kinds.
const (
	KindSuccess = "success"
	KindError   = "error"
	KindInfo    = "info"
)

// DefaultDisplayInterval is how long a toast stays visible.
const DefaultDisplayInterval = 3 * time.Second

// Toast is one notification.
type Toast struct {
	ID      uint64    `json:"id"`
	Kind    string    `json:"kind"`
	Message string    `json:"message"`
	Shown   time.Time `json:"shown"`
}

// Sink receives toast and dismissal events.
type Sink func(eventType string, data any)

// Event types passed to the Sink.
const (
	EventToast     = "toast"
	EventDismissed = "toast.dismissed"
)

// Center keeps the current toast and dismisses it after the display interval.
// Showing a new toast replaces the previous one.
type Center struct {
	mu       sync.Mutex
	interval time.Duration
	sink     Sink
	current  *Toast
	timer    *time.Timer
	seq      uint64
}

// NewCenter returns a Center. A nil sink discards events.
func NewCenter(interval time.Duration, sink Sink) *Center {
	if interval <= 0 {
		interval = DefaultDisplayInterval
	}
	if sink == nil {
		sink = func(string, any) {}
	}
	return &Center{interval: interval, sink: sink}
}

// Show displays message and returns the toast.
func (c *Center) Show(kind, message string) Toast {
	c.mu.Lock()
	c.seq++
	t := Toast{ID: c.seq, Kind: kind, Message: message, Shown: time.Now()}
	c.current = &t
	if c.timer != nil {
		c.timer.Stop()
	}
	id := t.ID
	c.timer = time.AfterFunc(c.interval, func() { c.dismiss(id) })
	c.mu.Unlock()

	c.sink(EventToast, t)
	return t
}

// Success shows a success toast.
func (c *Center) Success(message string) Toast { return c.Show(KindSuccess, message) }

// Error shows an error toast.
func (c *Center) Error(message string) Toast { return c.Show(KindError, message) }

// Info shows an informational toast.
func (c *Center) Info(message string) Toast { return c.Show(KindInfo, message) }

// Current returns the visible toast, if any.
func (c *Center) Current() (Toast, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return Toast{}, false
	}
	return *c.current, true
}

func (c *Center) dismiss(id uint64) {
	c.mu.Lock()
	if c.current == nil || c.current.ID != id {
		c.mu.Unlock()
		return
	}
	c.current = nil
	c.timer = nil
	c.mu.Unlock()

	c.sink(EventDismissed, map[string]uint64{"id": id})
}

// Close cancels a pending dismissal.
func (c *Center) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
