// Package healthcounter implements the per-address 0..5 health counter
// encoding short-term probe agreement for a registered host. It is
// deliberately independent of internal/heartbeat's last-update
// timestamp — the two signals must never be collapsed into one.
package healthcounter

import (
	"context"
	"fmt"

	"github.com/ilofleet/sentinel/internal/kvstore"
)

const (
	// Max is the upper bound of the counter.
	Max = 5
	// initial is the value set on registration.
	initial = 5
)

func key(addr string) string { return fmt.Sprintf("%s-health", addr) }

// Counter reads and writes the health counter for registered addresses
// through a kvstore.Store, clamped to [0, Max].
type Counter struct {
	store kvstore.Store
}

// New returns a Counter backed by store.
func New(store kvstore.Store) *Counter {
	return &Counter{store: store}
}

// Init sets addr's counter to its initial value of 5.
func (c *Counter) Init(ctx context.Context, addr string) error {
	return c.store.SetCounter(ctx, key(addr), initial)
}

// Read returns addr's current counter value. A store failure yields 0
// rather than propagating the error.
func (c *Counter) Read(ctx context.Context, addr string) int {
	value, err := c.store.GetCounter(ctx, key(addr))
	if err != nil {
		return 0
	}
	return clamp(value)
}

// RecordSuccess increments addr's counter, capped at Max.
func (c *Counter) RecordSuccess(ctx context.Context, addr string) (int, error) {
	return c.adjust(ctx, addr, 1)
}

// RecordFailure decrements addr's counter, floored at 0.
func (c *Counter) RecordFailure(ctx context.Context, addr string) (int, error) {
	return c.adjust(ctx, addr, -1)
}

func (c *Counter) adjust(ctx context.Context, addr string, delta int) (int, error) {
	current := c.Read(ctx, addr)
	next := clamp(current + delta)
	if err := c.store.SetCounter(ctx, key(addr), next); err != nil {
		return current, err
	}
	return next, nil
}

// Alive reports whether addr's counter is greater than zero.
func (c *Counter) Alive(ctx context.Context, addr string) bool {
	return c.Read(ctx, addr) > 0
}

// PublishAlive writes the "alive" boolean under the bare address key.
func (c *Counter) PublishAlive(ctx context.Context, addr string) error {
	return c.store.SetBool(ctx, addr, c.Alive(ctx, addr))
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > Max {
		return Max
	}
	return v
}
