// Package updater implements two independent update cadences: the
// unauthenticated updater (default 15s) and the authenticated updater
// (default 5s). Both drain their registry snapshot onto a bounded
// work-stealing pool built on golang.org/x/sync/errgroup's SetLimit.
// errgroup is preferred over a raw semaphore here because a failure
// updating one host must never abort the tick for the others, and
// errgroup.Group with SetLimit gives fire-and-log, no-first-error-abort
// semantics for free.
package updater

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ilofleet/sentinel/internal/client"
	"github.com/ilofleet/sentinel/internal/heartbeat"
	"github.com/ilofleet/sentinel/internal/queue"
)

// RegisteredChecker reports whether an address is still registered.
// internal/clientset.RegistrationSet satisfies this.
type RegisteredChecker interface {
	IsRegistered(addr string) bool
}

// Config configures an updater's cadence and pool size.
type Config struct {
	InitialDelay time.Duration
	Interval     time.Duration
	Concurrency  int
}

// DefaultUnauthConfig returns the unauthenticated updater's default
// cadence (15s).
func DefaultUnauthConfig() Config {
	return Config{InitialDelay: 15 * time.Second, Interval: 15 * time.Second, Concurrency: 16}
}

// DefaultAuthConfig returns the authenticated updater's default
// cadence (5s).
func DefaultAuthConfig() Config {
	return Config{InitialDelay: 5 * time.Second, Interval: 5 * time.Second, Concurrency: 16}
}

// overlapGuard tracks which entries currently have an update in flight so
// that updates for the same entry never overlap — a tick skips an entry
// whose previous update has not finished.
type overlapGuard struct {
	mu   sync.Mutex
	busy map[string]bool
}

func newOverlapGuard() *overlapGuard {
	return &overlapGuard{busy: make(map[string]bool)}
}

func (g *overlapGuard) tryAcquire(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.busy[key] {
		return false
	}
	g.busy[key] = true
	return true
}

func (g *overlapGuard) release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.busy, key)
}

func runLoop(ctx context.Context, cfg Config, stopCh <-chan struct{}, tick func(context.Context)) {
	select {
	case <-time.After(cfg.InitialDelay):
		tick(ctx)
	case <-stopCh:
		return
	case <-ctx.Done():
		return
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			tick(ctx)
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// UnauthUpdater refreshes every registered controller's public snapshot.
type UnauthUpdater struct {
	registry   *client.Registry
	registered RegisteredChecker
	heartbeats *heartbeat.Map
	publisher  queue.Publisher
	cfg        Config
	logger     zerolog.Logger
	guard      *overlapGuard

	stopCh chan struct{}
	doneCh chan struct{}
	wg     sync.WaitGroup
}

// NewUnauthUpdater builds an UnauthUpdater.
func NewUnauthUpdater(registry *client.Registry, registered RegisteredChecker, heartbeats *heartbeat.Map, publisher queue.Publisher, cfg Config, logger zerolog.Logger) *UnauthUpdater {
	return &UnauthUpdater{
		registry:   registry,
		registered: registered,
		heartbeats: heartbeats,
		publisher:  publisher,
		cfg:        cfg,
		logger:     logger,
		guard:      newOverlapGuard(),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Start launches the cadence loop.
func (u *UnauthUpdater) Start(ctx context.Context) {
	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		runLoop(ctx, u.cfg, u.stopCh, u.tick)
	}()
}

// Stop signals the loop to exit and waits for it to finish.
func (u *UnauthUpdater) Stop() {
	close(u.stopCh)
	u.wg.Wait()
	close(u.doneCh)
}

// Done returns a channel closed once the loop has fully exited.
func (u *UnauthUpdater) Done() <-chan struct{} {
	return u.doneCh
}

func (u *UnauthUpdater) tick(ctx context.Context) {
	entries := u.registry.UnauthenticatedSnapshot()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.cfg.Concurrency)

	for _, c := range entries {
		c := c
		if !u.registered.IsRegistered(c.Address) {
			continue
		}
		if !c.CanUpdate() {
			continue
		}
		if !u.guard.tryAcquire(c.Address) {
			continue
		}
		g.Go(func() error {
			defer u.guard.release(c.Address)
			u.updateOne(gctx, c)
			return nil
		})
	}
	_ = g.Wait()
}

func (u *UnauthUpdater) updateOne(ctx context.Context, c *client.UnauthenticatedClient) {
	if err := c.Update(ctx); err != nil {
		u.logger.Info().Err(err).Str("addr", c.Address).Msg("unauth updater: update failed")
		return
	}
	u.heartbeats.Stamp(c.Address, time.Now())

	if u.publisher == nil {
		return
	}
	payload, err := marshalJSON(c)
	if err != nil {
		u.logger.Error().Err(err).Str("addr", c.Address).Msg("unauth updater: marshal failed")
		return
	}
	if err := u.publisher.Publish(ctx, queue.Message{
		Queue:   queue.UnauthenticatedClientQueue,
		ID:      newMessageID(),
		Payload: payload,
	}); err != nil {
		u.logger.Error().Err(err).Str("addr", c.Address).Msg("unauth updater: publish failed")
	}
}

// AuthUpdater refreshes every registered controller's authenticated
// telemetry.
type AuthUpdater struct {
	registry   *client.Registry
	registered RegisteredChecker
	heartbeats *heartbeat.Map
	publisher  queue.Publisher
	cfg        Config
	logger     zerolog.Logger
	guard      *overlapGuard

	stopCh chan struct{}
	doneCh chan struct{}
	wg     sync.WaitGroup
}

// NewAuthUpdater builds an AuthUpdater.
func NewAuthUpdater(registry *client.Registry, registered RegisteredChecker, heartbeats *heartbeat.Map, publisher queue.Publisher, cfg Config, logger zerolog.Logger) *AuthUpdater {
	return &AuthUpdater{
		registry:   registry,
		registered: registered,
		heartbeats: heartbeats,
		publisher:  publisher,
		cfg:        cfg,
		logger:     logger,
		guard:      newOverlapGuard(),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Start launches the cadence loop.
func (u *AuthUpdater) Start(ctx context.Context) {
	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		runLoop(ctx, u.cfg, u.stopCh, u.tick)
	}()
}

// Stop signals the loop to exit and waits for it to finish.
func (u *AuthUpdater) Stop() {
	close(u.stopCh)
	u.wg.Wait()
	close(u.doneCh)
}

// Done returns a channel closed once the loop has fully exited.
func (u *AuthUpdater) Done() <-chan struct{} {
	return u.doneCh
}

func (u *AuthUpdater) tick(ctx context.Context) {
	entries := u.registry.AuthenticatedSnapshot()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.cfg.Concurrency)

	for _, c := range entries {
		c := c
		if !u.registered.IsRegistered(c.Address) {
			continue
		}
		if !c.CanUpdate() {
			continue
		}
		if !u.guard.tryAcquire(c.Address) {
			continue
		}
		g.Go(func() error {
			defer u.guard.release(c.Address)
			u.updateOne(gctx, c)
			return nil
		})
	}
	_ = g.Wait()
}

func (u *AuthUpdater) updateOne(ctx context.Context, c *client.AuthenticatedClient) {
	if err := c.Update(ctx); err != nil {
		u.logger.Info().Err(err).Str("addr", c.Address).Msg("auth updater: update failed")
		return
	}
	u.heartbeats.Stamp(c.Address, time.Now())

	if u.publisher == nil {
		return
	}
	payload, err := marshalJSON(c)
	if err != nil {
		u.logger.Error().Err(err).Str("addr", c.Address).Msg("auth updater: marshal failed")
		return
	}
	if err := u.publisher.Publish(ctx, queue.Message{
		Queue:   queue.AuthenticatedClientQueue,
		ID:      newMessageID(),
		Payload: payload,
	}); err != nil {
		u.logger.Error().Err(err).Str("addr", c.Address).Msg("auth updater: publish failed")
	}
}
