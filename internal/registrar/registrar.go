// Package registrar implements the registrar tick and the registration
// queue worker: it watches the scanner's active bitmap, hands each
// newly-active address off to a fixed worker pool, and the pool's
// workers drive it through the registration handshake.
//
// The tick loop uses a stopCh/doneCh pair so Start/Stop/Done compose the
// same way across every scheduler in this codebase. The single
// registration attempt lives in its own method (register) so the tick
// loop, which only decides what to submit, stays free of I/O.
package registrar

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ilofleet/sentinel/internal/bitmap"
	"github.com/ilofleet/sentinel/internal/blacklist"
	"github.com/ilofleet/sentinel/internal/client"
	"github.com/ilofleet/sentinel/internal/clientset"
	"github.com/ilofleet/sentinel/internal/healthcounter"
	"github.com/ilofleet/sentinel/internal/heartbeat"
	"github.com/ilofleet/sentinel/internal/hoststate"
	"github.com/ilofleet/sentinel/internal/ipaddr"
	"github.com/ilofleet/sentinel/internal/queue"
	"github.com/ilofleet/sentinel/internal/reachability"
	"github.com/ilofleet/sentinel/internal/redfish"
)

// ActiveSource exposes the scanner's most recently completed bitmap.
// internal/scanner.Scanner satisfies this.
type ActiveSource interface {
	Active() *bitmap.Bitmap
}

// Config configures the registrar's cadence and default credentials.
type Config struct {
	// InitialDelay before the first registrar tick (default 30s).
	InitialDelay time.Duration
	// Interval between registrar ticks (default 30s).
	Interval time.Duration
	// ReachabilityTimeout bounds the ICMP check in step 2 (default 5s).
	ReachabilityTimeout time.Duration
	// WorkerConcurrency bounds how many RegistrationRequests are
	// processed concurrently by the queue worker.
	WorkerConcurrency int
	// DefaultCredentials are attempted against every newly-discovered
	// controller's Redfish endpoint during the authenticated handshake.
	DefaultCredentials redfish.Credentials
}

// DefaultConfig returns the registrar's documented defaults.
func DefaultConfig() Config {
	return Config{
		InitialDelay:        30 * time.Second,
		Interval:            30 * time.Second,
		ReachabilityTimeout: 5 * time.Second,
		WorkerConcurrency:   8,
	}
}

// Registrar reads the scanner's active bitmap on a fixed cadence and
// drives each newly-active address through the registration sequence.
type Registrar struct {
	subnet ipaddr.Subnet
	source ActiveSource
	cfg    Config
	logger zerolog.Logger

	blacklist  *blacklist.Blacklist
	regSet     *clientset.RegistrationSet
	registry   *client.Registry
	health     *healthcounter.Counter
	heartbeats *heartbeat.Map
	reach      reachability.Checker
	fetcher    client.XMLFetcher
	redfish    redfish.Client
	publisher  queue.Publisher
	states     *hoststate.Tracker

	work   chan string
	stopCh chan struct{}
	doneCh chan struct{}
	wg     sync.WaitGroup
}

// Deps bundles the registrar's collaborators, grouped separately from
// Config because these are long-lived shared components, not tunables.
type Deps struct {
	Source     ActiveSource
	Blacklist  *blacklist.Blacklist
	RegSet     *clientset.RegistrationSet
	Registry   *client.Registry
	Health     *healthcounter.Counter
	Heartbeats *heartbeat.Map
	Reach      reachability.Checker
	Fetcher    client.XMLFetcher
	Redfish    redfish.Client
	Publisher  queue.Publisher
	// States is optional: when set, the registrar annotates each
	// address's lifecycle state as it registers it.
	States *hoststate.Tracker
}

// New builds a Registrar over subnet's address range.
func New(subnet ipaddr.Subnet, deps Deps, cfg Config, logger zerolog.Logger) *Registrar {
	return &Registrar{
		subnet:     subnet,
		source:     deps.Source,
		cfg:        cfg,
		logger:     logger,
		blacklist:  deps.Blacklist,
		regSet:     deps.RegSet,
		registry:   deps.Registry,
		health:     deps.Health,
		heartbeats: deps.Heartbeats,
		reach:      deps.Reach,
		fetcher:    deps.Fetcher,
		redfish:    deps.Redfish,
		publisher:  deps.Publisher,
		states:     deps.States,
		work:       make(chan string, 1024),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Start launches the tick loop and the fixed-size worker pool that
// drains the registration queue.
func (r *Registrar) Start(ctx context.Context) {
	for i := 0; i < r.cfg.WorkerConcurrency; i++ {
		r.wg.Add(1)
		go r.worker(ctx)
	}
	r.wg.Add(1)
	go r.loop(ctx)
}

// Stop signals the tick loop and workers to exit and waits for them.
func (r *Registrar) Stop() {
	close(r.stopCh)
	r.wg.Wait()
	close(r.doneCh)
}

// Done returns a channel closed once the registrar has fully exited.
func (r *Registrar) Done() <-chan struct{} {
	return r.doneCh
}

func (r *Registrar) loop(ctx context.Context) {
	defer r.wg.Done()

	select {
	case <-time.After(r.cfg.InitialDelay):
		r.tick(ctx)
	case <-r.stopCh:
		return
	case <-ctx.Done():
		return
	}

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.tick(ctx)
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// tick walks the active bitmap and submits a RegistrationRequest for
// each set index, unless the address is already blacklisted or
// registered.
func (r *Registrar) tick(ctx context.Context) {
	active := r.source.Active()
	addrs := r.subnet.Enumerate()

	for _, i := range active.SetIndices() {
		if i >= len(addrs) {
			continue
		}
		addr := addrs[i].String()
		if r.blacklist.Contains(addr) || r.regSet.IsRegistered(addr) {
			continue
		}
		r.submit(ctx, addr)
	}
}

// submit publishes the request for external visibility on the
// new-client-request queue and enqueues it on the local worker pool,
// which is this module's own registration queue worker.
func (r *Registrar) submit(ctx context.Context, addr string) {
	req := queue.RegistrationRequest{ID: newMessageID(), IloAddress: addr}
	payload, err := marshalRegistrationRequest(req)
	if err == nil && r.publisher != nil {
		if pubErr := r.publisher.Publish(ctx, queue.Message{
			Queue:   queue.NewClientRequestQueue,
			ID:      req.ID,
			Payload: payload,
		}); pubErr != nil {
			r.logger.Error().Err(pubErr).Str("addr", addr).Msg("registrar: publish registration request failed")
		}
	}

	select {
	case r.work <- addr:
	default:
		r.logger.Warn().Str("addr", addr).Msg("registrar: registration queue full, dropping request")
	}
}

func (r *Registrar) worker(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case addr := <-r.work:
			r.register(ctx, addr)
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// register carries a single address through the full registration
// handshake: reachability check, registration-set claim, health counter
// and heartbeat initialization, public snapshot fetch, client
// construction, and an authenticated-handshake attempt.
func (r *Registrar) register(ctx context.Context, addr string) {
	if r.regSet.IsRegistered(addr) {
		return
	}

	reachCtx, cancel := context.WithTimeout(ctx, r.cfg.ReachabilityTimeout)
	reachable := r.reach.Check(reachCtx, addr)
	cancel()
	if !reachable {
		return
	}

	if !r.regSet.Register(addr) {
		return
	}

	now := time.Now()
	if err := r.health.Init(ctx, addr); err != nil {
		r.logger.Warn().Err(err).Str("addr", addr).Msg("registrar: health counter init failed")
	}
	r.heartbeats.Stamp(addr, now)

	rimp, err := r.fetcher.FetchXML(ctx, addr)
	if err != nil {
		r.logger.Info().Err(err).Str("addr", addr).Msg("registrar: snapshot build failed, dropping")
		r.regSet.Unregister(addr)
		return
	}

	uc, err := client.NewUnauthenticatedClient(addr, rimp, r.fetcher)
	if err != nil {
		r.logger.Info().Err(err).Str("addr", addr).Msg("registrar: unauthenticated client build failed, dropping")
		r.regSet.Unregister(addr)
		return
	}
	r.registry.PutUnauthenticated(uc)
	if r.states != nil {
		r.states.Mark(addr, hoststate.Registered)
	}

	r.attemptAuthenticated(ctx, uc)

	if err := r.publishRegistration(ctx, uc); err != nil {
		r.logger.Error().Err(err).Str("addr", addr).Msg("registrar: publish unauthenticated snapshot failed")
	}
}

// attemptAuthenticated implements step 7: on failure, register only the
// unauthenticated variant.
func (r *Registrar) attemptAuthenticated(ctx context.Context, uc *client.UnauthenticatedClient) {
	if r.redfish == nil {
		return
	}
	telemetry, err := r.redfish.FetchTelemetry(ctx, uc.Address, r.cfg.DefaultCredentials)
	if err != nil {
		r.logger.Info().Err(err).Str("addr", uc.Address).Msg("registrar: auth handshake failed, unauthenticated only")
		return
	}
	ac := client.NewAuthenticatedClient(uc, r.cfg.DefaultCredentials, r.redfish, telemetry)
	r.registry.PutAuthenticated(ac)
}
