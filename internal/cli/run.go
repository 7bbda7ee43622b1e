package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ilofleet/sentinel/internal/blacklist"
	"github.com/ilofleet/sentinel/internal/client"
	"github.com/ilofleet/sentinel/internal/clientset"
	"github.com/ilofleet/sentinel/internal/config"
	"github.com/ilofleet/sentinel/internal/healthcounter"
	"github.com/ilofleet/sentinel/internal/heartbeat"
	"github.com/ilofleet/sentinel/internal/hoststate"
	"github.com/ilofleet/sentinel/internal/ipaddr"
	"github.com/ilofleet/sentinel/internal/kvstore/redisstore"
	"github.com/ilofleet/sentinel/internal/logging"
	"github.com/ilofleet/sentinel/internal/probe"
	"github.com/ilofleet/sentinel/internal/queue"
	"github.com/ilofleet/sentinel/internal/queue/amqp091"
	"github.com/ilofleet/sentinel/internal/reachability"
	"github.com/ilofleet/sentinel/internal/redfish"
	"github.com/ilofleet/sentinel/internal/registrar"
	"github.com/ilofleet/sentinel/internal/scanner"
	"github.com/ilofleet/sentinel/internal/updater"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the discovery, registration, update, and heartbeat schedulers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}
}

func run(ctx context.Context) error {
	loader, err := config.NewLoader()
	if err != nil {
		return fmt.Errorf("config loader: %w", err)
	}
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	baseLog := logging.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty, Output: os.Stdout}
	logger := logging.New(baseLog)

	subnet, err := ipaddr.NewSubnet(cfg.ILO.Network.BaseIP, cfg.ILO.Network.SubnetMask)
	if err != nil {
		return fmt.Errorf("fatal: %w", err)
	}
	logger.Info().
		Str("base_ip", cfg.ILO.Network.BaseIP.String()).
		Str("subnet_mask", cfg.ILO.Network.SubnetMask.String()).
		Int("size", subnet.Size()).
		Msg("ilosentinel: starting")

	store, err := redisstore.New(cfg.KVStore.RedisAddr, logging.NewWithComponent(baseLog, "kvstore"))
	if err != nil {
		return fmt.Errorf("kvstore: %w", err)
	}
	defer store.Close()

	framing := queue.FramingNone
	if cfg.Queue.GzipFraming {
		framing = queue.FramingGzip
	}
	publisher, err := amqp091.New(amqp091.Config{URL: cfg.Queue.AMQPURL, Framing: framing}, logging.NewWithComponent(baseLog, "queue"))
	if err != nil {
		return fmt.Errorf("queue: %w", err)
	}
	defer publisher.Close()

	bl := blacklist.New()
	regSet := clientset.New()
	registry := client.NewRegistry()
	health := healthcounter.New(store)
	heartbeats := heartbeat.New()

	httpClient := probe.NewTrustAllClient(probe.Config{
		ConnectTimeout: cfg.ILO.ConnectTimeout(),
		ReadTimeout:    cfg.ILO.ReadTimeout(),
	})
	prober := probe.New(httpClient, bl, regSet, logging.NewWithComponent(baseLog, "probe"))
	states := hoststate.NewTracker()
	prober.SetStates(states)

	sc := scanner.New(subnet, prober, scanner.DefaultConfig(cfg.ILO.Network.SubnetMask.PrefixLen()), logging.NewWithComponent(baseLog, "scanner"))

	reg := registrar.New(subnet, registrar.Deps{
		Source:     sc,
		Blacklist:  bl,
		RegSet:     regSet,
		Registry:   registry,
		Health:     health,
		Heartbeats: heartbeats,
		Reach:      reachability.NewICMPChecker(),
		Fetcher:    prober,
		Redfish:    redfish.Unimplemented{},
		Publisher:  publisher,
		States:     states,
	}, registrar.DefaultConfig(), logging.NewWithComponent(baseLog, "registrar"))

	unauthUpdater := updater.NewUnauthUpdater(registry, regSet, heartbeats, publisher, updater.DefaultUnauthConfig(), logging.NewWithComponent(baseLog, "unauth-updater"))
	authUpdater := updater.NewAuthUpdater(registry, regSet, heartbeats, publisher, updater.DefaultAuthConfig(), logging.NewWithComponent(baseLog, "auth-updater"))

	monitor := heartbeat.NewMonitor(regSet, bl, heartbeats, cfg.Client.ResponsivenessThreshold(), logging.NewWithComponent(baseLog, "heartbeat"))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sc.Start(runCtx)
	reg.Start(runCtx)
	unauthUpdater.Start(runCtx)
	authUpdater.Start(runCtx)

	healthPass := newHealthPass(subnet, sc, regSet, bl, health, states, logging.NewWithComponent(baseLog, "health-pass"))
	healthPass.Start(runCtx)
	monitorLoop := newMonitorLoop(monitor)
	monitorLoop.Start(runCtx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigCh:
		logger.Info().Msg("ilosentinel: shutdown signal received")
	case <-runCtx.Done():
	}

	cancel()
	sc.Stop()
	reg.Stop()
	unauthUpdater.Stop()
	authUpdater.Stop()
	healthPass.Stop()
	monitorLoop.Stop()

	logger.Info().Msg("ilosentinel: stopped")
	return nil
}

// healthPass runs the secondary per-minute liveness pass: walk the
// scanner's current active bitmap and adjust each registered address's
// health counter based on whether it is still present, then publish the
// resulting "alive" boolean. Apart from this pass, only the registrar
// touches the counter (initializing it at registration time); the
// unauth/auth updaters never read or write it.
type healthPass struct {
	subnet     ipaddr.Subnet
	source     registrar.ActiveSource
	registered *clientset.RegistrationSet
	blacklist  *blacklist.Blacklist
	health     *healthcounter.Counter
	states     *hoststate.Tracker
	logger     zerolog.Logger

	stopCh chan struct{}
	doneCh chan struct{}
}

func newHealthPass(subnet ipaddr.Subnet, source registrar.ActiveSource, registered *clientset.RegistrationSet, bl *blacklist.Blacklist, health *healthcounter.Counter, states *hoststate.Tracker, logger zerolog.Logger) *healthPass {
	return &healthPass{
		subnet:     subnet,
		source:     source,
		registered: registered,
		blacklist:  bl,
		health:     health,
		states:     states,
		logger:     logger,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

func (h *healthPass) Start(ctx context.Context) {
	go h.loop(ctx)
}

func (h *healthPass) Stop() {
	close(h.stopCh)
	<-h.doneCh
}

func (h *healthPass) loop(ctx context.Context) {
	defer close(h.doneCh)

	timer := time.NewTimer(10 * time.Second)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.stopCh:
			return
		case <-timer.C:
			h.tick(ctx)
			timer.Reset(60 * time.Second)
		}
	}
}

func (h *healthPass) tick(ctx context.Context) {
	active := h.source.Active()
	addrs := h.subnet.Enumerate()

	activeAddrs := make(map[string]bool, active.Count())
	for _, i := range active.SetIndices() {
		if i < len(addrs) {
			activeAddrs[addrs[i].String()] = true
		}
	}

	for _, addr := range h.registered.Snapshot() {
		if h.blacklist.Contains(addr) {
			continue
		}

		present := activeAddrs[addr]
		var err error
		if present {
			_, err = h.health.RecordSuccess(ctx, addr)
		} else {
			_, err = h.health.RecordFailure(ctx, addr)
		}
		if err != nil {
			h.logger.Warn().Err(err).Str("addr", addr).Msg("health-pass: counter update failed")
		}
		if err := h.health.PublishAlive(ctx, addr); err != nil {
			h.logger.Warn().Err(err).Str("addr", addr).Msg("health-pass: publish alive failed")
		}
		if h.states != nil {
			if h.health.Alive(ctx, addr) {
				h.states.Mark(addr, hoststate.Live)
			} else {
				h.states.Mark(addr, hoststate.Degraded)
			}
		}
	}
}

// monitorLoop runs heartbeat.Monitor.Tick on a fixed cadence: a 10s
// initial delay followed by a fixed 60s period.
type monitorLoop struct {
	monitor *heartbeat.Monitor

	stopCh chan struct{}
	doneCh chan struct{}
}

func newMonitorLoop(monitor *heartbeat.Monitor) *monitorLoop {
	return &monitorLoop{monitor: monitor, stopCh: make(chan struct{}), doneCh: make(chan struct{})}
}

func (m *monitorLoop) Start(ctx context.Context) {
	go m.loop(ctx)
}

func (m *monitorLoop) Stop() {
	close(m.stopCh)
	<-m.doneCh
}

func (m *monitorLoop) loop(ctx context.Context) {
	defer close(m.doneCh)

	timer := time.NewTimer(10 * time.Second)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-timer.C:
			m.monitor.Tick()
			timer.Reset(60 * time.Second)
		}
	}
}
