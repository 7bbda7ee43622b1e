// Package scanner implements the periodic bounded-parallel address-range
// scan: fan out a probe over every address, collect the results into a
// fresh bitmap, and atomically publish it.
//
// Bounded fan-out uses golang.org/x/sync/semaphore.Weighted so no more
// than Concurrency probes are ever in flight at once.
package scanner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/ilofleet/sentinel/internal/bitmap"
	"github.com/ilofleet/sentinel/internal/ipaddr"
)

// Prober performs the single-address reachability check.
// internal/probe.Prober satisfies this.
type Prober interface {
	Probe(ctx context.Context, addr string) bool
}

// Config configures the scanner's cadence and concurrency.
type Config struct {
	// InitialDelay is the wait before the first scan (default 5s).
	InitialDelay time.Duration
	// Interval is the steady-state cadence (default 5m).
	Interval time.Duration
	// Concurrency bounds simultaneous in-flight probes — the subnet
	// mask prefix length, so a /24 runs 24 parallel probes.
	Concurrency int64
}

// DefaultConfig returns the scanner's default cadence for the given
// subnet's prefix length.
func DefaultConfig(prefixLen int) Config {
	return Config{
		InitialDelay: 5 * time.Second,
		Interval:     5 * time.Minute,
		Concurrency:  int64(prefixLen),
	}
}

// Scanner owns the address range, runs bounded-parallel probes on a
// fixed cadence, and atomically publishes the resulting bitmap.
type Scanner struct {
	subnet ipaddr.Subnet
	prober Prober
	cfg    Config
	logger zerolog.Logger

	active   atomic.Pointer[bitmap.Bitmap]
	scanning atomic.Bool

	stopCh chan struct{}
	doneCh chan struct{}
	wg     sync.WaitGroup
}

// New builds a Scanner over subnet's enumerated address range.
func New(subnet ipaddr.Subnet, prober Prober, cfg Config, logger zerolog.Logger) *Scanner {
	s := &Scanner{
		subnet: subnet,
		prober: prober,
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	s.active.Store(bitmap.New(subnet.Size()))
	return s
}

// Active returns the most recently completed scan's bitmap. Readers
// always observe a complete bitmap, never a partial one.
func (s *Scanner) Active() *bitmap.Bitmap {
	return s.active.Load()
}

// Start launches the scan loop: an initial delayed run, then one run
// per tick.
func (s *Scanner) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.loop(ctx)
}

// Stop signals the loop to exit and waits for it to finish.
func (s *Scanner) Stop() {
	close(s.stopCh)
	s.wg.Wait()
	close(s.doneCh)
}

// Done returns a channel closed once the loop has fully exited.
func (s *Scanner) Done() <-chan struct{} {
	return s.doneCh
}

func (s *Scanner) loop(ctx context.Context) {
	defer s.wg.Done()

	select {
	case <-time.After(s.cfg.InitialDelay):
		s.runIfIdle(ctx)
	case <-s.stopCh:
		return
	case <-ctx.Done():
		return
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.runIfIdle(ctx)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// runIfIdle enforces the rule that overlapping scans are forbidden: if
// a scan is already running, the tick is skipped.
func (s *Scanner) runIfIdle(ctx context.Context) {
	if !s.scanning.CompareAndSwap(false, true) {
		s.logger.Debug().Msg("scanner: previous scan still running, skipping tick")
		return
	}
	defer s.scanning.Store(false)
	s.run(ctx)
}

func (s *Scanner) run(ctx context.Context) {
	n := s.subnet.Size()
	result := bitmap.New(n)
	addrs := s.subnet.Enumerate()

	sem := semaphore.NewWeighted(s.cfg.Concurrency)
	var wg sync.WaitGroup

	for i, addr := range addrs {
		if err := sem.Acquire(ctx, 1); err != nil {
			s.logger.Debug().Err(err).Msg("scanner: context cancelled mid-scan")
			break
		}
		wg.Add(1)
		go func(i int, addr string) {
			defer wg.Done()
			defer sem.Release(1)
			if s.prober.Probe(ctx, addr) {
				result.Set(i)
			}
		}(i, addr.String())
	}
	wg.Wait()

	s.active.Store(result)
	s.logger.Info().Int("active", result.Count()).Int("total", n).Msg("scanner: scan complete")
}
