// Package heartbeat implements Map, the last-update-timestamp signal
// that stays independent of internal/healthcounter's probe-agreement
// counter, plus Monitor, the periodic pass that reports unresponsive
// hosts.
//
// Eviction combines a hard entry cap (1000) with a time-since-last-write
// expiry (10 minutes), so the map can neither grow without bound nor
// hold stale entries indefinitely.
package heartbeat

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// MaxEntries bounds the map's size.
	MaxEntries = 1000
	// TTL is how long an entry survives with no writes.
	TTL = 10 * time.Minute
)

type entry struct {
	lastUpdate time.Time
}

// Map tracks the last successful update time per address.
type Map struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New returns an empty Map.
func New() *Map {
	return &Map{entries: make(map[string]*entry)}
}

// Stamp records now as addr's last update time. If the map is at capacity
// and addr is new, the oldest entry is evicted to make room — the map
// never grows past MaxEntries.
func (m *Map) Stamp(addr string, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[addr]; !exists && len(m.entries) >= MaxEntries {
		m.evictOldestLocked()
	}
	m.entries[addr] = &entry{lastUpdate: now}
}

func (m *Map) evictOldestLocked() {
	var oldestAddr string
	var oldestTime time.Time
	first := true
	for addr, e := range m.entries {
		if first || e.lastUpdate.Before(oldestTime) {
			oldestAddr = addr
			oldestTime = e.lastUpdate
			first = false
		}
	}
	if !first {
		delete(m.entries, oldestAddr)
	}
}

// LastUpdate returns addr's last stamped time and whether it is present
// (and not TTL-expired as of now).
func (m *Map) LastUpdate(addr string, now time.Time) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[addr]
	if !ok {
		return time.Time{}, false
	}
	if now.Sub(e.lastUpdate) > TTL {
		delete(m.entries, addr)
		return time.Time{}, false
	}
	return e.lastUpdate, true
}

// Sweep removes every entry that has not been written to in the last TTL
// and returns the number of entries removed.
func (m *Map) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for addr, e := range m.entries {
		if now.Sub(e.lastUpdate) > TTL {
			delete(m.entries, addr)
			removed++
		}
	}
	return removed
}

// Len returns the number of live entries.
func (m *Map) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// RegisteredLister supplies the addresses the monitor should check on
// each tick. internal/clientset.RegistrationSet satisfies this.
type RegisteredLister interface {
	Snapshot() []string
}

// Blacklisted reports whether an address should be skipped by the
// monitor: a blacklisted address is skipped.
type Blacklisted interface {
	Contains(addr string) bool
}

// Monitor runs the periodic heartbeat pass: for every registered,
// non-blacklisted address, compare time since last update against a
// responsiveness threshold and log unresponsive hosts. It never evicts
// from the registration set — it only reports.
type Monitor struct {
	registered RegisteredLister
	blacklist  Blacklisted
	heartbeats *Map
	threshold  time.Duration
	logger     zerolog.Logger
	now        func() time.Time
}

// NewMonitor constructs a Monitor. threshold is
// client.responsiveness.threshold.ms from configuration (default
// 300000ms).
func NewMonitor(registered RegisteredLister, blacklist Blacklisted, heartbeats *Map, threshold time.Duration, logger zerolog.Logger) *Monitor {
	return &Monitor{
		registered: registered,
		blacklist:  blacklist,
		heartbeats: heartbeats,
		threshold:  threshold,
		logger:     logger,
		now:        time.Now,
	}
}

// Report is one address's outcome from a single Tick.
type Report struct {
	Addr         string
	Responsive   bool
	EvictedEntry bool // true if the address had no (or TTL-expired) heartbeat entry
}

// Tick runs one heartbeat pass and returns a report per checked address.
func (m *Monitor) Tick() []Report {
	now := m.now()
	var reports []Report

	for _, addr := range m.registered.Snapshot() {
		if m.blacklist.Contains(addr) {
			continue
		}

		last, ok := m.heartbeats.LastUpdate(addr, now)
		if !ok {
			m.logger.Warn().Str("addr", addr).Msg("heartbeat: no entry for registered address, evicted by size/TTL")
			reports = append(reports, Report{Addr: addr, EvictedEntry: true})
			continue
		}

		elapsed := now.Sub(last)
		if elapsed > m.threshold {
			m.logger.Warn().
				Str("addr", addr).
				Dur("elapsed", elapsed).
				Dur("threshold", m.threshold).
				Msg("heartbeat: host unresponsive")
			reports = append(reports, Report{Addr: addr, Responsive: false})
			continue
		}

		reports = append(reports, Report{Addr: addr, Responsive: true})
	}

	return reports
}
