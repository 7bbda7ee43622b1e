// Package hoststate implements the per-host lifecycle state machine:
// UNCLASSIFIED -> {BLACKLISTED | CANDIDATE} -> REGISTERED ->
// {LIVE | DEGRADED}. It is a record kept for annotation only and is not
// itself a source of truth — the blacklist, registration set, and health
// counter remain authoritative. No log line or decision in this module
// reads it.
package hoststate

import (
	"fmt"
	"sync"
)

// State is one state in the per-host lifecycle.
type State int

const (
	Unclassified State = iota
	Blacklisted
	Candidate
	Registered
	Live
	Degraded
)

func (s State) String() string {
	switch s {
	case Unclassified:
		return "UNCLASSIFIED"
	case Blacklisted:
		return "BLACKLISTED"
	case Candidate:
		return "CANDIDATE"
	case Registered:
		return "REGISTERED"
	case Live:
		return "LIVE"
	case Degraded:
		return "DEGRADED"
	default:
		return "UNKNOWN"
	}
}

// transitions lists every edge the lifecycle allows. BLACKLISTED has no
// outgoing edge: it is terminal for the process lifetime.
var transitions = map[State]map[State]bool{
	Unclassified: {Candidate: true, Blacklisted: true},
	Candidate:    {Registered: true},
	Registered:   {Live: true},
	Live:         {Degraded: true},
	Degraded:     {Live: true},
	Blacklisted:  {},
}

// Machine tracks one host's current state and validates transitions.
type Machine struct {
	current State
}

// New returns a Machine starting in the Unclassified state.
func New() *Machine {
	return &Machine{current: Unclassified}
}

// Current returns the machine's current state.
func (m *Machine) Current() State { return m.current }

// Transition moves the machine to next, returning an error if the edge
// from the current state to next is not permitted.
func (m *Machine) Transition(next State) error {
	allowed, ok := transitions[m.current]
	if !ok || !allowed[next] {
		return fmt.Errorf("hoststate: illegal transition %s -> %s", m.current, next)
	}
	m.current = next
	return nil
}

// Tracker holds one Machine per address behind a single mutex, used by
// the scanner/registrar/health-pass schedulers to annotate the same
// host as it moves through classification, registration, and
// liveness. Callers that race to mark a state neither of them reached
// legitimately just lose the Mark silently — per this package's doc
// comment, hoststate is annotation only, never authoritative.
type Tracker struct {
	mu       sync.Mutex
	machines map[string]*Machine
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{machines: make(map[string]*Machine)}
}

// Mark attempts to move addr to next, creating its Machine in
// Unclassified if this is the first time addr is seen. An illegal edge
// is ignored rather than propagated, matching the package's stated
// log-annotation-only role. Returns the state addr ends up in.
func (t *Tracker) Mark(addr string, next State) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	m, ok := t.machines[addr]
	if !ok {
		m = New()
		t.machines[addr] = m
	}
	_ = m.Transition(next)
	return m.current
}

// Current returns addr's current state, or Unclassified if addr has
// never been marked.
func (t *Tracker) Current(addr string) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	m, ok := t.machines[addr]
	if !ok {
		return Unclassified
	}
	return m.current
}
