// Package ilo holds the cross-cutting error kinds shared by the
// discovery-and-liveness engine. Errors are wrapped with
// fmt.Errorf("...: %w", ...) at the call site.
package ilo

import "errors"

// ProbeFailureReason classifies why an identification probe failed.
type ProbeFailureReason int

const (
	// ReasonTimeout is the expected common case on a sparse subnet and
	// must never be logged above Debug.
	ReasonTimeout ProbeFailureReason = iota
	ReasonNonOK
	ReasonBadBody
	ReasonTLSInit
)

func (r ProbeFailureReason) String() string {
	switch r {
	case ReasonTimeout:
		return "timeout"
	case ReasonNonOK:
		return "non_ok"
	case ReasonBadBody:
		return "bad_body"
	case ReasonTLSInit:
		return "tls_init"
	default:
		return "unknown"
	}
}

// ProbeFailure is a per-host probe error. A TLSInit reason is fatal at
// boot; the others are swallowed by the probe after blacklisting the
// address.
type ProbeFailure struct {
	Addr   string
	Reason ProbeFailureReason
	Err    error
}

func (e *ProbeFailure) Error() string {
	if e.Err != nil {
		return "probe failure (" + e.Reason.String() + ") for " + e.Addr + ": " + e.Err.Error()
	}
	return "probe failure (" + e.Reason.String() + ") for " + e.Addr
}

func (e *ProbeFailure) Unwrap() error { return e.Err }

// Sentinel error values for the remaining error kinds. These are
// per-host and swallowed by their callers after logging, except
// ErrInvalidNetworkConfig (re-exported from internal/ipaddr by callers)
// which is fatal at boot.
var (
	// ErrReachabilityFailure is returned when an ICMP reachability check
	// times out; the address remains unregistered but is not blacklisted.
	ErrReachabilityFailure = errors.New("reachability check failed")

	// ErrSnapshotBuildFailure is returned when the unauthenticated XML
	// snapshot cannot be built during registration.
	ErrSnapshotBuildFailure = errors.New("snapshot build failed")

	// ErrAuthHandshakeFailure is returned when the authenticated client
	// handshake fails; unauthenticated registration still proceeds.
	ErrAuthHandshakeFailure = errors.New("auth handshake failed")

	// ErrStoreUnavailable indicates the key/value store is inoperative;
	// callers must fall back to neutral defaults and must not crash the
	// scheduler.
	ErrStoreUnavailable = errors.New("key/value store unavailable")

	// ErrQueuePublishFailure indicates a message failed to publish; it is
	// logged at error level and not retried in-line.
	ErrQueuePublishFailure = errors.New("queue publish failed")
)
