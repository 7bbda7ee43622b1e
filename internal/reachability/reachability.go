// Package reachability implements the ICMP echo reachability check used
// by the registrar before registering a candidate address: a single
// blocking echo-and-wait call with a 5s deadline, built on
// golang.org/x/net/icmp and golang.org/x/net/ipv4.
package reachability

import (
	"context"
	"net"
	"os"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

// DefaultTimeout is the ICMP timeout used when none is configured.
const DefaultTimeout = 5 * time.Second

// Checker reports whether an address responds to an ICMP echo within a
// deadline. The registrar depends on this interface rather than the
// concrete ICMPChecker so tests can substitute a fake.
type Checker interface {
	Check(ctx context.Context, addr string) bool
}

// ICMPChecker sends a real ICMP echo request and waits for a reply.
type ICMPChecker struct {
	Timeout time.Duration
}

// NewICMPChecker returns an ICMPChecker with the default 5s timeout.
func NewICMPChecker() *ICMPChecker {
	return &ICMPChecker{Timeout: DefaultTimeout}
}

// Check sends one ICMP echo to addr and returns true iff a reply arrives
// before the timeout. Any error (permission, network, timeout) is
// treated as "not reachable"; the caller leaves the host unregistered
// but does not blacklist it.
func (c *ICMPChecker) Check(ctx context.Context, addr string) bool {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	conn, err := icmp.ListenPacket("ip4:icmp", "0.0.0.0")
	if err != nil {
		return false
	}
	defer conn.Close()

	id := os.Getpid() & 0xffff
	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{
			ID:   id,
			Seq:  1,
			Data: []byte("ilo-sentinel-reachability"),
		},
	}
	payload, err := msg.Marshal(nil)
	if err != nil {
		return false
	}

	dst, err := net.ResolveIPAddr("ip4", addr)
	if err != nil {
		return false
	}

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return false
	}

	if _, err := conn.WriteTo(payload, dst); err != nil {
		return false
	}

	reply := make([]byte, 1500)
	for {
		n, peer, err := conn.ReadFrom(reply)
		if err != nil {
			return false // timeout or read error
		}
		if peer.String() != dst.String() {
			continue
		}
		parsed, err := icmp.ParseMessage(1, reply[:n]) // protocol 1 = ICMP
		if err != nil {
			continue
		}
		if parsed.Type == ipv4.ICMPTypeEchoReply {
			return true
		}
	}
}
