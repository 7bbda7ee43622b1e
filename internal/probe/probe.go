// Package probe implements the HTTPS iLO identification probe: a GET
// against the device's public /xmldata endpoint, classifying the
// response and blacklisting addresses that fail.
//
// The trust-all TLS client is built explicitly at construction time
// rather than installed as a package-level default, so no caller can be
// surprised by a process-wide change to crypto/tls.Config{}. Connect and
// read timeouts are tracked separately rather than folded into one
// blanket deadline, so a slow body doesn't need the same budget as a
// slow handshake.
package probe

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ilofleet/sentinel/internal/blacklist"
	"github.com/ilofleet/sentinel/internal/clientset"
	"github.com/ilofleet/sentinel/internal/hoststate"
	"github.com/ilofleet/sentinel/internal/ilo"
	"github.com/ilofleet/sentinel/internal/xmlsnapshot"
)

// Config configures probe timeouts.
type Config struct {
	ConnectTimeout time.Duration // ilo.client-timeout-connect, default 2000ms
	ReadTimeout    time.Duration // ilo.client-timeout-read, default 1000ms
}

// DefaultConfig returns the probe's documented default timeouts.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout: 2000 * time.Millisecond,
		ReadTimeout:    1000 * time.Millisecond,
	}
}

// NewTrustAllClient builds an *http.Client that accepts any TLS
// certificate chain and any hostname, since iLO management interfaces
// commonly present self-signed certificates. The client is built fresh
// here and never mutates crypto/tls.Config{} process-wide defaults.
func NewTrustAllClient(cfg Config) *http.Client {
	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout}
	transport := &http.Transport{
		DialContext: dialer.DialContext,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: true, // #nosec G402 -- iLO management interfaces use self-signed certs by design.
			MinVersion:         tls.VersionTLS12,
		},
		TLSHandshakeTimeout: cfg.ConnectTimeout,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   cfg.ConnectTimeout + cfg.ReadTimeout,
	}
}

// Prober performs the HTTPS iLO identification probe and classifies
// addresses into the blacklist on failure.
type Prober struct {
	client     *http.Client
	blacklist  *blacklist.Blacklist
	registered *clientset.RegistrationSet
	logger     zerolog.Logger
	states     *hoststate.Tracker
}

// New constructs a Prober. client is normally built with
// NewTrustAllClient, but is accepted as a parameter so tests can supply a
// fake transport.
func New(client *http.Client, bl *blacklist.Blacklist, registered *clientset.RegistrationSet, logger zerolog.Logger) *Prober {
	return &Prober{client: client, blacklist: bl, registered: registered, logger: logger}
}

// SetStates attaches a hoststate.Tracker so Probe can annotate each
// address's classification as it learns it. Optional: a Prober with no
// Tracker set behaves exactly as before.
func (p *Prober) SetStates(states *hoststate.Tracker) {
	p.states = states
}

// Probe implements the three-way decision for a single address:
//  1. blacklisted -> false, zero I/O.
//  2. already registered -> true, zero I/O.
//  3. otherwise, GET https://<addr>/xmldata?item=all and classify the
//     response.
func (p *Prober) Probe(ctx context.Context, addr string) bool {
	if p.blacklist.Contains(addr) {
		return false
	}
	if p.registered.IsRegistered(addr) {
		return true
	}

	body, err := p.fetch(ctx, addr)
	if err != nil {
		p.handleFailure(addr, err)
		return false
	}

	if _, err := xmlsnapshot.Parse(body); err != nil {
		p.handleFailure(addr, &ilo.ProbeFailure{Addr: addr, Reason: ilo.ReasonBadBody, Err: err})
		return false
	}

	if p.states != nil {
		p.states.Mark(addr, hoststate.Candidate)
	}
	return true
}

// FetchXML re-fetches and parses the same XML endpoint Probe uses, for
// the registrar's build-UnauthenticatedClient step and for
// internal/client.UnauthenticatedClient.Update. It satisfies
// internal/client.XMLFetcher. Unlike Probe it does not consult the
// blacklist or registration set and does not blacklist on failure —
// that classification already happened during scanning.
func (p *Prober) FetchXML(ctx context.Context, addr string) (*xmlsnapshot.RIMP, error) {
	body, err := p.fetch(ctx, addr)
	if err != nil {
		return nil, err
	}
	return xmlsnapshot.Parse(body)
}

func (p *Prober) fetch(ctx context.Context, addr string) ([]byte, error) {
	url := fmt.Sprintf("https://%s/xmldata?item=all", addr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &ilo.ProbeFailure{Addr: addr, Reason: ilo.ReasonNonOK, Err: err}
	}

	resp, err := p.client.Do(req)
	if err != nil {
		reason := ilo.ReasonNonOK
		if isTimeout(err) {
			reason = ilo.ReasonTimeout
		}
		return nil, &ilo.ProbeFailure{Addr: addr, Reason: reason, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ilo.ProbeFailure{Addr: addr, Reason: ilo.ReasonNonOK, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ilo.ProbeFailure{Addr: addr, Reason: ilo.ReasonBadBody, Err: err}
	}
	return body, nil
}

func isTimeout(err error) bool {
	var netErr net.Error
	if ne, ok := err.(net.Error); ok {
		netErr = ne
		return netErr.Timeout()
	}
	return false
}

// handleFailure blacklists addr and logs at Debug for the
// expected-common "connect timed out" case, Info for everything else.
func (p *Prober) handleFailure(addr string, err error) {
	p.blacklist.Add(addr)
	if p.states != nil {
		p.states.Mark(addr, hoststate.Blacklisted)
	}

	var pf *ilo.ProbeFailure
	if e, ok := err.(*ilo.ProbeFailure); ok {
		pf = e
	}

	if pf != nil && pf.Reason == ilo.ReasonTimeout {
		p.logger.Debug().Str("addr", addr).Err(err).Msg("probe: connect timed out")
		return
	}
	p.logger.Info().Str("addr", addr).Err(err).Msg("probe: failed, blacklisting")
}
