// Package client implements the UnauthenticatedClient and
// AuthenticatedClient snapshot types plus the Registry that stores them
// keyed by iLO UUID.
//
// Registry guards a map of pointers with a sync.RWMutex. Unlike a
// TTL-based cache, an entry is destroyed only when its address is
// un-registered, never by time.
package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/ilofleet/sentinel/internal/redfish"
	"github.com/ilofleet/sentinel/internal/xmlsnapshot"
)

// XMLFetcher re-fetches and parses an address's public /xmldata?item=all
// endpoint. internal/probe's HTTP plumbing is reused for this by the
// registrar/updater wiring; the interface here keeps internal/client free
// of an HTTP dependency.
type XMLFetcher interface {
	FetchXML(ctx context.Context, addr string) (*xmlsnapshot.RIMP, error)
}

// UnauthenticatedClient is the public-endpoint snapshot for a registered
// controller.
type UnauthenticatedClient struct {
	UUID                       uuid.UUID `json:"uuid"`
	Address                    string    `json:"address"`
	SystemBoardSerial          string    `json:"systemBoardSerial"`
	SystemProductName          string    `json:"systemProductName"`
	ManagementProcessorProduct string    `json:"managementProcessorProduct"`
	ManagementProcessorSerial  string    `json:"managementProcessorSerial"`
	FirmwareRevision           string    `json:"firmwareRevision"`

	mu        sync.Mutex
	fetcher   XMLFetcher
	canUpdate bool
}

// NewUnauthenticatedClient builds a client from an already-fetched
// snapshot, the shape produced during registration.
func NewUnauthenticatedClient(addr string, rimp *xmlsnapshot.RIMP, fetcher XMLFetcher) (*UnauthenticatedClient, error) {
	id, err := uuid.Parse(rimp.HSI.UUID)
	if err != nil {
		return nil, fmt.Errorf("client: snapshot for %s has no usable iLO UUID: %w", addr, err)
	}
	if id == uuid.Nil {
		return nil, fmt.Errorf("client: snapshot for %s has the zero iLO UUID", addr)
	}
	c := &UnauthenticatedClient{
		UUID:      id,
		Address:   addr,
		fetcher:   fetcher,
		canUpdate: true,
	}
	c.applySnapshot(rimp)
	return c, nil
}

func (c *UnauthenticatedClient) applySnapshot(rimp *xmlsnapshot.RIMP) {
	c.SystemBoardSerial = rimp.HSI.SBSN
	c.SystemProductName = rimp.HSI.SPN
	c.ManagementProcessorProduct = rimp.MP.PN
	c.ManagementProcessorSerial = rimp.MP.SN
	c.FirmwareRevision = rimp.MP.FWRI
}

// CanUpdate reports whether Update may be called. Callers (the updater)
// must gate on this before calling Update.
func (c *UnauthenticatedClient) CanUpdate() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canUpdate
}

// SetCanUpdate flips the update gate, e.g. to pause updates for an entry
// undergoing maintenance.
func (c *UnauthenticatedClient) SetCanUpdate(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.canUpdate = v
}

// Update re-fetches the public snapshot and refreshes the client's
// fields.
func (c *UnauthenticatedClient) Update(ctx context.Context) error {
	rimp, err := c.fetcher.FetchXML(ctx, c.Address)
	if err != nil {
		return fmt.Errorf("client: update %s: %w", c.Address, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.applySnapshot(rimp)
	return nil
}

// AuthenticatedClient is the authenticated Redfish-derived snapshot for a
// registered controller. Built only if the auth handshake succeeds
// during registration.
type AuthenticatedClient struct {
	UUID      uuid.UUID         `json:"uuid"`
	Address   string            `json:"address"`
	Telemetry redfish.Telemetry `json:"telemetry"`

	Credentials redfish.Credentials `json:"-"`

	mu        sync.Mutex
	client    redfish.Client
	canUpdate bool
}

// NewAuthenticatedClient builds an authenticated client from the
// unauthenticated snapshot's UUID plus a successful initial telemetry
// fetch.
func NewAuthenticatedClient(uu *UnauthenticatedClient, creds redfish.Credentials, rc redfish.Client, telemetry redfish.Telemetry) *AuthenticatedClient {
	return &AuthenticatedClient{
		UUID:        uu.UUID,
		Address:     uu.Address,
		Credentials: creds,
		Telemetry:   telemetry,
		client:      rc,
		canUpdate:   true,
	}
}

// CanUpdate reports whether Update may be called.
func (c *AuthenticatedClient) CanUpdate() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canUpdate
}

// SetCanUpdate flips the update gate.
func (c *AuthenticatedClient) SetCanUpdate(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.canUpdate = v
}

// Update re-fetches authenticated telemetry via the opaque redfish.Client
// collaborator, treated as an opaque "fetch latest telemetry" call.
func (c *AuthenticatedClient) Update(ctx context.Context) error {
	telemetry, err := c.client.FetchTelemetry(ctx, c.Address, c.Credentials)
	if err != nil {
		return fmt.Errorf("client: authenticated update %s: %w", c.Address, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Telemetry = telemetry
	return nil
}
