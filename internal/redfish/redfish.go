// Package redfish declares the authenticated-iLO Redfish client surface,
// treated as an opaque "fetch latest telemetry" call. The real client
// lives behind this interface — this package exists only so
// internal/client and internal/registrar have a collaborator interface
// to depend on and a fake to test against.
package redfish

import (
	"context"
	"errors"
)

// ErrNotImplemented is returned by the zero-value Client; production
// wiring must supply a real implementation.
var ErrNotImplemented = errors.New("redfish: client not implemented")

// Credentials authenticates a single controller's Redfish session.
// Obtaining and storing these is internal/secretobfuscator territory,
// not this package's.
type Credentials struct {
	Username string
	Password string
}

// Telemetry is the opaque authenticated payload fetched for a single
// controller. Its shape is defined by the Redfish client, not by this
// module.
type Telemetry map[string]any

// Client fetches authenticated telemetry for a single controller.
type Client interface {
	FetchTelemetry(ctx context.Context, addr string, creds Credentials) (Telemetry, error)
}

// Unimplemented is a Client that always reports ErrNotImplemented. It
// lets the registrar and updater be wired and tested end-to-end before a
// real Redfish client is plugged in.
type Unimplemented struct{}

// FetchTelemetry implements Client.
func (Unimplemented) FetchTelemetry(_ context.Context, _ string, _ Credentials) (Telemetry, error) {
	return nil, ErrNotImplemented
}
