// Package secretobfuscator declares the system.obfuscate-secrets
// collaborator. Credential storage and rotation for authenticated
// controllers lives behind this interface. It declares the seam only:
// no component in this module calls an Obfuscator.
package secretobfuscator

import "context"

// Obfuscator stores a secret and returns an opaque reference usable to
// retrieve it later. This interface is the dependency boundary for
// whatever concrete secret store is wired in.
type Obfuscator interface {
	Obfuscate(ctx context.Context, secret string) (ref string, err error)
	Reveal(ctx context.Context, ref string) (secret string, err error)
}

// Noop is an Obfuscator that passes secrets through unchanged. It exists
// as a stand-in implementation; it must never be used against
// production credentials.
type Noop struct{}

// Obfuscate implements Obfuscator.
func (Noop) Obfuscate(_ context.Context, secret string) (string, error) {
	return secret, nil
}

// Reveal implements Obfuscator.
func (Noop) Reveal(_ context.Context, ref string) (string, error) {
	return ref, nil
}
