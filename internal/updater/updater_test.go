package updater

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilofleet/sentinel/internal/client"
	"github.com/ilofleet/sentinel/internal/heartbeat"
	queueinmemory "github.com/ilofleet/sentinel/internal/queue/inmemory"
	"github.com/ilofleet/sentinel/internal/redfish"
	"github.com/ilofleet/sentinel/internal/xmlsnapshot"
)

type alwaysRegistered struct{}

func (alwaysRegistered) IsRegistered(string) bool { return true }

type neverRegistered struct{}

func (neverRegistered) IsRegistered(string) bool { return false }

type countingFetcher struct {
	calls int32
	rimp  *xmlsnapshot.RIMP
}

func (f *countingFetcher) FetchXML(_ context.Context, _ string) (*xmlsnapshot.RIMP, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.rimp, nil
}

func newUnauthClient(t *testing.T, addr string, fetcher client.XMLFetcher) *client.UnauthenticatedClient {
	t.Helper()
	rimp := &xmlsnapshot.RIMP{}
	rimp.HSI.UUID = uuid.New().String()
	c, err := client.NewUnauthenticatedClient(addr, rimp, fetcher)
	require.NoError(t, err)
	return c
}

func TestUnauthUpdater_UpdatesRegisteredEntriesAndStampsHeartbeat(t *testing.T) {
	fetcher := &countingFetcher{rimp: &xmlsnapshot.RIMP{}}
	c := newUnauthClient(t, "10.0.0.5", fetcher)

	reg := client.NewRegistry()
	reg.PutUnauthenticated(c)

	hb := heartbeat.New()
	pub := queueinmemory.New()

	u := NewUnauthUpdater(reg, alwaysRegistered{}, hb, pub, Config{Concurrency: 4}, zerolog.Nop())
	u.tick(context.Background())

	assert.Equal(t, int32(1), atomic.LoadInt32(&fetcher.calls))
	_, ok := hb.LastUpdate(c.Address, time.Now())
	assert.True(t, ok)
	assert.Len(t, pub.Messages, 1)
}

func TestUnauthUpdater_SkipsUnregisteredEntries(t *testing.T) {
	fetcher := &countingFetcher{rimp: &xmlsnapshot.RIMP{}}
	c := newUnauthClient(t, "10.0.0.5", fetcher)

	reg := client.NewRegistry()
	reg.PutUnauthenticated(c)

	u := NewUnauthUpdater(reg, neverRegistered{}, heartbeat.New(), nil, Config{Concurrency: 4}, zerolog.Nop())
	u.tick(context.Background())

	assert.Equal(t, int32(0), atomic.LoadInt32(&fetcher.calls))
}

func TestUnauthUpdater_SkipsWhenCanUpdateFalse(t *testing.T) {
	fetcher := &countingFetcher{rimp: &xmlsnapshot.RIMP{}}
	c := newUnauthClient(t, "10.0.0.5", fetcher)
	c.SetCanUpdate(false)

	reg := client.NewRegistry()
	reg.PutUnauthenticated(c)

	u := NewUnauthUpdater(reg, alwaysRegistered{}, heartbeat.New(), nil, Config{Concurrency: 4}, zerolog.Nop())
	u.tick(context.Background())

	assert.Equal(t, int32(0), atomic.LoadInt32(&fetcher.calls))
}

func TestUnauthUpdater_OverlapGuardSkipsBusyEntry(t *testing.T) {
	fetcher := &countingFetcher{rimp: &xmlsnapshot.RIMP{}}
	c := newUnauthClient(t, "10.0.0.5", fetcher)
	reg := client.NewRegistry()
	reg.PutUnauthenticated(c)

	u := NewUnauthUpdater(reg, alwaysRegistered{}, heartbeat.New(), nil, Config{Concurrency: 4}, zerolog.Nop())
	require.True(t, u.guard.tryAcquire(c.Address))

	u.tick(context.Background())
	assert.Equal(t, int32(0), atomic.LoadInt32(&fetcher.calls))

	u.guard.release(c.Address)
}

type countingRedfish struct{ calls int32 }

func (c *countingRedfish) FetchTelemetry(_ context.Context, _ string, _ redfish.Credentials) (redfish.Telemetry, error) {
	atomic.AddInt32(&c.calls, 1)
	return redfish.Telemetry{"powerState": "On"}, nil
}

func TestAuthUpdater_UpdatesRegisteredEntries(t *testing.T) {
	uu := newUnauthClient(t, "10.0.0.5", &countingFetcher{rimp: &xmlsnapshot.RIMP{}})
	rc := &countingRedfish{}
	ac := client.NewAuthenticatedClient(uu, redfish.Credentials{}, rc, redfish.Telemetry{})

	reg := client.NewRegistry()
	reg.PutAuthenticated(ac)

	hb := heartbeat.New()
	u := NewAuthUpdater(reg, alwaysRegistered{}, hb, nil, Config{Concurrency: 4}, zerolog.Nop())
	u.tick(context.Background())

	assert.Equal(t, int32(1), atomic.LoadInt32(&rc.calls))
	_, ok := hb.LastUpdate(ac.Address, time.Now())
	assert.True(t, ok)
}
