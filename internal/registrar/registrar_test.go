package registrar

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilofleet/sentinel/internal/bitmap"
	"github.com/ilofleet/sentinel/internal/blacklist"
	"github.com/ilofleet/sentinel/internal/client"
	"github.com/ilofleet/sentinel/internal/clientset"
	"github.com/ilofleet/sentinel/internal/healthcounter"
	"github.com/ilofleet/sentinel/internal/heartbeat"
	"github.com/ilofleet/sentinel/internal/hoststate"
	"github.com/ilofleet/sentinel/internal/ipaddr"
	"github.com/ilofleet/sentinel/internal/kvstore/inmemory"
	"github.com/ilofleet/sentinel/internal/queue"
	queueinmemory "github.com/ilofleet/sentinel/internal/queue/inmemory"
	"github.com/ilofleet/sentinel/internal/redfish"
	"github.com/ilofleet/sentinel/internal/xmlsnapshot"
)

type fixedSource struct{ bm *bitmap.Bitmap }

func (f fixedSource) Active() *bitmap.Bitmap { return f.bm }

type fixedReach struct{ reachable map[string]bool }

func (f fixedReach) Check(_ context.Context, addr string) bool { return f.reachable[addr] }

type fixedFetcher struct{ byAddr map[string]*xmlsnapshot.RIMP }

func (f fixedFetcher) FetchXML(_ context.Context, addr string) (*xmlsnapshot.RIMP, error) {
	if r, ok := f.byAddr[addr]; ok {
		return r, nil
	}
	return nil, assertErr
}

var assertErr = &fetchError{"no snapshot for address"}

type fetchError struct{ msg string }

func (e *fetchError) Error() string { return e.msg }

func testSubnet(t *testing.T) ipaddr.Subnet {
	t.Helper()
	base, err := ipaddr.ParseIPv4("10.0.0.0")
	require.NoError(t, err)
	mask, err := ipaddr.ParseSubnetMask("255.255.255.252")
	require.NoError(t, err)
	subnet, err := ipaddr.NewSubnet(base, mask)
	require.NoError(t, err)
	return subnet
}

func rimpFor(uu string) *xmlsnapshot.RIMP {
	r := &xmlsnapshot.RIMP{}
	r.HSI.UUID = uu
	r.HSI.SBSN = "CZ001"
	r.MP.FWRI = "2.44"
	return r
}

func newTestRegistrar(t *testing.T, activeIdx int, reachable bool, withRedfish bool) (*Registrar, *queueinmemory.Publisher, ipaddr.Subnet) {
	t.Helper()
	r, pub, subnet, _ := newTestRegistrarWithStates(t, activeIdx, reachable, withRedfish)
	return r, pub, subnet
}

func newTestRegistrarWithStates(t *testing.T, activeIdx int, reachable bool, withRedfish bool) (*Registrar, *queueinmemory.Publisher, ipaddr.Subnet, *hoststate.Tracker) {
	t.Helper()
	subnet := testSubnet(t)
	bm := bitmap.New(subnet.Size())
	bm.Set(activeIdx)
	addr := subnet.Enumerate()[activeIdx].String()

	var rc redfish.Client = redfish.Unimplemented{}
	if withRedfish {
		rc = fakeRedfishOK{}
	}

	pub := queueinmemory.New()
	states := hoststate.NewTracker()
	states.Mark(addr, hoststate.Candidate)
	deps := Deps{
		Source:     fixedSource{bm: bm},
		Blacklist:  blacklist.New(),
		RegSet:     clientset.New(),
		Registry:   client.NewRegistry(),
		Health:     healthcounter.New(inmemory.New()),
		Heartbeats: heartbeat.New(),
		Reach:      fixedReach{reachable: map[string]bool{addr: reachable}},
		Fetcher:    fixedFetcher{byAddr: map[string]*xmlsnapshot.RIMP{addr: rimpFor("3fa85f64-5717-4562-b3fc-2c963f66afa6")}},
		Redfish:    rc,
		Publisher:  pub,
		States:     states,
	}
	r := New(subnet, deps, DefaultConfig(), zerolog.Nop())
	return r, pub, subnet, states
}

type fakeRedfishOK struct{}

func (fakeRedfishOK) FetchTelemetry(_ context.Context, _ string, _ redfish.Credentials) (redfish.Telemetry, error) {
	return redfish.Telemetry{"powerState": "On"}, nil
}

func mustParseUUID(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	require.NoError(t, err)
	return id
}

func TestRegistrar_TickEnqueuesAndWorkerRegisters(t *testing.T) {
	r, pub, subnet := newTestRegistrar(t, 1, true, true)
	addr := subnet.Enumerate()[1].String()

	ctx := context.Background()
	r.tick(ctx)

	require.Equal(t, 1, len(r.work))
	<-r.work // drain what tick enqueued; process synchronously below
	r.register(ctx, addr)

	assert.True(t, r.regSet.IsRegistered(addr))
	_, ok := r.registry.Unauthenticated(mustParseUUID(t, "3fa85f64-5717-4562-b3fc-2c963f66afa6"))
	assert.True(t, ok)

	msgs := pub.ByQueue(queue.NewClientRequestQueue)
	require.Len(t, msgs, 1)
	var req queue.RegistrationRequest
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &req))
	assert.Equal(t, addr, req.IloAddress)

	snapMsgs := pub.ByQueue(queue.UnauthenticatedClientQueue)
	assert.Len(t, snapMsgs, 1)
}

func TestRegistrar_UnreachableAddressNotRegistered(t *testing.T) {
	r, _, subnet := newTestRegistrar(t, 1, false, true)
	addr := subnet.Enumerate()[1].String()

	r.register(context.Background(), addr)
	assert.False(t, r.regSet.IsRegistered(addr))
}

func TestRegistrar_AuthFailureLeavesUnauthenticatedOnly(t *testing.T) {
	r, _, subnet := newTestRegistrar(t, 1, true, false)
	addr := subnet.Enumerate()[1].String()

	r.register(context.Background(), addr)
	assert.True(t, r.regSet.IsRegistered(addr))

	id := mustParseUUID(t, "3fa85f64-5717-4562-b3fc-2c963f66afa6")
	_, hasAuth := r.registry.Authenticated(id)
	assert.False(t, hasAuth)
	_, hasUnauth := r.registry.Unauthenticated(id)
	assert.True(t, hasUnauth)
}

func TestRegistrar_MarksRegisteredHostState(t *testing.T) {
	r, _, subnet, states := newTestRegistrarWithStates(t, 1, true, true)
	addr := subnet.Enumerate()[1].String()

	r.register(context.Background(), addr)
	assert.Equal(t, hoststate.Registered, states.Current(addr))
}

func TestRegistrar_AlreadyRegisteredSkipped(t *testing.T) {
	r, _, subnet := newTestRegistrar(t, 1, true, true)
	addr := subnet.Enumerate()[1].String()
	r.regSet.Register(addr)

	r.register(context.Background(), addr)
	assert.Equal(t, 1, r.regSet.Count())
}
