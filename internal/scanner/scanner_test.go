package scanner

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilofleet/sentinel/internal/ipaddr"
)

type fakeProber struct {
	mu       sync.Mutex
	alive    map[string]bool
	inFlight int32
	maxSeen  int32
	delay    time.Duration
}

func (f *fakeProber) Probe(_ context.Context, addr string) bool {
	cur := atomic.AddInt32(&f.inFlight, 1)
	for {
		max := atomic.LoadInt32(&f.maxSeen)
		if cur <= max || atomic.CompareAndSwapInt32(&f.maxSeen, max, cur) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	atomic.AddInt32(&f.inFlight, -1)

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.alive[addr]
}

func testSubnet(t *testing.T) ipaddr.Subnet {
	t.Helper()
	base, err := ipaddr.ParseIPv4("10.0.0.0")
	require.NoError(t, err)
	mask, err := ipaddr.ParseSubnetMask("255.255.255.0")
	require.NoError(t, err)
	subnet, err := ipaddr.NewSubnet(base, mask)
	require.NoError(t, err)
	return subnet
}

func TestScanner_ProducesExpectedBitmap(t *testing.T) {
	subnet := testSubnet(t)
	addrs := subnet.Enumerate()

	prober := &fakeProber{alive: map[string]bool{
		addrs[3].String(): true,
		addrs[9].String(): true,
	}}

	s := New(subnet, prober, Config{InitialDelay: time.Hour, Interval: time.Hour, Concurrency: 8}, zerolog.Nop())
	s.run(context.Background())

	active := s.Active()
	assert.True(t, active.Test(3))
	assert.True(t, active.Test(9))
	assert.Equal(t, 2, active.Count())
}

func TestScanner_BoundsConcurrency(t *testing.T) {
	subnet := testSubnet(t)
	prober := &fakeProber{alive: map[string]bool{}, delay: 5 * time.Millisecond}

	s := New(subnet, prober, Config{InitialDelay: time.Hour, Interval: time.Hour, Concurrency: 4}, zerolog.Nop())
	s.run(context.Background())

	assert.LessOrEqual(t, atomic.LoadInt32(&prober.maxSeen), int32(4))
}

func TestScanner_SkipsOverlappingTick(t *testing.T) {
	subnet := testSubnet(t)
	prober := &fakeProber{alive: map[string]bool{}, delay: 50 * time.Millisecond}
	s := New(subnet, prober, Config{InitialDelay: time.Hour, Interval: time.Hour, Concurrency: 4}, zerolog.Nop())

	s.scanning.Store(true)
	s.runIfIdle(context.Background())
	assert.Equal(t, int32(0), atomic.LoadInt32(&prober.maxSeen))
}
