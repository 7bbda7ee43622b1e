package ipaddr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnumerate_ExactSizeAscendingDistinct(t *testing.T) {
	base := MustParseIPv4("10.0.0.0")
	mask, err := ParseSubnetMask("255.255.255.252") // /30
	require.NoError(t, err)

	subnet, err := NewSubnet(base, mask)
	require.NoError(t, err)

	addrs := subnet.Enumerate()
	require.Len(t, addrs, 4)
	assert.Equal(t, 4, subnet.Size())

	seen := make(map[IPv4Address]bool, len(addrs))
	for i, a := range addrs {
		if i > 0 {
			assert.True(t, addrs[i-1].Less(a), "addresses must be strictly ascending")
		}
		assert.False(t, seen[a], "address %s repeated", a)
		seen[a] = true
	}

	assert.Equal(t, "10.0.0.0", addrs[0].String())
	assert.Equal(t, "10.0.0.3", addrs[3].String())
}

func TestContainsAddress(t *testing.T) {
	base := MustParseIPv4("192.168.1.0")
	mask, err := ParseSubnetMask("255.255.255.0")
	require.NoError(t, err)
	subnet, err := NewSubnet(base, mask)
	require.NoError(t, err)

	assert.True(t, subnet.ContainsAddress(MustParseIPv4("192.168.1.1")))
	assert.True(t, subnet.ContainsAddress(MustParseIPv4("192.168.1.255")))
	assert.False(t, subnet.ContainsAddress(MustParseIPv4("192.168.2.0")))
	assert.False(t, subnet.ContainsAddress(MustParseIPv4("192.168.0.255")))
}

func TestParseSubnetMask_RejectsNonContiguous(t *testing.T) {
	_, err := ParseSubnetMask("255.255.0.255")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidNetworkConfig)
}

func TestParseIPv4_RejectsInvalid(t *testing.T) {
	_, err := ParseIPv4("not-an-ip")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidNetworkConfig)

	_, err = ParseIPv4("::1")
	require.Error(t, err)
}

func TestSubnetMask_PrefixLen(t *testing.T) {
	mask, err := ParseSubnetMask("255.255.255.0")
	require.NoError(t, err)
	assert.Equal(t, 24, mask.PrefixLen())

	mask, err = ParseSubnetMask("255.255.255.252")
	require.NoError(t, err)
	assert.Equal(t, 30, mask.PrefixLen())
}

func TestNewSubnet_NetworkStartEnd(t *testing.T) {
	// Base with host bits set; NetworkStart should mask them off.
	base := MustParseIPv4("10.0.0.5")
	mask, err := ParseSubnetMask("255.255.255.252")
	require.NoError(t, err)
	subnet, err := NewSubnet(base, mask)
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.4", subnet.NetworkStart().String())
	assert.Equal(t, "10.0.0.7", subnet.NetworkEnd().String())
}
