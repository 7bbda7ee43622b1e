// Package ipaddr models IPv4 addresses, subnet masks, and subnets as
// immutable values, and enumerates the host range of a subnet.
package ipaddr

import (
	"errors"
	"fmt"
	"net"

	"gopkg.in/yaml.v3"
)

// ErrInvalidNetworkConfig is returned when a base IP or subnet mask is
// unparseable or a mask is non-contiguous. Treated as fatal at boot.
var ErrInvalidNetworkConfig = errors.New("invalid network config")

// IPv4Address is a 32-bit unsigned IPv4 address with a total order by
// integer value.
type IPv4Address uint32

// ParseIPv4 parses a dotted-quad string into an IPv4Address.
func ParseIPv4(s string) (IPv4Address, error) {
	ip := net.ParseIP(s)
	if ip == nil {
		return 0, fmt.Errorf("%w: %q is not a valid IPv4 address", ErrInvalidNetworkConfig, s)
	}
	v4 := ip.To4()
	if v4 == nil {
		return 0, fmt.Errorf("%w: %q is not an IPv4 address", ErrInvalidNetworkConfig, s)
	}
	return IPv4Address(uint32(v4[0])<<24 | uint32(v4[1])<<16 | uint32(v4[2])<<8 | uint32(v4[3])), nil
}

// MustParseIPv4 is ParseIPv4 but panics on error; for tests and constants.
func MustParseIPv4(s string) IPv4Address {
	addr, err := ParseIPv4(s)
	if err != nil {
		panic(err)
	}
	return addr
}

// String renders the address in dotted-quad form.
func (a IPv4Address) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", byte(a>>24), byte(a>>16), byte(a>>8), byte(a))
}

// UnmarshalYAML implements yaml.Unmarshaler, letting config.yaml write
// ilo.network.base-ip as a plain dotted-quad scalar.
func (a *IPv4Address) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return a.FromString(s)
}

// FromString implements the envloader.Setter interface used by
// internal/config to populate IPv4Address fields straight from
// environment variable strings.
func (a *IPv4Address) FromString(s string) error {
	parsed, err := ParseIPv4(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Next returns the address one greater than a. Callers at the top of the
// address space (255.255.255.255) must not call Next.
func (a IPv4Address) Next() IPv4Address { return a + 1 }

// Less reports whether a sorts before b by integer value.
func (a IPv4Address) Less(b IPv4Address) bool { return a < b }

// SubnetMask is a 32-bit mask with contiguous high bits set.
type SubnetMask uint32

// ParseSubnetMask parses a dotted-quad mask and rejects non-contiguous
// masks.
func ParseSubnetMask(s string) (SubnetMask, error) {
	addr, err := ParseIPv4(s)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid subnet mask %q", ErrInvalidNetworkConfig, s)
	}
	mask := SubnetMask(addr)
	if !mask.isContiguous() {
		return 0, fmt.Errorf("%w: subnet mask %q has non-contiguous bits", ErrInvalidNetworkConfig, s)
	}
	return mask, nil
}

func (m SubnetMask) isContiguous() bool {
	inverted := ^uint32(m)
	// A contiguous high-bits mask inverted is all low bits set, i.e.
	// (inverted+1) is a power of two (or inverted is 0, for a /32).
	return inverted&(inverted+1) == 0
}

// String renders the mask in dotted-quad form.
func (m SubnetMask) String() string { return IPv4Address(m).String() }

// UnmarshalYAML implements yaml.Unmarshaler, letting config.yaml write
// ilo.network.subnet-mask as a plain dotted-quad scalar.
func (m *SubnetMask) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return m.FromString(s)
}

// FromString implements the envloader.Setter interface used by
// internal/config to bind ilo.network.subnet-mask from a dotted-quad
// string or env var.
func (m *SubnetMask) FromString(s string) error {
	mask, err := ParseSubnetMask(s)
	if err != nil {
		return err
	}
	*m = mask
	return nil
}

// PrefixLen returns the number of leading set bits (e.g. 24 for
// 255.255.255.0).
func (m SubnetMask) PrefixLen() int {
	n := 0
	for i := 31; i >= 0; i-- {
		if uint32(m)&(1<<uint(i)) == 0 {
			break
		}
		n++
	}
	return n
}

// Subnet is a base address and mask pair; construction computes the
// inclusive host range [NetworkStart, NetworkEnd].
type Subnet struct {
	base IPv4Address
	mask SubnetMask
}

// NewSubnet validates base and mask and returns the subnet they describe.
func NewSubnet(base IPv4Address, mask SubnetMask) (Subnet, error) {
	if !mask.isContiguous() {
		return Subnet{}, fmt.Errorf("%w: subnet mask %s has non-contiguous bits", ErrInvalidNetworkConfig, mask)
	}
	return Subnet{base: base, mask: mask}, nil
}

// NetworkStart returns networkStart = baseIp AND mask.
func (s Subnet) NetworkStart() IPv4Address {
	return IPv4Address(uint32(s.base) & uint32(s.mask))
}

// NetworkEnd returns networkEnd = networkStart OR NOT mask.
func (s Subnet) NetworkEnd() IPv4Address {
	return IPv4Address(uint32(s.NetworkStart()) | ^uint32(s.mask))
}

// Mask returns the subnet's mask.
func (s Subnet) Mask() SubnetMask { return s.mask }

// Size returns the number of addresses in [NetworkStart, NetworkEnd],
// i.e. 2^(32-prefix).
func (s Subnet) Size() int {
	return int(uint64(s.NetworkEnd())-uint64(s.NetworkStart())) + 1
}

// ContainsAddress reports whether a falls within [NetworkStart, NetworkEnd].
func (s Subnet) ContainsAddress(a IPv4Address) bool {
	return a >= s.NetworkStart() && a <= s.NetworkEnd()
}

// Enumerate returns the inclusive ordered sequence of addresses in the
// subnet, ascending by integer value.
func (s Subnet) Enumerate() []IPv4Address {
	start, end := s.NetworkStart(), s.NetworkEnd()
	out := make([]IPv4Address, 0, s.Size())
	for a := start; ; a++ {
		out = append(out, a)
		if a == end {
			break
		}
	}
	return out
}
