// Package shortaddr contains the address value types used by the short
// address lease manager: the 8 byte IEEE 802.15.4 extended (hardware)
// address and the 16 bit short address handed out by the coordinator.
package shortaddr

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// HardwareAddrLen is the length of an extended hardware address in bytes
const HardwareAddrLen = 8

const (
	// RangeStart is the first short address that may be assigned
	RangeStart ShortAddr = 0x8000

	// RangeEnd is the last short address that may be assigned
	RangeEnd ShortAddr = 0xfffd

	// Boundary is never assigned. Reaching it wraps the allocation
	// scan back to the start of the range
	Boundary ShortAddr = 0xfffe

	// Invalid is returned instead of a short address if none could
	// be allocated
	Invalid ShortAddr = 0xffff
)

// HardwareAddr is the extended address of a device. It is a comparable
// value type and may be used as a map key
type HardwareAddr [HardwareAddrLen]byte

// ParseHardwareAddr parses s as an EUI-64 address in any notation
// understood by net.ParseMAC
func ParseHardwareAddr(s string) (HardwareAddr, error) {
	var hw HardwareAddr

	mac, err := net.ParseMAC(s)
	if err != nil {
		return hw, err
	}

	if len(mac) != HardwareAddrLen {
		return hw, fmt.Errorf("invalid hardware address %q: expected %d bytes but got %d", s, HardwareAddrLen, len(mac))
	}

	copy(hw[:], mac)
	return hw, nil
}

// MustParseHardwareAddr is like ParseHardwareAddr but panics on error
func MustParseHardwareAddr(s string) HardwareAddr {
	hw, err := ParseHardwareAddr(s)
	if err != nil {
		panic(err)
	}

	return hw
}

// String returns the lowercase, colon separated notation of hw
func (hw HardwareAddr) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x:%02x:%02x",
		hw[0], hw[1], hw[2], hw[3], hw[4], hw[5], hw[6], hw[7])
}

// Hash returns a stable hash of hw that depends on every byte and on
// their order. It is exposed as the {hwhash} placeholder so notification
// topics can be bucketed per device with a short, fixed width key
func (hw HardwareAddr) Hash() uint32 {
	var h uint32
	for _, b := range hw {
		h = h*31 + uint32(b)
	}

	return h
}

// ShortAddr is a 16 bit short address
type ShortAddr uint16

// ParseShortAddr parses a short address either in hexadecimal notation
// with a 0x prefix or as a decimal number
func ParseShortAddr(s string) (ShortAddr, error) {
	s = strings.TrimSpace(s)

	var (
		v   uint64
		err error
	)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err = strconv.ParseUint(s[2:], 16, 16)
	} else {
		v, err = strconv.ParseUint(s, 10, 16)
	}

	if err != nil {
		return Invalid, fmt.Errorf("invalid short address %q: %w", s, err)
	}

	return ShortAddr(v), nil
}

// String implements fmt.Stringer
func (a ShortAddr) String() string {
	return fmt.Sprintf("0x%04x", uint16(a))
}
