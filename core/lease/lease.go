package lease

import (
	"fmt"
	"time"

	"github.com/nextdhcp/nextshort/core/shortaddr"
)

// Lease binds a short address to the hardware address of a device
type Lease struct {
	// HwAddr is the extended address of the device
	HwAddr shortaddr.HardwareAddr

	// ShortAddr holds the short address that has been leased to the device
	ShortAddr shortaddr.ShortAddr

	// LastSeen is the time the lease has been created or most
	// recently been refreshed
	LastSeen time.Time
}

// String implements fmt.Stringer
func (l *Lease) String() string {
	return fmt.Sprintf("%s (%s; last seen %s)", l.ShortAddr, l.HwAddr, l.LastSeen.Format(time.RFC3339))
}

// Clone returns a copy of the lease
func (l *Lease) Clone() *Lease {
	c := *l
	return &c
}

// ByShortAddr implements sort.Interface and sorts leases by
// increasing short address
type ByShortAddr []Lease

// Len implements sort.Interface
func (leases ByShortAddr) Len() int {
	return len(leases)
}

// Less implements sort.Interface
func (leases ByShortAddr) Less(i, j int) bool {
	return leases[i].ShortAddr < leases[j].ShortAddr
}

// Swap implements sort.Interface
func (leases ByShortAddr) Swap(i, j int) {
	leases[i], leases[j] = leases[j], leases[i]
}
