package storage

import (
	"context"
	"time"

	"github.com/nextdhcp/nextshort/core/lease"
	"github.com/nextdhcp/nextshort/core/shortaddr"
)

// Index keeps short address leases addressable by hardware address and
// by short address. Both lookup paths must always resolve to the same
// set of leases: a lease is either reachable by both keys or by none.
// Implementations don't need to care about allocation mechanics and
// don't need to synchronize access; the Database serializes all calls.
type Index interface {
	// LookupByHW returns the lease of the given hardware address or
	// ErrHwAddrNotFound
	LookupByHW(ctx context.Context, hw shortaddr.HardwareAddr) (lease.Lease, error)

	// LookupByShort returns the lease of the given short address or
	// ErrShortAddrNotFound
	LookupByShort(ctx context.Context, addr shortaddr.ShortAddr) (lease.Lease, error)

	// Insert stores a new lease. Implementations MUST fail with
	// ErrDuplicateHwAddr or ErrDuplicateShortAddr if either key
	// is already used and must not modify the index in that case
	Insert(ctx context.Context, l lease.Lease) error

	// Refresh updates the LastSeen timestamp of the lease bound to hw
	Refresh(ctx context.Context, hw shortaddr.HardwareAddr, lastSeen time.Time) (lease.Lease, error)

	// RemoveByHW removes the lease of the given hardware address
	// from both lookup paths and returns it
	RemoveByHW(ctx context.Context, hw shortaddr.HardwareAddr) (lease.Lease, error)

	// RemoveByShort removes the lease of the given short address
	// from both lookup paths and returns it
	RemoveByShort(ctx context.Context, addr shortaddr.ShortAddr) (lease.Lease, error)

	// List returns all leases stored in the index in no particular
	// order
	List(ctx context.Context) ([]lease.Lease, error)
}
