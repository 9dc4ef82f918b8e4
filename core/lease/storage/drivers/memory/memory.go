package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/nextdhcp/nextshort/core/lease"
	"github.com/nextdhcp/nextshort/core/lease/storage"
	"github.com/nextdhcp/nextshort/core/shortaddr"
)

type entry struct {
	shortAddr shortaddr.ShortAddr
	lastSeen  time.Time
}

func (e *entry) lease(hw shortaddr.HardwareAddr) lease.Lease {
	return lease.Lease{
		HwAddr:    hw,
		ShortAddr: e.shortAddr,
		LastSeen:  e.lastSeen,
	}
}

// Index implements the storage.Index interface but does not
// provide any persistence at all as every lease is only kept
// in memory. Leases are owned by the hardware address map, the
// short address map only references their keys
type Index struct {
	entries map[shortaddr.HardwareAddr]*entry
	shorts  map[shortaddr.ShortAddr]shortaddr.HardwareAddr
}

// New returns a new memory index
func New() *Index {
	return &Index{
		entries: make(map[shortaddr.HardwareAddr]*entry),
		shorts:  make(map[shortaddr.ShortAddr]shortaddr.HardwareAddr),
	}
}

// LookupByHW implements storage.Index
func (idx *Index) LookupByHW(ctx context.Context, hw shortaddr.HardwareAddr) (lease.Lease, error) {
	e, ok := idx.entries[hw]
	if !ok {
		return lease.Lease{}, &storage.ErrHwAddrNotFound{HwAddr: hw}
	}

	return e.lease(hw), nil
}

// LookupByShort implements storage.Index
func (idx *Index) LookupByShort(ctx context.Context, addr shortaddr.ShortAddr) (lease.Lease, error) {
	hw, ok := idx.shorts[addr]
	if !ok {
		return lease.Lease{}, &storage.ErrShortAddrNotFound{ShortAddr: addr}
	}

	e, ok := idx.entries[hw]
	if !ok {
		return lease.Lease{}, fmt.Errorf("internal error: index inconsistency for %s", addr)
	}

	return e.lease(hw), nil
}

// Insert implements storage.Index
func (idx *Index) Insert(ctx context.Context, l lease.Lease) error {
	if e, ok := idx.entries[l.HwAddr]; ok {
		return &storage.ErrDuplicateHwAddr{
			HwAddr:    l.HwAddr,
			ShortAddr: e.shortAddr,
		}
	}

	if hw, ok := idx.shorts[l.ShortAddr]; ok {
		return &storage.ErrDuplicateShortAddr{
			ShortAddr: l.ShortAddr,
			HwAddr:    hw,
		}
	}

	idx.entries[l.HwAddr] = &entry{
		shortAddr: l.ShortAddr,
		lastSeen:  l.LastSeen,
	}
	idx.shorts[l.ShortAddr] = l.HwAddr

	return nil
}

// Refresh implements storage.Index
func (idx *Index) Refresh(ctx context.Context, hw shortaddr.HardwareAddr, lastSeen time.Time) (lease.Lease, error) {
	e, ok := idx.entries[hw]
	if !ok {
		return lease.Lease{}, &storage.ErrHwAddrNotFound{HwAddr: hw}
	}

	e.lastSeen = lastSeen

	return e.lease(hw), nil
}

// RemoveByHW implements storage.Index
func (idx *Index) RemoveByHW(ctx context.Context, hw shortaddr.HardwareAddr) (lease.Lease, error) {
	e, ok := idx.entries[hw]
	if !ok {
		return lease.Lease{}, &storage.ErrHwAddrNotFound{HwAddr: hw}
	}

	return idx.remove(hw, e), nil
}

// RemoveByShort implements storage.Index
func (idx *Index) RemoveByShort(ctx context.Context, addr shortaddr.ShortAddr) (lease.Lease, error) {
	hw, ok := idx.shorts[addr]
	if !ok {
		return lease.Lease{}, &storage.ErrShortAddrNotFound{ShortAddr: addr}
	}

	e, ok := idx.entries[hw]
	if !ok {
		return lease.Lease{}, fmt.Errorf("internal error: index inconsistency for %s", addr)
	}

	return idx.remove(hw, e), nil
}

func (idx *Index) remove(hw shortaddr.HardwareAddr, e *entry) lease.Lease {
	delete(idx.entries, hw)
	delete(idx.shorts, e.shortAddr)

	return e.lease(hw)
}

// List implements storage.Index
func (idx *Index) List(ctx context.Context) ([]lease.Lease, error) {
	leases := make([]lease.Lease, 0, len(idx.entries))
	for hw, e := range idx.entries {
		leases = append(leases, e.lease(hw))
	}

	return leases, nil
}

// compile time check
var _ storage.Index = &Index{}
