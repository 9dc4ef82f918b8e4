package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nextdhcp/nextshort/core/lease"
	"github.com/nextdhcp/nextshort/core/lease/storage"
	"github.com/nextdhcp/nextshort/core/shortaddr"
	"go.etcd.io/bbolt"
)

var (
	hwLeaseBucketKey = []byte("hw-leases")
	shortToHWBucket  = []byte("short-to-hw")
)

// SchemaVersion is the current version of the bolt db
const SchemaVersion = "1"

type (
	// Index is a storage.Index implementation that persists
	// short address leases in a bbolt database
	Index struct {
		db   *bbolt.DB
		path string
	}

	entry struct {
		ShortAddr uint16 `json:"shortAddr"`
		LastSeen  int64  `json:"lastSeen"`
	}
)

func shortKey(addr shortaddr.ShortAddr) []byte {
	key := make([]byte, 2)
	binary.BigEndian.PutUint16(key, uint16(addr))
	return key
}

func hwFromKey(key []byte) (shortaddr.HardwareAddr, error) {
	var hw shortaddr.HardwareAddr
	if len(key) != shortaddr.HardwareAddrLen {
		return hw, fmt.Errorf("invalid hardware address key of length %d", len(key))
	}
	copy(hw[:], key)
	return hw, nil
}

func (e entry) lease(hw shortaddr.HardwareAddr) lease.Lease {
	return lease.Lease{
		HwAddr:    hw,
		ShortAddr: shortaddr.ShortAddr(e.ShortAddr),
		LastSeen:  time.Unix(e.LastSeen, 0),
	}
}

// Path returns the path of the database file
func (s *Index) Path() string {
	return s.path
}

// Close closes the underlying bbolt database
func (s *Index) Close() error {
	return s.db.Close()
}

// Insert implements storage.Index
func (s *Index) Insert(ctx context.Context, l lease.Lease) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		hwBucket, shortBucket, err := openOrCreateBuckets(tx)
		if err != nil {
			return err
		}

		if blob := hwBucket.Get(l.HwAddr[:]); blob != nil {
			var e entry
			if err := json.Unmarshal(blob, &e); err != nil {
				return err
			}
			return &storage.ErrDuplicateHwAddr{
				HwAddr:    l.HwAddr,
				ShortAddr: shortaddr.ShortAddr(e.ShortAddr),
			}
		}

		if existing := shortBucket.Get(shortKey(l.ShortAddr)); existing != nil {
			hw, err := hwFromKey(existing)
			if err != nil {
				return err
			}
			return &storage.ErrDuplicateShortAddr{
				ShortAddr: l.ShortAddr,
				HwAddr:    hw,
			}
		}

		return putEntry(hwBucket, shortBucket, l)
	})
}

// Refresh implements storage.Index
func (s *Index) Refresh(ctx context.Context, hw shortaddr.HardwareAddr, lastSeen time.Time) (lease.Lease, error) {
	var result lease.Lease

	err := s.db.Update(func(tx *bbolt.Tx) error {
		hwBucket, _, err := openOrCreateBuckets(tx)
		if err != nil {
			return err
		}

		e, err := getEntry(hwBucket, hw)
		if err != nil {
			return err
		}

		e.LastSeen = lastSeen.Unix()
		blob, err := json.Marshal(e)
		if err != nil {
			return err
		}

		result = e.lease(hw)
		return hwBucket.Put(hw[:], blob)
	})

	return result, err
}

// RemoveByHW implements storage.Index
func (s *Index) RemoveByHW(ctx context.Context, hw shortaddr.HardwareAddr) (lease.Lease, error) {
	var removed lease.Lease

	err := s.db.Update(func(tx *bbolt.Tx) error {
		hwBucket, shortBucket, err := openOrCreateBuckets(tx)
		if err != nil {
			return err
		}

		e, err := getEntry(hwBucket, hw)
		if err != nil {
			return err
		}

		removed = e.lease(hw)
		return deleteEntry(hwBucket, shortBucket, removed)
	})

	return removed, err
}

// RemoveByShort implements storage.Index
func (s *Index) RemoveByShort(ctx context.Context, addr shortaddr.ShortAddr) (lease.Lease, error) {
	var removed lease.Lease

	err := s.db.Update(func(tx *bbolt.Tx) error {
		hwBucket, shortBucket, err := openOrCreateBuckets(tx)
		if err != nil {
			return err
		}

		hw, err := resolveShort(shortBucket, addr)
		if err != nil {
			return err
		}

		e, err := getEntry(hwBucket, hw)
		if err != nil {
			return err
		}

		removed = e.lease(hw)
		return deleteEntry(hwBucket, shortBucket, removed)
	})

	return removed, err
}

// LookupByHW implements storage.Index
func (s *Index) LookupByHW(ctx context.Context, hw shortaddr.HardwareAddr) (lease.Lease, error) {
	var result lease.Lease

	err := s.db.View(func(tx *bbolt.Tx) error {
		hwBucket := tx.Bucket(hwLeaseBucketKey)
		if hwBucket == nil {
			// not found because the bucket hasn't even been created yet
			return &storage.ErrHwAddrNotFound{HwAddr: hw}
		}

		e, err := getEntry(hwBucket, hw)
		if err != nil {
			return err
		}

		result = e.lease(hw)
		return nil
	})

	return result, err
}

// LookupByShort implements storage.Index
func (s *Index) LookupByShort(ctx context.Context, addr shortaddr.ShortAddr) (lease.Lease, error) {
	var result lease.Lease

	err := s.db.View(func(tx *bbolt.Tx) error {
		hwBucket := tx.Bucket(hwLeaseBucketKey)
		shortBucket := tx.Bucket(shortToHWBucket)
		if hwBucket == nil || shortBucket == nil {
			return &storage.ErrShortAddrNotFound{ShortAddr: addr}
		}

		hw, err := resolveShort(shortBucket, addr)
		if err != nil {
			return err
		}

		e, err := getEntry(hwBucket, hw)
		if err != nil {
			return fmt.Errorf("database inconsistency detected: no lease entry for %s (%s): %s", hw, addr, err)
		}

		result = e.lease(hw)
		return nil
	})

	return result, err
}

// List implements storage.Index
func (s *Index) List(ctx context.Context) ([]lease.Lease, error) {
	var leases []lease.Lease

	err := s.db.View(func(tx *bbolt.Tx) error {
		hwBucket := tx.Bucket(hwLeaseBucketKey)
		if hwBucket == nil {
			return nil
		}

		return hwBucket.ForEach(func(key, value []byte) error {
			hw, err := hwFromKey(key)
			if err != nil {
				return err
			}

			var e entry
			if err := json.Unmarshal(value, &e); err != nil {
				return err
			}

			leases = append(leases, e.lease(hw))
			return nil
		})
	})

	return leases, err
}

func openOrCreateBuckets(tx *bbolt.Tx) (hwBucket *bbolt.Bucket, shortBucket *bbolt.Bucket, err error) {
	hwBucket, err = tx.CreateBucketIfNotExists(hwLeaseBucketKey)
	if err != nil {
		return
	}

	shortBucket, err = tx.CreateBucketIfNotExists(shortToHWBucket)
	if err != nil {
		return
	}

	return hwBucket, shortBucket, nil
}

func getEntry(hwBucket *bbolt.Bucket, hw shortaddr.HardwareAddr) (entry, error) {
	var e entry

	blob := hwBucket.Get(hw[:])
	if blob == nil {
		return e, &storage.ErrHwAddrNotFound{HwAddr: hw}
	}

	if err := json.Unmarshal(blob, &e); err != nil {
		return e, err
	}

	return e, nil
}

func resolveShort(shortBucket *bbolt.Bucket, addr shortaddr.ShortAddr) (shortaddr.HardwareAddr, error) {
	key := shortBucket.Get(shortKey(addr))
	if key == nil {
		return shortaddr.HardwareAddr{}, &storage.ErrShortAddrNotFound{ShortAddr: addr}
	}

	return hwFromKey(key)
}

func putEntry(hwBucket, shortBucket *bbolt.Bucket, l lease.Lease) error {
	blob, err := json.Marshal(entry{
		ShortAddr: uint16(l.ShortAddr),
		LastSeen:  l.LastSeen.Unix(),
	})
	if err != nil {
		return err
	}

	if err := shortBucket.Put(shortKey(l.ShortAddr), l.HwAddr[:]); err != nil {
		return err
	}

	return hwBucket.Put(l.HwAddr[:], blob)
}

func deleteEntry(hwBucket, shortBucket *bbolt.Bucket, l lease.Lease) error {
	if err := hwBucket.Delete(l.HwAddr[:]); err != nil {
		return err
	}

	return shortBucket.Delete(shortKey(l.ShortAddr))
}

// compile time check
var _ storage.Index = &Index{}
