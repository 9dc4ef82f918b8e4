// Package tests contains a conformance suite for storage.Index
// implementations.
package tests

import (
	"context"
	"testing"
	"time"

	"github.com/nextdhcp/nextshort/core/lease"
	"github.com/nextdhcp/nextshort/core/lease/storage"
	"github.com/nextdhcp/nextshort/core/shortaddr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type (
	// IndexFactory should create a new, empty index instance
	IndexFactory func(ctx context.Context) storage.Index

	// TeardownFunc is invoked after the suite finished
	TeardownFunc func(storage.Index)
)

var (
	hw1 = shortaddr.MustParseHardwareAddr("00:11:22:33:44:55:66:77")
	hw2 = shortaddr.MustParseHardwareAddr("00:11:22:33:44:55:66:78")
	hw3 = shortaddr.MustParseHardwareAddr("aa:bb:cc:dd:ee:ff:00:01")
)

// Run executes a test suite to ensure index implementations match the
// requirements
func Run(t *testing.T, factory IndexFactory, teardown TeardownFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	instance := factory(ctx)
	require.NotNil(t, instance)
	defer teardown(instance)

	count := func() int {
		all, err := instance.List(ctx)
		require.NoError(t, err)

		return len(all)
	}

	// implementations must keep the second precision of LastSeen
	seen := time.Unix(0x6553f100, 0)

	t.Run("Insert", func(t *testing.T) {
		err := instance.Insert(ctx, lease.Lease{HwAddr: hw1, ShortAddr: 0x8001, LastSeen: seen})
		assert.NoError(t, err, "adding a unique lease must work")
		assert.Equal(t, 1, count())

		// reusing the hardware address is not allowed
		err = instance.Insert(ctx, lease.Lease{HwAddr: hw1, ShortAddr: 0x8002, LastSeen: seen})
		assert.Error(t, err, "hardware addresses must not be allowed to be re-used")
		var dupHW *storage.ErrDuplicateHwAddr
		require.ErrorAs(t, err, &dupHW)
		assert.Equal(t, hw1, dupHW.HwAddr)
		assert.Equal(t, shortaddr.ShortAddr(0x8001), dupHW.ShortAddr)
		assert.True(t, storage.IsDuplicateKey(err))
		assert.Equal(t, 1, count())

		// reusing the short address is not allowed
		err = instance.Insert(ctx, lease.Lease{HwAddr: hw2, ShortAddr: 0x8001, LastSeen: seen})
		assert.Error(t, err, "short addresses must not be allowed to be re-used")
		var dupShort *storage.ErrDuplicateShortAddr
		require.ErrorAs(t, err, &dupShort)
		assert.Equal(t, shortaddr.ShortAddr(0x8001), dupShort.ShortAddr)
		assert.Equal(t, hw1, dupShort.HwAddr)
		assert.True(t, storage.IsDuplicateKey(err))
		assert.Equal(t, 1, count())

		// a rejected insert must not leave a partial entry behind
		_, err = instance.LookupByHW(ctx, hw2)
		assert.True(t, storage.IsNotFound(err))
		_, err = instance.LookupByShort(ctx, 0x8002)
		assert.True(t, storage.IsNotFound(err))

		err = instance.Insert(ctx, lease.Lease{HwAddr: hw3, ShortAddr: 0xfffd, LastSeen: seen})
		assert.NoError(t, err, "adding a unique lease must work")
		assert.Equal(t, 2, count())
	})

	t.Run("LookupByHW", func(t *testing.T) {
		l, err := instance.LookupByHW(ctx, hw1)
		require.NoError(t, err)
		assert.Equal(t, hw1, l.HwAddr)
		assert.Equal(t, shortaddr.ShortAddr(0x8001), l.ShortAddr)
		assert.Equal(t, seen.Unix(), l.LastSeen.Unix())

		_, err = instance.LookupByHW(ctx, hw2)
		assert.Error(t, err)
		var notFound *storage.ErrHwAddrNotFound
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, hw2, notFound.HwAddr)
	})

	t.Run("LookupByShort", func(t *testing.T) {
		l, err := instance.LookupByShort(ctx, 0xfffd)
		require.NoError(t, err)
		assert.Equal(t, hw3, l.HwAddr)
		assert.Equal(t, shortaddr.ShortAddr(0xfffd), l.ShortAddr)

		_, err = instance.LookupByShort(ctx, 0x8002)
		assert.Error(t, err)
		var notFound *storage.ErrShortAddrNotFound
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, shortaddr.ShortAddr(0x8002), notFound.ShortAddr)
	})

	t.Run("Refresh", func(t *testing.T) {
		later := seen.Add(time.Hour)

		l, err := instance.Refresh(ctx, hw1, later)
		require.NoError(t, err)
		assert.Equal(t, shortaddr.ShortAddr(0x8001), l.ShortAddr)
		assert.Equal(t, later.Unix(), l.LastSeen.Unix())

		// both lookup paths must see the new timestamp
		l, err = instance.LookupByShort(ctx, 0x8001)
		require.NoError(t, err)
		assert.Equal(t, later.Unix(), l.LastSeen.Unix())

		l, err = instance.LookupByHW(ctx, hw1)
		require.NoError(t, err)
		assert.Equal(t, later.Unix(), l.LastSeen.Unix())

		_, err = instance.Refresh(ctx, hw2, later)
		assert.True(t, storage.IsNotFound(err))
		assert.Equal(t, 2, count())
	})

	t.Run("List", func(t *testing.T) {
		all, err := instance.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)

		byHW := map[shortaddr.HardwareAddr]shortaddr.ShortAddr{}
		for _, l := range all {
			byHW[l.HwAddr] = l.ShortAddr
		}

		assert.Equal(t, map[shortaddr.HardwareAddr]shortaddr.ShortAddr{
			hw1: 0x8001,
			hw3: 0xfffd,
		}, byHW)
	})

	t.Run("RemoveByShort", func(t *testing.T) {
		removed, err := instance.RemoveByShort(ctx, 0x8001)
		require.NoError(t, err)
		assert.Equal(t, hw1, removed.HwAddr)
		assert.Equal(t, shortaddr.ShortAddr(0x8001), removed.ShortAddr)
		assert.Equal(t, 1, count())

		// the lease must be gone from both lookup paths
		_, err = instance.LookupByShort(ctx, 0x8001)
		assert.True(t, storage.IsNotFound(err))
		_, err = instance.LookupByHW(ctx, hw1)
		assert.True(t, storage.IsNotFound(err))

		_, err = instance.RemoveByShort(ctx, 0x8001)
		assert.True(t, storage.IsNotFound(err))
		assert.Equal(t, 1, count())
	})

	t.Run("RemoveByHW", func(t *testing.T) {
		removed, err := instance.RemoveByHW(ctx, hw3)
		require.NoError(t, err)
		assert.Equal(t, shortaddr.ShortAddr(0xfffd), removed.ShortAddr)
		assert.Equal(t, 0, count())

		_, err = instance.LookupByShort(ctx, 0xfffd)
		assert.True(t, storage.IsNotFound(err))
		_, err = instance.LookupByHW(ctx, hw3)
		assert.True(t, storage.IsNotFound(err))

		_, err = instance.RemoveByHW(ctx, hw3)
		assert.True(t, storage.IsNotFound(err))
	})

	t.Run("Reuse", func(t *testing.T) {
		// released keys may be bound again, even swapped
		assert.NoError(t, instance.Insert(ctx, lease.Lease{HwAddr: hw1, ShortAddr: 0xfffd, LastSeen: seen}))
		assert.NoError(t, instance.Insert(ctx, lease.Lease{HwAddr: hw3, ShortAddr: 0x8001, LastSeen: seen}))
		assert.Equal(t, 2, count())

		l, err := instance.LookupByShort(ctx, 0x8001)
		require.NoError(t, err)
		assert.Equal(t, hw3, l.HwAddr)
	})
}
