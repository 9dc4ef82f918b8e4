package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/apex/log"
	"github.com/caddyserver/caddy"
	"github.com/nextdhcp/nextshort/core/events"
	"github.com/nextdhcp/nextshort/core/lease"
	"github.com/nextdhcp/nextshort/core/leasefile"
	shortLog "github.com/nextdhcp/nextshort/core/log"
	"github.com/nextdhcp/nextshort/core/shortaddr"
	"github.com/ppacher/webthings-mqtt-gateway/pkg/mutex"
)

// Database implements lease.Database on top of an Index. It owns the
// allocation cursor and serializes every operation so the
// lookup-scan-insert sequence of Allocate is never interleaved
type Database struct {
	l      *mutex.Mutex // context.Context aware mutex to protect all fields below
	index  Index
	rng    shortaddr.Range
	cursor shortaddr.ShortAddr // last assigned short address

	log shortLog.Logger
	now func() time.Time
}

// Option configures a Database
type Option func(db *Database)

// WithRange configures the range short addresses are allocated from.
// Defaults to shortaddr.DefaultRange
func WithRange(r shortaddr.Range) Option {
	return func(db *Database) {
		db.rng = r
	}
}

// WithClock replaces time.Now as the source of lease timestamps
func WithClock(now func() time.Time) Option {
	return func(db *Database) {
		db.now = now
	}
}

// WithLogger configures the logger used by the database
func WithLogger(l shortLog.Logger) Option {
	return func(db *Database) {
		db.log = l
	}
}

// NewDatabase creates a new database that uses index to store leases
func NewDatabase(index Index, opts ...Option) *Database {
	db := &Database{
		l:     mutex.New(),
		index: index,
		rng:   shortaddr.DefaultRange,
		log:   log.Log,
		now:   time.Now,
	}

	for _, fn := range opts {
		fn(db)
	}

	db.cursor = db.rng.Start

	return db
}

// Range returns the allocation range of the database
func (db *Database) Range() shortaddr.Range {
	return db.rng
}

// pendingEvent is a lease event that is emitted once the database
// has been unlocked so hooks may call back into the database
type pendingEvent struct {
	name  caddy.EventName
	lease lease.Lease
}

func (e *pendingEvent) emit() {
	if e == nil {
		return
	}

	events.EmitLeaseEvent(e.name, &e.lease)
}

// Allocate implements lease.Database
func (db *Database) Allocate(ctx context.Context, hw shortaddr.HardwareAddr) (shortaddr.ShortAddr, error) {
	if !db.l.TryLock(ctx) {
		return shortaddr.Invalid, ctx.Err()
	}

	addr, evt, err := db.allocate(ctx, hw)
	db.l.Unlock()

	evt.emit()

	return addr, err
}

func (db *Database) allocate(ctx context.Context, hw shortaddr.HardwareAddr) (shortaddr.ShortAddr, *pendingEvent, error) {
	ctx = shortLog.WithFields(ctx, log.Fields{"hwaddr": hw.String()})
	l := shortLog.With(ctx, db.log)

	now := db.timestamp()

	existing, err := db.index.Refresh(ctx, hw, now)
	if err == nil {
		l.Debugf("refreshed existing lease for %s", existing.ShortAddr)
		return existing.ShortAddr, &pendingEvent{events.EventLeaseRefreshed, existing}, nil
	}

	if !IsNotFound(err) {
		l.Errorf("failed to query lease index: %s", err.Error())
		return shortaddr.Invalid, nil, err
	}

	addr, err := db.findFree(ctx)
	if errors.Is(err, lease.ErrAllocationExhausted) {
		l.Warnf("no short address left in %s", db.rng)

		return shortaddr.Invalid, &pendingEvent{events.EventAllocationExhausted, lease.Lease{
			HwAddr:    hw,
			ShortAddr: shortaddr.Invalid,
			LastSeen:  now,
		}}, err
	}

	if err != nil {
		return shortaddr.Invalid, nil, err
	}

	newLease := lease.Lease{
		HwAddr:    hw,
		ShortAddr: addr,
		LastSeen:  now,
	}

	if err := db.index.Insert(ctx, newLease); err != nil {
		l.Errorf("failed to lease %s: %s", addr, err.Error())
		return shortaddr.Invalid, nil, err
	}

	db.cursor = addr

	l.Infof("leased short address %s", addr)
	return addr, &pendingEvent{events.EventLeaseCreated, newLease}, nil
}

// findFree scans the allocation range, starting right after the cursor,
// for a short address that is not leased. Every address of the range is
// visited at most once with the cursor itself being the last candidate
func (db *Database) findFree(ctx context.Context) (shortaddr.ShortAddr, error) {
	candidate := db.rng.Next(db.cursor)

	for {
		if err := ctx.Err(); err != nil {
			return shortaddr.Invalid, err
		}

		_, err := db.index.LookupByShort(ctx, candidate)
		if IsNotFound(err) {
			return candidate, nil
		}

		if err != nil {
			return shortaddr.Invalid, err
		}

		if candidate == db.cursor {
			return shortaddr.Invalid, lease.ErrAllocationExhausted
		}

		candidate = db.rng.Next(candidate)
	}
}

// ReleaseByHW implements lease.Database
func (db *Database) ReleaseByHW(ctx context.Context, hw shortaddr.HardwareAddr) error {
	if !db.l.TryLock(ctx) {
		return ctx.Err()
	}

	ctx = shortLog.WithFields(ctx, log.Fields{"hwaddr": hw.String()})

	released, err := db.index.RemoveByHW(ctx, hw)
	db.l.Unlock()

	return db.released(ctx, released, err)
}

// ReleaseByShort implements lease.Database
func (db *Database) ReleaseByShort(ctx context.Context, addr shortaddr.ShortAddr) error {
	if !db.l.TryLock(ctx) {
		return ctx.Err()
	}

	ctx = shortLog.WithFields(ctx, log.Fields{"shortaddr": addr.String()})

	released, err := db.index.RemoveByShort(ctx, addr)
	db.l.Unlock()

	return db.released(ctx, released, err)
}

func (db *Database) released(ctx context.Context, released lease.Lease, err error) error {
	l := shortLog.With(ctx, db.log)

	if err != nil {
		// releasing an unknown address is a benign race with the caller
		if IsNotFound(err) {
			l.Warnf("cannot release: %s", err.Error())
		} else {
			l.Errorf("failed to release lease: %s", err.Error())
		}

		return err
	}

	l.Infof("released %s (%s)", released.ShortAddr, released.HwAddr)
	(&pendingEvent{events.EventLeaseReleased, released}).emit()

	return nil
}

// Restore implements lease.Database
func (db *Database) Restore(ctx context.Context, l lease.Lease) error {
	if !db.l.TryLock(ctx) {
		return ctx.Err()
	}
	defer db.l.Unlock()

	if !db.rng.Contains(l.ShortAddr) {
		return fmt.Errorf("cannot restore lease %s: outside of allocation range %s", l.ShortAddr, db.rng)
	}

	if err := leasefile.CheckTimestamp(l.LastSeen); err != nil {
		return fmt.Errorf("cannot restore lease %s: %w", l.ShortAddr, err)
	}

	l.LastSeen = l.LastSeen.Truncate(time.Second)
	if err := db.index.Insert(ctx, l); err != nil {
		return err
	}

	shortLog.With(ctx, db.log).Debugf("restored lease %s", l.String())
	return nil
}

// Leases implements lease.Database
func (db *Database) Leases(ctx context.Context) ([]lease.Lease, error) {
	if !db.l.TryLock(ctx) {
		return nil, ctx.Err()
	}
	defer db.l.Unlock()

	leases, err := db.index.List(ctx)
	if err != nil {
		return nil, err
	}

	sort.Sort(lease.ByShortAddr(leases))

	return leases, nil
}

// WriteTo implements lease.Database
func (db *Database) WriteTo(ctx context.Context, w io.Writer) error {
	leases, err := db.Leases(ctx)
	if err != nil {
		return err
	}

	return leasefile.Write(w, leases)
}

// Dump implements lease.Database
func (db *Database) Dump(ctx context.Context, path string) error {
	leases, err := db.Leases(ctx)
	if err != nil {
		return err
	}

	if err := leasefile.WriteFile(path, leases); err != nil {
		shortLog.With(ctx, db.log).Errorf("failed to dump leases to %s: %s", path, err.Error())
		return err
	}

	shortLog.With(ctx, db.log).Debugf("dumped %d leases to %s", len(leases), path)
	return nil
}

// timestamp returns the current time with the precision that is
// persisted in the lease file
func (db *Database) timestamp() time.Time {
	return db.now().Truncate(time.Second)
}

// compile time check
var _ lease.Database = &Database{}
