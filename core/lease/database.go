package lease

import (
	"context"
	"errors"
	"io"

	"github.com/nextdhcp/nextshort/core/shortaddr"
)

// ErrAllocationExhausted indicates that no short address is left in the
// allocation range. It is always returned together with shortaddr.Invalid
var ErrAllocationExhausted = errors.New("no short address available")

// Database describes the short address lease database
type Database interface {
	// Allocate returns the short address leased to hw. If there is
	// no lease yet a new one is created. Repeated calls for the same
	// hardware address only refresh the lease
	Allocate(context.Context, shortaddr.HardwareAddr) (shortaddr.ShortAddr, error)

	// ReleaseByHW releases the lease of a hardware address
	ReleaseByHW(context.Context, shortaddr.HardwareAddr) error

	// ReleaseByShort releases the lease of a short address
	ReleaseByShort(context.Context, shortaddr.ShortAddr) error

	// Restore adds a previously persisted lease to the database. It is
	// used to replay leases during startup and keeps the LastSeen
	// timestamp of l
	Restore(context.Context, Lease) error

	// Leases returns all active leases ordered by short address
	Leases(context.Context) ([]Lease, error)

	// WriteTo writes all active leases to w using the lease file
	// format
	WriteTo(context.Context, io.Writer) error

	// Dump replaces the content of the lease file at path with all
	// active leases
	Dump(ctx context.Context, path string) error
}

// Key is a key used to associate a Database with
// a context.Context
type Key struct{}

// GetDatabase returns the lease database assigned to ctx
func GetDatabase(ctx context.Context) Database {
	val := ctx.Value(Key{})
	if val == nil {
		return nil
	}

	db := val.(Database)
	return db
}

// WithDatabase returns a new context that has the given database
// assigned
func WithDatabase(ctx context.Context, db Database) context.Context {
	return context.WithValue(ctx, Key{}, db)
}
