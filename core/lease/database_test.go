package lease_test

import (
	"context"
	"testing"

	"github.com/nextdhcp/nextshort/core/lease"
	"github.com/nextdhcp/nextshort/core/lease/mockdb"
	"github.com/stretchr/testify/assert"
)

func TestDatabaseContextKeys(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, lease.GetDatabase(ctx))

	// invalid types should panic
	ctx = context.WithValue(ctx, lease.Key{}, "invalid-type")
	assert.Panics(t, func() {
		lease.GetDatabase(ctx)
	})

	db := &mockdb.MockDatabase{}
	ctx = lease.WithDatabase(ctx, db)
	assert.Equal(t, db, lease.GetDatabase(ctx))
}
