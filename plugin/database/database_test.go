package database

import (
	"errors"
	"testing"

	"github.com/nextdhcp/nextshort/core/lease/storage"
	"github.com/nextdhcp/nextshort/core/lease/storage/drivers/memory"
	"github.com/nextdhcp/nextshort/core/shortserver"
	"github.com/nextdhcp/nextshort/plugin/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabaseSetup(t *testing.T) {
	driverName := "test-driver"

	var retErr error
	var argsOpts map[string][]string

	storage.MustRegister(driverName, func(opts map[string][]string) (storage.Index, error) {
		argsOpts = opts
		if retErr != nil {
			return nil, retErr
		}
		return memory.New(), nil
	})

	t.Run("no args", func(t *testing.T) {
		c := test.CreateTestBed(t, "database test-driver")
		require.NoError(t, parseDatabaseDirective(c))

		cfg := shortserver.GetConfig(c)
		assert.Equal(t, driverName, cfg.Driver)
		assert.Empty(t, cfg.DriverOptions)

		servers, err := c.Context().MakeServers()
		require.NoError(t, err)
		assert.Len(t, servers, 1)
		assert.NotNil(t, cfg.Database)
	})

	t.Run("args", func(t *testing.T) {
		c := test.CreateTestBed(t, `database test-driver some arguments {
			barg1 1
			barg2 2 3
		}`)
		require.NoError(t, parseDatabaseDirective(c))

		_, err := c.Context().MakeServers()
		require.NoError(t, err)

		expected := map[string][]string{
			"__args__": {"some", "arguments"},
			"barg1":    {"1"},
			"barg2":    {"2", "3"},
		}
		assert.Equal(t, expected, argsOpts)
	})

	t.Run("driver errors", func(t *testing.T) {
		retErr = errors.New("simulated error")
		defer func() { retErr = nil }()

		c := test.CreateTestBed(t, "database test-driver")
		require.NoError(t, parseDatabaseDirective(c))

		_, err := c.Context().MakeServers()
		assert.Error(t, err)
	})

	t.Run("builtin drivers", func(t *testing.T) {
		assert.True(t, isDriver("memory"))
		assert.True(t, isDriver("bolt"))
	})

	t.Run("invalid", func(t *testing.T) {
		c := test.CreateTestBed(t, "database")
		assert.Error(t, parseDatabaseDirective(c))

		c = test.CreateTestBed(t, "")
		assert.Error(t, parseDatabaseDirective(c))

		c = test.CreateTestBed(t, "database invalid-driver")
		assert.Error(t, parseDatabaseDirective(c))

		c = test.CreateTestBed(t, `database test-driver {
			block arg
		} something else`)
		assert.Error(t, parseDatabaseDirective(c))
	})
}
