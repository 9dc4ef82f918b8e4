package lua

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/apex/log"
	"github.com/nextdhcp/nextshort/core/events"
	"github.com/nextdhcp/nextshort/core/lease"
	"github.com/nextdhcp/nextshort/core/lease/storage"
	"github.com/nextdhcp/nextshort/core/lease/storage/drivers/memory"
	"github.com/nextdhcp/nextshort/core/shortaddr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLease = &lease.Lease{
	HwAddr:    shortaddr.MustParseHardwareAddr("00:11:22:33:44:55:66:77"),
	ShortAddr: 0x8001,
	LastSeen:  time.Unix(1700000000, 0),
}

func writeScript(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "script.lua")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCompile(t *testing.T) {
	_, err := Compile(filepath.Join(t.TempDir(), "missing.lua"), log.Log)
	assert.Error(t, err)

	_, err = Compile(writeScript(t, "{)"), log.Log)
	assert.Error(t, err)

	r, err := Compile(writeScript(t, "function on_lease() end"), log.Log)
	require.NoError(t, err)
	assert.NotNil(t, r)
}

func TestRunnerStart(t *testing.T) {
	// the hook is required
	r, err := Compile(writeScript(t, "x = 1"), log.Log)
	require.NoError(t, err)
	assert.Error(t, r.Start())

	// runtime errors are reported
	r, err = Compile(writeScript(t, "error('boom')"), log.Log)
	require.NoError(t, err)
	assert.Error(t, r.Start())

	r, err = Compile(writeScript(t, `
	settings = {
		events = { "lease-created", "lease-released" },
	}

	function on_lease(event, hwaddr, shortaddr, timestamp)
	end
	`), log.Log)
	require.NoError(t, err)
	require.NoError(t, r.Start())
	defer r.Stop() // nolint:errcheck

	assert.Equal(t, []string{"lease-created", "lease-released"}, r.Settings().Events)

	// starting twice is a no-op
	assert.NoError(t, r.Start())
}

func TestRunnerCall(t *testing.T) {
	r, err := Compile(writeScript(t, `
	settings = {
		events = { "lease-created" },
	}

	calls = 0
	last = ""

	function on_lease(event, hwaddr, shortaddr, timestamp)
		local all = nextshort.leases()
		calls = calls + 1
		last = event .. " " .. hwaddr .. " " .. shortaddr .. " " .. timestamp .. " " .. #all
		nextshort.log("handled", event)
	end
	`), log.Log)
	require.NoError(t, err)

	// not started yet
	assert.NoError(t, r.Call(context.Background(), events.EventLeaseCreated, testLease))

	require.NoError(t, r.Start())
	defer r.Stop() // nolint:errcheck

	db := storage.NewDatabase(memory.New())
	_, err = db.Allocate(context.Background(), testLease.HwAddr)
	require.NoError(t, err)

	ctx := lease.WithDatabase(context.Background(), db)
	require.NoError(t, r.Call(ctx, events.EventLeaseCreated, testLease))

	// filtered by settings.events
	require.NoError(t, r.Call(ctx, events.EventLeaseReleased, testLease))

	assert.Equal(t, "1", r.state.GetGlobal("calls").String())
	assert.Equal(t, "lease-created 00:11:22:33:44:55:66:77 32769 1700000000 1", r.state.GetGlobal("last").String())

	// leases() needs a database
	assert.Error(t, r.Call(context.Background(), events.EventLeaseCreated, testLease))

	require.NoError(t, r.Stop())
	assert.NoError(t, r.Call(ctx, events.EventLeaseCreated, testLease))
}
