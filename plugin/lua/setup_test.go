package lua

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/apex/log"
	"github.com/nextdhcp/nextshort/core/events"
	"github.com/nextdhcp/nextshort/plugin/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLua(t *testing.T) {
	path := writeScript(t, "function on_lease() end")

	c := test.CreateTestBed(t, "lua "+path+"\nlua "+path)
	require.NoError(t, setupLua(c))

	invalid := []string{
		"",
		"lua",
		"lua a b",
		"lua " + filepath.Join(t.TempDir(), "missing.lua"),
		"lua " + writeScript(t, "{)"),
	}

	for _, input := range invalid {
		c := test.CreateTestBed(t, input)
		assert.Error(t, setupLua(c), input)
	}
}

func TestLuaPluginServeLease(t *testing.T) {
	r, err := Compile(writeScript(t, `
	function on_lease(event)
		error("failed for " .. event)
	end
	`), log.Log)
	require.NoError(t, err)

	plg := &luaPlugin{
		runners: []*Runner{r},
		next:    test.NoOpHandler,
	}

	// not started, the runner is skipped
	assert.NoError(t, plg.ServeLease(context.Background(), events.EventLeaseCreated, testLease))

	// script errors do not stop the chain
	require.NoError(t, r.Start())
	defer r.Stop() // nolint:errcheck
	assert.NoError(t, plg.ServeLease(context.Background(), events.EventLeaseCreated, testLease))

	plg.next = test.ErrorHandler
	assert.Error(t, plg.ServeLease(context.Background(), events.EventLeaseCreated, testLease))
}
