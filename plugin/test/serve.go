package test

import (
	"testing"

	"github.com/caddyserver/caddy"
	"github.com/caddyserver/caddy/caddyfile"
	"github.com/nextdhcp/nextshort/core/shortserver"
	"github.com/stretchr/testify/require"
)

// CoordinatorName is the name of the coordinator created by CreateTestBed
const CoordinatorName = "pan0"

// CreateTestBed creates a new caddy.Controller that is configured for
// testing the setup and configuration of plugins. It creates a dummy server
// block in the context of the "shortaddr" server type so plugins can safely
// assume shortserver.GetConfig(ctrl) will return a valid configuration
func CreateTestBed(t *testing.T, input string) *caddy.Controller {
	ctrl := caddy.NewTestController(shortserver.ServerType, input)
	ctx := ctrl.Context()
	require.NotNil(t, ctx)

	serverBlock := caddyfile.ServerBlock{
		Keys:   []string{CoordinatorName},
		Tokens: map[string][]caddyfile.Token{},
	}

	blks, err := ctx.InspectServerBlocks("test-source", []caddyfile.ServerBlock{serverBlock})
	require.NoError(t, err)
	require.Equal(t, []caddyfile.ServerBlock{serverBlock}, blks)

	return ctrl
}
