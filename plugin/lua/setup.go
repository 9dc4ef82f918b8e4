package lua

import (
	"context"

	"github.com/caddyserver/caddy"
	"github.com/nextdhcp/nextshort/core/lease"
	"github.com/nextdhcp/nextshort/core/shortserver"
	"github.com/nextdhcp/nextshort/plugin"
)

func init() {
	caddy.RegisterPlugin("lua", caddy.Plugin{
		ServerType: shortserver.ServerType,
		Action:     setupLua,
	})
}

// luaPlugin passes lease events to lua scripts. It implements
// plugin.Handler
type luaPlugin struct {
	next    plugin.Handler
	runners []*Runner
}

// Name returns "lua" and implements plugin.Handler
func (p *luaPlugin) Name() string {
	return "lua"
}

// ServeLease calls the on_lease hook of each script and the next handler.
// Script errors are logged but do not stop the chain
func (p *luaPlugin) ServeLease(ctx context.Context, event caddy.EventName, l *lease.Lease) error {
	for _, r := range p.runners {
		if err := r.Call(ctx, event, l); err != nil {
			r.l.Warnf("%s() failed: %s", hookName, err.Error())
		}
	}

	return p.next.ServeLease(ctx, event, l)
}

// setupLua parses
//
//	lua SCRIPT
//
// Scripts are compiled during setup and executed once the coordinator
// starts
func setupLua(c *caddy.Controller) error {
	cfg := shortserver.GetConfig(c)
	plg := &luaPlugin{}

	for c.Next() {
		args := c.RemainingArgs()
		if len(args) != 1 {
			return c.ArgErr()
		}

		r, err := Compile(args[0], cfg.Logger().WithField("script", args[0]))
		if err != nil {
			return c.Errf("lua: %s", err.Error())
		}

		c.OnStartup(r.Start)
		c.OnShutdown(r.Stop)

		plg.runners = append(plg.runners, r)
	}

	if len(plg.runners) == 0 {
		return c.ArgErr()
	}

	cfg.AddPlugin(func(next plugin.Handler) plugin.Handler {
		plg.next = next
		return plg
	})

	return nil
}
