package database

import (
	"github.com/caddyserver/caddy"
	"github.com/nextdhcp/nextshort/core/lease/storage"
	"github.com/nextdhcp/nextshort/core/shortserver"

	// import all supported lease index drivers
	_ "github.com/nextdhcp/nextshort/core/lease/storage/drivers"
)

func init() {
	caddy.RegisterPlugin("database", caddy.Plugin{
		ServerType: shortserver.ServerType,
		Action:     parseDatabaseDirective,
	})
}

// parseDatabaseDirective parses
//
//	database DRIVER [ARGS...] {
//		key values...
//	}
//
// Positional arguments are passed to the driver as "__args__". The
// index itself is opened when the coordinator is started
func parseDatabaseDirective(c *caddy.Controller) error {
	if !c.Next() {
		return c.ArgErr()
	}

	if !c.NextArg() {
		return c.ArgErr()
	}
	driverName := c.Val()

	if !isDriver(driverName) {
		return c.Errf("unknown database driver %q", driverName)
	}

	var options = make(map[string][]string)
	remaining := c.RemainingArgs()
	if len(remaining) > 0 {
		options["__args__"] = remaining
	}

	for c.NextBlock() {
		options[c.Val()] = c.RemainingArgs()
	}

	if c.Next() {
		return c.ArgErr()
	}

	cfg := shortserver.GetConfig(c)
	cfg.Driver = driverName
	cfg.DriverOptions = options

	c.OnShutdown(func() error {
		return cfg.Close()
	})

	return nil
}

func isDriver(name string) bool {
	for _, d := range storage.Drivers() {
		if d == name {
			return true
		}
	}

	return false
}
