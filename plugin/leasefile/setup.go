package leasefile

import (
	"context"
	"time"

	"github.com/caddyserver/caddy"
	"github.com/nextdhcp/nextshort/core/shortserver"
)

func init() {
	caddy.RegisterPlugin("leasefile", caddy.Plugin{
		ServerType: shortserver.ServerType,
		Action:     setupLeaseFile,
	})
}

// setupLeaseFile parses
//
//	leasefile PATH {
//		interval DURATION
//	}
//
// Active leases are replayed from PATH when the coordinator starts and
// written back every DURATION as well as on restart and shutdown. An
// interval of 0 disables periodic dumps
func setupLeaseFile(c *caddy.Controller) error {
	cfg := shortserver.GetConfig(c)

	path, interval, err := parseLeaseFile(c)
	if err != nil {
		return err
	}

	cfg.LeaseFile = path
	cfg.DumpInterval = interval

	dump := dumpFunc(cfg)
	c.OnRestart(dump)
	c.OnShutdown(dump)

	return nil
}

func dumpFunc(cfg *shortserver.Config) func() error {
	return func() error {
		if err := cfg.Dump(context.Background()); err != nil {
			cfg.Logger().Errorf("failed to write lease file %s: %s", cfg.LeaseFile, err.Error())
			return err
		}

		cfg.Logger().Debugf("leases written to %s", cfg.LeaseFile)
		return nil
	}
}

func parseLeaseFile(c *caddy.Controller) (string, time.Duration, error) {
	var (
		path     string
		interval = shortserver.DefaultDumpInterval
	)

	for c.Next() {
		if path != "" {
			return "", 0, c.Err("leasefile: only one lease file can be configured")
		}

		args := c.RemainingArgs()
		if len(args) != 1 {
			return "", 0, c.ArgErr()
		}
		path = args[0]

		for c.NextBlock() {
			switch c.Val() {
			case "interval":
				if !c.NextArg() {
					return "", 0, c.ArgErr()
				}

				d, err := time.ParseDuration(c.Val())
				if err != nil {
					return "", 0, c.Errf("leasefile: invalid interval: %s", err.Error())
				}

				if d < 0 {
					return "", 0, c.Errf("leasefile: interval must not be negative")
				}
				interval = d

				if c.NextArg() {
					return "", 0, c.ArgErr()
				}

			default:
				return "", 0, c.Errf("leasefile: unknown property %q", c.Val())
			}
		}
	}

	if path == "" {
		return "", 0, c.ArgErr()
	}

	return path, interval, nil
}
