package log

import (
	"strings"

	"github.com/apex/log"
	"github.com/caddyserver/caddy"
	shortLog "github.com/nextdhcp/nextshort/core/log"
	"github.com/nextdhcp/nextshort/core/shortserver"
)

func init() {
	caddy.RegisterPlugin("log", caddy.Plugin{
		ServerType: shortserver.ServerType,
		Action:     setupLogging,
	})
}

// setupLogging parses
//
//	log [LEVEL] {
//		level LEVEL
//		format cli|text|json|discard
//		output stderr|stdout|PATH
//	}
//
// and configures the process wide logger
func setupLogging(c *caddy.Controller) error {
	opts, err := parseLogging(c)
	if err != nil {
		return err
	}

	closer, err := shortLog.Setup(opts)
	if err != nil {
		return c.Errf("log: %s", err.Error())
	}

	c.OnShutdown(closer.Close)

	return nil
}

func parseLogging(c *caddy.Controller) (shortLog.Options, error) {
	var (
		opts  shortLog.Options
		found bool
	)

	for c.Next() {
		if found {
			return opts, c.Err("log: multiple \"log\" configurations")
		}
		found = true

		args := c.RemainingArgs()
		switch len(args) {
		case 0:
		case 1:
			opts.Level = args[0]
		default:
			return opts, c.ArgErr()
		}

		for c.NextBlock() {
			key := c.Val()

			args := c.RemainingArgs()
			if len(args) != 1 {
				return opts, c.ArgErr()
			}

			switch key {
			case "level":
				opts.Level = args[0]
			case "format":
				opts.Format = args[0]
			case "output":
				opts.Output = args[0]
			default:
				return opts, c.Errf("log: unknown property %q", key)
			}
		}
	}

	if !found {
		return opts, c.ArgErr()
	}

	if opts.Level != "" {
		if _, err := log.ParseLevel(strings.ToLower(opts.Level)); err != nil {
			return opts, c.SyntaxErr(err.Error())
		}
	}

	return opts, nil
}
