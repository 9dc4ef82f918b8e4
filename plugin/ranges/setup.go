package ranges

import (
	"github.com/caddyserver/caddy"
	"github.com/nextdhcp/nextshort/core/shortaddr"
	"github.com/nextdhcp/nextshort/core/shortserver"
)

func init() {
	caddy.RegisterPlugin("range", caddy.Plugin{
		ServerType: shortserver.ServerType,
		Action:     setupRange,
	})
}

// setupRange parses
//
//	range START END
//
// and configures the allocation range of the coordinator
func setupRange(c *caddy.Controller) error {
	r, err := parseRange(c)
	if err != nil {
		return err
	}

	shortserver.GetConfig(c).Range = r

	return nil
}

func parseRange(c *caddy.Controller) (shortaddr.Range, error) {
	var (
		r     shortaddr.Range
		found bool
	)

	for c.Next() {
		if found {
			return r, c.Err("range: only one allocation range can be configured")
		}
		found = true

		args := c.RemainingArgs()
		if len(args) != 2 {
			return r, c.ArgErr()
		}

		start, err := shortaddr.ParseShortAddr(args[0])
		if err != nil {
			return r, c.Errf("range: %s", err.Error())
		}

		end, err := shortaddr.ParseShortAddr(args[1])
		if err != nil {
			return r, c.Errf("range: %s", err.Error())
		}

		r = shortaddr.Range{Start: start, End: end}
		if err := r.Validate(); err != nil {
			return r, c.Errf("range: %s", err.Error())
		}
	}

	if !found {
		return r, c.ArgErr()
	}

	return r, nil
}
