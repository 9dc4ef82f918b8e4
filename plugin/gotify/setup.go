package gotify

import (
	"context"
	"strconv"

	"github.com/caddyserver/caddy"
	"github.com/nextdhcp/nextshort/core/events"
	"github.com/nextdhcp/nextshort/core/lease"
	"github.com/nextdhcp/nextshort/core/matcher"
	"github.com/nextdhcp/nextshort/core/replacer"
	"github.com/nextdhcp/nextshort/core/shortserver"
	"github.com/nextdhcp/nextshort/plugin"
)

func init() {
	caddy.RegisterPlugin("gotify", caddy.Plugin{
		ServerType: shortserver.ServerType,
		Action:     setupGotify,
	})
}

func setupGotify(c *caddy.Controller) error {
	cfg := shortserver.GetConfig(c)

	g, err := makeGotifyPlugin(c)
	if err != nil {
		return err
	}
	g.l = cfg.Logger().WithField("plugin", "gotify")

	c.OnShutdown(g.wait)

	cfg.AddPlugin(func(next plugin.Handler) plugin.Handler {
		g.next = next
		return g
	})

	return nil
}

// makeGotifyPlugin parses all gotify directives of the server block
//
//	gotify [CONDITION] {
//		server URL TOKEN
//		title TEMPLATE
//		message TEMPLATE
//		priority NUMBER
//		on EVENT...
//		if CONDITION
//		if_op and|or
//	}
//
// Server and token are inherited from the previous gotify directive if
// not set
func makeGotifyPlugin(c *caddy.Controller) (*gotifyPlugin, error) {
	g := &gotifyPlugin{}

	for c.Next() {
		n := &notification{
			priority: defaultPriority,
		}

		cond, err := matcher.SetupMatcherRemainingArgs(c)
		if err != nil {
			return nil, err
		}
		n.Matcher = cond

		for c.NextBlock() {
			switch c.Val() {
			case "server":
				args := c.RemainingArgs()
				if len(args) != 2 {
					return nil, c.ArgErr()
				}
				n.srv = args[0]
				n.token = args[1]

			case "message", "title":
				key := c.Val()
				if !c.NextArg() {
					return nil, c.ArgErr()
				}

				factory := getStringFactory(c.Val())
				if key == "message" {
					n.msg = factory
				} else {
					n.title = factory
				}

			case "priority":
				if !c.NextArg() {
					return nil, c.ArgErr()
				}

				p, err := strconv.Atoi(c.Val())
				if err != nil || p < 0 {
					return nil, c.SyntaxErr("expected a positive number")
				}
				n.priority = p

			case "on":
				names := c.RemainingArgs()
				if len(names) == 0 {
					return nil, c.ArgErr()
				}

				if n.events == nil {
					n.events = make(map[caddy.EventName]struct{})
				}

				for _, name := range names {
					if !events.IsLeaseEvent(caddy.EventName(name)) {
						return nil, c.Errf("gotify: unknown lease event %q", name)
					}
					n.events[caddy.EventName(name)] = struct{}{}
				}

			case "if", "if_op":
				// already handled by the matcher
				c.RemainingArgs()

			default:
				return nil, c.Errf("gotify: unknown property %q", c.Val())
			}
		}

		if n.msg == nil && (n.title != nil || !n.EmptyCondition() || len(n.events) > 0) {
			return nil, c.SyntaxErr("a message must be configured")
		}

		if n.srv == "" {
			srv, token, ok := g.findLastCreds()
			if !ok {
				return nil, c.SyntaxErr("no gotify server configured")
			}

			n.srv = srv
			n.token = token
		}

		g.addNotification(n)
	}

	if len(g.notifications) == 0 {
		return nil, c.ArgErr()
	}

	return g, nil
}

func getStringFactory(s string) msgFactory {
	return func(ctx context.Context, event caddy.EventName, l *lease.Lease) (string, error) {
		rep := replacer.NewReplacer(ctx, event, l)
		return rep.Replace(s), nil
	}
}
