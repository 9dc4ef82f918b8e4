package prometheus

import (
	"context"
	"strconv"
	"strings"

	"github.com/caddyserver/caddy"
	"github.com/nextdhcp/nextshort/core/lease"
	"github.com/nextdhcp/nextshort/core/shortserver"
	"github.com/nextdhcp/nextshort/plugin"
)

func init() {
	caddy.RegisterPlugin("prometheus", caddy.Plugin{
		ServerType: shortserver.ServerType,
		Action:     setupPrometheus,
	})
}

// Plugin counts lease events. It implements plugin.Handler
type Plugin struct {
	Next    plugin.Handler
	Metrics *Metrics
}

// Name returns "prometheus" and implements plugin.Handler
func (p *Plugin) Name() string {
	return "prometheus"
}

// ServeLease counts the event and calls the next handler
func (p *Plugin) ServeLease(ctx context.Context, event caddy.EventName, l *lease.Lease) error {
	p.Metrics.events.WithLabelValues(string(event)).Inc()

	return p.Next.ServeLease(ctx, event, l)
}

func setupPrometheus(c *caddy.Controller) error {
	metrics, err := parse(c)
	if err != nil {
		return err
	}

	cfg := shortserver.GetConfig(c)
	metrics.define(func() lease.Database { return cfg.Database }, cfg.Range.Len())
	cfg.OnDump(metrics.observeDump)

	// the listener is only opened when the coordinator is actually
	// started
	c.OnStartup(metrics.start)
	c.OnShutdown(metrics.stop)

	plg := &Plugin{Metrics: metrics}
	cfg.AddPlugin(func(next plugin.Handler) plugin.Handler {
		plg.Next = next
		return plg
	})
	return nil
}

// prometheus {
//	address localhost:9180
//	path /metrics
//	label NAME VALUE
//	dump_buckets 0.001 0.01 0.1
// }
// Or just: prometheus localhost:9180
func parse(c *caddy.Controller) (*Metrics, error) {
	var metrics *Metrics

	for c.Next() {
		if metrics != nil {
			return nil, c.Err("prometheus: can only have one metrics module per coordinator")
		}

		args := c.RemainingArgs()
		metrics = NewMetrics("", "")
		switch len(args) {
		case 0:
		case 1:
			metrics.addr = args[0]
		default:
			return nil, c.ArgErr()
		}
		for c.NextBlock() {
			switch c.Val() {
			case "path":
				args = c.RemainingArgs()
				if len(args) != 1 {
					return nil, c.ArgErr()
				}
				metrics.path = args[0]
			case "address":
				args = c.RemainingArgs()
				if len(args) != 1 {
					return nil, c.ArgErr()
				}
				metrics.addr = args[0]
			case "label":
				args = c.RemainingArgs()
				if len(args) != 2 {
					return nil, c.ArgErr()
				}

				metrics.constLabels[strings.TrimSpace(args[0])] = args[1]
			case "dump_buckets":
				args = c.RemainingArgs()
				if len(args) < 1 {
					return nil, c.Err("prometheus: must specify 1 or more dump buckets")
				}
				metrics.dumpBuckets = make([]float64, len(args))
				for i, v := range args {
					b, err := strconv.ParseFloat(v, 64)
					if err != nil {
						return nil, c.Errf("prometheus: invalid bucket %q - must be a number", v)
					}
					metrics.dumpBuckets[i] = b
				}
			default:
				return nil, c.Errf("prometheus: unknown item: %s", c.Val())
			}
		}
	}

	if metrics == nil {
		return nil, c.ArgErr()
	}

	return metrics, nil
}
