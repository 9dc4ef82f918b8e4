package mqtt

import (
	"context"
	"os/exec"
	"strconv"

	"github.com/caddyserver/caddy"
	"github.com/nextdhcp/nextshort/core/events"
	"github.com/nextdhcp/nextshort/core/lease"
	"github.com/nextdhcp/nextshort/core/matcher"
	"github.com/nextdhcp/nextshort/core/replacer"
	"github.com/nextdhcp/nextshort/core/shortserver"
	"github.com/nextdhcp/nextshort/plugin"
)

const (
	defaultTopic   = "nextshort/{event}"
	defaultPayload = "{hwaddr} {shortaddr} {timestamp}"
)

func init() {
	caddy.RegisterPlugin("mqtt", caddy.Plugin{
		ServerType: shortserver.ServerType,
		Action:     setupMqtt,
	})
}

func setupMqtt(c *caddy.Controller) error {
	cfg := shortserver.GetConfig(c)

	plg, err := makeMqttPlugin(c)
	if err != nil {
		return err
	}
	plg.l = cfg.Logger().WithField("plugin", "mqtt")

	c.OnShutdown(plg.close)

	cfg.AddPlugin(func(next plugin.Handler) plugin.Handler {
		plg.next = next
		return plg
	})
	return nil
}

// makeMqttPlugin parses all mqtt directives of the server block
//
//	mqtt [CONDITION] {
//		name NAME
//		broker URL...
//		user USER
//		password PASSWORD
//		client-id ID
//		clean-session
//		qos 0|1|2
//		use NAME
//		on EVENT...
//		topic TEMPLATE
//		payload TEMPLATE
//		payload-from COMMAND [ARGS...]
//		if CONDITION
//		if_op and|or
//	}
func makeMqttPlugin(c *caddy.Controller) (*mqttPlugin, error) {
	plg := &mqttPlugin{}

	for c.Next() {
		cfg := &mqttConfig{
			topic:   getStringFactory(defaultTopic),
			payload: getStringFactory(defaultPayload),
		}
		useExisting := false

		cond, err := matcher.SetupMatcherRemainingArgs(c)
		if err != nil {
			return nil, err
		}
		cfg.Matcher = cond

		for c.NextBlock() {
			switch c.Val() {
			case "name", "broker", "user", "password",
				"client-id", "clean-session", "qos":
				if useExisting {
					return nil, c.SyntaxErr("either configure a new connection or \"use\" an existing one")
				}

				if err := parseConnectionSettings(cfg, c); err != nil {
					return nil, err
				}

			case "use":
				if cfg.conn != nil {
					return nil, c.SyntaxErr("either configure a new connection or \"use\" an existing one")
				}
				useExisting = true

				if !c.NextArg() {
					return nil, c.ArgErr()
				}
				cfg.name = c.Val()

			case "on":
				names := c.RemainingArgs()
				if len(names) == 0 {
					return nil, c.ArgErr()
				}

				if cfg.events == nil {
					cfg.events = make(map[caddy.EventName]struct{})
				}

				for _, n := range names {
					if !events.IsLeaseEvent(caddy.EventName(n)) {
						return nil, c.Errf("mqtt: unknown lease event %q", n)
					}
					cfg.events[caddy.EventName(n)] = struct{}{}
				}

			case "topic":
				if !c.NextArg() {
					return nil, c.ArgErr()
				}

				cfg.topic = getStringFactory(c.Val())

			case "payload", "body":
				if !c.NextArg() {
					return nil, c.ArgErr()
				}

				cfg.payload = getStringFactory(c.Val())

			case "payload-from":
				cmd := c.RemainingArgs()
				if len(cmd) == 0 {
					return nil, c.ArgErr()
				}

				cfg.payload = getExecCmdStringFactory(cmd)

			case "if", "if_op":
				// already handled by the matcher
				c.RemainingArgs()

			default:
				return nil, c.Errf("mqtt: unknown property %q", c.Val())
			}
		}

		if !useExisting && cfg.conn == nil {
			return nil, c.SyntaxErr("either configure a MQTT connection or \"use\" an existing one")
		}

		if cfg.conn != nil && len(cfg.conn.broker) == 0 {
			return nil, c.SyntaxErr("at least one MQTT broker must be configured")
		}

		plg.configs = append(plg.configs, cfg)
	}

	for _, cfg := range plg.configs {
		if _, err := plg.connFor(cfg); err != nil {
			return nil, c.Err(err.Error())
		}
	}

	return plg, nil
}

func getStringFactory(s string) msgFactory {
	return func(ctx context.Context, event caddy.EventName, l *lease.Lease) (string, error) {
		rep := replacer.NewReplacer(ctx, event, l)
		return rep.Replace(s), nil
	}
}

func getExecCmdStringFactory(cmd []string) msgFactory {
	return func(ctx context.Context, event caddy.EventName, l *lease.Lease) (string, error) {
		args := make([]string, len(cmd))
		rep := replacer.NewReplacer(ctx, event, l)

		for i, c := range cmd {
			args[i] = rep.Replace(c)
		}

		output, err := exec.CommandContext(ctx, args[0], args[1:]...).Output()
		return string(output), err
	}
}

func parseConnectionSettings(cfg *mqttConfig, c *caddy.Controller) error {
	action := c.Val()

	// the name of a connection is not a connection setting on its own
	if action != "name" && cfg.conn == nil {
		cfg.conn = &mqttConnConfig{}
	}

	if action == "clean-session" {
		cfg.conn.cleanSession = true
		return nil
	}

	if !c.NextArg() {
		return c.ArgErr()
	}

	switch action {
	case "name":
		cfg.name = c.Val()
	case "broker":
		cfg.conn.broker = append([]string{c.Val()}, c.RemainingArgs()...)
	case "user":
		cfg.conn.user = c.Val()
	case "password":
		cfg.conn.password = c.Val()
	case "client-id":
		cfg.conn.clientID = c.Val()
	case "qos":
		i, err := strconv.Atoi(c.Val())
		if err != nil || i < 0 || i > 2 {
			return c.SyntaxErr("expected a number between 0 and 2")
		}
		cfg.conn.qos = i
	}

	return nil
}
