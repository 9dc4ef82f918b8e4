package mqtt

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/apex/log"
	"github.com/caddyserver/caddy"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/nextdhcp/nextshort/core/lease"
	shortLog "github.com/nextdhcp/nextshort/core/log"
	"github.com/nextdhcp/nextshort/core/matcher"
	"github.com/nextdhcp/nextshort/plugin"
)

// disconnectQuiesce is the time in milliseconds paho waits for pending
// work before closing a connection
const disconnectQuiesce = 250

type (
	// msgFactory creates the MQTT topic or payload from the given lease
	// event
	msgFactory func(ctx context.Context, event caddy.EventName, l *lease.Lease) (string, error)

	mqttConnConfig struct {
		broker       []string
		user         string
		password     string
		clientID     string
		cleanSession bool
		qos          int

		l sync.Mutex
		c mqtt.Client
	}

	mqttConfig struct {
		*matcher.Matcher

		conn    *mqttConnConfig
		name    string // optional name for the mqtt config
		events  map[caddy.EventName]struct{}
		topic   msgFactory
		payload msgFactory
	}

	mqttPlugin struct {
		configs []*mqttConfig
		next    plugin.Handler
		l       log.Interface

		// mu guards closed and the wg.Add calls racing with close
		mu     sync.Mutex
		closed bool
		wg     sync.WaitGroup
	}
)

// Name returns "mqtt" and implements plugin.Handler
func (m *mqttPlugin) Name() string {
	return "mqtt"
}

// ServeLease forwards the lease event and publishes any MQTT messages
// configured for it. It implements plugin.Handler
func (m *mqttPlugin) ServeLease(ctx context.Context, event caddy.EventName, l *lease.Lease) error {
	if err := m.next.ServeLease(ctx, event, l); err != nil {
		return err
	}

	logger := shortLog.With(ctx, m.l)

	// the lease must not be modified nor retained by handlers
	var cpy *lease.Lease
	if l != nil {
		cpy = l.Clone()
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		logger.Debugf("not publishing %s: MQTT plugin is shutting down", event)
		return nil
	}
	m.wg.Add(len(m.configs))
	m.mu.Unlock()

	for _, cfg := range m.configs {
		go func(cfg *mqttConfig) {
			defer m.wg.Done()

			topic, payload, ok, err := cfg.message(ctx, event, cpy)
			if err != nil {
				logger.Errorf("failed to prepare MQTT message for %q: %s", cfg.name, err.Error())
				return
			}

			if !ok {
				return
			}

			cli, qos, err := m.getClient(cfg)
			if err != nil {
				logger.Errorf("failed to get MQTT connection for %q: %s", cfg.name, err.Error())
				return
			}

			if token := cli.Publish(topic, byte(qos), false, payload); token.Wait() && token.Error() != nil {
				logger.Errorf("failed to publish MQTT message for %q: %s", cfg.name, token.Error())
				return
			}

			logger.Debugf("published MQTT message to topic %s", topic)
		}(cfg)
	}

	return nil
}

// message returns the topic and payload to publish for the lease event.
// ok is false if the event does not match the configuration
func (cfg *mqttConfig) message(ctx context.Context, event caddy.EventName, l *lease.Lease) (topic, payload string, ok bool, err error) {
	if len(cfg.events) > 0 {
		if _, wanted := cfg.events[event]; !wanted {
			return "", "", false, nil
		}
	}

	match, err := cfg.Match(ctx, event, l)
	if err != nil || !match {
		return "", "", false, err
	}

	topic, err = cfg.topic(ctx, event, l)
	if err != nil {
		return "", "", false, err
	}

	if topic == "" {
		return "", "", false, fmt.Errorf("empty topic")
	}

	payload, err = cfg.payload(ctx, event, l)
	if err != nil {
		return "", "", false, err
	}

	return topic, payload, true, nil
}

func (m *mqttPlugin) getClient(cfg *mqttConfig) (mqtt.Client, int, error) {
	conn, err := m.connFor(cfg)
	if err != nil {
		return nil, 0, err
	}

	conn.l.Lock()
	defer conn.l.Unlock()

	if conn.c == nil {
		if err := conn.open(m.l); err != nil {
			return nil, 0, err
		}
	}

	return conn.c, conn.qos, nil
}

// connFor returns the connection settings used by cfg. Configurations
// that "use" an existing connection are resolved by name
func (m *mqttPlugin) connFor(cfg *mqttConfig) (*mqttConnConfig, error) {
	if cfg.conn != nil {
		return cfg.conn, nil
	}

	for _, c := range m.configs {
		if c.name == cfg.name && c.conn != nil {
			return c.conn, nil
		}
	}

	return nil, fmt.Errorf("MQTT configuration with name %q not found", cfg.name)
}

// close waits for pending messages and disconnects from all brokers.
// Events served afterwards are not published anymore
func (m *mqttPlugin) close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.wg.Wait()

	for _, cfg := range m.configs {
		if cfg.conn == nil {
			continue
		}

		cfg.conn.l.Lock()
		if cfg.conn.c != nil {
			cfg.conn.c.Disconnect(disconnectQuiesce)
			cfg.conn.c = nil
		}
		cfg.conn.l.Unlock()
	}

	return nil
}

func (conn *mqttConnConfig) open(l log.Interface) error {
	opts := mqtt.NewClientOptions()

	for _, b := range conn.broker {
		opts.AddBroker(b)
	}

	if conn.user != "" {
		opts.SetUsername(conn.user)
	}

	if conn.password != "" {
		opts.SetPassword(conn.password)
	}

	if conn.cleanSession {
		opts.SetCleanSession(true)
	}

	if conn.clientID != "" {
		opts.SetClientID(conn.clientID)
	}

	opts.SetAutoReconnect(true)

	cli := mqtt.NewClient(opts)

	var servers []string
	for _, s := range opts.Servers {
		servers = append(servers, s.String())
	}

	l.Debugf("connecting to MQTT brokers at %s", strings.Join(servers, ", "))
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	l.Infof("connected to MQTT brokers at %s", strings.Join(servers, ", "))

	conn.c = cli

	return nil
}
