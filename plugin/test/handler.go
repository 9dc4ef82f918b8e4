package test

import (
	"context"
	"errors"
	"sync"

	"github.com/caddyserver/caddy"
	"github.com/nextdhcp/nextshort/core/lease"
)

type (
	// HandlerFunc implements plugin.Handler
	HandlerFunc func(ctx context.Context, event caddy.EventName, l *lease.Lease) error

	// Event is a lease event recorded by Recorder
	Event struct {
		Name  caddy.EventName
		Lease lease.Lease
	}

	// Recorder is a plugin.Handler that records all events it serves
	Recorder struct {
		l      sync.Mutex
		events []Event
	}
)

// ServeLease implements plugin.Handler
func (fn HandlerFunc) ServeLease(ctx context.Context, event caddy.EventName, l *lease.Lease) error {
	return fn(ctx, event, l)
}

// Name implements plugin.Handler
func (fn HandlerFunc) Name() string {
	return "test.HandlerFunc"
}

// ServeLease implements plugin.Handler
func (r *Recorder) ServeLease(_ context.Context, event caddy.EventName, l *lease.Lease) error {
	r.l.Lock()
	defer r.l.Unlock()

	e := Event{Name: event}
	if l != nil {
		e.Lease = *l
	}
	r.events = append(r.events, e)

	return nil
}

// Name implements plugin.Handler
func (r *Recorder) Name() string {
	return "test.Recorder"
}

// Events returns a copy of all recorded events
func (r *Recorder) Events() []Event {
	r.l.Lock()
	defer r.l.Unlock()

	return append([]Event(nil), r.events...)
}

var (
	// ErrorHandler is a plugin.Handler and always returns an error
	ErrorHandler = HandlerFunc(func(_ context.Context, _ caddy.EventName, _ *lease.Lease) error {
		return errors.New("simulated error")
	})

	// NoOpHandler is a No-Operation plugin.Handler
	NoOpHandler = HandlerFunc(func(_ context.Context, _ caddy.EventName, _ *lease.Lease) error {
		return nil
	})
)
