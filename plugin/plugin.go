package plugin

import (
	"context"

	"github.com/caddyserver/caddy"
	"github.com/nextdhcp/nextshort/core/lease"
)

type (
	// Handler for lease events created by a plugin factory (see Plugin).
	// Each handler is responsible of calling the next handler in the chain
	// which was passed to Plugin
	Handler interface {
		// Name returns the name of the handler
		Name() string

		// ServeLease is called for each lease event of the coordinator. See
		// HandlerFunc for more information
		ServeLease(ctx context.Context, event caddy.EventName, l *lease.Lease) error
	}

	// Plugin represents the setup func for a NextShort plugin. It is passed
	// the next plugin in the chain
	Plugin func(Handler) Handler

	// HandlerFunc allows to easily wrap a function as a Handler type.
	// The provided context will always have a lease.Database assigned to it. A
	// reference to the database can be loaded by using lease.GetDatabase(ctx).
	// The lease must not be modified
	HandlerFunc func(ctx context.Context, event caddy.EventName, l *lease.Lease) error
)

// ServeLease implements the Handler interface
func (fn HandlerFunc) ServeLease(ctx context.Context, event caddy.EventName, l *lease.Lease) error {
	return fn(ctx, event, l)
}

// Name returns "HandlerFunc" and implements the Handler interface
func (fn HandlerFunc) Name() string {
	return "HandlerFunc"
}
