package events

import (
	"github.com/apex/log"
	"github.com/caddyserver/caddy"
	"github.com/nextdhcp/nextshort/core/lease"
)

const (
	// EventLeaseCreated is emitted when a short address has been bound
	// to a hardware address
	EventLeaseCreated caddy.EventName = "lease-created"

	// EventLeaseRefreshed is emitted when an existing lease has been
	// requested again
	EventLeaseRefreshed caddy.EventName = "lease-refreshed"

	// EventLeaseReleased is emitted when a lease has been released
	EventLeaseReleased caddy.EventName = "lease-released"

	// EventAllocationExhausted is emitted when no short address is left.
	// The lease passed to hooks carries the requesting hardware address
	// and shortaddr.Invalid
	EventAllocationExhausted caddy.EventName = "allocation-exhausted"
)

type (
	// LeaseEventHook is the function type that can receive lease-based events
	LeaseEventHook func(event caddy.EventName, l *lease.Lease) error
)

var (
	validLeaseEvents = map[caddy.EventName]struct{}{
		EventLeaseCreated:        {},
		EventLeaseRefreshed:      {},
		EventLeaseReleased:       {},
		EventAllocationExhausted: {},
	}
)

// IsLeaseEvent reports whether name is a known lease event
func IsLeaseEvent(name caddy.EventName) bool {
	_, ok := validLeaseEvents[name]
	return ok
}

// LeaseEvents returns all known lease event names
func LeaseEvents() []caddy.EventName {
	return []caddy.EventName{
		EventLeaseCreated,
		EventLeaseRefreshed,
		EventLeaseReleased,
		EventAllocationExhausted,
	}
}

// EmitLeaseEvent emits a lease-based event
func EmitLeaseEvent(event caddy.EventName, l *lease.Lease) {
	if !IsLeaseEvent(event) {
		log.WithField("event", string(event)).Errorf("invalid lease event type")
		return
	}

	caddy.EmitEvent(event, l)
}

// RegisterLeaseEventHook registers a new lease event hook. name must be
// unique and hook is only invoked for event
func RegisterLeaseEventHook(name string, event caddy.EventName, hook LeaseEventHook) {
	if !IsLeaseEvent(event) {
		panic("invalid lease event name")
	}

	caddy.RegisterEventHook(name, func(e caddy.EventName, value interface{}) error {
		if e != event {
			return nil
		}

		l, ok := value.(*lease.Lease)
		if !ok {
			return nil
		}

		return hook(e, l)
	})
}
