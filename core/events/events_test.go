package events

import (
	"sync"
	"testing"
	"time"

	"github.com/caddyserver/caddy"
	"github.com/nextdhcp/nextshort/core/lease"
	"github.com/nextdhcp/nextshort/core/shortaddr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var eventHooks = &sync.Map{}

func init() {
	caddy.RegisterEventHook("event-testing-hook", func(name caddy.EventName, info interface{}) error {
		eventHooks.Range(func(_, value interface{}) bool {
			_ = value.(caddy.EventHook)(name, info)
			return true
		})

		return nil
	})
}

func registerTestingHook(name string, hook caddy.EventHook) {
	eventHooks.LoadOrStore(name, hook)
}

func removeTestingHook(name string) {
	eventHooks.Delete(name)
}

func TestEmitLeaseEvent(t *testing.T) {
	l := lease.Lease{
		HwAddr:    shortaddr.MustParseHardwareAddr("aa:bb:cc:dd:ee:ff:00:11"),
		ShortAddr: 0x8001,
		LastSeen:  time.Now(),
	}

	firedLeaseCreated := false
	registerTestingHook("test-emit-lease-event", func(name caddy.EventName, info interface{}) error {
		firedLeaseCreated = true
		assert.Equal(t, EventLeaseCreated, name)

		lp, ok := info.(*lease.Lease)
		require.True(t, ok)
		assert.Equal(t, &l, lp)

		return nil
	})
	defer removeTestingHook("test-emit-lease-event")

	EmitLeaseEvent(EventLeaseCreated, &l)
	assert.True(t, firedLeaseCreated)
}

func TestEmitLeaseEvent_invalid_name(t *testing.T) {
	eventFired := false
	registerTestingHook("test-emit-lease-event-invalid-name", func(name caddy.EventName, info interface{}) error {
		eventFired = true
		return nil
	})
	defer removeTestingHook("test-emit-lease-event-invalid-name")

	EmitLeaseEvent("invalid-name", nil)

	assert.False(t, eventFired)
}

func TestRegisterLeaseEventHook(t *testing.T) {
	called := 0
	RegisterLeaseEventHook("test-register-hook", EventLeaseReleased, func(e caddy.EventName, l *lease.Lease) error {
		called++
		assert.Equal(t, EventLeaseReleased, e)
		return nil
	})

	caddy.EmitEvent("some-other-event", nil)
	assert.Equal(t, 0, called, "should have been filtered")

	caddy.EmitEvent(EventLeaseCreated, &lease.Lease{})
	assert.Equal(t, 0, called, "should have been filtered")

	caddy.EmitEvent(EventLeaseReleased, "not-a-lease")
	assert.Equal(t, 0, called, "should have been filtered")

	caddy.EmitEvent(EventLeaseReleased, &lease.Lease{})
	assert.Equal(t, 1, called, "should have been emitted")
}

func TestRegisterLeaseEventHook_panic(t *testing.T) {
	assert.Panics(t, func() {
		RegisterLeaseEventHook("should-panic-hook", "invalid-event-type", nil)
	})
}

func TestLeaseEvents(t *testing.T) {
	for _, e := range LeaseEvents() {
		assert.True(t, IsLeaseEvent(e))
	}
	assert.False(t, IsLeaseEvent("lease-expired"))
}
