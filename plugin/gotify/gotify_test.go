package gotify

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/apex/log"
	"github.com/caddyserver/caddy"
	"github.com/gotify/go-api-client/v2/client/message"
	"github.com/gotify/go-api-client/v2/models"
	"github.com/nextdhcp/nextshort/core/events"
	"github.com/nextdhcp/nextshort/core/lease"
	"github.com/nextdhcp/nextshort/core/matcher"
	"github.com/nextdhcp/nextshort/core/shortaddr"
	"github.com/nextdhcp/nextshort/plugin/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLease = &lease.Lease{
	HwAddr:    shortaddr.MustParseHardwareAddr("00:11:22:33:44:55:66:77"),
	ShortAddr: 0x8001,
	LastSeen:  time.Unix(1700000000, 0),
}

func TestNotificationPrepare(t *testing.T) {
	ctx := context.Background()
	event := events.EventLeaseCreated
	emptyMatcher, err := matcher.New("")
	require.NoError(t, err)

	var (
		msg      string
		title    string
		msgErr   error
		titleErr error
	)

	n := notification{
		Matcher: emptyMatcher,
		msg: func(_ context.Context, _ caddy.EventName, _ *lease.Lease) (string, error) {
			return msg, msgErr
		},
		title: func(_ context.Context, _ caddy.EventName, _ *lease.Lease) (string, error) {
			return title, titleErr
		},
		srv:   "http://gotify.com",
		token: "some-token",
	}

	// empty title should be replaced with NextShort
	nt, nm, err := n.Prepare(ctx, event, testLease)
	assert.NoError(t, err)
	assert.Equal(t, "NextShort", nt)
	assert.Empty(t, nm)

	// msg and title should be set correctly
	msg = "some message"
	title = "some title"
	nt, nm, err = n.Prepare(ctx, event, testLease)
	assert.NoError(t, err)
	assert.Equal(t, "some title", nt)
	assert.Equal(t, "some message", nm)

	// should return empty strings if the event is filtered
	n.events = map[caddy.EventName]struct{}{events.EventLeaseReleased: {}}
	nt, nm, err = n.Prepare(ctx, event, testLease)
	assert.NoError(t, err)
	assert.Empty(t, nm)
	assert.Empty(t, nt)
	n.events = nil

	// should return empty strings if not matched
	alwaysFalse, err := matcher.New("1 == 0")
	require.NoError(t, err)
	n.Matcher = alwaysFalse
	nt, nm, err = n.Prepare(ctx, event, testLease)
	assert.NoError(t, err)
	assert.Empty(t, nm)
	assert.Empty(t, nt)

	errorMatcher, err := matcher.New("'string'")
	require.NoError(t, err)
	n.Matcher = errorMatcher
	_, _, err = n.Prepare(ctx, event, testLease)
	assert.Error(t, err)

	n.Matcher = emptyMatcher
	msgErr = errors.New("simulated error")
	nt, nm, err = n.Prepare(ctx, event, testLease)
	assert.Equal(t, msgErr, err)
	assert.Empty(t, nt)
	assert.Empty(t, nm)
}

func TestNotificationSend(t *testing.T) {
	emptyMatcher, err := matcher.New("")
	require.NoError(t, err)

	n := notification{
		Matcher:  emptyMatcher,
		priority: 7,
		srv:      "http://gotify.com",
		token:    "some-token",
	}

	called := false
	returnErr := errors.New("simulated error")
	notify = func(srv *url.URL, token string, msg *message.CreateMessageParams) error {
		called = true

		assert.Equal(t, "http://gotify.com", srv.String())
		assert.Equal(t, "some-token", token)
		assert.Equal(t, "title", msg.Body.Title)
		assert.Equal(t, "message", msg.Body.Message)
		assert.Equal(t, 7, msg.Body.Priority)

		return returnErr
	}

	assert.Equal(t, returnErr, n.Send("title", "message"))
	assert.True(t, called)

	n.srv = "://invalid"
	assert.Error(t, n.Send("title", "message"))
}

func TestGotifyServeLease(t *testing.T) {
	emptyMatcher, _ := matcher.New("")
	alwaysFalse, _ := matcher.New("1 == 0")
	errorMatcher, _ := matcher.New("'string'")

	var (
		mu       sync.Mutex
		messages []*models.MessageExternal
	)

	notify = func(srv *url.URL, token string, msg *message.CreateMessageParams) error {
		mu.Lock()
		defer mu.Unlock()

		messages = append(messages, msg.Body)

		return nil
	}

	constant := func(s string) msgFactory {
		return func(_ context.Context, _ caddy.EventName, _ *lease.Lease) (string, error) {
			return s, nil
		}
	}

	g := &gotifyPlugin{
		notifications: []*notification{
			{
				Matcher: emptyMatcher,
				msg:     constant("message1"),
				title:   constant("title1"),
				srv:     "http://gotify1.com",
				token:   "some-token-1",
			},
			{
				Matcher: alwaysFalse,
				msg:     constant("message2"),
				title:   constant("title2"),
				srv:     "http://gotify2.com",
				token:   "some-token-2",
			},
			{
				Matcher: errorMatcher,
				msg:     constant("message3"),
				title:   constant("title3"),
				srv:     "http://gotify3.com",
				token:   "some-token-3",
			},
			{
				Matcher: emptyMatcher,
				srv:     "http://gotify4.com",
				token:   "some-token-4",
			},
		},
		l:    log.Log,
		next: test.ErrorHandler,
	}

	// nothing is sent if the chain fails
	assert.Error(t, g.ServeLease(context.Background(), events.EventLeaseCreated, testLease))

	g.next = test.NoOpHandler
	assert.NoError(t, g.ServeLease(context.Background(), events.EventLeaseCreated, testLease))
	require.NoError(t, g.wait())

	require.Len(t, messages, 1)
	assert.Equal(t, "message1", messages[0].Message)
	assert.Equal(t, "title1", messages[0].Title)

	// events served after shutdown are dropped
	assert.NoError(t, g.ServeLease(context.Background(), events.EventLeaseReleased, testLease))
	require.NoError(t, g.wait())
	assert.Len(t, messages, 1)
}
