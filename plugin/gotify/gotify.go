package gotify

import (
	"context"
	"net/http"
	"net/url"
	"sync"

	"github.com/apex/log"
	"github.com/caddyserver/caddy"
	"github.com/gotify/go-api-client/v2/auth"
	"github.com/gotify/go-api-client/v2/client/message"
	"github.com/gotify/go-api-client/v2/gotify"
	"github.com/gotify/go-api-client/v2/models"
	"github.com/nextdhcp/nextshort/core/lease"
	shortLog "github.com/nextdhcp/nextshort/core/log"
	"github.com/nextdhcp/nextshort/core/matcher"
	"github.com/nextdhcp/nextshort/plugin"
)

// defaultTitle is used for notifications without a title
const defaultTitle = "NextShort"

// defaultPriority is the gotify priority used if none is configured
const defaultPriority = 5

type (
	// msgFactory creates the gotify notification message
	// from the given lease event
	msgFactory func(ctx context.Context, event caddy.EventName, l *lease.Lease) (string, error)

	// gotifyPlugin matches lease events against a set of conditions
	// and sends notifications. It implements the plugin.Handler
	// interface
	gotifyPlugin struct {
		next          plugin.Handler
		notifications []*notification
		l             log.Interface

		// mu guards closed and the wg.Add calls racing with wait
		mu     sync.Mutex
		closed bool
		wg     sync.WaitGroup
	}

	// notification combines the matcher (condition) and a message
	// factory for a gotify notification
	notification struct {
		*matcher.Matcher
		events   map[caddy.EventName]struct{}
		msg      msgFactory
		title    msgFactory
		priority int
		srv      string
		token    string
	}
)

// notify sends msg to the gotify server at srv. It is a variable so
// tests can intercept notifications
var notify = func(srv *url.URL, token string, msg *message.CreateMessageParams) error {
	cli := gotify.NewClient(srv, &http.Client{})

	_, err := cli.Message.CreateMessage(msg, auth.TokenAuth(token))
	return err
}

// Prepare checks if we should send a notification for the given lease event
// and returns the title and message body. An empty message body indicates
// that no notification should be sent
func (n *notification) Prepare(ctx context.Context, event caddy.EventName, l *lease.Lease) (string, string, error) {
	if n.msg == nil {
		return "", "", nil
	}

	if len(n.events) > 0 {
		if _, ok := n.events[event]; !ok {
			return "", "", nil
		}
	}

	matched, err := n.Match(ctx, event, l)
	if err != nil {
		return "", "", err
	}

	if matched {
		msg, err := n.msg(ctx, event, l)
		if err != nil {
			return "", "", err
		}

		var title string

		if n.title != nil {
			title, _ = n.title(ctx, event, l)
		}

		if title == "" {
			title = defaultTitle
		}

		return title, msg, nil
	}

	return "", "", nil
}

// Send sends the notification to the configured gotify server
func (n *notification) Send(title, msg string) error {
	gotifyURL, err := url.Parse(n.srv)
	if err != nil {
		return err
	}

	params := message.NewCreateMessageParams()
	params.Body = &models.MessageExternal{
		Title:    title,
		Message:  msg,
		Priority: n.priority,
	}

	return notify(gotifyURL, n.token, params)
}

// addNotification adds a new notification to the gotify plugin
func (g *gotifyPlugin) addNotification(n *notification) {
	g.notifications = append(g.notifications, n)
}

// findLastCreds returns the last credentials used for a notification
func (g *gotifyPlugin) findLastCreds() (string, string, bool) {
	if len(g.notifications) == 0 {
		return "", "", false
	}

	last := g.notifications[len(g.notifications)-1]
	return last.srv, last.token, true
}

// Name returns "gotify" and implements plugin.Handler
func (g *gotifyPlugin) Name() string {
	return "gotify"
}

// ServeLease checks if we should send a notification for the lease event
func (g *gotifyPlugin) ServeLease(ctx context.Context, event caddy.EventName, l *lease.Lease) error {
	// let the whole handler chain pass through
	if err := g.next.ServeLease(ctx, event, l); err != nil {
		return err
	}

	logger := shortLog.With(ctx, g.l)

	var cpy *lease.Lease
	if l != nil {
		cpy = l.Clone()
	}

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		logger.Debugf("not sending notifications for %s: gotify plugin is shutting down", event)
		return nil
	}
	g.wg.Add(len(g.notifications))
	g.mu.Unlock()

	// kick of notifications in dedicated go routines
	for _, n := range g.notifications {
		go func(n *notification) {
			defer g.wg.Done()

			title, body, err := n.Prepare(ctx, event, cpy)
			if err != nil {
				logger.Warnf("failed to prepare notification: %s", err.Error())
				return
			}

			if body != "" {
				logger.Debugf("sending notification: %s\n%s", title, body)

				if err := n.Send(title, body); err != nil {
					logger.Warnf("failed to send notification: %s", err.Error())
				} else {
					logger.Debugf("notification sent via %s: %s\n%s", n.srv, title, body)
				}
			}
		}(n)
	}

	return nil
}

// wait blocks until all pending notifications have been sent. Events
// served afterwards do not trigger notifications anymore
func (g *gotifyPlugin) wait() error {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()

	g.wg.Wait()
	return nil
}
