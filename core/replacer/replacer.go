// Package replacer expands {placeholders} in notification templates with
// values taken from a lease event.
package replacer

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caddyserver/caddy"
	"github.com/nextdhcp/nextshort/core/lease"
)

type (
	// Replacer is capable of replacing variables in a template string
	Replacer interface {
		// Replace replaces all variables in string and returns the result
		Replace(string) string

		// Set adds a custom replacement value
		Set(key string, value Value)

		// Get returns the replacement value for key
		Get(key string) string
	}

	// Value is a getter for string represenations of custom fields
	Value interface {
		// Get returns the string represenation for the given
		// lease event
		Get(event caddy.EventName, l *lease.Lease) string
	}

	// ValueGetter implements the Value interface and returns a string
	// based on the provided lease event
	ValueGetter func(event caddy.EventName, l *lease.Lease) string

	// StringValue is a utility method to use string constants for
	// the Value interface
	StringValue string

	// CtxKey is used to store a replace instance in a context value
	CtxKey struct{}

	replacer struct {
		event              caddy.EventName
		lease              *lease.Lease
		customReplacements map[string]Value
	}
)

// Get implements the Value interface and calls g itself
func (g ValueGetter) Get(event caddy.EventName, l *lease.Lease) string {
	return g(event, l)
}

// Get implements the Value interface and returns s itself
func (s StringValue) Get(_ caddy.EventName, _ *lease.Lease) string {
	return string(s)
}

// WithReplacer returns a new context with a replacer instance
func WithReplacer(ctx context.Context, r Replacer) context.Context {
	return context.WithValue(ctx, CtxKey{}, r)
}

// GetReplacer returns the replacer associated with ctx
func GetReplacer(ctx context.Context) Replacer {
	v := ctx.Value(CtxKey{})
	if v == nil {
		return nil
	}

	r, ok := v.(Replacer)
	if !ok {
		panic("replacer.CtxKey used for a none replacer type")
	}
	return r
}

// NewReplacer returns a new replacer instance for the given lease event.
// If ctx already carries a replacer that one is returned instead
func NewReplacer(ctx context.Context, event caddy.EventName, l *lease.Lease) Replacer {
	if parent := GetReplacer(ctx); parent != nil {
		return parent
	}

	return &replacer{
		event:              event,
		lease:              l,
		customReplacements: make(map[string]Value),
	}
}

func (r *replacer) Set(key string, val Value) {
	r.customReplacements[key] = val
}

func (r *replacer) Get(key string) string {
	// custom replacements may shadow built-in keys
	if val, ok := r.customReplacements[key]; ok {
		return val.Get(r.event, r.lease)
	}

	if key == "event" {
		return string(r.event)
	}

	if r.lease == nil {
		return ""
	}

	switch key {
	case "hwaddr":
		return r.lease.HwAddr.String()

	case "shortaddr":
		return r.lease.ShortAddr.String()

	case "hwhash":
		return fmt.Sprintf("%08x", r.lease.HwAddr.Hash())

	case "timestamp":
		return strconv.FormatInt(r.lease.LastSeen.Unix(), 10)

	case "time":
		return r.lease.LastSeen.UTC().Format(time.RFC3339)
	}

	return ""
}

// Replace replaces all unescaped {key} placeholders in s. Braces can be
// escaped using a backslash. The algorithm follows the one used by
// caddy's httpserver replacer
func (r *replacer) Replace(s string) string {
	if !strings.ContainsAny(s, "{}") {
		return s
	}

	var result strings.Builder

	for {
		start := indexUnescaped(s, "{", 0)
		if start == -1 {
			break
		}

		end := indexUnescaped(s, "}", start)
		if end == -1 {
			// unpaired placeholder
			break
		}

		placeholder := unescapeBraces(s[start : end+1])

		result.WriteString(strings.TrimPrefix(unescapeBraces(s[:start]), "\\"))
		result.WriteString(r.Get(placeholder[1 : len(placeholder)-1]))

		s = s[end+1:]
	}

	result.WriteString(unescapeBraces(s))
	return result.String()
}

// indexUnescaped returns the index of the first occurence of brace in s
// at or after offset that is not preceded by a backslash
func indexUnescaped(s, brace string, offset int) int {
	for {
		idx := strings.Index(s[offset:], brace)
		if idx == -1 {
			return -1
		}

		idx += offset
		if idx == 0 || s[idx-1] != '\\' {
			return idx
		}

		offset = idx + 1
	}
}

// unescapeBraces finds escaped braces in s and returns
// a string with those braces unescaped.
func unescapeBraces(s string) string {
	s = strings.ReplaceAll(s, "\\{", "{")
	s = strings.ReplaceAll(s, "\\}", "}")
	return s
}
