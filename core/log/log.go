// Package log wires github.com/apex/log for NextShort. Per-operation
// fields (like the hardware and short address of a lease) travel with a
// context.Context and are attached to a logger using With.
package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/apex/log/handlers/discard"
	"github.com/apex/log/handlers/json"
	"github.com/apex/log/handlers/text"
	"github.com/mattn/go-isatty"
)

// Logger is the logging interface used throughout NextShort
type Logger = log.Interface

// Options configures the process wide logger
type Options struct {
	// Level is the minimum log level. Defaults to "info"
	Level string

	// Format is one of "cli", "text", "json" or "discard". If empty, "cli"
	// is used for terminals and "text" otherwise
	Format string

	// Output is "stderr" (default), "stdout" or a path to a file the log
	// is appended to
	Output string
}

type fieldsKey struct{}

// WithFields returns a new context.Context that carries fields. Fields
// already assigned to ctx are kept unless overwritten
func WithFields(ctx context.Context, fields log.Fields) context.Context {
	merged := log.Fields{}
	if parent, ok := ctx.Value(fieldsKey{}).(log.Fields); ok {
		for k, v := range parent {
			merged[k] = v
		}
	}

	for k, v := range fields {
		merged[k] = v
	}

	return context.WithValue(ctx, fieldsKey{}, merged)
}

// With returns l with all fields assigned to ctx
func With(ctx context.Context, l Logger) Logger {
	fields, ok := ctx.Value(fieldsKey{}).(log.Fields)
	if !ok || len(fields) == 0 {
		return l
	}

	return l.WithFields(fields)
}

// Setup configures the process wide apex logger. The returned io.Closer
// must be closed when logging to a file
func Setup(opts Options) (io.Closer, error) {
	level := log.InfoLevel
	if opts.Level != "" {
		var err error
		level, err = log.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return nil, err
		}
	}

	out, closer, err := openOutput(opts.Output)
	if err != nil {
		return nil, err
	}

	handler, err := newHandler(opts.Format, out)
	if err != nil {
		closer.Close()
		return nil, err
	}

	log.SetHandler(handler)
	log.SetLevel(level)

	return closer, nil
}

func newHandler(format string, out *os.File) (log.Handler, error) {
	switch format {
	case "":
		if isatty.IsTerminal(out.Fd()) || isatty.IsCygwinTerminal(out.Fd()) {
			return cli.New(out), nil
		}
		return text.New(out), nil
	case "cli":
		return cli.New(out), nil
	case "text":
		return text.New(out), nil
	case "json":
		return json.New(out), nil
	case "discard":
		return discard.New(), nil
	}

	return nil, fmt.Errorf("unknown log format %q", format)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func openOutput(output string) (*os.File, io.Closer, error) {
	switch output {
	case "", "stderr":
		return os.Stderr, nopCloser{}, nil
	case "stdout":
		return os.Stdout, nopCloser{}, nil
	}

	f, err := os.OpenFile(output, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}

	return f, f, nil
}
