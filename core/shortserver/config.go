package shortserver

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/apex/log"
	"github.com/caddyserver/caddy"
	"github.com/nextdhcp/nextshort/core/lease"
	"github.com/nextdhcp/nextshort/core/lease/storage"
	"github.com/nextdhcp/nextshort/core/shortaddr"
	"github.com/nextdhcp/nextshort/plugin"

	// the default lease index driver
	_ "github.com/nextdhcp/nextshort/core/lease/storage/drivers/memory"
)

const (
	// DefaultDriver is used if no database directive is configured
	DefaultDriver = "memory"

	// DefaultDumpInterval is the interval at which the lease file is
	// written if the leasefile directive does not specify one
	DefaultDumpInterval = time.Minute
)

// DumpObserver is notified about the duration and result of each lease
// file dump
type DumpObserver func(took time.Duration, err error)

// Config configures a coordinator
type Config struct {
	// Name is the name of the coordinator as used in the server block key
	Name string

	// Range is the range short addresses are allocated from
	Range shortaddr.Range

	// LeaseFile is the path of the lease file. If empty, leases are not
	// dumped
	LeaseFile string

	// DumpInterval is the interval at which the lease file is written
	DumpInterval time.Duration

	// Driver is the name of the lease index driver
	Driver string

	// DriverOptions are passed to the lease index driver
	DriverOptions map[string][]string

	// Index is the lease index opened for the coordinator
	Index storage.Index

	// Database is the lease database of the coordinator
	Database lease.Database

	// plugins is a list of lease event handler setup functions
	plugins []plugin.Plugin

	// chain is the beginning of the handler chain for this coordinator
	chain plugin.Handler

	// dumpObservers are notified after each lease file dump
	dumpObservers []DumpObserver

	logger log.Interface
}

func newConfig(name string) *Config {
	return &Config{
		Name:         name,
		Range:        shortaddr.DefaultRange,
		DumpInterval: DefaultDumpInterval,
		Driver:       DefaultDriver,
		logger:       log.Log,
	}
}

// AddPlugin adds a new plugin to the handler chain
func (cfg *Config) AddPlugin(p plugin.Plugin) {
	cfg.plugins = append(cfg.plugins, p)
}

// Logger returns the logger of the coordinator
func (cfg *Config) Logger() log.Interface {
	return cfg.logger
}

// Dump writes all active leases to the lease file. It is a no-op if no
// lease file is configured or the database has not been opened yet
func (cfg *Config) Dump(ctx context.Context) error {
	if cfg.LeaseFile == "" || cfg.Database == nil {
		return nil
	}

	start := time.Now()
	err := cfg.Database.Dump(ctx, cfg.LeaseFile)
	took := time.Since(start)

	for _, fn := range cfg.dumpObservers {
		fn(took, err)
	}

	return err
}

// OnDump registers fn to be called after each lease file dump
func (cfg *Config) OnDump(fn DumpObserver) {
	cfg.dumpObservers = append(cfg.dumpObservers, fn)
}

// Close closes the lease index if it supports closing
func (cfg *Config) Close() error {
	closer, ok := cfg.Index.(io.Closer)
	if !ok {
		return nil
	}

	return closer.Close()
}

func keyForConfig(serverBlockIndex, serverBlockKeyIndex int) string {
	return fmt.Sprintf("%d:%d", serverBlockIndex, serverBlockKeyIndex)
}

// GetConfig gets the Config that corresponds to c
// if none exist nil is returned
func GetConfig(c *caddy.Controller) *Config {
	ctx, ok := c.Context().(*shortContext)
	if !ok {
		return nil
	}

	return ctx.keyToConfig[keyForConfig(c.ServerBlockIndex, c.ServerBlockKeyIndex)]
}

func buildHandlerChain(cfg *Config) {
	var endOfChain plugin.HandlerFunc = func(ctx context.Context, event caddy.EventName, l *lease.Lease) error {
		return nil
	}

	var chain plugin.Handler = endOfChain
	for i := len(cfg.plugins) - 1; i >= 0; i-- {
		chain = cfg.plugins[i](chain)
	}

	cfg.chain = chain
}
