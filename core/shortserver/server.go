package shortserver

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/apex/log"
	"github.com/caddyserver/caddy"
	"github.com/nextdhcp/nextshort/core/events"
	"github.com/nextdhcp/nextshort/core/lease"
	shortLog "github.com/nextdhcp/nextshort/core/log"
)

// active holds the server that receives lease events
var active atomic.Pointer[Server]

func init() {
	for _, e := range events.LeaseEvents() {
		events.RegisterLeaseEventHook("shortserver-"+string(e), e, dispatchLeaseEvent)
	}
}

func dispatchLeaseEvent(event caddy.EventName, l *lease.Lease) error {
	s := active.Load()
	if s == nil {
		return nil
	}

	return s.serveLease(event, l)
}

// Coordinator returns the lease database of the running coordinator or
// nil if none is running
func Coordinator() lease.Database {
	s := active.Load()
	if s == nil {
		return nil
	}

	return s.cfg.Database
}

// Server keeps a coordinator running. It does not listen on any
// socket: the lease database is used by embedding callers through
// Coordinator(). While running, the lease file is dumped periodically
type Server struct {
	cfg      *Config
	stop     chan struct{}
	stopOnce sync.Once
}

// NewServer returns a new server for the coordinator cfg
func NewServer(cfg *Config) *Server {
	return &Server{
		cfg:  cfg,
		stop: make(chan struct{}),
	}
}

// Config returns the configuration of the server
func (s *Server) Config() *Config {
	return s.cfg
}

// Listen does nothing as no TCP listener is needed. It implements the
// caddy.TCPServer interface
func (s *Server) Listen() (net.Listener, error) {
	return nil, nil
}

// Serve is a NO-OP. It implements the caddy.TCPServer interface
func (s *Server) Serve(l net.Listener) error {
	return nil
}

// ListenPacket does nothing as no packet connection is needed. It
// implements the caddy.UDPServer interface
func (s *Server) ListenPacket() (net.PacketConn, error) {
	return nil, nil
}

// ServePacket activates the coordinator and dumps the lease file until
// the server is stopped. It implements the caddy.UDPServer interface
func (s *Server) ServePacket(_ net.PacketConn) error {
	active.Store(s)

	var tick <-chan time.Time
	if s.cfg.LeaseFile != "" && s.cfg.DumpInterval > 0 {
		ticker := time.NewTicker(s.cfg.DumpInterval)
		defer ticker.Stop()

		tick = ticker.C
	}

	for {
		select {
		case <-s.stop:
			return nil

		case <-tick:
			if err := s.cfg.Dump(context.Background()); err != nil {
				s.cfg.logger.Errorf("failed to dump leases: %s", err.Error())
			}
		}
	}
}

// Stop stops the dump loop and deactivates the coordinator. It implements
// the caddy.Stopper interface
func (s *Server) Stop() error {
	s.stopOnce.Do(func() {
		close(s.stop)
		active.CompareAndSwap(s, nil)
	})

	return nil
}

// Address returns the name of the coordinator. It implements the
// caddy.GracefulServer interface
func (s *Server) Address() string {
	return s.cfg.Name
}

// WrapListener returns ln as is. It implements the caddy.GracefulServer
// interface
func (s *Server) WrapListener(ln net.Listener) net.Listener {
	return ln
}

// OnStartupComplete is called when all serves of the same instance have
// been started. It implements the caddy.AfterStartup interface
func (s *Server) OnStartupComplete() {
	if caddy.Quiet {
		return
	}

	info := getStartupInfo(context.Background(), []*Config{s.cfg})
	if info != "" {
		// Print not Println because info contains a trailing new line
		fmt.Print(info)
	}
}

func (s *Server) serveLease(event caddy.EventName, l *lease.Lease) error {
	ctx := lease.WithDatabase(context.Background(), s.cfg.Database)
	ctx = shortLog.WithFields(ctx, log.Fields{
		"coordinator": s.cfg.Name,
		"event":       string(event),
	})

	if err := s.cfg.chain.ServeLease(ctx, event, l); err != nil {
		shortLog.With(ctx, s.cfg.logger).Warnf("failed to handle lease event: %s", err.Error())
		return err
	}

	return nil
}

// compile time check
var _ caddy.Server = &Server{}
