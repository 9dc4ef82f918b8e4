package prometheus

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/apex/log"
	"github.com/nextdhcp/nextshort/core/lease"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	defaultPath = "/metrics"
	defaultAddr = "localhost:9180"

	shutdownTimeout = 5 * time.Second
)

// Metrics represents prometheus metrics
type Metrics struct {
	addr        string // where to we listen
	path        string
	constLabels prometheus.Labels
	dumpBuckets []float64

	registry *prometheus.Registry
	events   *prometheus.CounterVec
	dumps    *prometheus.HistogramVec

	srv *http.Server
	ln  net.Listener
}

// NewMetrics create a new Metrics
func NewMetrics(path, addr string) *Metrics {
	p := path
	if path == "" {
		p = defaultPath
	}
	a := addr
	if addr == "" {
		a = defaultAddr
	}
	return &Metrics{
		path:        p,
		addr:        a,
		constLabels: prometheus.Labels{},
	}
}

// define creates all collectors and registers them at a dedicated
// registry. db is called on each scrape to count the active leases
func (m *Metrics) define(db func() lease.Database, rangeSize int) {
	if m.dumpBuckets == nil {
		m.dumpBuckets = prometheus.ExponentialBuckets(0.0005, 2, 12)
	}

	m.registry = prometheus.NewRegistry()

	m.events = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "nextshort_lease_events_total",
		Help:        "Counter of lease events emitted by the coordinator.",
		ConstLabels: m.constLabels,
	}, []string{"event"})

	m.dumps = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "nextshort_leasefile_dump_duration_seconds",
		Help:        "Histogram of the time (in seconds) each lease file dump took.",
		Buckets:     m.dumpBuckets,
		ConstLabels: m.constLabels,
	}, []string{"result"})

	leases := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name:        "nextshort_active_leases",
		Help:        "Number of short addresses currently leased.",
		ConstLabels: m.constLabels,
	}, func() float64 {
		d := db()
		if d == nil {
			return 0
		}

		all, err := d.Leases(context.Background())
		if err != nil {
			log.Warnf("prometheus: failed to count leases: %s", err.Error())
			return 0
		}

		return float64(len(all))
	})

	size := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "nextshort_allocation_range_size",
		Help:        "Number of short addresses in the allocation range.",
		ConstLabels: m.constLabels,
	})
	size.Set(float64(rangeSize))

	m.registry.MustRegister(
		m.events,
		m.dumps,
		leases,
		size,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// observeDump records the duration of a lease file dump. It is a
// shortserver.DumpObserver
func (m *Metrics) observeDump(took time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}

	m.dumps.WithLabelValues(result).Observe(took.Seconds())
}

func (m *Metrics) start() error {
	ln, err := net.Listen("tcp", m.addr)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle(m.path, promhttp.InstrumentMetricHandler(m.registry, promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})))

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	m.ln = ln
	m.srv = srv

	go func() {
		err := srv.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("prometheus: serving metrics: %v", err)
		}
	}()

	log.Infof("prometheus: serving metrics at http://%s%s", m.Addr(), m.path)

	return nil
}

// Addr returns the address the metrics endpoint is bound to. Before
// start and after stop it returns the configured address
func (m *Metrics) Addr() string {
	if m.ln == nil {
		return m.addr
	}

	return m.ln.Addr().String()
}

func (m *Metrics) stop() error {
	if m.srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := m.srv.Shutdown(ctx)
	m.srv = nil
	m.ln = nil

	return err
}
