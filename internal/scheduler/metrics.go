package scheduler

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the optional /metrics exposition for a running Agent. It is
// ambient observability, not a reconciliation feature: a nil *Metrics on
// Agent disables it entirely and Run behaves exactly as before.
type Metrics struct {
	registry       *prometheus.Registry
	ticksTotal     prometheus.Counter
	tickErrors     prometheus.Counter
	tickDuration   prometheus.Histogram
	lastTickUnix   prometheus.Gauge
	conflictsGauge prometheus.Gauge
}

// NewMetrics builds a fresh registry and the counters/gauges the agent
// loop updates every cycle.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	return &Metrics{
		registry: reg,
		ticksTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "tether_ticks_total",
			Help: "Reconciliation ticks completed by the daemon agent.",
		}),
		tickErrors: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "tether_tick_errors_total",
			Help: "Reconciliation ticks that returned an error.",
		}),
		tickDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "tether_tick_duration_seconds",
			Help:    "Wall-clock duration of a single reconciliation tick.",
			Buckets: prometheus.DefBuckets,
		}),
		lastTickUnix: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "tether_last_tick_unix_seconds",
			Help: "Unix timestamp of the most recently completed tick.",
		}),
		conflictsGauge: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "tether_conflicts_pending",
			Help: "Pending three-way conflicts as of the last tick.",
		}),
	}
}

// SetConflictsPending updates the gauge a tick callback reports after
// each run; the agent loop itself has no view into conflict state.
func (m *Metrics) SetConflictsPending(n int) {
	if m == nil {
		return
	}
	m.conflictsGauge.Set(float64(n))
}

func (m *Metrics) observeTick(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.ticksTotal.Inc()
	m.tickDuration.Observe(d.Seconds())
	m.lastTickUnix.Set(float64(time.Now().Unix()))
	if err != nil {
		m.tickErrors.Inc()
	}
}

// Serve runs a /metrics HTTP server bound to addr until ctx is canceled.
// Callers typically start this in a goroutine from cmd/daemon.go when
// TETHER_METRICS_ADDR is set.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
