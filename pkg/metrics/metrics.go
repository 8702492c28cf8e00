// Package metrics exports page loading activity to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/kerbaras/tachireader/pkg/reader"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	LabelPriority = "priority"
	LabelResult   = "result"
)

const (
	ResultReady     = "ready"
	ResultError     = "error"
	ResultCancelled = "cancelled"
)

// Collector implements reader.Observer.
type Collector struct {
	requestsTotal *prometheus.CounterVec
	fetchesTotal  *prometheus.CounterVec
	fetchDuration prometheus.Histogram
	fetchBytes    prometheus.Histogram
	inFlight      prometheus.Gauge
}

var _ reader.Observer = (*Collector)(nil)

// NewCollector creates the page metrics and registers them with registerer.
// A nil registerer leaves them unregistered.
func NewCollector(registerer prometheus.Registerer) *Collector {
	c := &Collector{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tachireader",
				Subsystem: "pages",
				Name:      "requests_total",
				Help:      "Page load requests submitted to the queue",
			},
			[]string{LabelPriority},
		),
		fetchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tachireader",
				Subsystem: "pages",
				Name:      "fetches_total",
				Help:      "Page fetch attempts by outcome",
			},
			[]string{LabelResult},
		),
		fetchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "tachireader",
				Subsystem: "pages",
				Name:      "fetch_duration_seconds",
				Help:      "Time spent fetching a page image",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
		),
		fetchBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "tachireader",
				Subsystem: "pages",
				Name:      "image_bytes",
				Help:      "Size of fetched page images",
				Buckets:   prometheus.ExponentialBuckets(64<<10, 2, 8),
			},
		),
		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "tachireader",
				Subsystem: "pages",
				Name:      "fetches_in_flight",
				Help:      "Page fetches currently running",
			},
		),
	}

	if registerer != nil {
		registerer.MustRegister(
			c.requestsTotal,
			c.fetchesTotal,
			c.fetchDuration,
			c.fetchBytes,
			c.inFlight,
		)
	}
	return c
}

func (c *Collector) RequestSubmitted(priority reader.Priority) {
	c.requestsTotal.WithLabelValues(priority.String()).Inc()
}

func (c *Collector) FetchStarted(*reader.Page) {
	c.inFlight.Inc()
}

func (c *Collector) FetchFinished(page *reader.Page, err error, elapsed time.Duration) {
	c.inFlight.Dec()
	c.fetchDuration.Observe(elapsed.Seconds())

	switch {
	case err == nil:
		c.fetchesTotal.WithLabelValues(ResultReady).Inc()
		if page != nil && page.Image != nil {
			c.fetchBytes.Observe(float64(len(page.Image.Get())))
		}
	case errors.Is(err, context.Canceled):
		c.fetchesTotal.WithLabelValues(ResultCancelled).Inc()
	default:
		c.fetchesTotal.WithLabelValues(ResultError).Inc()
	}
}

// Handler serves the metrics gathered by gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Serve runs a metrics endpoint on addr until ctx is done.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
