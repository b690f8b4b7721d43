// Package metrics exports simulation counters to Prometheus.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sul31man/bacteria"
)

const namespace = "bacteria"

// Collector is a prometheus.Collector reading the counters of a bacteria.Stats.
type Collector struct {
	stats *bacteria.Stats
	steps *prometheus.Desc
	hits  *prometheus.Desc
	walls *prometheus.Desc
}

// NewCollector returns a collector exporting s.
func NewCollector(s *bacteria.Stats) *Collector {
	return &Collector{
		stats: s,
		steps: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "agent", "steps_total"),
			"Number of agent steps taken.",
			nil, nil,
		),
		hits: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "obstacle", "events_total"),
			"Number of obstacle collisions by resolution.",
			[]string{"resolution"}, nil,
		),
		walls: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "wall", "hits_total"),
			"Number of wall clamps by axis.",
			[]string{"axis"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.steps
	ch <- c.hits
	ch <- c.walls
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats.Snapshot()
	ch <- prometheus.MustNewConstMetric(c.steps, prometheus.CounterValue, float64(s.Steps))
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(s.Reflections), "reflection")
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(s.Slides), "slide")
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(s.Freezes), "freeze")
	ch <- prometheus.MustNewConstMetric(c.walls, prometheus.CounterValue, float64(s.WallHitsX), "x")
	ch <- prometheus.MustNewConstMetric(c.walls, prometheus.CounterValue, float64(s.WallHitsY), "y")
}

// Serve exposes the collectors of reg on addr under /metrics until ctx is done.
func Serve(ctx context.Context, addr string, reg *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !ierrors.Is(err, http.ErrServerClosed) {
		return ierrors.Wrapf(err, "metrics server on %s failed", addr)
	}
	return nil
}
