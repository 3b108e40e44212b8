package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"albumscan/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder holds the traversal metrics. A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	Iterations   prometheus.Counter
	Captures     prometheus.Counter
	Skips        *prometheus.CounterVec
	Terminations *prometheus.CounterVec
	Cooldowns    prometheus.Counter
	NavAttempts  prometheus.Histogram
}

// New registers the traversal metrics on a private registry
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		Iterations: factory.NewCounter(prometheus.CounterOpts{
			Name: "albumscan_iterations_total",
			Help: "Traversal loop iterations.",
		}),
		Captures: factory.NewCounter(prometheus.CounterOpts{
			Name: "albumscan_captures_total",
			Help: "Items captured.",
		}),
		Skips: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "albumscan_skips_total",
			Help: "Items seen but not captured.",
		}, []string{"reason"}),
		Terminations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "albumscan_terminations_total",
			Help: "Finished sessions by reason.",
		}, []string{"reason"}),
		Cooldowns: factory.NewCounter(prometheus.CounterOpts{
			Name: "albumscan_cooldowns_total",
			Help: "Periodic cooldown pauses taken.",
		}),
		NavAttempts: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "albumscan_navigation_attempts",
			Help:    "Polling attempts needed to confirm navigation.",
			Buckets: []float64{1, 2, 3, 5, 8, 12, 15},
		}),
	}
}

func (r *Recorder) Iteration() {
	if r != nil {
		r.Iterations.Inc()
	}
}

func (r *Recorder) Captured() {
	if r != nil {
		r.Captures.Inc()
	}
}

func (r *Recorder) Skipped(reason string) {
	if r != nil {
		r.Skips.WithLabelValues(reason).Inc()
	}
}

func (r *Recorder) Terminated(reason string) {
	if r != nil {
		r.Terminations.WithLabelValues(reason).Inc()
	}
}

func (r *Recorder) Cooldown() {
	if r != nil {
		r.Cooldowns.Inc()
	}
}

func (r *Recorder) Navigated(attempts int) {
	if r != nil {
		r.NavAttempts.Observe(float64(attempts))
	}
}

// Handler exposes the registry in the Prometheus text format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done
func (r *Recorder) Serve(ctx context.Context, addr string, log logger.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.WithField("addr", addr).Info("Serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
