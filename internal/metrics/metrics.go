// Package metrics exposes collection counters in the Prometheus format.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"vimeoscan/internal/collect"
	"vimeoscan/internal/media"
)

// Metrics holds the counters on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	urlsCollected *prometheus.CounterVec
	urlsByBucket  *prometheus.CounterVec
	requestsSeen  *prometheus.CounterVec
	rangeBytes    prometheus.Counter
	rangeFiles    *prometheus.CounterVec
}

// New creates the counters and registers them.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		urlsCollected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vimeoscan_urls_collected_total",
				Help: "Media URLs matched, by source",
			},
			[]string{"source"},
		),
		urlsByBucket: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vimeoscan_urls_classified_total",
				Help: "Distinct media URLs, by classification bucket",
			},
			[]string{"bucket"},
		),
		requestsSeen: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vimeoscan_requests_observed_total",
				Help: "Outgoing requests seen by an interception hook",
			},
			[]string{"hook"},
		),
		rangeBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vimeoscan_range_bytes_total",
			Help: "Bytes downloaded while rebuilding range segments",
		}),
		rangeFiles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vimeoscan_range_files_total",
				Help: "Range reconstructions, by result",
			},
			[]string{"result"},
		),
	}
	m.registry.MustRegister(m.urlsCollected, m.urlsByBucket, m.requestsSeen, m.rangeBytes, m.rangeFiles)
	return m
}

// ObserveResult records the per-source counts and buckets of one Collect run.
func (m *Metrics) ObserveResult(res *collect.Result) {
	for src, n := range res.Counts {
		m.urlsCollected.WithLabelValues(src.String()).Add(float64(n))
	}
	m.urlsByBucket.WithLabelValues(media.Video.String()).Add(float64(len(res.Video)))
	m.urlsByBucket.WithLabelValues(media.Audio.String()).Add(float64(len(res.Audio)))
	m.urlsByBucket.WithLabelValues(media.Other.String()).Add(float64(len(res.Other)))
}

// Notify counts a URL added by a hook after Collect returned. Its
// signature matches collect.WithNotify.
func (m *Metrics) Notify(url string, src media.Source) {
	m.urlsCollected.WithLabelValues(src.String()).Inc()
	m.urlsByBucket.WithLabelValues(collect.Classify(url).String()).Inc()
}

// Observer returns an observer counting every request seen by hook.
func (m *Metrics) Observer(hook string) collect.Observer {
	c := m.requestsSeen.WithLabelValues(hook)
	return func(string) { c.Inc() }
}

// ObserveDownload records one range reconstruction.
func (m *Metrics) ObserveDownload(bytes int64, err error) {
	m.rangeBytes.Add(float64(bytes))
	if err != nil {
		m.rangeFiles.WithLabelValues("error").Inc()
		return
	}
	m.rangeFiles.WithLabelValues("ok").Inc()
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	zap.L().Info("serving metrics", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return eris.Wrap(err, "metrics server")
	}
	return nil
}
