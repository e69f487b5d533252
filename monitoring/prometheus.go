// Package monitoring exposes prediction metrics in the Prometheus format.
package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's collectors on a private registry.
//
// Metrics:
//   - mfp_predictions_total{label} - predictions served, by displayed label
//   - mfp_prediction_errors_total{stage} - failed predictions, by pipeline stage
//   - mfp_prediction_duration_seconds - scaler plus model latency
//   - mfp_cache_hits_total - predictions answered from the cache
//   - mfp_artifacts_loaded_timestamp_seconds - when model and scaler were loaded
type Metrics struct {
	registry *prometheus.Registry

	PredictionsTotal   *prometheus.CounterVec
	ErrorsTotal        *prometheus.CounterVec
	PredictionDuration prometheus.Histogram
	CacheHitsTotal     prometheus.Counter
	ArtifactsLoadedAt  prometheus.Gauge
}

// NewMetrics registers the collectors plus the Go and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		PredictionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mfp_predictions_total",
				Help: "Total number of predictions served",
			},
			[]string{"label"},
		),
		ErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mfp_prediction_errors_total",
				Help: "Total number of failed predictions",
			},
			[]string{"stage"}, // "form", "transform", "predict" or "probabilities"
		),
		PredictionDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mfp_prediction_duration_seconds",
				Help:    "Time spent in the scaler and model",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
			},
		),
		CacheHitsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "mfp_cache_hits_total",
				Help: "Total number of predictions answered from the cache",
			},
		),
		ArtifactsLoadedAt: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "mfp_artifacts_loaded_timestamp_seconds",
				Help: "Unix time at which the model and scaler were loaded",
			},
		),
	}
}

func (m *Metrics) ObservePrediction(label string, duration time.Duration, cached bool) {
	m.PredictionsTotal.WithLabelValues(label).Inc()
	if cached {
		m.CacheHitsTotal.Inc()
		return
	}
	m.PredictionDuration.Observe(duration.Seconds())
}

func (m *Metrics) ObserveError(stage string) {
	m.ErrorsTotal.WithLabelValues(stage).Inc()
}

// SetArtifactsLoaded records the artifact load time.
func (m *Metrics) SetArtifactsLoaded(at time.Time) {
	m.ArtifactsLoadedAt.Set(float64(at.Unix()))
}

// Handler serves the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry is exposed for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
