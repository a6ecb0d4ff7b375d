// Package metrics exposes pipeline counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"smart-home-bot/internal/domain"
)

// Recorder implements application.Metrics on its own registry so several
// instances (tests, subcommands) never collide.
//
// Metrics:
//   - smarthome_utterances_total{intent}
//   - smarthome_outcomes_total{intent,outcome}
//   - smarthome_llm_retries_total
type Recorder struct {
	registry   *prometheus.Registry
	utterances *prometheus.CounterVec
	outcomes   *prometheus.CounterVec
	retries    prometheus.Counter
}

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		utterances: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smarthome_utterances_total",
				Help: "Utterances interpreted, by classified intent",
			},
			[]string{"intent"},
		),
		outcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smarthome_outcomes_total",
				Help: "Handler outcomes, by intent and outcome",
			},
			[]string{"intent", "outcome"},
		),
		retries: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "smarthome_llm_retries_total",
				Help: "Completion calls retried after rate limiting",
			},
		),
	}
}

func (r *Recorder) ObserveIntent(intent domain.Intent) {
	r.utterances.WithLabelValues(string(intent)).Inc()
}

func (r *Recorder) ObserveOutcome(intent domain.Intent, outcome string) {
	r.outcomes.WithLabelValues(string(intent), outcome).Inc()
}

func (r *Recorder) ObserveRetry() {
	r.retries.Inc()
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
