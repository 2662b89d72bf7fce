package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Metrics holds the prometheus collectors for one run. A nil *Metrics is
// valid and turns every recording call into a no-op.
type Metrics struct {
	candidatesFound  prometheus.Counter
	amplified        prometheus.Counter
	alreadyAmplified prometheus.Counter
	failed           prometheus.Counter
	conversations    prometheus.Counter
	passes           prometheus.Counter
}

// NewMetrics registers the collectors on a fresh registry and returns it
// alongside the metrics handle.
func NewMetrics() (*Metrics, *prometheus.Registry) {
	m := &Metrics{
		candidatesFound: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "amplify_candidates_found_total",
			Help: "Total candidates discovered across all conversations",
		}),
		amplified: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "amplify_amplified_total",
			Help: "Total posts amplified",
		}),
		alreadyAmplified: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "amplify_already_amplified_total",
			Help: "Total posts skipped because they were already amplified",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "amplify_failed_total",
			Help: "Total candidates that exhausted their retries",
		}),
		conversations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "amplify_conversations_processed_total",
			Help: "Total conversation visits",
		}),
		passes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "amplify_passes_total",
			Help: "Total full inbox passes",
		}),
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		m.candidatesFound,
		m.amplified,
		m.alreadyAmplified,
		m.failed,
		m.conversations,
		m.passes,
	)
	return m, reg
}

// Serve exposes /metrics on addr in a background goroutine.
func Serve(addr string, reg *prometheus.Registry, logger *logrus.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.WithError(err).Warn("metrics listener stopped")
		}
	}()
}

func (m *Metrics) RecordCandidates(n int) {
	if m == nil {
		return
	}
	m.candidatesFound.Add(float64(n))
}

func (m *Metrics) RecordAmplified() {
	if m == nil {
		return
	}
	m.amplified.Inc()
}

func (m *Metrics) RecordAlreadyAmplified() {
	if m == nil {
		return
	}
	m.alreadyAmplified.Inc()
}

func (m *Metrics) RecordFailed() {
	if m == nil {
		return
	}
	m.failed.Inc()
}

func (m *Metrics) RecordConversation() {
	if m == nil {
		return
	}
	m.conversations.Inc()
}

func (m *Metrics) RecordPass() {
	if m == nil {
		return
	}
	m.passes.Inc()
}
