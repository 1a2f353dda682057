package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the process counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	samples            *prometheus.CounterVec
	skipped            *prometheus.CounterVec
	fused              prometheus.Counter
	messages           *prometheus.CounterVec
	completionFailures *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		samples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "companion_emotion_samples_total",
			Help: "Emotion samples published per modality.",
		}, []string{"modality"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "companion_emotion_ticks_skipped_total",
			Help: "Sampling ticks that produced no sample.",
		}, []string{"modality", "reason"}),
		fused: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "companion_fusion_records_total",
			Help: "Combined emotion records produced by the sync loop.",
		}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "companion_router_messages_total",
			Help: "Routed messages per concern type.",
		}, []string{"concern"}),
		completionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "companion_completion_failures_total",
			Help: "Completion calls that failed and fell back.",
		}, []string{"call"}),
	}
	if reg != nil {
		reg.MustRegister(m.samples, m.skipped, m.fused, m.messages, m.completionFailures)
	}
	return m
}

func (m *Metrics) Sample(modality string) {
	if m == nil {
		return
	}
	m.samples.WithLabelValues(modality).Inc()
}

func (m *Metrics) Skip(modality, reason string) {
	if m == nil {
		return
	}
	m.skipped.WithLabelValues(modality, reason).Inc()
}

func (m *Metrics) Fused() {
	if m == nil {
		return
	}
	m.fused.Inc()
}

func (m *Metrics) Routed(concern string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(concern).Inc()
}

func (m *Metrics) CompletionFailed(call string) {
	if m == nil {
		return
	}
	m.completionFailures.WithLabelValues(call).Inc()
}
