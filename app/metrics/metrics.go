package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Sink receives best-effort observability signals. Nothing reads them back
// for correctness.
type Sink interface {
	ObserveAPICall(route, method string, status int, duration time.Duration)
	ObserveGeneration(provider, outcome string, duration time.Duration)
	IncUsageRecorded(kind string, count int64)
	IncUsageRecordFailure(kind string)
	IncQuotaDenied(feature, plan string)
	IncWebhook(event, outcome string)
	IncSubscriptionTransition(from, to string)
}

type Nop struct{}

func (Nop) ObserveAPICall(string, string, int, time.Duration) {}
func (Nop) ObserveGeneration(string, string, time.Duration)   {}
func (Nop) IncUsageRecorded(string, int64)                    {}
func (Nop) IncUsageRecordFailure(string)                      {}
func (Nop) IncQuotaDenied(string, string)                     {}
func (Nop) IncWebhook(string, string)                         {}
func (Nop) IncSubscriptionTransition(string, string)          {}

type Prometheus struct {
	apiCalls               *prometheus.CounterVec
	apiDuration            *prometheus.HistogramVec
	generationDuration     *prometheus.HistogramVec
	usageRecorded          *prometheus.CounterVec
	usageRecordFailures    *prometheus.CounterVec
	quotaDenied            *prometheus.CounterVec
	webhooks               *prometheus.CounterVec
	subscriptionTransition *prometheus.CounterVec
}

// NewPrometheus creates the collectors and registers them with reg.
func NewPrometheus(namespace string, reg prometheus.Registerer) *Prometheus {
	m := &Prometheus{
		apiCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "api",
				Name:      "requests_total",
				Help:      "Total API requests by route, method and status code",
			},
			[]string{"route", "method", "status"},
		),
		apiDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "api",
				Name:      "request_duration_seconds",
				Help:      "API request latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		generationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "generation",
				Name:      "duration_seconds",
				Help:      "Image generation latency by provider and outcome",
				Buckets:   []float64{1, 2.5, 5, 10, 20, 40, 60, 120},
			},
			[]string{"provider", "outcome"},
		),
		usageRecorded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "usage",
				Name:      "recorded_total",
				Help:      "Total usage units appended to the ledger",
			},
			[]string{"kind"},
		),
		usageRecordFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "usage",
				Name:      "record_failures_total",
				Help:      "Total usage ledger writes that failed and were skipped",
			},
			[]string{"kind"},
		),
		quotaDenied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "usage",
				Name:      "quota_denied_total",
				Help:      "Total requests denied by a plan limit",
			},
			[]string{"feature", "plan"},
		),
		webhooks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "payments",
				Name:      "webhooks_total",
				Help:      "Total payment webhooks by event and outcome",
			},
			[]string{"event", "outcome"},
		),
		subscriptionTransition: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "subscriptions",
				Name:      "transitions_total",
				Help:      "Total subscription status transitions",
			},
			[]string{"from", "to"},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.apiCalls,
			m.apiDuration,
			m.generationDuration,
			m.usageRecorded,
			m.usageRecordFailures,
			m.quotaDenied,
			m.webhooks,
			m.subscriptionTransition,
		)
	}

	return m
}

func (m *Prometheus) ObserveAPICall(route, method string, status int, duration time.Duration) {
	m.apiCalls.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.apiDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

func (m *Prometheus) ObserveGeneration(provider, outcome string, duration time.Duration) {
	m.generationDuration.WithLabelValues(provider, outcome).Observe(duration.Seconds())
}

func (m *Prometheus) IncUsageRecorded(kind string, count int64) {
	if count <= 0 {
		return
	}
	m.usageRecorded.WithLabelValues(kind).Add(float64(count))
}

func (m *Prometheus) IncUsageRecordFailure(kind string) {
	m.usageRecordFailures.WithLabelValues(kind).Inc()
}

func (m *Prometheus) IncQuotaDenied(feature, plan string) {
	m.quotaDenied.WithLabelValues(feature, plan).Inc()
}

func (m *Prometheus) IncWebhook(event, outcome string) {
	m.webhooks.WithLabelValues(event, outcome).Inc()
}

func (m *Prometheus) IncSubscriptionTransition(from, to string) {
	m.subscriptionTransition.WithLabelValues(from, to).Inc()
}
