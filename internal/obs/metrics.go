package obs

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	AttemptsTotal    prometheus.Counter
	SkippedTotal     prometheus.Counter
	OutcomesTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	LastRunTimestamp prometheus.Gauge
	Registry         *prometheus.Registry
}

// Create Prometheus collectors and register them
func NewMetrics(r *prometheus.Registry) *Metrics {
	m := &Metrics{
		AttemptsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scrape_attempts_total",
			Help: "Total number of property fetch attempts",
		}),
		SkippedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scrape_ineligible_total",
			Help: "Properties skipped because their capacity is below the requested adults",
		}),
		OutcomesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scrape_outcomes_total",
			Help: "Terminal property outcomes by kind",
		}, []string{"kind"}),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scrape_request_duration_seconds",
				Help:    "Upstream request latencies",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"step"},
		),
		LastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scrape_last_run_timestamp_seconds",
			Help: "Unix time of the last completed run",
		}),
		Registry: r,
	}

	r.MustRegister(
		m.AttemptsTotal,
		m.SkippedTotal,
		m.OutcomesTotal,
		m.RequestDuration,
		m.LastRunTimestamp,
	)

	return m
}

func (m *Metrics) IncAttempts() { m.AttemptsTotal.Inc() }
func (m *Metrics) IncSkipped()  { m.SkippedTotal.Inc() }

func (m *Metrics) IncOutcome(kind string) {
	m.OutcomesTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveRequest(step string, seconds float64) {
	m.RequestDuration.WithLabelValues(step).Observe(seconds)
}

func (m *Metrics) SetLastRun(unix float64) {
	m.LastRunTimestamp.Set(unix)
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
