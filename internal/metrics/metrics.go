package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "smart_office"

// Prom holds the ingestion and control-loop collectors.
type Prom struct {
	readings        prometheus.Counter
	decodeErrors    prometheus.Counter
	ingestLatency   prometheus.Histogram
	commands        *prometheus.CounterVec
	alarms          *prometheus.CounterVec
	collaboratorErr *prometheus.CounterVec
	devices         *prometheus.GaugeVec

	gatherer prometheus.Gatherer
}

// New registers every collector on reg. Pass prometheus.NewRegistry() in
// tests to keep the default registry clean.
func New(reg *prometheus.Registry) *Prom {
	p := &Prom{
		readings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_ingested_total",
			Help:      "Sensor readings decoded and run through the pipeline.",
		}),
		decodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Inbound messages dropped because they could not be decoded.",
		}),
		ingestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_duration_seconds",
			Help:      "Time from message receipt to the end of the last pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Control commands dispatched, by action and result.",
		}, []string{"action", "result"}),
		alarms: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alarms_total",
			Help:      "Hazards seen, by kind and whether they were raised or suppressed.",
		}, []string{"kind", "outcome"}),
		collaboratorErr: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collaborator_failures_total",
			Help:      "Failed calls to external collaborators, by pipeline stage.",
		}, []string{"stage"}),
		devices: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "devices",
			Help:      "Known devices by liveness status.",
		}, []string{"status"}),
		gatherer: reg,
	}

	reg.MustRegister(
		p.readings,
		p.decodeErrors,
		p.ingestLatency,
		p.commands,
		p.alarms,
		p.collaboratorErr,
		p.devices,
	)
	return p
}

func (p *Prom) ReadingIngested(seconds float64) {
	p.readings.Inc()
	p.ingestLatency.Observe(seconds)
}

func (p *Prom) DecodeError() { p.decodeErrors.Inc() }

func (p *Prom) CommandDispatched(action string, ok bool) {
	result := "success"
	if !ok {
		result = "failed"
	}
	p.commands.WithLabelValues(action, result).Inc()
}

func (p *Prom) AlarmRaised(kind string)     { p.alarms.WithLabelValues(kind, "raised").Inc() }
func (p *Prom) AlarmSuppressed(kind string) { p.alarms.WithLabelValues(kind, "suppressed").Inc() }

func (p *Prom) CollaboratorFailed(stage string) {
	p.collaboratorErr.WithLabelValues(stage).Inc()
}

// SetDevices replaces the per-status device gauge.
func (p *Prom) SetDevices(counts map[string]int) {
	p.devices.Reset()
	for status, n := range counts {
		p.devices.WithLabelValues(status).Set(float64(n))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prom) Handler() http.Handler {
	return promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{})
}
