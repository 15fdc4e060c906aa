package relay

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	requests         *prometheus.CounterVec
	registrations    prometheus.Counter
	bundlesServed    prometheus.Counter
	oneTimeExhausted prometheus.Counter
	queued           prometheus.Counter
	delivered        prometheus.Counter
	queueDepth       prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cipherline_relay_requests_total",
				Help: "Number of HTTP requests by route and status code",
			},
			[]string{"route", "code"},
		),
		registrations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cipherline_relay_registrations_total",
				Help: "Number of pre-key registrations stored",
			},
		),
		bundlesServed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cipherline_relay_bundles_served_total",
				Help: "Number of pre-key bundles handed out",
			},
		),
		oneTimeExhausted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cipherline_relay_bundles_without_one_time_key_total",
				Help: "Number of bundles handed out with an empty one-time pre-key pool",
			},
		),
		queued: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cipherline_relay_envelopes_queued_total",
				Help: "Number of envelopes enqueued",
			},
		),
		delivered: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cipherline_relay_envelopes_acked_total",
				Help: "Number of envelopes acknowledged and dropped",
			},
		),
		queueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "cipherline_relay_queue_depth",
				Help: "Number of envelopes waiting across all users",
			},
		),
	}
	reg.MustRegister(
		m.requests,
		m.registrations,
		m.bundlesServed,
		m.oneTimeExhausted,
		m.queued,
		m.delivered,
		m.queueDepth,
	)
	return m
}
