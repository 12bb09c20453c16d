// Package metrics описывает метрики Prometheus сервиса Support Me.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// HTTP метрики
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		},
		[]string{"method", "path"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests in flight",
		},
	)

	// Метрики вебхуков платёжного шлюза
	WebhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stripe_webhook_events_total",
			Help: "Total number of Stripe webhook events by type and applied action",
		},
		[]string{"type", "action"},
	)

	// Метрики баланса создателей, в центах
	LedgerCreditedCents = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_credited_cents_total",
			Help: "Total amount credited to creator balances in cents",
		},
	)
	LedgerDebitedCents = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_debited_cents_total",
			Help: "Total amount debited from creator balances by cashouts in cents",
		},
	)
	CashoutRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cashout_requests_total",
			Help: "Total number of cashout requests by result",
		},
		[]string{"result"},
	)
)

// Register регистрирует метрики сервиса и стандартные метрики Go в reg.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		HTTPRequestsInFlight,
		WebhookEventsTotal,
		LedgerCreditedCents,
		LedgerDebitedCents,
		CashoutRequestsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}
