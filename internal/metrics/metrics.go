package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	registry *prometheus.Registry

	// Command metrics
	CommandsTotal   *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec

	// Sponsor metrics
	LookupsTotal    *prometheus.CounterVec
	LookupDuration  prometheus.Histogram
	AgreementsTotal *prometheus.CounterVec

	// Telegram metrics
	TelegramMessagesSentTotal     prometheus.Counter
	TelegramMessagesReceivedTotal prometheus.Counter
	TelegramFilesSentTotal        prometheus.Counter
	TelegramErrorsTotal           prometheus.Counter
}

// NewMetrics creates and registers all metrics
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		// Command metrics
		CommandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sponsorbot_commands_total",
				Help: "Total number of chat commands handled",
			},
			[]string{"command", "status"},
		),
		CommandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sponsorbot_command_duration_seconds",
				Help:    "Duration of chat commands in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"command"},
		),

		// Sponsor metrics
		LookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sponsorbot_lookups_total",
				Help: "Total number of sponsor lookups by outcome",
			},
			[]string{"outcome"},
		),
		LookupDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sponsorbot_lookup_duration_seconds",
				Help:    "Duration of sponsor table fetch and filter in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		AgreementsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sponsorbot_agreements_generated_total",
				Help: "Total number of generated sponsorship agreements",
			},
			[]string{"contract_type"},
		),

		// Telegram metrics
		TelegramMessagesSentTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "telegram_messages_sent_total",
				Help: "Total number of Telegram messages sent",
			},
		),
		TelegramMessagesReceivedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "telegram_messages_received_total",
				Help: "Total number of Telegram messages received",
			},
		),
		TelegramFilesSentTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "telegram_files_sent_total",
				Help: "Total number of files streamed to Telegram chats",
			},
		),
		TelegramErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "telegram_errors_total",
				Help: "Total number of Telegram errors",
			},
		),
	}

	// Register all metrics
	m.registerMetrics()

	return m
}

// registerMetrics registers all metrics with the registry
func (m *Metrics) registerMetrics() {
	m.registry.MustRegister(m.CommandsTotal)
	m.registry.MustRegister(m.CommandDuration)

	m.registry.MustRegister(m.LookupsTotal)
	m.registry.MustRegister(m.LookupDuration)
	m.registry.MustRegister(m.AgreementsTotal)

	m.registry.MustRegister(m.TelegramMessagesSentTotal)
	m.registry.MustRegister(m.TelegramMessagesReceivedTotal)
	m.registry.MustRegister(m.TelegramFilesSentTotal)
	m.registry.MustRegister(m.TelegramErrorsTotal)
}

// RecordCommand counts a handled command. Safe on a nil receiver.
func (m *Metrics) RecordCommand(command, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.CommandsTotal.WithLabelValues(command, status).Inc()
	m.CommandDuration.WithLabelValues(command).Observe(d.Seconds())
}

// RecordLookup counts a sponsor lookup. Safe on a nil receiver.
func (m *Metrics) RecordLookup(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.LookupsTotal.WithLabelValues(outcome).Inc()
	m.LookupDuration.Observe(d.Seconds())
}

// RecordAgreement counts a generated agreement. Safe on a nil receiver.
func (m *Metrics) RecordAgreement(contractType string) {
	if m == nil {
		return
	}
	m.AgreementsTotal.WithLabelValues(contractType).Inc()
}

// RecordTelegramReceived counts an incoming message. Safe on a nil receiver.
func (m *Metrics) RecordTelegramReceived() {
	if m == nil {
		return
	}
	m.TelegramMessagesReceivedTotal.Inc()
}

// RecordTelegramSent counts an outgoing text message. Safe on a nil receiver.
func (m *Metrics) RecordTelegramSent() {
	if m == nil {
		return
	}
	m.TelegramMessagesSentTotal.Inc()
}

// RecordTelegramFile counts a streamed file. Safe on a nil receiver.
func (m *Metrics) RecordTelegramFile() {
	if m == nil {
		return
	}
	m.TelegramFilesSentTotal.Inc()
}

// RecordTelegramError counts a failed Telegram call. Safe on a nil receiver.
func (m *Metrics) RecordTelegramError() {
	if m == nil {
		return
	}
	m.TelegramErrorsTotal.Inc()
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
