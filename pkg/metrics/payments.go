package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics records reconciliation and webhook outcomes.
type PaymentMetrics struct {
	reconcileDuration *prometheus.HistogramVec
	reconcileOutcome  *prometheus.CounterVec
	webhookOutcome    *prometheus.CounterVec
	gatewayFailures   prometheus.Counter
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	reconcileDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payment_reconcile_duration_seconds",
		Help:    "Duration of order reconciliation calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})
	reconcileOutcome := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_reconcile_outcomes",
		Help: "Reconciliation outcomes by resulting order status.",
	}, []string{"status"})
	webhookOutcome := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhook_outcomes",
		Help: "Processed webhook deliveries by gateway and outcome.",
	}, []string{"gateway", "outcome"})
	gatewayFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payment_gateway_query_failures",
		Help: "Gateway status queries that failed or timed out.",
	})
	reg.MustRegister(reconcileDuration, reconcileOutcome, webhookOutcome, gatewayFailures)
	return &PaymentMetrics{
		reconcileDuration: reconcileDuration,
		reconcileOutcome:  reconcileOutcome,
		webhookOutcome:    webhookOutcome,
		gatewayFailures:   gatewayFailures,
	}
}

// ObserveReconcileDuration records one reconciliation call duration.
func (p *PaymentMetrics) ObserveReconcileDuration(source string, duration time.Duration) {
	if p == nil || p.reconcileDuration == nil {
		return
	}
	p.reconcileDuration.WithLabelValues(normalizeLabel(source)).Observe(duration.Seconds())
}

// IncReconcileOutcome counts the resulting order status of a reconcile call.
func (p *PaymentMetrics) IncReconcileOutcome(status string) {
	if p == nil || p.reconcileOutcome == nil {
		return
	}
	p.reconcileOutcome.WithLabelValues(normalizeLabel(status)).Inc()
}

// IncWebhookOutcome counts one processed webhook delivery.
func (p *PaymentMetrics) IncWebhookOutcome(gateway, outcome string) {
	if p == nil || p.webhookOutcome == nil {
		return
	}
	p.webhookOutcome.WithLabelValues(normalizeLabel(gateway), normalizeLabel(outcome)).Inc()
}

// IncGatewayFailure counts one failed gateway status query.
func (p *PaymentMetrics) IncGatewayFailure() {
	if p == nil || p.gatewayFailures == nil {
		return
	}
	p.gatewayFailures.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
