package enums

// WebhookOutcome is the canonical interpretation of one webhook delivery
// after gateway vocabulary mapping.
type WebhookOutcome string

const (
	WebhookOutcomeSuccess   WebhookOutcome = "success"
	WebhookOutcomeFailed    WebhookOutcome = "failed"
	WebhookOutcomeCancelled WebhookOutcome = "cancelled"
	WebhookOutcomeIgnored   WebhookOutcome = "ignored"
)

// PhonePe event types (checkout v2 callbacks).
const (
	PhonePeEventOrderCompleted = "checkout.order.completed"
	PhonePeEventOrderFailed    = "checkout.order.failed"
)

// Legacy Cashfree webhook types.
const (
	CashfreeEventSuccess     = "PAYMENT_SUCCESS_WEBHOOK"
	CashfreeEventFailed      = "PAYMENT_FAILED_WEBHOOK"
	CashfreeEventUserDropped = "PAYMENT_USER_DROPPED_WEBHOOK"
)

// OutcomeForPhonePeEvent maps a PhonePe callback type plus payload state
// onto the canonical outcome. PhonePe reports user abandonment as a failed
// order with a USER_DROPPED detail code.
func OutcomeForPhonePeEvent(eventType, errorCode string) WebhookOutcome {
	switch eventType {
	case PhonePeEventOrderCompleted:
		return WebhookOutcomeSuccess
	case PhonePeEventOrderFailed:
		if errorCode == "USER_DROPPED" {
			return WebhookOutcomeCancelled
		}
		return WebhookOutcomeFailed
	default:
		return WebhookOutcomeIgnored
	}
}

// OutcomeForCashfreeEvent maps the legacy vocabulary onto the canonical one.
func OutcomeForCashfreeEvent(eventType string) WebhookOutcome {
	switch eventType {
	case CashfreeEventSuccess:
		return WebhookOutcomeSuccess
	case CashfreeEventFailed:
		return WebhookOutcomeFailed
	case CashfreeEventUserDropped:
		return WebhookOutcomeCancelled
	default:
		return WebhookOutcomeIgnored
	}
}
