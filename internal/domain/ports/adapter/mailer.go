package adapter

import "context"

// Notification template keys.
const (
	TemplateTrialEnding   = "trial-ending"
	TemplatePaymentFailed = "payment-failed"
)

// NotificationSender delivers templated email, fire-and-forget. Failures
// are logged by callers and never roll back entitlement or ledger state.
type NotificationSender interface {
	SendTemplate(ctx context.Context, to, template string, vars map[string]string) error
}
