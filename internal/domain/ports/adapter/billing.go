package adapter

import (
	"context"

	"trading-journal/internal/domain/model"
)

// CheckoutSession is the provider-hosted payment page handle returned to
// the caller for redirect.
type CheckoutSession struct {
	SessionRef string
	URL        string
}

// BillingGateway is the hex port for the external billing provider. The
// core never constructs a concrete gateway; it is injected so tests can
// substitute a fake. The provider's own ledger stays authoritative; local
// state is a cache refreshed by its events.
type BillingGateway interface {
	Name() string

	// EnsureCustomer returns the provider customer reference for the
	// account, creating the customer on first use.
	EnsureCustomer(ctx context.Context, accountID, email string) (string, error)

	// CreateCheckoutSession opens a subscription checkout for the customer.
	CreateCheckoutSession(ctx context.Context, customerRef, accountID, successURL, cancelURL string) (*CheckoutSession, error)

	// CreatePortalSession opens the provider's self-service portal.
	CreatePortalSession(ctx context.Context, customerRef, returnURL string) (string, error)

	// GetSubscription fetches the current authoritative snapshot.
	GetSubscription(ctx context.Context, subscriptionRef string) (*model.SubscriptionSnapshot, error)

	// SetCancelAtPeriodEnd flips the provider-side cancellation flag.
	SetCancelAtPeriodEnd(ctx context.Context, subscriptionRef string, cancel bool) error
}
