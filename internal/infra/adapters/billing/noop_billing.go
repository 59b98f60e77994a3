package billing

import (
	"context"
	"fmt"
	"sync"

	"trading-journal/internal/domain"
	"trading-journal/internal/domain/model"
	"trading-journal/internal/domain/ports/adapter"
)

var _ adapter.BillingGateway = (*NoopBillingGateway)(nil)

// NoopBillingGateway is a simple in-memory gateway to use in tests and dev
// mode. Customers and subscriptions live in maps; checkout URLs point at a
// placeholder host.
type NoopBillingGateway struct {
	mu        sync.Mutex
	seq       int64
	customers map[string]string // accountID -> customerRef
	subs      map[string]*model.SubscriptionSnapshot
}

func NewNoopBillingGateway() *NoopBillingGateway {
	return &NoopBillingGateway{
		customers: make(map[string]string),
		subs:      make(map[string]*model.SubscriptionSnapshot),
	}
}

func (g *NoopBillingGateway) Name() string { return "noop" }

func (g *NoopBillingGateway) next(prefix string) string {
	g.seq++
	return fmt.Sprintf("%s-noop-%d", prefix, g.seq)
}

func (g *NoopBillingGateway) EnsureCustomer(ctx context.Context, accountID, email string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if ref, ok := g.customers[accountID]; ok {
		return ref, nil
	}
	ref := g.next("cus")
	g.customers[accountID] = ref
	return ref, nil
}

func (g *NoopBillingGateway) CreateCheckoutSession(ctx context.Context, customerRef, accountID, successURL, cancelURL string) (*adapter.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ref := g.next("cs")
	return &adapter.CheckoutSession{
		SessionRef: ref,
		URL:        "https://example.test/checkout/" + ref,
	}, nil
}

func (g *NoopBillingGateway) CreatePortalSession(ctx context.Context, customerRef, returnURL string) (string, error) {
	return "https://example.test/portal/" + customerRef, nil
}

// PutSubscription seeds a snapshot so GetSubscription can resolve it.
func (g *NoopBillingGateway) PutSubscription(snap *model.SubscriptionSnapshot) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.subs[snap.SubscriptionRef] = snap
}

func (g *NoopBillingGateway) GetSubscription(ctx context.Context, subscriptionRef string) (*model.SubscriptionSnapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	snap, ok := g.subs[subscriptionRef]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *snap
	return &cp, nil
}

func (g *NoopBillingGateway) SetCancelAtPeriodEnd(ctx context.Context, subscriptionRef string, cancel bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	snap, ok := g.subs[subscriptionRef]
	if !ok {
		return domain.ErrNotFound
	}
	snap.CancelAtPeriodEnd = cancel
	return nil
}
