// File: internal/infra/adapters/billing/stripe_gateway.go
package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"trading-journal/internal/domain/model"
	"trading-journal/internal/domain/ports/adapter"
)

var _ adapter.BillingGateway = (*StripeGateway)(nil)

const stripeAPIBase = "https://api.stripe.com/v1"

// StripeGateway implements adapter.BillingGateway against the Stripe REST
// API. Requests are form-encoded per Stripe's wire convention.
type StripeGateway struct {
	secretKey string
	priceID   string
	client    *http.Client
	baseURL   string
}

func NewStripeGateway(secretKey, priceID string) (*StripeGateway, error) {
	if secretKey == "" {
		return nil, errors.New("stripe secret key empty")
	}
	if priceID == "" {
		return nil, errors.New("stripe price id empty")
	}
	return &StripeGateway{
		secretKey: secretKey,
		priceID:   priceID,
		client:    &http.Client{Timeout: 15 * time.Second},
		baseURL:   stripeAPIBase,
	}, nil
}

// SetBaseURL points the gateway at a stripe-mock or test server.
func (g *StripeGateway) SetBaseURL(base string) { g.baseURL = base }

func (g *StripeGateway) Name() string { return "stripe" }

func (g *StripeGateway) do(ctx context.Context, method, path string, form url.Values, out interface{}) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+g.secretKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
				Type    string `json:"type"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error.Message != "" {
			return fmt.Errorf("stripe %s %s: %s", method, path, apiErr.Error.Message)
		}
		return fmt.Errorf("stripe %s %s: http %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (g *StripeGateway) EnsureCustomer(ctx context.Context, accountID, email string) (string, error) {
	form := url.Values{}
	form.Set("email", email)
	form.Set("metadata[accountId]", accountID)

	var out struct {
		ID string `json:"id"`
	}
	if err := g.do(ctx, http.MethodPost, "/customers", form, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", errors.New("stripe customer create: empty id")
	}
	return out.ID, nil
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, customerRef, accountID, successURL, cancelURL string) (*adapter.CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "subscription")
	form.Set("customer", customerRef)
	form.Set("line_items[0][price]", g.priceID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", successURL)
	form.Set("cancel_url", cancelURL)
	// Back-references so webhook payloads can be resolved to the account
	// even when the customer ref was never persisted.
	form.Set("metadata[accountId]", accountID)
	form.Set("subscription_data[metadata][accountId]", accountID)

	var out struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := g.do(ctx, http.MethodPost, "/checkout/sessions", form, &out); err != nil {
		return nil, err
	}
	if out.URL == "" {
		return nil, errors.New("stripe checkout session: empty url")
	}
	return &adapter.CheckoutSession{SessionRef: out.ID, URL: out.URL}, nil
}

func (g *StripeGateway) CreatePortalSession(ctx context.Context, customerRef, returnURL string) (string, error) {
	form := url.Values{}
	form.Set("customer", customerRef)
	form.Set("return_url", returnURL)

	var out struct {
		URL string `json:"url"`
	}
	if err := g.do(ctx, http.MethodPost, "/billing_portal/sessions", form, &out); err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", errors.New("stripe portal session: empty url")
	}
	return out.URL, nil
}

func (g *StripeGateway) GetSubscription(ctx context.Context, subscriptionRef string) (*model.SubscriptionSnapshot, error) {
	var raw struct {
		ID                 string `json:"id"`
		Customer           string `json:"customer"`
		Status             string `json:"status"`
		CurrentPeriodStart int64  `json:"current_period_start"`
		CurrentPeriodEnd   int64  `json:"current_period_end"`
		CancelAtPeriodEnd  bool   `json:"cancel_at_period_end"`
		EndedAt            int64  `json:"ended_at"`
		Metadata           struct {
			AccountID string `json:"accountId"`
		} `json:"metadata"`
		Items struct {
			Data []struct {
				Price struct {
					Nickname   string `json:"nickname"`
					UnitAmount int64  `json:"unit_amount"`
					Recurring  struct {
						Interval string `json:"interval"`
					} `json:"recurring"`
				} `json:"price"`
			} `json:"data"`
		} `json:"items"`
	}
	if err := g.do(ctx, http.MethodGet, "/subscriptions/"+subscriptionRef, nil, &raw); err != nil {
		return nil, err
	}

	snap := &model.SubscriptionSnapshot{
		SubscriptionRef:    raw.ID,
		CustomerRef:        raw.Customer,
		AccountID:          raw.Metadata.AccountID,
		Status:             model.SubscriptionStatus(raw.Status),
		CurrentPeriodStart: time.Unix(raw.CurrentPeriodStart, 0).UTC(),
		CurrentPeriodEnd:   time.Unix(raw.CurrentPeriodEnd, 0).UTC(),
		CancelAtPeriodEnd:  raw.CancelAtPeriodEnd,
	}
	if raw.EndedAt > 0 {
		t := time.Unix(raw.EndedAt, 0).UTC()
		snap.EndedAt = &t
	}
	if len(raw.Items.Data) > 0 {
		p := raw.Items.Data[0].Price
		snap.Price = &model.PriceSnapshot{
			Nickname:         p.Nickname,
			AmountMinorUnits: p.UnitAmount,
			Interval:         model.BillingInterval(p.Recurring.Interval),
		}
	}
	return snap, nil
}

func (g *StripeGateway) SetCancelAtPeriodEnd(ctx context.Context, subscriptionRef string, cancel bool) error {
	form := url.Values{}
	form.Set("cancel_at_period_end", fmt.Sprintf("%t", cancel))
	return g.do(ctx, http.MethodPost, "/subscriptions/"+subscriptionRef, form, nil)
}
