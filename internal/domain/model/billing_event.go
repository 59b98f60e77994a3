package model

import (
	"encoding/json"
	"time"
)

type EventKind string

const (
	EventSubscriptionCreated EventKind = "customer.subscription.created"
	EventSubscriptionUpdated EventKind = "customer.subscription.updated"
	EventSubscriptionDeleted EventKind = "customer.subscription.deleted"
	EventCheckoutCompleted   EventKind = "checkout.session.completed"
	EventInvoicePaid         EventKind = "invoice.paid"
	EventInvoicePaymentFail  EventKind = "invoice.payment_failed"
)

// PriceSnapshot is the plan descriptor carried by a subscription's first
// line item.
type PriceSnapshot struct {
	Nickname         string
	AmountMinorUnits int64
	Interval         BillingInterval
}

// SubscriptionSnapshot is the provider's full authoritative view of one
// subscription at event time. Handlers overwrite local state from it
// wholesale, so replays and re-ordering are harmless.
type SubscriptionSnapshot struct {
	SubscriptionRef    string
	CustomerRef        string
	AccountID          string // provider-side metadata back-reference
	Status             SubscriptionStatus
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	CancelAtPeriodEnd  bool
	EndedAt            *time.Time
	Price              *PriceSnapshot
}

// CheckoutSnapshot carries the subset of a completed checkout session the
// reconciler needs. Checkout completion alone has too few fields to update
// entitlement; the reconciler re-fetches the subscription.
type CheckoutSnapshot struct {
	SessionRef      string
	CustomerRef     string
	AccountID       string
	SubscriptionRef string
}

// InvoiceSnapshot mirrors the provider invoice object for paid / failed
// invoice events.
type InvoiceSnapshot struct {
	InvoiceRef       string
	PaymentIntentRef *string
	CustomerRef      string
	SubscriptionRef  string
	AmountMinorUnits int64
	Currency         string
	Status           PaymentStatus
	PaidAt           *time.Time
	PeriodStart      time.Time
	PeriodEnd        time.Time
	InvoicePDF       *string
	HostedInvoiceURL *string
}

// BillingEvent is a closed tagged union over the event kinds the reconciler
// handles. Exactly one payload pointer is set for a known kind; an unknown
// kind carries none and is dropped by the reconciler.
type BillingEvent struct {
	ID   string
	Kind EventKind

	Subscription *SubscriptionSnapshot
	Checkout     *CheckoutSnapshot
	Invoice      *InvoiceSnapshot
}

// Known reports whether the event kind is one the reconciler dispatches on.
func (e *BillingEvent) Known() bool {
	switch e.Kind {
	case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionDeleted,
		EventCheckoutCompleted, EventInvoicePaid, EventInvoicePaymentFail:
		return true
	}
	return false
}

// rawEnvelope matches the provider's webhook JSON shape (Stripe-compatible).
type rawEnvelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type rawSubscription struct {
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

type rawCheckoutSession struct {
	ID           string `json:"id"`
	Customer     string `json:"customer"`
	Subscription string `json:"subscription"`
	Metadata     struct {
		AccountID string `json:"accountId"`
	} `json:"metadata"`
}

type rawInvoice struct {
	ID                string  `json:"id"`
	Customer          string  `json:"customer"`
	Subscription      string  `json:"subscription"`
	PaymentIntent     *string `json:"payment_intent"`
	AmountPaid        int64   `json:"amount_paid"`
	Currency          string  `json:"currency"`
	Status            string  `json:"status"`
	PeriodStart       int64   `json:"period_start"`
	PeriodEnd         int64   `json:"period_end"`
	InvoicePDF        *string `json:"invoice_pdf"`
	HostedInvoiceURL  *string `json:"hosted_invoice_url"`
	StatusTransitions struct {
		PaidAt int64 `json:"paid_at"`
	} `json:"status_transitions"`
}

// ParseBillingEvent decodes a provider webhook payload into the event
// union. Unknown kinds parse successfully with no payload set; structural
// errors in a known kind's payload are returned to the caller.
func ParseBillingEvent(payload []byte) (*BillingEvent, error) {
	var env rawEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, err
	}
	ev := &BillingEvent{ID: env.ID, Kind: EventKind(env.Type)}

	switch ev.Kind {
	case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionDeleted:
		var raw rawSubscription
		if err := json.Unmarshal(env.Data.Object, &raw); err != nil {
			return nil, err
		}
		ev.Subscription = subscriptionFromRaw(&raw)
	case EventCheckoutCompleted:
		var raw rawCheckoutSession
		if err := json.Unmarshal(env.Data.Object, &raw); err != nil {
			return nil, err
		}
		ev.Checkout = &CheckoutSnapshot{
			SessionRef:      raw.ID,
			CustomerRef:     raw.Customer,
			AccountID:       raw.Metadata.AccountID,
			SubscriptionRef: raw.Subscription,
		}
	case EventInvoicePaid, EventInvoicePaymentFail:
		var raw rawInvoice
		if err := json.Unmarshal(env.Data.Object, &raw); err != nil {
			return nil, err
		}
		ev.Invoice = invoiceFromRaw(&raw)
	}
	return ev, nil
}

func subscriptionFromRaw(raw *rawSubscription) *SubscriptionSnapshot {
	s := &SubscriptionSnapshot{
		SubscriptionRef:    raw.ID,
		CustomerRef:        raw.Customer,
		AccountID:          raw.Metadata.AccountID,
		Status:             SubscriptionStatus(raw.Status),
		CurrentPeriodStart: time.Unix(raw.CurrentPeriodStart, 0).UTC(),
		CurrentPeriodEnd:   time.Unix(raw.CurrentPeriodEnd, 0).UTC(),
		CancelAtPeriodEnd:  raw.CancelAtPeriodEnd,
	}
	if raw.EndedAt > 0 {
		t := time.Unix(raw.EndedAt, 0).UTC()
		s.EndedAt = &t
	}
	if len(raw.Items.Data) > 0 {
		p := raw.Items.Data[0].Price
		s.Price = &PriceSnapshot{
			Nickname:         p.Nickname,
			AmountMinorUnits: p.UnitAmount,
			Interval:         BillingInterval(p.Recurring.Interval),
		}
	}
	return s
}

func invoiceFromRaw(raw *rawInvoice) *InvoiceSnapshot {
	inv := &InvoiceSnapshot{
		InvoiceRef:       raw.ID,
		PaymentIntentRef: raw.PaymentIntent,
		CustomerRef:      raw.Customer,
		SubscriptionRef:  raw.Subscription,
		AmountMinorUnits: raw.AmountPaid,
		Currency:         raw.Currency,
		Status:           PaymentStatus(raw.Status),
		PeriodStart:      time.Unix(raw.PeriodStart, 0).UTC(),
		PeriodEnd:        time.Unix(raw.PeriodEnd, 0).UTC(),
		InvoicePDF:       raw.InvoicePDF,
		HostedInvoiceURL: raw.HostedInvoiceURL,
	}
	if raw.StatusTransitions.PaidAt > 0 {
		t := time.Unix(raw.StatusTransitions.PaidAt, 0).UTC()
		inv.PaidAt = &t
	}
	return inv
}
