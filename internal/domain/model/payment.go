package model

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusDraft         PaymentStatus = "draft"
	PaymentStatusOpen          PaymentStatus = "open"
	PaymentStatusPaid          PaymentStatus = "paid"
	PaymentStatusVoid          PaymentStatus = "void"
	PaymentStatusUncollectible PaymentStatus = "uncollectible"
)

// Payment is one append-only record per successfully paid invoice. It is
// never mutated after creation; the unique InvoiceRef makes event replay a
// natural no-op.
type Payment struct {
	ID               string // UUID
	AccountID        string
	InvoiceRef       string // provider invoice id, unique
	PaymentIntentRef *string
	SubscriptionRef  string
	AmountMinorUnits int64
	Currency         string
	Status           PaymentStatus
	PaidAt           time.Time
	PeriodStart      time.Time
	PeriodEnd        time.Time
	InvoicePDF       *string
	HostedInvoiceURL *string
	CreatedAt        time.Time
}

// NewPaymentFromInvoice builds the ledger record for a paid invoice.
func NewPaymentFromInvoice(accountID string, inv *InvoiceSnapshot, now time.Time) *Payment {
	paidAt := now
	if inv.PaidAt != nil {
		paidAt = *inv.PaidAt
	}
	return &Payment{
		ID:               uuid.NewString(),
		AccountID:        accountID,
		InvoiceRef:       inv.InvoiceRef,
		PaymentIntentRef: inv.PaymentIntentRef,
		SubscriptionRef:  inv.SubscriptionRef,
		AmountMinorUnits: inv.AmountMinorUnits,
		Currency:         inv.Currency,
		Status:           inv.Status,
		PaidAt:           paidAt,
		PeriodStart:      inv.PeriodStart,
		PeriodEnd:        inv.PeriodEnd,
		InvoicePDF:       inv.InvoicePDF,
		HostedInvoiceURL: inv.HostedInvoiceURL,
		CreatedAt:        now,
	}
}
