package model

import (
	"strings"
	"time"

	"trading-journal/internal/domain"

	"github.com/google/uuid"
)

type SubscriptionStatus string

const (
	SubscriptionStatusTrial             SubscriptionStatus = "trial"
	SubscriptionStatusActive            SubscriptionStatus = "active"
	SubscriptionStatusTrialing          SubscriptionStatus = "trialing"
	SubscriptionStatusPastDue           SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled          SubscriptionStatus = "canceled"
	SubscriptionStatusIncomplete        SubscriptionStatus = "incomplete"
	SubscriptionStatusIncompleteExpired SubscriptionStatus = "incomplete_expired"
	SubscriptionStatusUnpaid            SubscriptionStatus = "unpaid"
)

type BillingInterval string

const (
	BillingIntervalMonth BillingInterval = "month"
	BillingIntervalYear  BillingInterval = "year"
)

// TrialDays is the default length of the free trial window.
const TrialDays = 30

// Account is the domain entity owning both the entitlement state and the
// position ledger. Entitlement fields are embedded rather than split into a
// separate aggregate: every billing event rewrites them as one snapshot.
type Account struct {
	ID        string
	Email     string
	Name      string
	CreatedAt time.Time

	// Entitlement state
	PaymentExempt          bool
	BillingCustomerRef     *string
	BillingSubscriptionRef *string
	Status                 *SubscriptionStatus
	TrialStart             *time.Time
	TrialEnd               *time.Time
	SubscriptionStart      *time.Time
	SubscriptionEnd        *time.Time
	CurrentPeriodEnd       *time.Time
	PlanName               *string
	AmountMinorUnits       *int64
	Interval               *BillingInterval
	CancelAtPeriodEnd      bool
	TrialReminderSentAt    *time.Time
}

func NewAccount(id, email, name string) (*Account, error) {
	if id == "" {
		id = uuid.NewString()
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || name == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &Account{
		ID:        id,
		Email:     email,
		Name:      name,
		CreatedAt: time.Now(),
	}, nil
}

func (a *Account) IsZero() bool { return a == nil || a.ID == "" }

// HasAccess decides whether the account may use paid features at `now`.
// Payment-exempt accounts always pass; otherwise an unexpired trial or an
// active/trialing paid subscription grants access. A stale past_due or
// canceled status never grants access regardless of CurrentPeriodEnd.
func (a *Account) HasAccess(now time.Time) bool {
	if a.PaymentExempt {
		return true
	}
	if a.TrialEnd != nil && !now.After(*a.TrialEnd) {
		return true
	}
	if a.Status != nil {
		switch *a.Status {
		case SubscriptionStatusActive, SubscriptionStatusTrialing:
			return true
		}
	}
	return false
}

// InitializeTrial starts the trial window once. Calling it again, or on a
// payment-exempt account, is a no-op.
func (a *Account) InitializeTrial(now time.Time) {
	if a.TrialStart != nil || a.PaymentExempt {
		return
	}
	end := now.Add(TrialDays * 24 * time.Hour)
	a.TrialStart = &now
	a.TrialEnd = &end
	st := SubscriptionStatusTrial
	a.Status = &st
}

// MarkPaymentExempt grants unconditional access.
func (a *Account) MarkPaymentExempt() { a.PaymentExempt = true }

// ClearPaymentExempt revokes the exemption. Accounts with no trial history
// and no subscription status get a fresh trial so they are never left
// without any entitlement path.
func (a *Account) ClearPaymentExempt(now time.Time) {
	a.PaymentExempt = false
	if a.TrialStart == nil && a.Status == nil {
		a.InitializeTrial(now)
	}
}

// ClearTrial drops the trial window. Called when a paid subscription
// reaches active: paid supersedes trial.
func (a *Account) ClearTrial() {
	a.TrialStart = nil
	a.TrialEnd = nil
}

// ApplySubscription overwrites the mutable entitlement fields from a full
// provider snapshot. Overwriting (never merging) makes replayed or
// re-ordered events self-healing: the next event restores the truth.
func (a *Account) ApplySubscription(s *SubscriptionSnapshot) {
	a.BillingSubscriptionRef = &s.SubscriptionRef
	st := s.Status
	a.Status = &st
	a.SubscriptionStart = &s.CurrentPeriodStart
	a.SubscriptionEnd = &s.CurrentPeriodEnd
	a.CurrentPeriodEnd = &s.CurrentPeriodEnd
	a.CancelAtPeriodEnd = s.CancelAtPeriodEnd
	if s.Price != nil {
		a.AmountMinorUnits = &s.Price.AmountMinorUnits
		iv := s.Price.Interval
		a.Interval = &iv
		name := s.Price.Nickname
		if name == "" {
			name = string(s.Price.Interval) + "ly Plan"
		}
		a.PlanName = &name
	}
	if s.Status == SubscriptionStatusActive {
		a.ClearTrial()
	}
}

// EntitlementSnapshot is the read model returned to the API layer for
// status display.
type EntitlementSnapshot struct {
	HasAccess              bool
	PaymentExempt          bool
	Status                 *SubscriptionStatus
	PlanName               *string
	AmountMinorUnits       *int64
	Interval               *BillingInterval
	TrialStart             *time.Time
	TrialEnd               *time.Time
	SubscriptionStart      *time.Time
	SubscriptionEnd        *time.Time
	CurrentPeriodEnd       *time.Time
	CancelAtPeriodEnd      bool
	BillingCustomerRef     *string
	BillingSubscriptionRef *string
}

func (a *Account) Entitlement(now time.Time) EntitlementSnapshot {
	return EntitlementSnapshot{
		HasAccess:              a.HasAccess(now),
		PaymentExempt:          a.PaymentExempt,
		Status:                 a.Status,
		PlanName:               a.PlanName,
		AmountMinorUnits:       a.AmountMinorUnits,
		Interval:               a.Interval,
		TrialStart:             a.TrialStart,
		TrialEnd:               a.TrialEnd,
		SubscriptionStart:      a.SubscriptionStart,
		SubscriptionEnd:        a.SubscriptionEnd,
		CurrentPeriodEnd:       a.CurrentPeriodEnd,
		CancelAtPeriodEnd:      a.CancelAtPeriodEnd,
		BillingCustomerRef:     a.BillingCustomerRef,
		BillingSubscriptionRef: a.BillingSubscriptionRef,
	}
}
