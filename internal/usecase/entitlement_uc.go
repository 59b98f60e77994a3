// File: internal/usecase/entitlement_uc.go
package usecase

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"trading-journal/internal/domain"
	"trading-journal/internal/domain/model"
	"trading-journal/internal/domain/ports/adapter"
	"trading-journal/internal/domain/ports/repository"
)

// Compile-time check
var _ EntitlementUseCase = (*entitlementUC)(nil)

// EntitlementUseCase owns the account entitlement state machine and the
// caller-facing billing operations.
type EntitlementUseCase interface {
	// HasAccess is the paid-feature gate.
	HasAccess(ctx context.Context, accountID string) (bool, error)
	// Status returns the full entitlement snapshot for display.
	Status(ctx context.Context, accountID string) (*model.EntitlementSnapshot, error)
	// StartTrial initializes the trial window (idempotent).
	StartTrial(ctx context.Context, accountID string) (*model.Account, error)
	MarkPaymentExempt(ctx context.Context, accountID string) (*model.Account, error)
	ClearPaymentExempt(ctx context.Context, accountID string) (*model.Account, error)
	// CancelAtPeriodEnd flags the subscription to lapse at period end.
	CancelAtPeriodEnd(ctx context.Context, accountID string) (*model.Account, error)
	// Reactivate clears a pending cancellation.
	Reactivate(ctx context.Context, accountID string) (*model.Account, error)
	CreateCheckoutSession(ctx context.Context, accountID, successURL, cancelURL string) (*adapter.CheckoutSession, error)
	CreatePortalSession(ctx context.Context, accountID, returnURL string) (string, error)
	PaymentHistory(ctx context.Context, accountID string, offset, limit int) ([]*model.Payment, int, error)
}

type entitlementUC struct {
	accounts repository.AccountRepository
	payments repository.PaymentRepository
	gateway  adapter.BillingGateway
	tm       repository.TransactionManager
	log      *zerolog.Logger
}

func NewEntitlementUseCase(
	accounts repository.AccountRepository,
	payments repository.PaymentRepository,
	gateway adapter.BillingGateway,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *entitlementUC {
	l := logger.With().Str("component", "EntitlementUC").Logger()
	return &entitlementUC{accounts: accounts, payments: payments, gateway: gateway, tm: tm, log: &l}
}

func (u *entitlementUC) HasAccess(ctx context.Context, accountID string) (bool, error) {
	acc, err := u.accounts.FindByID(ctx, repository.NoTX, accountID)
	if err != nil {
		return false, err
	}
	return acc.HasAccess(time.Now()), nil
}

func (u *entitlementUC) Status(ctx context.Context, accountID string) (*model.EntitlementSnapshot, error) {
	acc, err := u.accounts.FindByID(ctx, repository.NoTX, accountID)
	if err != nil {
		return nil, err
	}
	snap := acc.Entitlement(time.Now())
	return &snap, nil
}

// mutate applies fn to the account inside one transaction. Every
// entitlement change is a single read-modify-write scoped to one record.
func (u *entitlementUC) mutate(ctx context.Context, accountID string, fn func(a *model.Account) error) (*model.Account, error) {
	var out *model.Account
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		acc, err := u.accounts.FindByID(ctx, tx, accountID)
		if err != nil {
			return err
		}
		if err := fn(acc); err != nil {
			return err
		}
		if err := u.accounts.Save(ctx, tx, acc); err != nil {
			return err
		}
		out = acc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (u *entitlementUC) StartTrial(ctx context.Context, accountID string) (*model.Account, error) {
	return u.mutate(ctx, accountID, func(a *model.Account) error {
		a.InitializeTrial(time.Now())
		return nil
	})
}

func (u *entitlementUC) MarkPaymentExempt(ctx context.Context, accountID string) (*model.Account, error) {
	return u.mutate(ctx, accountID, func(a *model.Account) error {
		a.MarkPaymentExempt()
		return nil
	})
}

func (u *entitlementUC) ClearPaymentExempt(ctx context.Context, accountID string) (*model.Account, error) {
	return u.mutate(ctx, accountID, func(a *model.Account) error {
		a.ClearPaymentExempt(time.Now())
		return nil
	})
}

// CancelAtPeriodEnd requests cancellation from the provider and records the
// local flag. The local flag is the display source of truth even if the
// provider call is later retried by the delivery layer.
func (u *entitlementUC) CancelAtPeriodEnd(ctx context.Context, accountID string) (*model.Account, error) {
	acc, err := u.accounts.FindByID(ctx, repository.NoTX, accountID)
	if err != nil {
		return nil, err
	}
	if acc.BillingSubscriptionRef == nil || acc.PaymentExempt {
		return nil, domain.ErrInvalidState
	}
	if err := u.gateway.SetCancelAtPeriodEnd(ctx, *acc.BillingSubscriptionRef, true); err != nil {
		return nil, err
	}
	out, err := u.mutate(ctx, accountID, func(a *model.Account) error {
		a.CancelAtPeriodEnd = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.log.Info().Str("account_id", accountID).Msg("subscription set to cancel at period end")
	return out, nil
}

func (u *entitlementUC) Reactivate(ctx context.Context, accountID string) (*model.Account, error) {
	acc, err := u.accounts.FindByID(ctx, repository.NoTX, accountID)
	if err != nil {
		return nil, err
	}
	if acc.BillingSubscriptionRef == nil || !acc.CancelAtPeriodEnd {
		return nil, domain.ErrInvalidState
	}
	if err := u.gateway.SetCancelAtPeriodEnd(ctx, *acc.BillingSubscriptionRef, false); err != nil {
		return nil, err
	}
	out, err := u.mutate(ctx, accountID, func(a *model.Account) error {
		a.CancelAtPeriodEnd = false
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.log.Info().Str("account_id", accountID).Msg("subscription reactivated")
	return out, nil
}

// CreateCheckoutSession lazily creates the provider customer, persists the
// reference, and opens a checkout session. Exempt accounts have nothing to
// buy.
func (u *entitlementUC) CreateCheckoutSession(ctx context.Context, accountID, successURL, cancelURL string) (*adapter.CheckoutSession, error) {
	acc, err := u.accounts.FindByID(ctx, repository.NoTX, accountID)
	if err != nil {
		return nil, err
	}
	if acc.PaymentExempt {
		return nil, domain.ErrInvalidState
	}

	customerRef := ""
	if acc.BillingCustomerRef != nil {
		customerRef = *acc.BillingCustomerRef
	} else {
		customerRef, err = u.gateway.EnsureCustomer(ctx, acc.ID, acc.Email)
		if err != nil {
			return nil, err
		}
		if _, err := u.mutate(ctx, accountID, func(a *model.Account) error {
			a.BillingCustomerRef = &customerRef
			return nil
		}); err != nil {
			return nil, err
		}
	}

	return u.gateway.CreateCheckoutSession(ctx, customerRef, acc.ID, successURL, cancelURL)
}

func (u *entitlementUC) CreatePortalSession(ctx context.Context, accountID, returnURL string) (string, error) {
	acc, err := u.accounts.FindByID(ctx, repository.NoTX, accountID)
	if err != nil {
		return "", err
	}
	if acc.BillingCustomerRef == nil {
		return "", domain.ErrInvalidState
	}
	return u.gateway.CreatePortalSession(ctx, *acc.BillingCustomerRef, returnURL)
}

func (u *entitlementUC) PaymentHistory(ctx context.Context, accountID string, offset, limit int) ([]*model.Payment, int, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	payments, err := u.payments.ListByAccount(ctx, repository.NoTX, accountID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	total, err := u.payments.CountByAccount(ctx, repository.NoTX, accountID)
	if err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}
