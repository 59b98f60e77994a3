// File: internal/usecase/reconciler_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"trading-journal/internal/domain"
	"trading-journal/internal/domain/model"
	"trading-journal/internal/domain/ports/adapter"
	"trading-journal/internal/domain/ports/repository"
)

// Compile-time check
var _ ReconcilerUseCase = (*reconcilerUC)(nil)

// ReconcilerUseCase applies verified billing events to local entitlement
// and payment state. It is idempotent under replay and tolerant of event
// kinds the provider adds later.
type ReconcilerUseCase interface {
	Reconcile(ctx context.Context, ev *model.BillingEvent) error
}

type reconcilerUC struct {
	accounts repository.AccountRepository
	payments repository.PaymentRepository
	gateway  adapter.BillingGateway
	mailer   adapter.NotificationSender
	tm       repository.TransactionManager
	log      *zerolog.Logger
}

func NewReconcilerUseCase(
	accounts repository.AccountRepository,
	payments repository.PaymentRepository,
	gateway adapter.BillingGateway,
	mailer adapter.NotificationSender,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *reconcilerUC {
	l := logger.With().Str("component", "ReconcilerUC").Logger()
	return &reconcilerUC{accounts: accounts, payments: payments, gateway: gateway, mailer: mailer, tm: tm, log: &l}
}

func (u *reconcilerUC) Reconcile(ctx context.Context, ev *model.BillingEvent) error {
	if ev == nil {
		return domain.ErrInvalidArgument
	}
	log := u.log.With().Str("event_id", ev.ID).Str("kind", string(ev.Kind)).Logger()

	switch ev.Kind {
	case model.EventSubscriptionCreated, model.EventSubscriptionUpdated:
		return u.applySubscription(ctx, &log, ev.Subscription)
	case model.EventSubscriptionDeleted:
		return u.applyDeleted(ctx, &log, ev.Subscription)
	case model.EventCheckoutCompleted:
		return u.applyCheckout(ctx, &log, ev.Checkout)
	case model.EventInvoicePaid:
		return u.applyInvoicePaid(ctx, &log, ev.Invoice)
	case model.EventInvoicePaymentFail:
		return u.applyPaymentFailed(ctx, &log, ev.Invoice)
	default:
		// Providers add event kinds; unknown ones are not an error.
		log.Info().Msg("unhandled billing event kind, dropping")
		return nil
	}
}

// applySubscription is the single transition function for subscription
// created and updated events. It overwrites the mutable entitlement fields
// from the event's own snapshot, so replay converges to the same state.
func (u *reconcilerUC) applySubscription(ctx context.Context, log *zerolog.Logger, s *model.SubscriptionSnapshot) error {
	if s == nil {
		return domain.ErrInvalidArgument
	}
	return u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		acc, err := u.accounts.FindByID(ctx, tx, s.AccountID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				// The event may race account deletion.
				log.Warn().Str("account_id", s.AccountID).Msg("account not found for subscription event, skipping")
				return nil
			}
			return err
		}
		acc.ApplySubscription(s)
		if err := u.accounts.Save(ctx, tx, acc); err != nil {
			return err
		}
		log.Info().Str("account_id", acc.ID).Str("status", string(s.Status)).Msg("subscription state applied")
		return nil
	})
}

func (u *reconcilerUC) applyDeleted(ctx context.Context, log *zerolog.Logger, s *model.SubscriptionSnapshot) error {
	if s == nil {
		return domain.ErrInvalidArgument
	}
	return u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		acc, err := u.accounts.FindByID(ctx, tx, s.AccountID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				log.Warn().Str("account_id", s.AccountID).Msg("account not found for subscription deletion, skipping")
				return nil
			}
			return err
		}
		st := model.SubscriptionStatusCanceled
		acc.Status = &st
		if s.EndedAt != nil {
			acc.SubscriptionEnd = s.EndedAt
		}
		if err := u.accounts.Save(ctx, tx, acc); err != nil {
			return err
		}
		log.Info().Str("account_id", acc.ID).Msg("subscription canceled")
		return nil
	})
}

// applyCheckout re-fetches the subscription from the provider: the checkout
// session alone carries too few fields to update entitlement.
func (u *reconcilerUC) applyCheckout(ctx context.Context, log *zerolog.Logger, c *model.CheckoutSnapshot) error {
	if c == nil {
		return domain.ErrInvalidArgument
	}
	if c.SubscriptionRef == "" {
		log.Info().Msg("checkout session without subscription, nothing to apply")
		return nil
	}
	sub, err := u.gateway.GetSubscription(ctx, c.SubscriptionRef)
	if err != nil {
		return err
	}
	if sub.AccountID == "" {
		sub.AccountID = c.AccountID
	}
	return u.applySubscription(ctx, log, sub)
}

// applyInvoicePaid appends the immutable payment record. Accounts are
// resolved by customer reference: invoices point at the customer, not at
// our account id. Duplicate invoice ids signal benign replay and are
// swallowed.
func (u *reconcilerUC) applyInvoicePaid(ctx context.Context, log *zerolog.Logger, inv *model.InvoiceSnapshot) error {
	if inv == nil {
		return domain.ErrInvalidArgument
	}
	acc, err := u.accounts.FindByCustomerRef(ctx, repository.NoTX, inv.CustomerRef)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Warn().Str("customer_ref", inv.CustomerRef).Msg("no account for customer, skipping invoice")
			return nil
		}
		return err
	}

	p := model.NewPaymentFromInvoice(acc.ID, inv, time.Now())
	if err := u.payments.Append(ctx, repository.NoTX, p); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			log.Debug().Str("invoice_ref", inv.InvoiceRef).Msg("invoice already recorded, replay ignored")
			return nil
		}
		return err
	}
	log.Info().Str("account_id", acc.ID).Str("invoice_ref", inv.InvoiceRef).Int64("amount", inv.AmountMinorUnits).Msg("payment recorded")
	return nil
}

// applyPaymentFailed resolves the subscription's owning account and flags
// it past_due. Trial and period fields are left untouched.
func (u *reconcilerUC) applyPaymentFailed(ctx context.Context, log *zerolog.Logger, inv *model.InvoiceSnapshot) error {
	if inv == nil {
		return domain.ErrInvalidArgument
	}
	if inv.SubscriptionRef == "" {
		log.Info().Msg("payment failure without subscription, nothing to apply")
		return nil
	}

	var email string
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		acc, err := u.accounts.FindBySubscriptionRef(ctx, tx, inv.SubscriptionRef)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				log.Warn().Str("subscription_ref", inv.SubscriptionRef).Msg("no account for subscription, skipping payment failure")
				return nil
			}
			return err
		}
		st := model.SubscriptionStatusPastDue
		acc.Status = &st
		if err := u.accounts.Save(ctx, tx, acc); err != nil {
			return err
		}
		email = acc.Email
		log.Warn().Str("account_id", acc.ID).Msg("payment failed, account past due")
		return nil
	})
	if err != nil || email == "" {
		return err
	}

	// Fire-and-forget: a failed notification never rolls back state.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := u.mailer.SendTemplate(ctx, email, adapter.TemplatePaymentFailed, map[string]string{
			"invoice": inv.InvoiceRef,
		}); err != nil {
			u.log.Error().Err(err).Str("template", adapter.TemplatePaymentFailed).Msg("notification send failed")
		}
	}()
	return nil
}
