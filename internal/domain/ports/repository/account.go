package repository

import (
	"context"
	"time"

	"trading-journal/internal/domain/model"
)

// AccountRepository is the identity-store port. Billing events resolve
// accounts either by internal id (subscription metadata) or by the external
// billing customer reference (invoices).
type AccountRepository interface {
	Save(ctx context.Context, tx Tx, a *model.Account) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Account, error)
	FindByEmail(ctx context.Context, tx Tx, email string) (*model.Account, error)
	FindByCustomerRef(ctx context.Context, tx Tx, customerRef string) (*model.Account, error)
	FindBySubscriptionRef(ctx context.Context, tx Tx, subscriptionRef string) (*model.Account, error)

	// ListTrialsEndingBefore returns accounts whose still-running trial
	// ends before the cutoff, have no paid status and no reminder sent
	// yet. Trials that already lapsed are excluded.
	ListTrialsEndingBefore(ctx context.Context, tx Tx, cutoff time.Time, limit int) ([]*model.Account, error)
	MarkTrialReminderSent(ctx context.Context, tx Tx, accountID string, at time.Time) error
}
