package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"trading-journal/internal/domain"
	"trading-journal/internal/domain/model"
	"trading-journal/internal/domain/ports/repository"
)

var _ repository.AccountRepository = (*accountRepo)(nil)

type accountRepo struct{ pool *pgxpool.Pool }

func NewAccountRepo(pool *pgxpool.Pool) *accountRepo {
	return &accountRepo{pool: pool}
}

const accountColumns = `id, email, name, created_at, payment_exempt, billing_customer_ref, billing_subscription_ref,
  status, trial_start, trial_end, subscription_start, subscription_end, current_period_end,
  plan_name, amount_minor_units, billing_interval, cancel_at_period_end, trial_reminder_sent_at`

func (r *accountRepo) Save(ctx context.Context, tx repository.Tx, a *model.Account) error {
	const q = `
INSERT INTO accounts (` + accountColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
ON CONFLICT (id) DO UPDATE SET
  email=$2, name=$3, payment_exempt=$5, billing_customer_ref=$6, billing_subscription_ref=$7,
  status=$8, trial_start=$9, trial_end=$10, subscription_start=$11, subscription_end=$12,
  current_period_end=$13, plan_name=$14, amount_minor_units=$15, billing_interval=$16,
  cancel_at_period_end=$17, trial_reminder_sent_at=$18;`

	_, err := execSQL(ctx, r.pool, tx, q,
		a.ID, a.Email, a.Name, a.CreatedAt, a.PaymentExempt, a.BillingCustomerRef, a.BillingSubscriptionRef,
		a.Status, a.TrialStart, a.TrialEnd, a.SubscriptionStart, a.SubscriptionEnd, a.CurrentPeriodEnd,
		a.PlanName, a.AmountMinorUnits, a.Interval, a.CancelAtPeriodEnd, a.TrialReminderSentAt)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *accountRepo) findOne(ctx context.Context, tx repository.Tx, where string, arg interface{}) (*model.Account, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts WHERE ` + where + ` LIMIT 1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, arg)
	if err != nil {
		return nil, err
	}
	return scanAccount(row)
}

func scanAccount(row pgx.Row) (*model.Account, error) {
	a := &model.Account{}
	err := row.Scan(&a.ID, &a.Email, &a.Name, &a.CreatedAt, &a.PaymentExempt, &a.BillingCustomerRef,
		&a.BillingSubscriptionRef, &a.Status, &a.TrialStart, &a.TrialEnd, &a.SubscriptionStart,
		&a.SubscriptionEnd, &a.CurrentPeriodEnd, &a.PlanName, &a.AmountMinorUnits, &a.Interval,
		&a.CancelAtPeriodEnd, &a.TrialReminderSentAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return a, nil
}

func (r *accountRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Account, error) {
	return r.findOne(ctx, tx, "id=$1", id)
}

func (r *accountRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.Account, error) {
	return r.findOne(ctx, tx, "email=$1", email)
}

func (r *accountRepo) FindByCustomerRef(ctx context.Context, tx repository.Tx, customerRef string) (*model.Account, error) {
	return r.findOne(ctx, tx, "billing_customer_ref=$1", customerRef)
}

func (r *accountRepo) FindBySubscriptionRef(ctx context.Context, tx repository.Tx, subscriptionRef string) (*model.Account, error) {
	return r.findOne(ctx, tx, "billing_subscription_ref=$1", subscriptionRef)
}

func (r *accountRepo) ListTrialsEndingBefore(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.Account, error) {
	if limit <= 0 {
		limit = 100
	}
	// The NOW() floor keeps trials that already lapsed before the first
	// sweep from getting an "ending soon" mail.
	const q = `SELECT ` + accountColumns + ` FROM accounts
WHERE trial_end IS NOT NULL AND trial_end < $1 AND trial_end > NOW()
  AND (status IS NULL OR status = 'trial')
  AND payment_exempt = FALSE
  AND trial_reminder_sent_at IS NULL
ORDER BY trial_end ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, cutoff, limit)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *accountRepo) MarkTrialReminderSent(ctx context.Context, tx repository.Tx, accountID string, at time.Time) error {
	const q = `UPDATE accounts SET trial_reminder_sent_at=$2 WHERE id=$1;`
	if _, err := execSQL(ctx, r.pool, tx, q, accountID, at); err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}
