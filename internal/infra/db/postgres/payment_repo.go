package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"trading-journal/internal/domain"
	"trading-journal/internal/domain/model"
	"trading-journal/internal/domain/ports/repository"
	"trading-journal/internal/infra/metrics"
)

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentColumns = `id, account_id, invoice_ref, payment_intent_ref, subscription_ref,
  amount_minor_units, currency, status, paid_at, period_start, period_end,
  invoice_pdf, hosted_invoice_url, created_at`

// Append inserts one ledger row. The unique index on invoice_ref is the
// dedup mechanism: a replayed invoice event surfaces as ErrAlreadyExists.
func (r *paymentRepo) Append(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (` + paymentColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14);`

	_, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.AccountID, p.InvoiceRef, p.PaymentIntentRef, p.SubscriptionRef,
		p.AmountMinorUnits, p.Currency, p.Status, p.PaidAt, p.PeriodStart, p.PeriodEnd,
		p.InvoicePDF, p.HostedInvoiceURL, p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	metrics.IncPaymentRecorded(p.Currency, p.AmountMinorUnits)
	return nil
}

func (r *paymentRepo) ListByAccount(ctx context.Context, tx repository.Tx, accountID string, offset, limit int) ([]*model.Payment, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	const q = `SELECT ` + paymentColumns + ` FROM payments
WHERE account_id=$1
ORDER BY paid_at DESC
OFFSET $2 LIMIT $3;`
	rows, err := queryRows(ctx, r.pool, tx, q, accountID, offset, limit)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Payment
	for rows.Next() {
		p := &model.Payment{}
		err := rows.Scan(&p.ID, &p.AccountID, &p.InvoiceRef, &p.PaymentIntentRef, &p.SubscriptionRef,
			&p.AmountMinorUnits, &p.Currency, &p.Status, &p.PaidAt, &p.PeriodStart, &p.PeriodEnd,
			&p.InvoicePDF, &p.HostedInvoiceURL, &p.CreatedAt)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *paymentRepo) CountByAccount(ctx context.Context, tx repository.Tx, accountID string) (int, error) {
	const q = `SELECT COUNT(*) FROM payments WHERE account_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, accountID)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}
