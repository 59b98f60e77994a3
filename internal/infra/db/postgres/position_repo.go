package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"trading-journal/internal/domain"
	"trading-journal/internal/domain/model"
	"trading-journal/internal/domain/ports/repository"
)

var _ repository.PositionRepository = (*positionRepo)(nil)

type positionRepo struct{ pool *pgxpool.Pool }

func NewPositionRepo(pool *pgxpool.Pool) *positionRepo {
	return &positionRepo{pool: pool}
}

const positionColumns = `id, account_id, ticker, entry_price, entry_date, shares, is_active, opened_at,
  exit_price, exit_date, exit_reason, closed_at, profit, return_pct`

func (r *positionRepo) Save(ctx context.Context, tx repository.Tx, p *model.Position) error {
	const q = `
INSERT INTO positions (` + positionColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
ON CONFLICT (id) DO UPDATE SET
  ticker=$3, entry_price=$4, entry_date=$5, shares=$6, is_active=$7,
  exit_price=$9, exit_date=$10, exit_reason=$11, closed_at=$12, profit=$13, return_pct=$14;`

	_, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.AccountID, p.Ticker, p.EntryPrice, p.EntryDate, p.Shares, p.IsActive, p.OpenedAt,
		p.ExitPrice, p.ExitDate, p.ExitReason, p.ClosedAt, p.Profit, p.ReturnPct)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func scanPosition(row pgx.Row) (*model.Position, error) {
	p := &model.Position{}
	err := row.Scan(&p.ID, &p.AccountID, &p.Ticker, &p.EntryPrice, &p.EntryDate, &p.Shares,
		&p.IsActive, &p.OpenedAt, &p.ExitPrice, &p.ExitDate, &p.ExitReason, &p.ClosedAt,
		&p.Profit, &p.ReturnPct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

func (r *positionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Position, error) {
	const q = `SELECT ` + positionColumns + ` FROM positions WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanPosition(row)
}

// ListByAccount returns active lots first (newest open first), then closed
// lots by most recent close. Dashboard assembly depends on this order.
func (r *positionRepo) ListByAccount(ctx context.Context, tx repository.Tx, accountID string) ([]*model.Position, error) {
	const q = `SELECT ` + positionColumns + ` FROM positions
WHERE account_id=$1
ORDER BY is_active DESC, closed_at DESC NULLS FIRST, id DESC;`
	rows, err := queryRows(ctx, r.pool, tx, q, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// FindOldestActive picks the FIFO candidate. Lot IDs are ULIDs, so ordering
// by id ascending is ordering by open time.
func (r *positionRepo) FindOldestActive(ctx context.Context, tx repository.Tx, accountID, ticker string) (*model.Position, error) {
	const q = `SELECT ` + positionColumns + ` FROM positions
WHERE account_id=$1 AND ticker=$2 AND is_active
ORDER BY id ASC LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, accountID, ticker)
	if err != nil {
		return nil, err
	}
	return scanPosition(row)
}

func (r *positionRepo) CloseLot(ctx context.Context, tx repository.Tx, p *model.Position) (bool, error) {
	const q = `
UPDATE positions SET
  is_active=FALSE, exit_price=$2, exit_date=$3, exit_reason=$4, closed_at=$5, profit=$6, return_pct=$7
WHERE id=$1 AND is_active;`

	tag, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.ExitPrice, p.ExitDate, p.ExitReason, p.ClosedAt, p.Profit, p.ReturnPct)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return tag.RowsAffected() == 1, nil
}
