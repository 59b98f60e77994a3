package repository

import (
	"context"

	"trading-journal/internal/domain/model"
)

// PaymentRepository is the append-only payment ledger. Append must rely on
// the storage-level unique constraint on the invoice reference (returning
// domain.ErrAlreadyExists on duplicates), never on a prior existence check.
type PaymentRepository interface {
	Append(ctx context.Context, tx Tx, p *model.Payment) error
	ListByAccount(ctx context.Context, tx Tx, accountID string, offset, limit int) ([]*model.Payment, error)
	CountByAccount(ctx context.Context, tx Tx, accountID string) (int, error)
}
