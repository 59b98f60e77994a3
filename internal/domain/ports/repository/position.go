package repository

import (
	"context"

	"trading-journal/internal/domain/model"
)

// PositionRepository stores trade lots. CloseLot is the compare-and-swap
// write for the double-close race: the update is conditional on is_active
// and reports whether this caller won.
type PositionRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Position) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Position, error)
	ListByAccount(ctx context.Context, tx Tx, accountID string) ([]*model.Position, error)

	// FindOldestActive returns the earliest-opened active lot for the
	// ticker, or domain.ErrNotFound.
	FindOldestActive(ctx context.Context, tx Tx, accountID, ticker string) (*model.Position, error)

	// CloseLot persists the exit fields only if the lot is still active.
	// Returns false (no error) when another closer already won.
	CloseLot(ctx context.Context, tx Tx, p *model.Position) (bool, error)
}
