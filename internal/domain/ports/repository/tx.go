package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is the opaque transaction handle threaded through repository calls.
// The concrete type is infra-defined (pgx.Tx for Postgres); repositories
// must accept NoTX (nil) for the non-transactional path.
type Tx interface{}

var NoTX Tx

// TransactionManager executes a function inside one database transaction.
// Entitlement mutations use it so each billing event is applied as a single
// read-modify-write over one account record.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
