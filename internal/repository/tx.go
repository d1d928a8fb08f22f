package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"auth-api/internal/db"
)

// TxStores agrupa los repositorios ligados a una misma transaccion.
type TxStores struct {
	Accounts AccountRepository
	Profiles ProfileRepository
}

// TxManager ejecuta fn de forma atomica: o se confirman todas las
// escrituras o ninguna.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, stores TxStores) error) error
}

type PgTxManager struct {
	pool db.TxBeginner
}

func NewPgTxManager(pool db.TxBeginner) *PgTxManager {
	return &PgTxManager{pool: pool}
}

func (m *PgTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context, stores TxStores) error) error {
	return db.WithTx(ctx, m.pool, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, TxStores{
			Accounts: NewPgAccountRepository(tx),
			Profiles: NewPgProfileRepository(tx),
		})
	})
}
