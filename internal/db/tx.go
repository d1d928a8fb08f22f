package db

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// TxBeginner abre transacciones. *pgxpool.Pool lo implementa.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// WithTx ejecuta fn dentro de una transaccion: commit si fn devuelve nil,
// rollback si devuelve error o entra en panic (el panic se relanza).
// El error de fn se devuelve sin modificar.
func WithTx(ctx context.Context, db TxBeginner, fn func(ctx context.Context, tx pgx.Tx) error) (err error) {
	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
			return
		}
		err = tx.Commit(ctx)
	}()

	err = fn(ctx, tx)
	return err
}
