package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"auth-api/internal/db"
	"auth-api/internal/domain"
)

// AccountRepository define el contrato de persistencia para credenciales.
type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) error
	GetByID(ctx context.Context, id string) (domain.Account, error)
	GetByEmail(ctx context.Context, email string) (domain.Account, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// PgAccountRepository implementa AccountRepository sobre pgx.
type PgAccountRepository struct {
	conn db.DBTX
}

func NewPgAccountRepository(conn db.DBTX) *PgAccountRepository {
	return &PgAccountRepository{conn: conn}
}

func (r *PgAccountRepository) Create(ctx context.Context, account domain.Account) error {
	const query = `
		INSERT INTO accounts (id, email, password_hash, roles, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.conn.Exec(ctx, query,
		account.ID,
		account.Email,
		account.PasswordHash,
		account.Roles,
		account.CreatedAt,
		account.UpdatedAt,
	)
	return mapErr(err)
}

func (r *PgAccountRepository) GetByID(ctx context.Context, id string) (domain.Account, error) {
	// un id que no es UUID no puede existir
	if _, err := uuid.Parse(id); err != nil {
		return domain.Account{}, ErrNotFound
	}
	const query = `
		SELECT id::text, email, password_hash, roles, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`
	return r.scanOne(ctx, query, id)
}

func (r *PgAccountRepository) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	const query = `
		SELECT id::text, email, password_hash, roles, created_at, updated_at
		FROM accounts
		WHERE email = $1
	`
	return r.scanOne(ctx, query, email)
}

func (r *PgAccountRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	const query = `
		UPDATE accounts
		SET password_hash = $2, updated_at = $3
		WHERE id = $1
	`
	tag, err := r.conn.Exec(ctx, query, id, passwordHash, time.Now().UTC())
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PgAccountRepository) scanOne(ctx context.Context, query string, arg string) (domain.Account, error) {
	var a domain.Account
	err := r.conn.QueryRow(ctx, query, arg).Scan(
		&a.ID,
		&a.Email,
		&a.PasswordHash,
		&a.Roles,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return domain.Account{}, mapErr(err)
	}
	return a, nil
}
