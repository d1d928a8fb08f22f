package repository

import (
	"context"

	"auth-api/internal/db"
	"auth-api/internal/domain"
)

// OTPRepository guarda como maximo un codigo activo por email.
type OTPRepository interface {
	// Replace sustituye cualquier codigo previo del email.
	Replace(ctx context.Context, code domain.OneTimeCode) error
	GetByEmail(ctx context.Context, email string) (domain.OneTimeCode, error)
	DeleteByEmail(ctx context.Context, email string) error
}

type PgOTPRepository struct {
	conn db.DBTX
}

func NewPgOTPRepository(conn db.DBTX) *PgOTPRepository {
	return &PgOTPRepository{conn: conn}
}

func (r *PgOTPRepository) Replace(ctx context.Context, code domain.OneTimeCode) error {
	const query = `
		INSERT INTO otp_codes (email, code_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE
		SET code_hash = EXCLUDED.code_hash,
		    expires_at = EXCLUDED.expires_at,
		    created_at = EXCLUDED.created_at
	`
	_, err := r.conn.Exec(ctx, query, code.Email, code.CodeHash, code.ExpiresAt, code.CreatedAt)
	return mapErr(err)
}

func (r *PgOTPRepository) GetByEmail(ctx context.Context, email string) (domain.OneTimeCode, error) {
	const query = `
		SELECT email, code_hash, expires_at, created_at
		FROM otp_codes
		WHERE email = $1
	`
	var c domain.OneTimeCode
	err := r.conn.QueryRow(ctx, query, email).Scan(&c.Email, &c.CodeHash, &c.ExpiresAt, &c.CreatedAt)
	if err != nil {
		return domain.OneTimeCode{}, mapErr(err)
	}
	return c, nil
}

func (r *PgOTPRepository) DeleteByEmail(ctx context.Context, email string) error {
	const query = `DELETE FROM otp_codes WHERE email = $1`
	_, err := r.conn.Exec(ctx, query, email)
	return mapErr(err)
}
