package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"auth-api/internal/db"
	"auth-api/internal/domain"
)

type ProfileRepository interface {
	Create(ctx context.Context, profile domain.Profile) error
	// GetByAccountIDOrEmail acepta el id de la cuenta o un email.
	GetByAccountIDOrEmail(ctx context.Context, key string) (domain.Profile, error)
	MarkVerified(ctx context.Context, accountID string) error
	Save(ctx context.Context, profile domain.Profile) error
}

type PgProfileRepository struct {
	conn db.DBTX
}

func NewPgProfileRepository(conn db.DBTX) *PgProfileRepository {
	return &PgProfileRepository{conn: conn}
}

func (r *PgProfileRepository) Create(ctx context.Context, profile domain.Profile) error {
	const query = `
		INSERT INTO profiles (id, account_id, email, first_name, last_name, phone_number, is_verified, avatar_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.conn.Exec(ctx, query,
		profile.ID,
		profile.AccountID,
		profile.Email,
		profile.FirstName,
		profile.LastName,
		profile.PhoneNumber,
		profile.IsVerified,
		profile.AvatarURL,
		profile.CreatedAt,
		profile.UpdatedAt,
	)
	return mapErr(err)
}

func (r *PgProfileRepository) GetByAccountIDOrEmail(ctx context.Context, key string) (domain.Profile, error) {
	const selectCols = `
		SELECT id::text, account_id::text, email, first_name, last_name, phone_number, is_verified, avatar_url, created_at, updated_at
		FROM profiles
	`
	query := selectCols + "WHERE email = $1"
	if _, err := uuid.Parse(key); err == nil {
		query = selectCols + "WHERE account_id = $1"
	}

	var p domain.Profile
	err := r.conn.QueryRow(ctx, query, key).Scan(
		&p.ID,
		&p.AccountID,
		&p.Email,
		&p.FirstName,
		&p.LastName,
		&p.PhoneNumber,
		&p.IsVerified,
		&p.AvatarURL,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return domain.Profile{}, mapErr(err)
	}
	return p, nil
}

// MarkVerified solo escribe true; la verificacion nunca se revierte.
func (r *PgProfileRepository) MarkVerified(ctx context.Context, accountID string) error {
	const query = `
		UPDATE profiles
		SET is_verified = TRUE, updated_at = $2
		WHERE account_id = $1
	`
	tag, err := r.conn.Exec(ctx, query, accountID, time.Now().UTC())
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Save persiste los campos editables. No toca is_verified.
func (r *PgProfileRepository) Save(ctx context.Context, profile domain.Profile) error {
	const query = `
		UPDATE profiles
		SET first_name = $2, last_name = $3, phone_number = $4, avatar_url = $5, updated_at = $6
		WHERE id = $1
	`
	tag, err := r.conn.Exec(ctx, query,
		profile.ID,
		profile.FirstName,
		profile.LastName,
		profile.PhoneNumber,
		profile.AvatarURL,
		time.Now().UTC(),
	)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
