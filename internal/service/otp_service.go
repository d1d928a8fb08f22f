package service

import (
	"context"
	"errors"
	"time"

	"auth-api/internal/domain"
	"auth-api/internal/repository"
)

const (
	defaultOTPTTL  = 10 * time.Minute
	discardTimeout = 2 * time.Second
)

// OTPService emite y valida codigos de un solo uso por email.
type OTPService struct {
	codes repository.OTPRepository
	ttl   time.Duration
	now   func() time.Time
}

func NewOTPService(codes repository.OTPRepository, ttl time.Duration) *OTPService {
	if ttl <= 0 {
		ttl = defaultOTPTTL
	}
	return &OTPService{
		codes: codes,
		ttl:   ttl,
		now:   time.Now,
	}
}

// Issue reemplaza el codigo previo del email y devuelve el nuevo en claro.
func (s *OTPService) Issue(ctx context.Context, emailAddr string) (string, time.Time, error) {
	code, hash, err := generateOTP()
	if err != nil {
		return "", time.Time{}, err
	}
	now := s.now().UTC()
	expiresAt := now.Add(s.ttl)
	err = s.codes.Replace(ctx, domain.OneTimeCode{
		Email:     normalizeEmail(emailAddr),
		CodeHash:  hash,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	})
	if err != nil {
		return "", time.Time{}, err
	}
	return code, expiresAt, nil
}

// Verify es true solo si existe un codigo, coincide y no ha expirado.
func (s *OTPService) Verify(ctx context.Context, emailAddr, code string) (bool, error) {
	if !isValidOTPCode(code) {
		return false, nil
	}
	stored, err := s.codes.GetByEmail(ctx, normalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if stored.Expired(s.now().UTC()) {
		return false, nil
	}
	return verifyOTP(code, stored.CodeHash), nil
}

// Consume elimina el codigo tras un uso exitoso.
func (s *OTPService) Consume(ctx context.Context, emailAddr string) error {
	return s.codes.DeleteByEmail(ctx, normalizeEmail(emailAddr))
}

// Discard borra el codigo aunque ctx ya este cancelado.
func (s *OTPService) Discard(ctx context.Context, emailAddr string) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), discardTimeout)
	defer cancel()
	return s.codes.DeleteByEmail(ctx, normalizeEmail(emailAddr))
}

func (s *OTPService) TTL() time.Duration {
	return s.ttl
}
