package service

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"auth-api/internal/domain"
	"auth-api/internal/email"
	"auth-api/internal/repository"
	"auth-api/internal/upload"
)

type memStore struct {
	// txMu serializa las transacciones como un aislamiento serializable.
	txMu     sync.Mutex
	mu       sync.Mutex
	accounts map[string]domain.Account
	profiles map[string]domain.Profile
}

func newMemStore() *memStore {
	return &memStore{
		accounts: make(map[string]domain.Account),
		profiles: make(map[string]domain.Profile),
	}
}

func (s *memStore) snapshot() (map[string]domain.Account, map[string]domain.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	accounts := make(map[string]domain.Account, len(s.accounts))
	for k, v := range s.accounts {
		accounts[k] = v
	}
	profiles := make(map[string]domain.Profile, len(s.profiles))
	for k, v := range s.profiles {
		profiles[k] = v
	}
	return accounts, profiles
}

func (s *memStore) restore(accounts map[string]domain.Account, profiles map[string]domain.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = accounts
	s.profiles = profiles
}

func (s *memStore) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accounts), len(s.profiles)
}

type memAccounts struct {
	s *memStore
}

func (r memAccounts) Create(_ context.Context, account domain.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.accounts {
		if existing.Email == account.Email {
			return repository.ErrDuplicateEmail
		}
	}
	r.s.accounts[account.ID] = account
	return nil
}

func (r memAccounts) GetByID(_ context.Context, id string) (domain.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	account, ok := r.s.accounts[id]
	if !ok {
		return domain.Account{}, repository.ErrNotFound
	}
	return account, nil
}

func (r memAccounts) GetByEmail(_ context.Context, emailAddr string) (domain.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, account := range r.s.accounts {
		if account.Email == emailAddr {
			return account, nil
		}
	}
	return domain.Account{}, repository.ErrNotFound
}

func (r memAccounts) UpdatePassword(_ context.Context, id, passwordHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	account, ok := r.s.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	account.PasswordHash = passwordHash
	r.s.accounts[id] = account
	return nil
}

type memProfiles struct {
	s          *memStore
	failCreate error
}

func (r *memProfiles) Create(_ context.Context, profile domain.Profile) error {
	if r.failCreate != nil {
		return r.failCreate
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.profiles {
		if existing.Email == profile.Email {
			return repository.ErrDuplicateEmail
		}
	}
	r.s.profiles[profile.AccountID] = profile
	return nil
}

func (r *memProfiles) GetByAccountIDOrEmail(_ context.Context, key string) (domain.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, err := uuid.Parse(key); err == nil {
		profile, ok := r.s.profiles[key]
		if !ok {
			return domain.Profile{}, repository.ErrNotFound
		}
		return profile, nil
	}
	for _, profile := range r.s.profiles {
		if profile.Email == key {
			return profile, nil
		}
	}
	return domain.Profile{}, repository.ErrNotFound
}

func (r *memProfiles) MarkVerified(_ context.Context, accountID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	profile, ok := r.s.profiles[accountID]
	if !ok {
		return repository.ErrNotFound
	}
	profile.IsVerified = true
	r.s.profiles[accountID] = profile
	return nil
}

func (r *memProfiles) Save(_ context.Context, profile domain.Profile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.profiles[profile.AccountID]
	if !ok {
		return repository.ErrNotFound
	}
	profile.IsVerified = existing.IsVerified
	r.s.profiles[profile.AccountID] = profile
	return nil
}

// memTx descarta todas las escrituras de fn si devuelve error.
type memTx struct {
	s        *memStore
	profiles *memProfiles
}

func (m memTx) WithinTx(ctx context.Context, fn func(ctx context.Context, stores repository.TxStores) error) error {
	m.s.txMu.Lock()
	defer m.s.txMu.Unlock()
	accounts, profiles := m.s.snapshot()
	err := fn(ctx, repository.TxStores{
		Accounts: memAccounts{s: m.s},
		Profiles: m.profiles,
	})
	if err != nil {
		m.s.restore(accounts, profiles)
	}
	return err
}

type memOTPs struct {
	mu    sync.Mutex
	codes map[string]domain.OneTimeCode
}

func newMemOTPs() *memOTPs {
	return &memOTPs{codes: make(map[string]domain.OneTimeCode)}
}

func (r *memOTPs) Replace(_ context.Context, code domain.OneTimeCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes[code.Email] = code
	return nil
}

func (r *memOTPs) GetByEmail(_ context.Context, emailAddr string) (domain.OneTimeCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	code, ok := r.codes[emailAddr]
	if !ok {
		return domain.OneTimeCode{}, repository.ErrNotFound
	}
	return code, nil
}

func (r *memOTPs) DeleteByEmail(_ context.Context, emailAddr string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.codes, emailAddr)
	return nil
}

func (r *memOTPs) has(emailAddr string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.codes[emailAddr]
	return ok
}

type recordingSender struct {
	mu   sync.Mutex
	sent []email.OTPMessage
	err  error
}

func (s *recordingSender) SendOTP(_ context.Context, msg email.OTPMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *recordingSender) lastCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		return ""
	}
	return s.sent[len(s.sent)-1].Code
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type stubUploader struct {
	url string
	err error
}

func (u stubUploader) Upload(context.Context, upload.File) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	return u.url, nil
}

var errBoom = errors.New("boom")
