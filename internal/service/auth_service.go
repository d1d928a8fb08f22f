package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"auth-api/internal/apperr"
	"auth-api/internal/domain"
	"auth-api/internal/email"
	"auth-api/internal/repository"
	"auth-api/internal/upload"
)

const (
	msgUserNotFound     = "User Not Found"
	msgNoUserWithEmail  = "No user with this email"
	msgInvalidOTP       = "Invalid or Expired OTP"
	msgEmptyPassword    = "Please provide a password"
	msgEmailNotVerified = "Email Not Verified"
	msgDuplicateEmail   = "User with this email already exists"
	msgTooManyOTP       = "Too many OTP requests, try again later"
)

// AuthService coordina registro, login, verificacion y recuperacion.
type AuthService struct {
	logger           *zap.Logger
	tx               repository.TxManager
	accounts         repository.AccountRepository
	profiles         repository.ProfileRepository
	otps             *OTPService
	tokens           *JWTService
	sender           email.Sender
	limiter          OTPRateLimiter
	uploader         upload.Provider
	defaultAvatarURL string
	hashCost         int
	now              func() time.Time
}

type AuthServiceDeps struct {
	Logger           *zap.Logger
	Tx               repository.TxManager
	Accounts         repository.AccountRepository
	Profiles         repository.ProfileRepository
	OTPs             *OTPService
	Tokens           *JWTService
	Sender           email.Sender
	Limiter          OTPRateLimiter
	Uploader         upload.Provider
	DefaultAvatarURL string
	// BcryptCost cero usa bcrypt.DefaultCost.
	BcryptCost int
}

func NewAuthService(deps AuthServiceDeps) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	limiter := deps.Limiter
	if limiter == nil {
		limiter = NewOTPRateLimiter(defaultOTPTTL, 5)
	}
	sender := deps.Sender
	if sender == nil {
		sender = email.NewDisabledSender("email sender not configured")
	}
	uploader := deps.Uploader
	if uploader == nil {
		uploader, _ = upload.NewProvider(context.Background(), upload.ProviderDisabled, upload.S3Config{})
	}
	cost := deps.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &AuthService{
		logger:           logger,
		tx:               deps.Tx,
		accounts:         deps.Accounts,
		profiles:         deps.Profiles,
		otps:             deps.OTPs,
		tokens:           deps.Tokens,
		sender:           sender,
		limiter:          limiter,
		uploader:         uploader,
		defaultAvatarURL: deps.DefaultAvatarURL,
		hashCost:         cost,
		now:              time.Now,
	}
}

type RegisterInput struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	PhoneNumber string
	Roles       []string
}

type AccountSummary struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type RegisterResult struct {
	Account AccountSummary
	SentTo  string
}

type LoginResult struct {
	User  AccountSummary `json:"user"`
	Token string         `json:"token"`
}

type AccountView struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	FirstName   string   `json:"firstName"`
	LastName    string   `json:"lastName"`
	PhoneNumber string   `json:"phoneNumber"`
	AvatarURL   string   `json:"avatarUrl"`
	IsVerified  bool     `json:"isVerified"`
	Roles       []string `json:"roles"`
}

// OTPDispatch describe el resultado de un pedido de codigo.
type OTPDispatch struct {
	AlreadyVerified bool
	SentTo          string
}

type VerifyResult struct {
	AlreadyVerified bool
}

// Register crea Account y Profile en una sola transaccion y envia el OTP
// dentro de ella: si el envio falla no queda ninguna fila.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (RegisterResult, error) {
	emailAddr := normalizeEmail(in.Email)
	if emailAddr == "" {
		return RegisterResult{}, apperr.BadRequest("Please provide an email")
	}
	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return RegisterResult{}, err
	}

	now := s.now().UTC()
	account := domain.Account{
		ID:           uuid.NewString(),
		Email:        emailAddr,
		PasswordHash: hash,
		Roles:        normalizeRoles(in.Roles),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	profile := domain.Profile{
		ID:          uuid.NewString(),
		AccountID:   account.ID,
		Email:       emailAddr,
		FirstName:   strings.TrimSpace(in.FirstName),
		LastName:    strings.TrimSpace(in.LastName),
		PhoneNumber: strings.TrimSpace(in.PhoneNumber),
		AvatarURL:   s.defaultAvatarURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	issued := false
	err = s.tx.WithinTx(ctx, func(ctx context.Context, stores repository.TxStores) error {
		if err := stores.Accounts.Create(ctx, account); err != nil {
			return err
		}
		if err := stores.Profiles.Create(ctx, profile); err != nil {
			return err
		}
		issued = true
		return s.dispatchOTP(ctx, profile)
	})
	if err != nil {
		if issued {
			if discardErr := s.otps.Discard(ctx, emailAddr); discardErr != nil {
				s.logger.Warn("discard otp failed", zap.Error(discardErr), zap.String("email", emailAddr))
			}
		}
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return RegisterResult{}, apperr.Wrap(apperr.KindConflict, msgDuplicateEmail, err)
		}
		return RegisterResult{}, internalErr("could not register user", err)
	}

	s.logger.Info("account registered", zap.String("account_id", account.ID))
	return RegisterResult{
		Account: AccountSummary{ID: account.ID, Email: account.Email},
		SentTo:  emailAddr,
	}, nil
}

func (s *AuthService) Login(ctx context.Context, emailAddr, password string) (LoginResult, error) {
	account, err := s.accounts.GetByEmail(ctx, normalizeEmail(emailAddr))
	if err != nil {
		return LoginResult{}, lookupErr(msgNoUserWithEmail, err)
	}
	if password == "" {
		return LoginResult{}, apperr.BadRequest(msgEmptyPassword)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return LoginResult{}, apperr.Unauthorized("Unauthorized")
	}

	profile, err := s.profiles.GetByAccountIDOrEmail(ctx, account.ID)
	if err != nil {
		return LoginResult{}, lookupErr(msgUserNotFound, err)
	}
	if !profile.IsVerified {
		return LoginResult{}, apperr.Forbidden(msgEmailNotVerified)
	}

	token, err := s.tokens.Issue(account.ID)
	if err != nil {
		return LoginResult{}, internalErr("could not issue token", err)
	}
	return LoginResult{
		User:  AccountSummary{ID: account.ID, Email: account.Email},
		Token: token,
	}, nil
}

func (s *AuthService) GetAccount(ctx context.Context, accountID string) (AccountView, error) {
	profile, err := s.profiles.GetByAccountIDOrEmail(ctx, accountID)
	if err != nil {
		return AccountView{}, lookupErr(msgUserNotFound, err)
	}
	account, err := s.accounts.GetByID(ctx, profile.AccountID)
	if err != nil {
		return AccountView{}, lookupErr(msgUserNotFound, err)
	}
	return AccountView{
		ID:          account.ID,
		Email:       account.Email,
		FirstName:   profile.FirstName,
		LastName:    profile.LastName,
		PhoneNumber: profile.PhoneNumber,
		AvatarURL:   profile.AvatarURL,
		IsVerified:  profile.IsVerified,
		Roles:       account.Roles,
	}, nil
}

func (s *AuthService) SendOTP(ctx context.Context, emailAddr string) (OTPDispatch, error) {
	profile, err := s.profiles.GetByAccountIDOrEmail(ctx, normalizeEmail(emailAddr))
	if err != nil {
		return OTPDispatch{}, lookupErr(msgUserNotFound, err)
	}
	if profile.IsVerified {
		return OTPDispatch{AlreadyVerified: true}, nil
	}
	return s.limitedDispatch(ctx, profile)
}

func (s *AuthService) VerifyOTP(ctx context.Context, emailAddr, code string) (VerifyResult, error) {
	profile, err := s.profiles.GetByAccountIDOrEmail(ctx, normalizeEmail(emailAddr))
	if err != nil {
		return VerifyResult{}, lookupErr(msgUserNotFound, err)
	}
	if profile.IsVerified {
		return VerifyResult{AlreadyVerified: true}, nil
	}
	if err := s.checkOTP(ctx, profile.Email, code); err != nil {
		return VerifyResult{}, err
	}
	if err := s.profiles.MarkVerified(ctx, profile.AccountID); err != nil {
		return VerifyResult{}, lookupErr(msgUserNotFound, err)
	}
	s.consumeOTP(ctx, profile.Email)
	return VerifyResult{}, nil
}

// ForgotPassword no exige email verificado: un usuario sin verificar tambien
// puede recuperar su cuenta.
func (s *AuthService) ForgotPassword(ctx context.Context, emailAddr string) (OTPDispatch, error) {
	profile, err := s.profiles.GetByAccountIDOrEmail(ctx, normalizeEmail(emailAddr))
	if err != nil {
		return OTPDispatch{}, lookupErr(msgUserNotFound, err)
	}
	return s.limitedDispatch(ctx, profile)
}

func (s *AuthService) ResetPassword(ctx context.Context, emailAddr, code, newPassword string) error {
	account, err := s.accounts.GetByEmail(ctx, normalizeEmail(emailAddr))
	if err != nil {
		return lookupErr(msgNoUserWithEmail, err)
	}
	if err := s.checkOTP(ctx, account.Email, code); err != nil {
		return err
	}
	hash, err := s.hashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.accounts.UpdatePassword(ctx, account.ID, hash); err != nil {
		return lookupErr(msgUserNotFound, err)
	}
	s.consumeOTP(ctx, account.Email)
	s.logger.Info("password reset", zap.String("account_id", account.ID))
	return nil
}

func (s *AuthService) UpdateAvatar(ctx context.Context, accountID string, file upload.File) (string, error) {
	profile, err := s.profiles.GetByAccountIDOrEmail(ctx, accountID)
	if err != nil {
		return "", lookupErr(msgUserNotFound, err)
	}
	url, err := s.uploader.Upload(ctx, file)
	if err != nil {
		return "", internalErr("Error uploading image", err)
	}
	profile.AvatarURL = url
	profile.UpdatedAt = s.now().UTC()
	if err := s.profiles.Save(ctx, profile); err != nil {
		return "", lookupErr(msgUserNotFound, err)
	}
	return url, nil
}

func (s *AuthService) limitedDispatch(ctx context.Context, profile domain.Profile) (OTPDispatch, error) {
	if !s.limiter.Allow(ctx, profile.Email) {
		return OTPDispatch{}, apperr.TooManyRequests(msgTooManyOTP)
	}
	if err := s.dispatchOTP(ctx, profile); err != nil {
		return OTPDispatch{}, internalErr("could not send otp", err)
	}
	return OTPDispatch{SentTo: profile.Email}, nil
}

// dispatchOTP emite un codigo nuevo (reemplaza al anterior) y lo envia.
func (s *AuthService) dispatchOTP(ctx context.Context, profile domain.Profile) error {
	code, expiresAt, err := s.otps.Issue(ctx, profile.Email)
	if err != nil {
		return apperr.Internal("could not issue otp", err)
	}
	err = s.sender.SendOTP(ctx, email.OTPMessage{
		To:        profile.Email,
		Name:      profile.DisplayName(),
		Code:      code,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		s.logger.Warn("send otp failed", zap.Error(err), zap.String("email", profile.Email))
		return apperr.Internal("could not send otp email", err)
	}
	return nil
}

func (s *AuthService) checkOTP(ctx context.Context, emailAddr, code string) error {
	ok, err := s.otps.Verify(ctx, emailAddr, strings.TrimSpace(code))
	if err != nil {
		return apperr.Internal("could not verify otp", err)
	}
	if !ok {
		return apperr.BadRequest(msgInvalidOTP)
	}
	return nil
}

func (s *AuthService) consumeOTP(ctx context.Context, emailAddr string) {
	if err := s.otps.Consume(ctx, emailAddr); err != nil {
		s.logger.Warn("consume otp failed", zap.Error(err), zap.String("email", emailAddr))
	}
}

func (s *AuthService) hashPassword(password string) (string, error) {
	if password == "" {
		return "", apperr.BadRequest(msgEmptyPassword)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return "", apperr.Internal("could not hash password", err)
	}
	return string(hash), nil
}

func normalizeRoles(roles []string) []string {
	out := make([]string, 0, len(roles))
	for _, role := range roles {
		role = strings.ToLower(strings.TrimSpace(role))
		if domain.IsValidRole(role) {
			out = append(out, role)
		}
	}
	if len(out) == 0 {
		return []string{domain.RoleUser}
	}
	return out
}

func lookupErr(message string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.Wrap(apperr.KindNotFound, message, err)
	}
	return internalErr("store lookup failed", err)
}

// internalErr conserva los errores de dominio ya tipados.
func internalErr(message string, err error) error {
	if _, ok := apperr.As(err); ok {
		return err
	}
	return apperr.Internal(message, err)
}
