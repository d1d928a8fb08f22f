package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"auth-api/internal/apperr"
	"auth-api/internal/service"
	"auth-api/internal/upload"
)

const maxAvatarBytes = 5 << 20

// AuthService es el contrato que los handlers necesitan del servicio.
type AuthService interface {
	Register(ctx context.Context, in service.RegisterInput) (service.RegisterResult, error)
	Login(ctx context.Context, email, password string) (service.LoginResult, error)
	GetAccount(ctx context.Context, accountID string) (service.AccountView, error)
	SendOTP(ctx context.Context, email string) (service.OTPDispatch, error)
	VerifyOTP(ctx context.Context, email, code string) (service.VerifyResult, error)
	ForgotPassword(ctx context.Context, email string) (service.OTPDispatch, error)
	ResetPassword(ctx context.Context, email, code, newPassword string) error
	UpdateAvatar(ctx context.Context, accountID string, file upload.File) (string, error)
}

// AuthHandler mantiene dependencias para endpoints de autenticacion.
type AuthHandler struct {
	logger *zap.Logger
	auth   AuthService
}

func NewAuthHandler(logger *zap.Logger, auth AuthService) *AuthHandler {
	return &AuthHandler{
		logger: logger,
		auth:   auth,
	}
}

type signupRequest struct {
	Email       string   `json:"email" binding:"required,email"`
	Password    string   `json:"password" binding:"required,min=5"`
	FirstName   string   `json:"firstName" binding:"required"`
	LastName    string   `json:"lastName" binding:"required"`
	PhoneNumber string   `json:"phoneNumber" binding:"required,ngphone"`
	Roles       []string `json:"roles" binding:"omitempty,roles"`
}

type emailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// Register maneja POST /signup.
func (h *AuthHandler) Register(c *gin.Context) {
	var req signupRequest
	if err := bindJSON(c, &req); err != nil {
		h.logger.Warn("invalid signup request", zap.Error(err))
		respondError(c, err)
		return
	}

	res, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		Roles:       req.Roles,
	})
	if err != nil {
		h.fail(c, "register failed", err)
		return
	}
	respond(c, http.StatusCreated, "Registration Successful, OTP has been sent to "+res.SentTo, res.Account)
}

// Login maneja POST /signin.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password"`
	}
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	res, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, "login failed", err)
		return
	}
	respond(c, http.StatusOK, "Login Successful", res)
}

// GetUser maneja GET / con JWT.
func (h *AuthHandler) GetUser(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		respondError(c, apperr.Unauthorized("Invalid Token"))
		return
	}
	view, err := h.auth.GetAccount(c.Request.Context(), claims.AccountID)
	if err != nil {
		h.fail(c, "get user failed", err)
		return
	}
	respond(c, http.StatusOK, "User Retrieved Successfully", view)
}

// SendOTP maneja POST /send-otp.
func (h *AuthHandler) SendOTP(c *gin.Context) {
	var req emailRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	res, err := h.auth.SendOTP(c.Request.Context(), req.Email)
	if err != nil {
		h.fail(c, "send otp failed", err)
		return
	}
	if res.AlreadyVerified {
		respond(c, http.StatusOK, "User Already Verified", nil)
		return
	}
	respond(c, http.StatusOK, "OTP has been sent to "+res.SentTo, nil)
}

// VerifyOTP maneja POST /verify-otp.
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
		OTP   string `json:"otp" binding:"required"`
	}
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	res, err := h.auth.VerifyOTP(c.Request.Context(), req.Email, req.OTP)
	if err != nil {
		h.fail(c, "verify otp failed", err)
		return
	}
	if res.AlreadyVerified {
		respond(c, http.StatusOK, "User Already Verified", nil)
		return
	}
	respond(c, http.StatusOK, "Email Verified", nil)
}

// ForgotPassword maneja POST /forgot-password.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req emailRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	res, err := h.auth.ForgotPassword(c.Request.Context(), req.Email)
	if err != nil {
		h.fail(c, "forgot password failed", err)
		return
	}
	respond(c, http.StatusOK, "OTP has been sent to "+res.SentTo, nil)
}

// ResetPassword maneja POST /reset-password.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		OTP      string `json:"otp" binding:"required"`
		Password string `json:"password"`
	}
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	if err := h.auth.ResetPassword(c.Request.Context(), req.Email, req.OTP, req.Password); err != nil {
		h.fail(c, "reset password failed", err)
		return
	}
	respond(c, http.StatusOK, "Password Updated", nil)
}

// UpdateAvatar maneja PATCH /avatar con multipart "image".
func (h *AuthHandler) UpdateAvatar(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		respondError(c, apperr.Unauthorized("Invalid Token"))
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxAvatarBytes)
	header, err := c.FormFile("image")
	if err != nil {
		respondError(c, apperr.Wrap(apperr.KindBadRequest, "Please provide an image", err))
		return
	}
	f, err := header.Open()
	if err != nil {
		respondError(c, apperr.Internal("could not read image", err))
		return
	}
	defer f.Close()

	url, err := h.auth.UpdateAvatar(c.Request.Context(), claims.AccountID, upload.File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        f,
	})
	if err != nil {
		h.fail(c, "update avatar failed", err)
		return
	}
	respond(c, http.StatusOK, "Avatar Updated", gin.H{"avatarUrl": url})
}

func (h *AuthHandler) fail(c *gin.Context, msg string, err error) {
	if apperr.KindOf(err) == apperr.KindInternal {
		h.logger.Error(msg, zap.Error(err))
	} else {
		h.logger.Info(msg, zap.Error(err))
	}
	respondError(c, err)
}
