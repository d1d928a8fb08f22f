package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"auth-api/internal/apperr"
	"auth-api/internal/service"
	"auth-api/internal/upload"
)

type stubAuth struct {
	registerIn  service.RegisterInput
	registerErr error
	loginErr    error
	otpRes      service.OTPDispatch
	verifyRes   service.VerifyResult
	err         error
	avatarBody  string
	accountID   string
}

func (s *stubAuth) Register(_ context.Context, in service.RegisterInput) (service.RegisterResult, error) {
	s.registerIn = in
	if s.registerErr != nil {
		return service.RegisterResult{}, s.registerErr
	}
	return service.RegisterResult{
		Account: service.AccountSummary{ID: "acc-1", Email: in.Email},
		SentTo:  in.Email,
	}, nil
}

func (s *stubAuth) Login(_ context.Context, email, _ string) (service.LoginResult, error) {
	if s.loginErr != nil {
		return service.LoginResult{}, s.loginErr
	}
	return service.LoginResult{User: service.AccountSummary{ID: "acc-1", Email: email}, Token: "tok"}, nil
}

func (s *stubAuth) GetAccount(_ context.Context, accountID string) (service.AccountView, error) {
	s.accountID = accountID
	return service.AccountView{ID: accountID, Email: "ada@example.com"}, s.err
}

func (s *stubAuth) SendOTP(context.Context, string) (service.OTPDispatch, error) {
	return s.otpRes, s.err
}

func (s *stubAuth) VerifyOTP(context.Context, string, string) (service.VerifyResult, error) {
	return s.verifyRes, s.err
}

func (s *stubAuth) ForgotPassword(context.Context, string) (service.OTPDispatch, error) {
	return s.otpRes, s.err
}

func (s *stubAuth) ResetPassword(context.Context, string, string, string) error {
	return s.err
}

func (s *stubAuth) UpdateAvatar(_ context.Context, accountID string, file upload.File) (string, error) {
	s.accountID = accountID
	b, _ := io.ReadAll(file.Body)
	s.avatarBody = string(b)
	return "https://cdn.example.com/avatars/x.png", s.err
}

type envelope struct {
	Success    bool                `json:"success"`
	Status     string              `json:"status"`
	StatusCode int                 `json:"status_code"`
	Message    string              `json:"message"`
	Data       json.RawMessage     `json:"data"`
	Errors     []apperr.FieldError `json:"errors"`
	Detail     string              `json:"detail"`
}

func newTestRouter(t *testing.T, auth AuthService, hideDetail bool) (*gin.Engine, *service.JWTService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, RegisterValidators())
	jwtSvc := service.NewJWTService("secret", time.Hour)
	r := NewRouter(zap.NewNop(), NewAuthHandler(zap.NewNop(), auth), jwtSvc, RouterOptions{
		HideErrorDetail: hideDetail,
		RequestTimeout:  time.Second,
	})
	return r, jwtSvc
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any, token string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func validSignup() map[string]any {
	return map[string]any{
		"email":       "ada@example.com",
		"password":    "secret",
		"firstName":   "Ada",
		"lastName":    "Lovelace",
		"phoneNumber": "08012345678",
	}
}

func TestRegisterHandler_Created(t *testing.T) {
	auth := &stubAuth{}
	r, _ := newTestRouter(t, auth, false)

	rec, env := doJSON(t, r, http.MethodPost, "/api/v1/auth/signup", validSignup(), "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, env.Success)
	assert.Equal(t, 201, env.StatusCode)
	assert.Equal(t, "Registration Successful, OTP has been sent to ada@example.com", env.Message)
	assert.JSONEq(t, `{"id":"acc-1","email":"ada@example.com"}`, string(env.Data))
	assert.Equal(t, "08012345678", auth.registerIn.PhoneNumber)
}

func TestRegisterHandler_Validation(t *testing.T) {
	cases := map[string]struct {
		mutate func(map[string]any)
		field  string
	}{
		"missing email":  {func(b map[string]any) { delete(b, "email") }, "email"},
		"bad email":      {func(b map[string]any) { b["email"] = "nope" }, "email"},
		"short password": {func(b map[string]any) { b["password"] = "abc" }, "password"},
		"missing name":   {func(b map[string]any) { delete(b, "firstName") }, "firstName"},
		"bad phone":      {func(b map[string]any) { b["phoneNumber"] = "12345" }, "phoneNumber"},
		"two roles":      {func(b map[string]any) { b["roles"] = []string{"user", "admin"} }, "roles"},
		"unknown role":   {func(b map[string]any) { b["roles"] = []string{"root"} }, "roles"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			r, _ := newTestRouter(t, &stubAuth{}, false)
			body := validSignup()
			tc.mutate(body)

			rec, env := doJSON(t, r, http.MethodPost, "/api/v1/auth/signup", body, "")
			require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.False(t, env.Success)
			assert.Equal(t, "Validation Error", env.Status)
			require.NotEmpty(t, env.Errors)
			assert.Equal(t, tc.field, env.Errors[0].Field)
		})
	}
}

func TestRegisterHandler_AcceptsSingleRole(t *testing.T) {
	auth := &stubAuth{}
	r, _ := newTestRouter(t, auth, false)
	body := validSignup()
	body["roles"] = []string{"admin"}

	rec, _ := doJSON(t, r, http.MethodPost, "/api/v1/auth/signup", body, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, []string{"admin"}, auth.registerIn.Roles)
}

func TestRegisterHandler_Conflict(t *testing.T) {
	auth := &stubAuth{registerErr: apperr.Conflict("User with this email already exists")}
	r, _ := newTestRouter(t, auth, false)

	rec, env := doJSON(t, r, http.MethodPost, "/api/v1/auth/signup", validSignup(), "")
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "User with this email already exists", env.Message)
	assert.Equal(t, 409, env.StatusCode)
}

func TestErrorDetailHiddenInProduction(t *testing.T) {
	cause := errors.New("smtp: connection refused")
	auth := &stubAuth{registerErr: apperr.Internal("could not send otp email", cause)}

	r, _ := newTestRouter(t, auth, false)
	rec, env := doJSON(t, r, http.MethodPost, "/api/v1/auth/signup", validSignup(), "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "smtp: connection refused", env.Detail)

	r, _ = newTestRouter(t, auth, true)
	rec, env = doJSON(t, r, http.MethodPost, "/api/v1/auth/signup", validSignup(), "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, env.Detail)
	assert.Equal(t, "Internal Server Error", env.Message)
}

func TestLoginHandler(t *testing.T) {
	r, _ := newTestRouter(t, &stubAuth{}, false)
	rec, env := doJSON(t, r, http.MethodPost, "/api/v1/auth/signin",
		map[string]string{"email": "ada@example.com", "password": "secret"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Login Successful", env.Message)
	assert.JSONEq(t, `{"user":{"id":"acc-1","email":"ada@example.com"},"token":"tok"}`, string(env.Data))

	r, _ = newTestRouter(t, &stubAuth{loginErr: apperr.Forbidden("Email Not Verified")}, false)
	rec, env = doJSON(t, r, http.MethodPost, "/api/v1/auth/signin",
		map[string]string{"email": "ada@example.com", "password": "secret"}, "")
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Email Not Verified", env.Message)
}

func TestOTPHandlers(t *testing.T) {
	body := map[string]string{"email": "ada@example.com"}

	r, _ := newTestRouter(t, &stubAuth{otpRes: service.OTPDispatch{SentTo: "ada@example.com"}}, false)
	rec, env := doJSON(t, r, http.MethodPost, "/api/v1/auth/send-otp", body, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OTP has been sent to ada@example.com", env.Message)

	r, _ = newTestRouter(t, &stubAuth{otpRes: service.OTPDispatch{AlreadyVerified: true}}, false)
	_, env = doJSON(t, r, http.MethodPost, "/api/v1/auth/send-otp", body, "")
	assert.Equal(t, "User Already Verified", env.Message)

	r, _ = newTestRouter(t, &stubAuth{err: apperr.TooManyRequests("slow down")}, false)
	rec, _ = doJSON(t, r, http.MethodPost, "/api/v1/auth/forgot-password", body, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	verify := map[string]string{"email": "ada@example.com", "otp": "123456"}
	r, _ = newTestRouter(t, &stubAuth{}, false)
	_, env = doJSON(t, r, http.MethodPost, "/api/v1/auth/verify-otp", verify, "")
	assert.Equal(t, "Email Verified", env.Message)

	r, _ = newTestRouter(t, &stubAuth{err: apperr.BadRequest("Invalid or Expired OTP")}, false)
	rec, env = doJSON(t, r, http.MethodPost, "/api/v1/auth/verify-otp", verify, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid or Expired OTP", env.Message)

	reset := map[string]string{"email": "ada@example.com", "otp": "123456", "password": "newpass"}
	r, _ = newTestRouter(t, &stubAuth{}, false)
	rec, env = doJSON(t, r, http.MethodPost, "/api/v1/auth/reset-password", reset, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Password Updated", env.Message)
}

func TestGetUserHandler(t *testing.T) {
	auth := &stubAuth{}
	r, jwtSvc := newTestRouter(t, auth, false)

	rec, env := doJSON(t, r, http.MethodGet, "/api/v1/auth/", nil, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "No Token Provided", env.Message)

	rec, env = doJSON(t, r, http.MethodGet, "/api/v1/auth/", nil, "garbage")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid Token", env.Message)

	token, err := jwtSvc.Issue("acc-1")
	require.NoError(t, err)
	rec, env = doJSON(t, r, http.MethodGet, "/api/v1/auth/", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "acc-1", auth.accountID)
	assert.Equal(t, "User Retrieved Successfully", env.Message)
}

func TestUpdateAvatarHandler(t *testing.T) {
	auth := &stubAuth{}
	r, jwtSvc := newTestRouter(t, auth, false)
	token, err := jwtSvc.Issue("acc-1")
	require.NoError(t, err)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "me.png")
	require.NoError(t, err)
	_, _ = part.Write([]byte("png-bytes"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/auth/avatar", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "acc-1", auth.accountID)
	assert.Equal(t, "png-bytes", auth.avatarBody)
	assert.Contains(t, rec.Body.String(), "https://cdn.example.com/avatars/x.png")

	req = httptest.NewRequest(http.MethodPatch, "/api/v1/auth/avatar", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_NotFoundAndMethodNotAllowed(t *testing.T) {
	r, _ := newTestRouter(t, &stubAuth{}, false)

	rec, env := doJSON(t, r, http.MethodGet, "/api/v1/nothing", nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Route Not Found", env.Message)
	assert.False(t, env.Success)

	rec, env = doJSON(t, r, http.MethodGet, "/api/v1/auth/signup", nil, "")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "Method GET not allowed on /api/v1/auth/signup", env.Message)
}

func TestInvalidJSONBody(t *testing.T) {
	r, _ := newTestRouter(t, &stubAuth{}, false)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signin", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
