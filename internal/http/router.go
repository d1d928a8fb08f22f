package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"auth-api/internal/apperr"
	"auth-api/internal/service"
)

type RouterOptions struct {
	// HideErrorDetail omite la causa en los errores (produccion).
	HideErrorDetail bool
	RequestTimeout  time.Duration
}

// NewRouter configura el router de Gin con middlewares y rutas de auth.
func NewRouter(
	logger *zap.Logger,
	authH *AuthHandler,
	jwtSvc *service.JWTService,
	opts RouterOptions,
) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(
		errorDetailMiddleware(opts.HideErrorDetail),
		zapLoggerMiddleware(logger),
		recoveryMiddleware(logger),
		requestTimeoutMiddleware(opts.RequestTimeout),
	)

	auth := r.Group("/api/v1/auth")
	auth.GET("/", JWTAuthMiddleware(jwtSvc), authH.GetUser)
	auth.POST("/signup", authH.Register)
	auth.POST("/signin", authH.Login)
	auth.POST("/send-otp", authH.SendOTP)
	auth.POST("/verify-otp", authH.VerifyOTP)
	auth.POST("/forgot-password", authH.ForgotPassword)
	auth.POST("/reset-password", authH.ResetPassword)
	auth.PATCH("/avatar", JWTAuthMiddleware(jwtSvc), authH.UpdateAvatar)

	r.NoRoute(func(c *gin.Context) {
		respondStatus(c, http.StatusNotFound, "Route Not Found")
	})
	r.NoMethod(func(c *gin.Context) {
		respondStatus(c, http.StatusMethodNotAllowed,
			fmt.Sprintf("Method %s not allowed on %s", c.Request.Method, c.Request.URL.Path))
	})

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		}
		if errs := c.Errors.String(); errs != "" {
			fields = append(fields, zap.String("errors", errs))
		}
		logger.Info("request", fields...)
	}
}

func errorDetailMiddleware(hide bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(hideDetailKey, hide)
		c.Next()
	}
}

func recoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		logger.Error("panic recovered", zap.Any("panic", recovered))
		respondError(c, apperr.Internal("", fmt.Errorf("panic: %v", recovered)))
	})
}

// requestTimeoutMiddleware pone un deadline al contexto de cada request.
func requestTimeoutMiddleware(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
