package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"auth-api/internal/apperr"
	"auth-api/internal/config"
	"auth-api/internal/db"
	"auth-api/internal/email"
	"auth-api/internal/repository"
	"auth-api/internal/service"
)

// consoleSender imprime el OTP en vez de enviarlo por correo.
type consoleSender struct {
	out io.Writer
}

func (s consoleSender) SendOTP(_ context.Context, msg email.OTPMessage) error {
	_, err := fmt.Fprintf(s.out, ">> OTP para %s: %s (expira %s)\n", msg.To, msg.Code, msg.ExpiresAt.Format("15:04:05"))
	return err
}

func main() {
	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := zap.NewExample()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatalf("migrar: %v", err)
	}

	authSvc := service.NewAuthService(service.AuthServiceDeps{
		Logger:           logger,
		Tx:               repository.NewPgTxManager(pool),
		Accounts:         repository.NewPgAccountRepository(pool),
		Profiles:         repository.NewPgProfileRepository(pool),
		OTPs:             service.NewOTPService(repository.NewPgOTPRepository(pool), cfg.OTPTTL),
		Tokens:           service.NewJWTService(cfg.JWTSecret, cfg.JWTTTL),
		Sender:           consoleSender{out: os.Stdout},
		Limiter:          service.NewOTPRateLimiter(cfg.OTPRateLimitWindow, cfg.OTPRateLimitMax),
		DefaultAvatarURL: cfg.DefaultAvatarURL,
	})

	for {
		fmt.Println("\n===== Auth Console =====")
		fmt.Println("[1] Registrar cuenta")
		fmt.Println("[2] Verificar email")
		fmt.Println("[3] Reenviar OTP")
		fmt.Println("[4] Iniciar sesion")
		fmt.Println("[5] Recuperar password")
		fmt.Println("[6] Salir")
		fmt.Print("Selecciona una opcion: ")

		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		switch strings.TrimSpace(line) {
		case "1":
			report(registerFlow(ctx, reader, authSvc))
		case "2":
			report(verifyFlow(ctx, reader, authSvc))
		case "3":
			report(resendFlow(ctx, reader, authSvc))
		case "4":
			report(loginFlow(ctx, reader, authSvc))
		case "5":
			report(resetFlow(ctx, reader, authSvc))
		case "6":
			return
		default:
			fmt.Println("Opcion invalida.")
		}
	}
}

func registerFlow(ctx context.Context, reader *bufio.Reader, authSvc *service.AuthService) error {
	in := service.RegisterInput{
		Email:       prompt(reader, "Email: "),
		Password:    prompt(reader, "Password: "),
		FirstName:   prompt(reader, "Nombre: "),
		LastName:    prompt(reader, "Apellido: "),
		PhoneNumber: prompt(reader, "Telefono: "),
	}
	if role := prompt(reader, "Rol [user/admin, vacio=user]: "); role != "" {
		in.Roles = []string{role}
	}
	res, err := authSvc.Register(ctx, in)
	if err != nil {
		return err
	}
	fmt.Printf("Cuenta creada (ID: %s). OTP enviado a %s\n", res.Account.ID, res.SentTo)
	return nil
}

func verifyFlow(ctx context.Context, reader *bufio.Reader, authSvc *service.AuthService) error {
	res, err := authSvc.VerifyOTP(ctx, prompt(reader, "Email: "), prompt(reader, "OTP: "))
	if err != nil {
		return err
	}
	if res.AlreadyVerified {
		fmt.Println("La cuenta ya estaba verificada.")
		return nil
	}
	fmt.Println("Email verificado.")
	return nil
}

func resendFlow(ctx context.Context, reader *bufio.Reader, authSvc *service.AuthService) error {
	res, err := authSvc.SendOTP(ctx, prompt(reader, "Email: "))
	if err != nil {
		return err
	}
	if res.AlreadyVerified {
		fmt.Println("La cuenta ya estaba verificada.")
	}
	return nil
}

func loginFlow(ctx context.Context, reader *bufio.Reader, authSvc *service.AuthService) error {
	res, err := authSvc.Login(ctx, prompt(reader, "Email: "), prompt(reader, "Password: "))
	if err != nil {
		return err
	}
	fmt.Printf("Login OK (ID: %s)\nToken: %s\n", res.User.ID, res.Token)
	return nil
}

func resetFlow(ctx context.Context, reader *bufio.Reader, authSvc *service.AuthService) error {
	emailAddr := prompt(reader, "Email: ")
	if _, err := authSvc.ForgotPassword(ctx, emailAddr); err != nil {
		return err
	}
	code := prompt(reader, "OTP: ")
	password := prompt(reader, "Nuevo password: ")
	if err := authSvc.ResetPassword(ctx, emailAddr, code, password); err != nil {
		return err
	}
	fmt.Println("Password actualizado.")
	return nil
}

func prompt(reader *bufio.Reader, label string) string {
	fmt.Print(label)
	text, _ := reader.ReadString('\n')
	return strings.TrimSpace(text)
}

func report(err error) {
	if err == nil {
		return
	}
	if appErr, ok := apperr.As(err); ok {
		fmt.Printf("Error (%s): %s\n", appErr.Kind, appErr.Message)
		return
	}
	fmt.Printf("Error: %v\n", err)
}
