package email

import (
	"context"
	"errors"
	"time"
)

// OTPMessage es el contenido de un correo con codigo de un solo uso.
type OTPMessage struct {
	To        string
	Name      string
	Code      string
	ExpiresAt time.Time
}

// Sender define la interfaz para envio de codigos por correo.
type Sender interface {
	SendOTP(ctx context.Context, msg OTPMessage) error
}

type disabledSender struct {
	reason string
}

func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) SendOTP(_ context.Context, _ OTPMessage) error {
	if s.reason == "" {
		return errors.New("email sender disabled")
	}
	return errors.New(s.reason)
}
