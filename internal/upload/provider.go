package upload

import (
	"context"
	"io"
	"strings"

	"auth-api/internal/apperr"
)

// File es una imagen recibida para subir.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Provider sube un archivo y devuelve su URL publica.
type Provider interface {
	Upload(ctx context.Context, file File) (string, error)
}

const (
	ProviderS3       = "s3"
	ProviderDisabled = "disabled"
)

// NewProvider elige la implementacion por nombre.
func NewProvider(ctx context.Context, name string, cfg S3Config) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case ProviderS3:
		p, err := NewS3Provider(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return p, nil
	case ProviderDisabled, "":
		return disabledProvider{}, nil
	default:
		return nil, apperr.BadRequest("Unsupported upload provider: " + name)
	}
}

type disabledProvider struct{}

func (disabledProvider) Upload(context.Context, File) (string, error) {
	return "", apperr.BadRequest("Unsupported upload provider: " + ProviderDisabled)
}
