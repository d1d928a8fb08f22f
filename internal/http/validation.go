package http

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"auth-api/internal/apperr"
	"auth-api/internal/domain"
)

var (
	ngPhonePattern = regexp.MustCompile(`^0[789][01][0-9]{8}$`)
	registerOnce   sync.Once
	registerErr    error
)

// RegisterValidators agrega los tags propios al validador de gin.
func RegisterValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = errors.New("unexpected gin validator engine")
			return
		}
		v.RegisterTagNameFunc(jsonFieldName)
		if err := v.RegisterValidation("ngphone", validNGPhone); err != nil {
			registerErr = err
			return
		}
		registerErr = v.RegisterValidation("roles", validRoles)
	})
	return registerErr
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}

func validNGPhone(fl validator.FieldLevel) bool {
	return ngPhonePattern.MatchString(fl.Field().String())
}

// validRoles admite como maximo un rol conocido.
func validRoles(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.Slice {
		return false
	}
	if field.Len() > 1 {
		return false
	}
	for i := 0; i < field.Len(); i++ {
		if !domain.IsValidRole(strings.ToLower(field.Index(i).String())) {
			return false
		}
	}
	return true
}

// bindJSON decodifica el body y traduce los fallos a errores de dominio.
func bindJSON(c *gin.Context, dst any) error {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]apperr.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, apperr.FieldError{
				Field:   fe.Field(),
				Message: fieldMessage(fe),
			})
		}
		return apperr.Validation(fields...)
	}
	return apperr.Wrap(apperr.KindBadRequest, "Invalid request body", err)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "Please provide a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", fe.Field(), fe.Param())
	case "ngphone":
		return "Please provide a valid phone number"
	case "roles":
		return "roles must contain at most one of: user, admin"
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
