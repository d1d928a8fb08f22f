package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"auth-api/internal/apperr"
)

const hideDetailKey = "hide_error_detail"

type successBody struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Data       any    `json:"data"`
}

type errorBody struct {
	Success    bool                `json:"success"`
	Status     string              `json:"status"`
	StatusCode int                 `json:"status_code"`
	Message    string              `json:"message"`
	Errors     []apperr.FieldError `json:"errors,omitempty"`
	Detail     string              `json:"detail,omitempty"`
}

func respond(c *gin.Context, status int, message string, data any) {
	c.JSON(status, successBody{
		Success:    true,
		StatusCode: status,
		Message:    message,
		Data:       data,
	})
}

// respondError escribe el sobre de error y corta la cadena de handlers.
func respondError(c *gin.Context, err error) {
	appErr, ok := apperr.As(err)
	if !ok {
		appErr = apperr.Internal("", err)
	}
	status := appErr.Kind.HTTPStatus()
	body := errorBody{
		Status:     appErr.Kind.Status(),
		StatusCode: status,
		Message:    appErr.Message,
		Errors:     appErr.Fields,
	}
	hideDetail := c.GetBool(hideDetailKey)
	if appErr.Kind == apperr.KindInternal && (hideDetail || body.Message == "") {
		body.Message = "Internal Server Error"
	}
	if !hideDetail && appErr.Cause != nil {
		body.Detail = appErr.Cause.Error()
	}
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, body)
}

func respondStatus(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, errorBody{
		Status:     http.StatusText(status),
		StatusCode: status,
		Message:    message,
	})
}
