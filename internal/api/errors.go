package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/ksred/fullstack-boilerplate/internal/utils"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody describes a failed request
type ErrorBody struct {
	Message    string `json:"message" example:"User not found"`
	Code       string `json:"code" example:"NOT_FOUND"`
	StatusCode int    `json:"statusCode" example:"404"`
	Details    string `json:"details,omitempty"`
}

// fieldMessages are the client-facing messages for request body validation failures
var fieldMessages = map[string]string{
	"username": "Username is required and must be between 1-255 characters",
	"email":    "Valid email is required",
}

// respondError writes err as an ErrorResponse. Raw error text is only
// exposed when the server runs in debug mode.
func (s *Server) respondError(c *gin.Context, err error) {
	status := utils.StatusCode(err)

	if status >= http.StatusInternalServerError {
		s.logger.Error().
			Err(err).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg("Request failed")
	}
	_ = c.Error(err)

	body := ErrorBody{
		Message:    utils.PublicMessage(err),
		Code:       utils.Code(err),
		StatusCode: status,
	}
	if s.config.Server.Debug {
		body.Details = err.Error()
	}

	c.AbortWithStatusJSON(status, ErrorResponse{Error: body})
}

// bindingError converts a gin binding failure into a validation error
func bindingError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		fe := validationErrs[0]
		field := strings.ToLower(fe.Field())
		if msg, ok := fieldMessages[field]; ok {
			return utils.InvalidFieldError(field, msg)
		}
		return utils.InvalidFieldError(field, "Invalid request data")
	}
	return utils.WrapValidationError("", "Invalid request data")
}
