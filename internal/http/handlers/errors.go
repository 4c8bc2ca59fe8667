package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"parcelhop/internal/domain"
	"parcelhop/internal/http/middleware"
	"parcelhop/internal/utils"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

func respondError(c *gin.Context, status int, code, message string) {
	if code == "" {
		code = http.StatusText(status)
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:     message,
		Code:      code,
		RequestID: middleware.GetRequestID(c),
	})
}

// RespondDomainError maps domain errors to HTTP responses. Unclassified
// errors are logged and answered with a generic message.
func RespondDomainError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		utils.LogWarn(c.Request.Context(), "http", "error", "unhandled error",
			"path", c.FullPath(), "error", err.Error())
		respondError(c, status, "internal_error", "internal error")
		return
	}
	respondError(c, status, domain.Code(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidDeliveryCode):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrDeliveryAttemptsExceeded):
		return http.StatusTooManyRequests
	case domain.IsValidation(err):
		return http.StatusBadRequest
	case domain.IsForbidden(err):
		return http.StatusForbidden
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case domain.IsConflict(err):
		return http.StatusConflict
	case domain.IsUnavailable(err):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
