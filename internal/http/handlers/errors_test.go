package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parcelhop/internal/domain"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", domain.ValidationError{Field: "weight", Msg: "must be positive"}, http.StatusBadRequest},
		{"kyc", domain.ForbiddenError{Err: domain.ErrKycNotVerified}, http.StatusForbidden},
		{"forbidden", domain.ForbiddenError{Msg: "not a party"}, http.StatusForbidden},
		{"not found", fmt.Errorf("load: %w", domain.NotFoundError{Resource: "trip"}), http.StatusNotFound},
		{"capacity", domain.ConflictError{Err: domain.ErrInsufficientCapacity}, http.StatusConflict},
		{"invalid state", domain.InvalidState("transaction", "PAID", "cancel"), http.StatusConflict},
		{"duplicate review", domain.ConflictError{Err: domain.ErrDuplicateReview}, http.StatusConflict},
		{"wrong code", domain.DomainError{Code: "invalid_delivery_code", Err: domain.ErrInvalidDeliveryCode}, http.StatusUnprocessableEntity},
		{"locked", domain.ConflictError{Err: domain.ErrDeliveryAttemptsExceeded}, http.StatusTooManyRequests},
		{"provider", domain.UnavailableError{Err: errors.New("timeout")}, http.StatusServiceUnavailable},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, statusFor(tc.err))
		})
	}
}

func TestRespondDomainErrorHidesInternals(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)

	RespondDomainError(c, errors.New("dial tcp 10.0.0.3:3306: connection refused"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal error", body.Error)
	assert.Equal(t, "internal_error", body.Code)
}

func TestParseWhen(t *testing.T) {
	got, err := parseWhen("latest_departure", "2025-06-08")
	require.NoError(t, err)
	assert.Equal(t, 8, got.Day())

	got, err = parseWhen("departure_at", "2025-06-04T11:00:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, 9, got.Hour(), "converted to UTC")

	got, err = parseWhen("departure_at", " ")
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	_, err = parseWhen("departure_at", "next tuesday")
	assert.True(t, domain.IsValidation(err))
}
