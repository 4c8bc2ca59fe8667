package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"parcelhop/internal/domain"
	"parcelhop/internal/repositories"
	"parcelhop/internal/services"
	"parcelhop/internal/utils"
)

// API holds the services behind the HTTP handlers.
type API struct {
	Trips      *services.TripService
	Packages   *services.PackageService
	Escrow     *services.EscrowService
	Matching   *services.MatchingService
	Reputation *services.ReputationService
	Docs       services.DocsService
	Users      repositories.UserRepository
	// Ready reports whether storage is usable; nil means always ready.
	Ready func(ctx context.Context) error
}

// bindJSON ensures the body is present and parsable.
func bindJSON[T any](c *gin.Context, dst *T) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		respondError(c, http.StatusBadRequest, "validation_error", "request body is required")
		return false
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", "invalid payload: "+err.Error())
		return false
	}
	return true
}

func pathID(c *gin.Context, name string) (domain.ID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", name+" must be a UUID")
		return domain.ID{}, false
	}
	return id, true
}

func pagination(c *gin.Context) domain.Pagination {
	page, _ := strconv.Atoi(c.Query("page"))
	size, _ := strconv.Atoi(c.Query("page_size"))
	return domain.NewPagination(page, size)
}

// parseWhen accepts RFC 3339 timestamps or plain dates. Empty means unset.
func parseWhen(field, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := utils.ParseDate(raw)
	if err != nil {
		return time.Time{}, domain.ValidationError{Field: field, Msg: "must be RFC 3339 or YYYY-MM-DD"}
	}
	return t, nil
}
