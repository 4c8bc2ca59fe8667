package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"parcelhop/internal/domain/models"
	"parcelhop/internal/http/middleware"
	"parcelhop/internal/utils"
)

type userRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	KYCVerified bool   `json:"kyc_verified"`
}

type userProfile struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email,omitempty"`
	KYCVerified  bool      `json:"kyc_verified"`
	Rating       float64   `json:"rating"`
	ReviewsCount int       `json:"reviews_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// GetUser returns the public profile. Email is only shown to the user and staff.
func (a *API) GetUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	u, err := a.Users.GetByID(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	out := userProfile{
		ID:           u.ID.String(),
		Name:         u.Name,
		KYCVerified:  u.KYCVerified,
		Rating:       u.Rating,
		ReviewsCount: u.ReviewsCount,
		CreatedAt:    u.CreatedAt,
	}
	if rc := middleware.Caller(c); rc.Privileged() || rc.UserID == u.ID {
		out.Email = u.Email
	}
	c.JSON(http.StatusOK, out)
}

// UpsertUser mirrors identity and KYC state from the identity service.
func (a *API) UpsertUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req userRequest
	if !bindJSON(c, &req) {
		return
	}
	name := utils.NormalizeSpace(req.Name)
	if name == "" {
		respondError(c, http.StatusBadRequest, "validation_error", "name is required")
		return
	}
	now := utils.NowUTC()
	ctx := c.Request.Context()
	u := models.User{
		ID:          id,
		Name:        name,
		Email:       strings.ToLower(strings.TrimSpace(req.Email)),
		KYCVerified: req.KYCVerified,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := a.Users.Upsert(ctx, u); err != nil {
		RespondDomainError(c, err)
		return
	}
	utils.LogEvent(ctx, "users", "upsert", "user profile stored",
		"user_id", id.String(), "kyc_verified", req.KYCVerified)
	stored, err := a.Users.GetByID(ctx, id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, stored)
}
