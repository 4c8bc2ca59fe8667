package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"parcelhop/internal/domain"
	"parcelhop/internal/domain/models"
	"parcelhop/internal/http/middleware"
	"parcelhop/internal/services"
)

type reviewRequest struct {
	ReviewedID string         `json:"reviewed_id"`
	Ratings    models.Ratings `json:"ratings"`
	Comment    string         `json:"comment"`
}

func (a *API) SubmitReview(c *gin.Context) {
	txID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req reviewRequest
	if !bindJSON(c, &req) {
		return
	}
	reviewed, err := uuid.Parse(req.ReviewedID)
	if err != nil {
		RespondDomainError(c, domain.ValidationError{Field: "reviewed_id", Msg: "must be a UUID"})
		return
	}
	review, err := a.Reputation.SubmitReview(c.Request.Context(), middleware.Caller(c), services.ReviewInput{
		TransactionID: txID,
		ReviewedID:    reviewed,
		Ratings:       req.Ratings,
		Comment:       req.Comment,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

func (a *API) ListUserReviews(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p := pagination(c)
	reviews, err := a.Reputation.ListReviews(c.Request.Context(), id, p)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": reviews, "page": p.Page, "pageSize": p.PageSize})
}
