package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"parcelhop/internal/domain"
	"parcelhop/internal/domain/models"
	"parcelhop/internal/http/middleware"
)

type createTransactionRequest struct {
	PackageID   string  `json:"package_id"`
	TripID      string  `json:"trip_id"`
	AgreedPrice float64 `json:"agreed_price"`
}

type confirmPaymentRequest struct {
	ProcessorRef string `json:"processor_ref"`
}

type pickupRequest struct {
	PhotoRef string `json:"photo_ref"`
}

type deliverRequest struct {
	Code     string `json:"code"`
	PhotoRef string `json:"photo_ref"`
}

type disputeRequest struct {
	Reason string `json:"reason"`
}

type txStep func(ctx context.Context, rc domain.RequestContext, id domain.ID) (models.Transaction, error)

// transition runs one lifecycle step that takes no body.
func transition(step txStep) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		tx, err := step(c.Request.Context(), middleware.Caller(c), id)
		if err != nil {
			RespondDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, toTransaction(tx))
	}
}

func (a *API) CreateTransaction(c *gin.Context) {
	var req createTransactionRequest
	if !bindJSON(c, &req) {
		return
	}
	pkgID, tripID, err := parsePair(req.PackageID, req.TripID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	res, err := a.Escrow.Create(c.Request.Context(), middleware.Caller(c), pkgID, tripID, models.CentsFromAmount(req.AgreedPrice))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, createdTransaction{Transaction: toTransaction(res.Transaction), DeliveryCode: res.DeliveryCode})
}

func (a *API) GetTransaction(c *gin.Context) {
	transition(a.Escrow.Get)(c)
}

func (a *API) ListUserTransactions(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p := pagination(c)
	txs, err := a.Escrow.ListForUser(c.Request.Context(), middleware.Caller(c), id, p)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": mapSlice(txs, toTransaction), "page": p.Page, "pageSize": p.PageSize})
}

func (a *API) InitiatePayment(c *gin.Context) {
	transition(a.Escrow.InitiatePayment)(c)
}

// ConfirmPayment is the processor callback; the router restricts it to system and admin callers.
func (a *API) ConfirmPayment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req confirmPaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	tx, err := a.Escrow.ConfirmPayment(c.Request.Context(), middleware.Caller(c), id, req.ProcessorRef)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTransaction(tx))
}

func (a *API) MarkPickedUp(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req pickupRequest
	if !bindJSON(c, &req) {
		return
	}
	tx, err := a.Escrow.MarkPickedUp(c.Request.Context(), middleware.Caller(c), id, req.PhotoRef)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTransaction(tx))
}

func (a *API) MarkInTransit(c *gin.Context) {
	transition(a.Escrow.MarkInTransit)(c)
}

func (a *API) MarkDelivered(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req deliverRequest
	if !bindJSON(c, &req) {
		return
	}
	tx, err := a.Escrow.MarkDelivered(c.Request.Context(), middleware.Caller(c), id, req.Code, req.PhotoRef)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTransaction(tx))
}

func (a *API) CompleteTransaction(c *gin.Context) {
	transition(a.Escrow.Complete)(c)
}

func (a *API) CancelTransaction(c *gin.Context) {
	transition(a.Escrow.Cancel)(c)
}

func (a *API) DisputeTransaction(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req disputeRequest
	if !bindJSON(c, &req) {
		return
	}
	tx, err := a.Escrow.Dispute(c.Request.Context(), middleware.Caller(c), id, req.Reason)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTransaction(tx))
}
