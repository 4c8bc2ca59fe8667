package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"parcelhop/internal/domain"
	"parcelhop/internal/http/middleware"
)

type pdfFunc func(ctx context.Context, rc domain.RequestContext, txID domain.ID) ([]byte, string, error)

func servePDF(c *gin.Context, gen pdfFunc) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	pdfBytes, filename, err := gen(c.Request.Context(), middleware.Caller(c), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}

// GetShippingLabel returns the label PDF inline.
func (a *API) GetShippingLabel(c *gin.Context) {
	servePDF(c, a.Docs.GenerateShippingLabel)
}

// GetReceipt returns the receipt PDF inline.
func (a *API) GetReceipt(c *gin.Context) {
	servePDF(c, a.Docs.GenerateReceipt)
}
