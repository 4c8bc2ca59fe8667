package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"parcelhop/internal/domain"
	"parcelhop/internal/domain/models"
	"parcelhop/internal/http/middleware"
)

const (
	defaultMatchLimit = 20
	maxMatchLimit     = 100
)

type tripMatch struct {
	Trip           tripResponse `json:"trip"`
	SuggestedPrice float64      `json:"suggested_price"`
}

type proposeRequest struct {
	PackageID     string  `json:"package_id"`
	TripID        string  `json:"trip_id"`
	ProposedPrice float64 `json:"proposed_price"`
}

type createdTransaction struct {
	Transaction  transactionResponse `json:"transaction"`
	DeliveryCode string              `json:"delivery_code"`
}

func matchLimit(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 {
		return defaultMatchLimit
	}
	return min(n, maxMatchLimit)
}

// MatchTrips lists trips that can carry the package, soonest first.
func (a *API) MatchTrips(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	pkg, err := a.Packages.Get(ctx, id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	limit := matchLimit(c)
	out := make([]tripMatch, 0, limit)
	for trip, err := range a.Matching.FindTripsForPackage(ctx, pkg) {
		if err != nil {
			RespondDomainError(c, err)
			return
		}
		out = append(out, tripMatch{
			Trip:           toTrip(trip),
			SuggestedPrice: a.Matching.SuggestedPrice(pkg, trip).Amount(),
		})
		if len(out) == limit {
			break
		}
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

// MatchPackages is the traveler side: published packages the trip can take.
func (a *API) MatchPackages(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	trip, err := a.Trips.Get(ctx, id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	limit := matchLimit(c)
	out := make([]packageResponse, 0, limit)
	for pkg, err := range a.Matching.FindPackagesForTrip(ctx, trip) {
		if err != nil {
			RespondDomainError(c, err)
			return
		}
		out = append(out, toPackage(pkg))
		if len(out) == limit {
			break
		}
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

// ProposeMatch opens an escrow transaction for a package on a trip.
func (a *API) ProposeMatch(c *gin.Context) {
	var req proposeRequest
	if !bindJSON(c, &req) {
		return
	}
	pkgID, tripID, err := parsePair(req.PackageID, req.TripID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	res, err := a.Matching.ProposeMatch(c.Request.Context(), middleware.Caller(c), pkgID, tripID, models.CentsFromAmount(req.ProposedPrice))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, createdTransaction{Transaction: toTransaction(res.Transaction), DeliveryCode: res.DeliveryCode})
}

func parsePair(packageID, tripID string) (domain.ID, domain.ID, error) {
	pkg, err := uuid.Parse(packageID)
	if err != nil {
		return domain.ID{}, domain.ID{}, domain.ValidationError{Field: "package_id", Msg: "must be a UUID"}
	}
	trip, err := uuid.Parse(tripID)
	if err != nil {
		return domain.ID{}, domain.ID{}, domain.ValidationError{Field: "trip_id", Msg: "must be a UUID"}
	}
	return pkg, trip, nil
}
