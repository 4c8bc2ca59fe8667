package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"parcelhop/internal/domain/models"
	"parcelhop/internal/http/middleware"
	"parcelhop/internal/services"
)

type tripRequest struct {
	DepartureCity    string  `json:"departure_city"`
	DepartureCountry string  `json:"departure_country"`
	ArrivalCity      string  `json:"arrival_city"`
	ArrivalCountry   string  `json:"arrival_country"`
	DepartureAt      string  `json:"departure_at"`
	AvailableKg      float64 `json:"available_weight_kg"`
	PricePerKg       float64 `json:"price_per_kg"`
	Notes            string  `json:"notes"`
}

type tripPatchRequest struct {
	Notes      *string  `json:"notes"`
	PricePerKg *float64 `json:"price_per_kg"`
}

func (a *API) CreateTrip(c *gin.Context) {
	var req tripRequest
	if !bindJSON(c, &req) {
		return
	}
	departure, err := parseWhen("departure_at", req.DepartureAt)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	trip, err := a.Trips.Create(c.Request.Context(), middleware.Caller(c), services.TripInput{
		DepartureCity:    req.DepartureCity,
		DepartureCountry: req.DepartureCountry,
		ArrivalCity:      req.ArrivalCity,
		ArrivalCountry:   req.ArrivalCountry,
		DepartureAt:      departure,
		AvailableWeight:  models.GramsFromKg(req.AvailableKg),
		PricePerKg:       models.CentsFromAmount(req.PricePerKg),
		Notes:            req.Notes,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toTrip(trip))
}

func (a *API) GetTrip(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	trip, err := a.Trips.Get(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTrip(trip))
}

func (a *API) ListUserTrips(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p := pagination(c)
	trips, err := a.Trips.ListByTraveler(c.Request.Context(), id, p)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": mapSlice(trips, toTrip), "page": p.Page, "pageSize": p.PageSize})
}

func (a *API) UpdateTrip(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req tripPatchRequest
	if !bindJSON(c, &req) {
		return
	}
	u := models.TripUpdate{Notes: req.Notes}
	if req.PricePerKg != nil {
		price := models.CentsFromAmount(*req.PricePerKg)
		u.PricePerKg = &price
	}
	trip, err := a.Trips.Update(c.Request.Context(), middleware.Caller(c), id, u)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTrip(trip))
}

func (a *API) CancelTrip(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	trip, err := a.Trips.Cancel(c.Request.Context(), middleware.Caller(c), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTrip(trip))
}

func (a *API) DeleteTrip(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := a.Trips.Delete(c.Request.Context(), middleware.Caller(c), id); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
