package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"parcelhop/internal/domain/models"
	"parcelhop/internal/http/middleware"
	"parcelhop/internal/services"
)

type packageRequest struct {
	WeightKg           float64  `json:"weight_kg"`
	Contents           string   `json:"contents"`
	Budget             float64  `json:"budget"`
	OriginCity         string   `json:"origin_city"`
	OriginCountry      string   `json:"origin_country"`
	DestinationCity    string   `json:"destination_city"`
	DestinationCountry string   `json:"destination_country"`
	EarliestDeparture  string   `json:"earliest_departure"`
	LatestDeparture    string   `json:"latest_departure"`
	Photos             []string `json:"photos"`
}

func (a *API) CreatePackage(c *gin.Context) {
	var req packageRequest
	if !bindJSON(c, &req) {
		return
	}
	earliest, err := parseWhen("earliest_departure", req.EarliestDeparture)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	latest, err := parseWhen("latest_departure", req.LatestDeparture)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	pkg, err := a.Packages.Create(c.Request.Context(), middleware.Caller(c), services.PackageInput{
		Weight:             models.GramsFromKg(req.WeightKg),
		Contents:           req.Contents,
		Budget:             models.CentsFromAmount(req.Budget),
		OriginCity:         req.OriginCity,
		OriginCountry:      req.OriginCountry,
		DestinationCity:    req.DestinationCity,
		DestinationCountry: req.DestinationCountry,
		EarliestDeparture:  earliest,
		LatestDeparture:    latest,
		Photos:             req.Photos,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toPackage(pkg))
}

func (a *API) GetPackage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	pkg, err := a.Packages.Get(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPackage(pkg))
}

func (a *API) ListUserPackages(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p := pagination(c)
	pkgs, err := a.Packages.ListByShipper(c.Request.Context(), id, p)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": mapSlice(pkgs, toPackage), "page": p.Page, "pageSize": p.PageSize})
}

func (a *API) CancelPackage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	pkg, err := a.Packages.Cancel(c.Request.Context(), middleware.Caller(c), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPackage(pkg))
}
