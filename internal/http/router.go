package api

import (
	"context"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"

	intconfig "parcelhop/internal/config"
	"parcelhop/internal/domain"
	h "parcelhop/internal/http/handlers"
	"parcelhop/internal/http/middleware"
	"parcelhop/internal/utils"
)

func NewRouter(env intconfig.Env, a *h.API) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), gin.Recovery(), middleware.CORS(env.CORSAllowedOrigins))

	if err := r.SetTrustedProxies(nil); err != nil {
		utils.LogWarn(context.Background(), "http", "router", "failed to set trusted proxies", "error", err.Error())
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"error":      "route not found",
			"code":       "not_found",
			"request_id": middleware.GetRequestID(c),
		})
	})

	api := r.Group("/api")
	api.GET("/health", h.Health)
	api.GET("/ready", a.Readiness)

	authed := api.Group("", middleware.Auth([]byte(env.JWTSecret)))
	{
		users := authed.Group("/users")
		users.GET("/:id", a.GetUser)
		users.GET("/:id/trips", a.ListUserTrips)
		users.GET("/:id/packages", a.ListUserPackages)
		users.GET("/:id/transactions", a.ListUserTransactions)
		users.GET("/:id/reviews", a.ListUserReviews)

		trips := authed.Group("/trips")
		trips.POST("", a.CreateTrip)
		trips.GET("/:id", a.GetTrip)
		trips.PATCH("/:id", a.UpdateTrip)
		trips.DELETE("/:id", a.DeleteTrip)
		trips.POST("/:id/cancel", a.CancelTrip)
		trips.GET("/:id/packages", a.MatchPackages)

		packages := authed.Group("/packages")
		packages.POST("", a.CreatePackage)
		packages.GET("/:id", a.GetPackage)
		packages.POST("/:id/cancel", a.CancelPackage)
		packages.GET("/:id/matches", a.MatchTrips)

		authed.POST("/matches", a.ProposeMatch)

		txs := authed.Group("/transactions")
		txs.POST("", a.CreateTransaction)
		txs.GET("/:id", a.GetTransaction)
		txs.POST("/:id/pay", a.InitiatePayment)
		txs.POST("/:id/confirm-payment", middleware.RequireRoles(domain.RoleSystem, domain.RoleAdmin), a.ConfirmPayment)
		txs.POST("/:id/pickup", a.MarkPickedUp)
		txs.POST("/:id/in-transit", a.MarkInTransit)
		txs.POST("/:id/deliver", a.MarkDelivered)
		txs.POST("/:id/complete", a.CompleteTransaction)
		txs.POST("/:id/cancel", a.CancelTransaction)
		txs.POST("/:id/dispute", a.DisputeTransaction)
		txs.POST("/:id/reviews", a.SubmitReview)
		txs.GET("/:id/label", a.GetShippingLabel)
		txs.GET("/:id/receipt", a.GetReceipt)

		admin := authed.Group("/admin", middleware.RequireRoles(domain.RoleAdmin, domain.RoleSystem))
		admin.PUT("/users/:id", a.UpsertUser)
	}

	return r
}
