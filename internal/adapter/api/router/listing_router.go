package router

import (
	"github.com/labstack/echo/v4"

	"basera/internal/adapter/api/handler"
	"basera/internal/adapter/api/middleware"
)

func SetupListingRouter(e *echo.Echo, listingHandler *handler.ListingHandler, authMiddleware *middleware.AuthMiddleware) {
	// Public routes
	e.GET("/v1/listings", listingHandler.GetListings)
	e.GET("/v1/listings/:id", listingHandler.GetListing)

	// Protected routes
	protected := e.Group("/v1/listings")
	protected.Use(authMiddleware.Authenticate)

	protected.POST("", listingHandler.CreateListing)
	protected.GET("/my", listingHandler.GetMyListings)
	protected.PUT("/:id", listingHandler.UpdateListing)
	protected.DELETE("/:id", listingHandler.DeleteListing)
	protected.POST("/:id/renew", listingHandler.RenewListing)
}
