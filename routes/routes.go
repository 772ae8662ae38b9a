package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"gigcal/handlers"
	"gigcal/middleware"
)

// RegisterAvailabilityRoutes registers the public status and checkout endpoints.
func RegisterAvailabilityRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/availability")
	{
		api.GET("/status", hb.GetStatusHandler)
		if hb.CalendarHandler != nil {
			api.GET("/calendar.ics", hb.CalendarHandler)
		}

		// Protected routes (Require Authentication)
		user := api.Group("")
		user.Use(middleware.JWTAuthUserMiddleware(hb.JWTSecret))
		user.POST("/hold", hb.HoldHandler)
		user.DELETE("/hold", hb.CancelHoldHandler)
		user.POST("/confirm", hb.ConfirmHandler)

		admin := api.Group("")
		admin.Use(middleware.JWTAuthAdminMiddleware(hb.JWTSecret, hb.AdminKeyHash))
		admin.POST("/release", hb.AdminReleaseHandler)
	}
}

// RegisterAdminRoutes sets up endpoints for admin calendar operations.
func RegisterAdminRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	adminGroup := r.Group("/api/admin/availability")
	{
		adminGroup.Use(middleware.JWTAuthAdminMiddleware(hb.JWTSecret, hb.AdminKeyHash))
		adminGroup.GET("", hb.AdminRangeHandler)
		adminGroup.POST("/block", hb.AdminBlockHandler)
		adminGroup.POST("/release", hb.AdminReleaseHandler)
	}
}

// RegisterWebhookRoutes registers payment provider callbacks. They authenticate
// by signature, not by bearer token.
func RegisterWebhookRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	if hb.StripeWebhookHandler == nil {
		return
	}
	r.POST("/api/webhooks/stripe", hb.StripeWebhookHandler)
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/health", handlers.HealthHandler(hb.Health))
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Authorization", "Content-Type", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}))

	RegisterHealthRoute(r, hb)
	RegisterAvailabilityRoutes(r, hb)
	RegisterAdminRoutes(r, hb)
	RegisterWebhookRoutes(r, hb)
}
