package handlers

import (
	"github.com/gin-gonic/gin"

	"gigcal/utils"
)

// HandlerBundle groups all endpoint handlers and the auth settings the routes need.
type HandlerBundle struct {
	JWTSecret    string
	AdminKeyHash string

	// Availability endpoints
	GetStatusHandler  gin.HandlerFunc
	HoldHandler       gin.HandlerFunc
	ConfirmHandler    gin.HandlerFunc
	CancelHoldHandler gin.HandlerFunc
	CalendarHandler   gin.HandlerFunc

	// Admin endpoints
	AdminBlockHandler   gin.HandlerFunc
	AdminReleaseHandler gin.HandlerFunc
	AdminRangeHandler   gin.HandlerFunc

	// Payment webhooks
	StripeWebhookHandler gin.HandlerFunc

	Health *utils.HealthMonitor
}
