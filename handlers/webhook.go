package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"

	"gigcal/services/availability"
	"gigcal/utils"
)

// Payment intents created by the checkout flow carry the held date and the
// hold token in their metadata.
const (
	MetadataDate  = "calendar_date"
	MetadataToken = "hold_token"

	maxWebhookBody = 64 << 10
)

// WebhookHandler turns Stripe payment outcomes into calendar transitions:
// a successful payment confirms the date, a failed or cancelled one gives
// up the checkout's hold.
type WebhookHandler struct {
	Service availability.AvailabilityService
	Secret  string
}

func NewWebhookHandler(svc availability.AvailabilityService, secret string) *WebhookHandler {
	return &WebhookHandler{Service: svc, Secret: secret}
}

func (wh *WebhookHandler) Stripe(c *gin.Context) {
	logger := getLogger(c)
	if wh.Secret == "" {
		utils.JSONError(c, http.StatusServiceUnavailable, "webhook_disabled", "Stripe webhook secret not configured")
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		utils.JSONError(c, http.StatusRequestEntityTooLarge, codeInvalidRequest, "Webhook body too large")
		return
	}
	event, err := webhook.ConstructEventWithOptions(payload, c.GetHeader("Stripe-Signature"), wh.Secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		logger.Warn("Rejected Stripe webhook", zap.Error(err))
		utils.JSONError(c, http.StatusBadRequest, "invalid_signature", "Invalid Stripe signature")
		return
	}

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded,
		stripe.EventTypePaymentIntentPaymentFailed,
		stripe.EventTypePaymentIntentCanceled:
	default:
		c.JSON(http.StatusOK, gin.H{"received": true, "ignored": true})
		return
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		utils.JSONError(c, http.StatusBadRequest, codeInvalidRequest, "Malformed payment intent")
		return
	}
	date, token := intent.Metadata[MetadataDate], intent.Metadata[MetadataToken]
	if date == "" {
		logger.Info("Payment intent without calendar date", zap.String("intent", intent.ID))
		c.JSON(http.StatusOK, gin.H{"received": true, "ignored": true})
		return
	}

	ctx := c.Request.Context()
	if event.Type == stripe.EventTypePaymentIntentSucceeded {
		err = wh.Service.Confirm(ctx, date, token, "")
	} else if token != "" {
		_, err = wh.Service.ReleaseHold(ctx, date, token)
	}
	if err != nil {
		// Non-2xx makes Stripe redeliver; only store failures are worth that.
		if !isRetryable(err) {
			logger.Warn("Dropping unprocessable payment event",
				zap.String("type", string(event.Type)), zap.String("date", date), zap.Error(err))
			c.JSON(http.StatusOK, gin.H{"received": true, "ignored": true})
			return
		}
		respondError(c, err)
		return
	}

	logger.Info("Payment event applied",
		zap.String("type", string(event.Type)),
		zap.String("intent", intent.ID),
		zap.String("date", date))
	c.JSON(http.StatusOK, gin.H{"received": true})
}

// isRetryable reports whether Stripe should redeliver the event.
func isRetryable(err error) bool {
	return errors.Is(err, availability.ErrStoreUnavailable)
}
