package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gigcal/models"
	"gigcal/services/availability"
)

// AvailabilityHandler serves the public and checkout endpoints under /api/availability.
type AvailabilityHandler struct {
	Service availability.AvailabilityService
}

func NewAvailabilityHandler(svc availability.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{Service: svc}
}

// GetStatus answers ?date=D with one day's status and ?from=D1&to=D2 with a
// complete run of days. The public range omits hold details.
func (h *AvailabilityHandler) GetStatus(c *gin.Context) {
	ctx := c.Request.Context()

	if date := c.Query("date"); date != "" {
		day, err := h.Service.EffectiveStatus(ctx, date)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, day)
		return
	}

	from, to := c.Query("from"), c.Query("to")
	if from == "" || to == "" {
		badRequest(c, errMissingDateQuery)
		return
	}
	days, err := h.Service.RangeStatus(ctx, from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	for i := range days {
		days[i].HoldUntil = nil
		days[i].Note = ""
	}
	c.JSON(http.StatusOK, models.RangeResponse{Days: days})
}

// Hold creates a new hold or renews the caller's own hold when a token is supplied.
func (h *AvailabilityHandler) Hold(c *gin.Context) {
	var req models.HoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.Service.CreateOrRenewHold(c.Request.Context(), req.Date, req.Note, req.TTLSeconds, req.Token)
	if err != nil {
		respondError(c, err)
		return
	}
	getLogger(c).Info("Hold granted",
		zap.String("date", req.Date),
		zap.String("userID", c.GetString("userID")),
		zap.Bool("renewed", res.Renewed),
		zap.Time("holdUntil", res.HoldUntil))
	c.JSON(http.StatusOK, res)
}

// Confirm marks the date busy. It succeeds whatever the prior state.
func (h *AvailabilityHandler) Confirm(c *gin.Context) {
	var req models.ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.Service.Confirm(c.Request.Context(), req.Date, req.Token, req.Note); err != nil {
		respondError(c, err)
		return
	}
	getLogger(c).Info("Date confirmed",
		zap.String("date", req.Date),
		zap.String("userID", c.GetString("userID")))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// CancelHold drops the caller's own hold. Another holder's hold, a busy day or
// an unknown token leaves the date untouched and reports released=false.
func (h *AvailabilityHandler) CancelHold(c *gin.Context) {
	var req models.ReleaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	released, err := h.Service.ReleaseHold(c.Request.Context(), req.Date, req.Token)
	if err != nil {
		respondError(c, err)
		return
	}
	getLogger(c).Info("Hold cancel requested",
		zap.String("date", req.Date),
		zap.String("userID", c.GetString("userID")),
		zap.Bool("released", released))
	c.JSON(http.StatusOK, gin.H{"ok": true, "released": released})
}
