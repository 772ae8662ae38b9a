package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gigcal/models"
	"gigcal/services/availability"
)

var errMissingDateQuery = errors.New("either date or both from and to are required")

// AdminHandler encapsulates elevated admin-level calendar operations.
type AdminHandler struct {
	Service availability.AvailabilityService
}

func NewAdminHandler(svc availability.AvailabilityService) *AdminHandler {
	return &AdminHandler{Service: svc}
}

// Block marks a date busy with an admin note.
func (ah *AdminHandler) Block(c *gin.Context) {
	var req models.ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := ah.Service.Confirm(c.Request.Context(), req.Date, "", req.Note); err != nil {
		respondError(c, err)
		return
	}
	getLogger(c).Info("Date blocked by admin",
		zap.String("date", req.Date),
		zap.String("adminID", c.GetString("adminID")))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Release frees a date unconditionally. Releasing a free date succeeds.
func (ah *AdminHandler) Release(c *gin.Context) {
	var req models.ReleaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := ah.Service.Release(c.Request.Context(), req.Date); err != nil {
		respondError(c, err)
		return
	}
	getLogger(c).Info("Date released by admin",
		zap.String("date", req.Date),
		zap.String("adminID", c.GetString("adminID")))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Range returns every day in [from, to] including hold expiry and notes.
func (ah *AdminHandler) Range(c *gin.Context) {
	from, to := c.Query("from"), c.Query("to")
	if from == "" || to == "" {
		badRequest(c, errors.New("from and to are required"))
		return
	}
	days, err := ah.Service.RangeStatus(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.RangeResponse{Days: days})
}
