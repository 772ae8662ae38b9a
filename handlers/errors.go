package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gigcal/services/availability"
	"gigcal/utils"
)

const (
	codeInvalidRequest   = "invalid_request"
	codeInvalidDate      = "invalid_date"
	codeInvalidRange     = "invalid_range"
	codeInvalidNote      = "invalid_note"
	codeMissingToken     = "missing_token"
	codeStoreUnavailable = "store_unavailable"
)

// respondError maps engine errors onto HTTP statuses: validation 400,
// conflicts 409, store failures 503.
func respondError(c *gin.Context, err error) {
	var conflict *availability.ConflictError
	switch {
	case errors.As(err, &conflict):
		msg := "Date is unavailable"
		if conflict.Retryable() {
			msg = "Date is being booked, try again shortly"
		}
		utils.JSONError(c, http.StatusConflict, string(conflict.Reason), msg)
	case errors.Is(err, availability.ErrInvalidDate):
		utils.JSONError(c, http.StatusBadRequest, codeInvalidDate, "Dates must be valid YYYY-MM-DD calendar days")
	case errors.Is(err, availability.ErrInvalidRange):
		utils.JSONError(c, http.StatusBadRequest, codeInvalidRange, err.Error())
	case errors.Is(err, availability.ErrInvalidNote):
		utils.JSONError(c, http.StatusBadRequest, codeInvalidNote, err.Error())
	case errors.Is(err, availability.ErrMissingToken):
		utils.JSONError(c, http.StatusBadRequest, codeMissingToken, "A hold token is required")
	case errors.Is(err, availability.ErrStoreUnavailable):
		getLogger(c).Error("Availability store unavailable", zap.Error(err))
		utils.JSONError(c, http.StatusServiceUnavailable, codeStoreUnavailable, "Availability store unavailable, retry shortly")
	default:
		getLogger(c).Error("Unexpected availability error", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, utils.CodeInternal, "Internal Server Error")
	}
}

func badRequest(c *gin.Context, err error) {
	utils.JSONError(c, http.StatusBadRequest, codeInvalidRequest, "Invalid request payload: "+err.Error())
}
