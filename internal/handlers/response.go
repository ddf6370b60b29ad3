package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ArowuTest/loyalty-ledger/internal/services"
	"github.com/gin-gonic/gin"
	"golang.org/x/exp/slog"
)

// respondError maps service errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "field": verr.Field})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInsufficientBalance):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrOutOfStock):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrTierIneligible):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrStoreUnavailable):
		slog.Error("Ledger store failure", "error", err, "path", c.FullPath())
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Ledger store unavailable, retry with the same request"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}

// redemptionStatus picks the status for a refused redemption.
func redemptionStatus(reason services.RedemptionFailure) int {
	switch reason {
	case services.RedemptionNotFound:
		return http.StatusNotFound
	case services.RedemptionOutOfStock:
		return http.StatusConflict
	case services.RedemptionInsufficientPoints:
		return http.StatusUnprocessableEntity
	case services.RedemptionTierNotEligible:
		return http.StatusForbidden
	}
	return http.StatusBadRequest
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	return page, limit
}
