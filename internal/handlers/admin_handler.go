package handlers

import (
	"net/http"
	"time"

	"github.com/ArowuTest/loyalty-ledger/internal/models"
	"github.com/ArowuTest/loyalty-ledger/internal/services"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slog"
)

// AdminHandler handles loyalty program administration
type AdminHandler struct {
	ruleService       services.RuleService
	pointService      services.PointService
	commissionService services.CommissionService
	clock             services.Clock
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(ruleService services.RuleService, pointService services.PointService,
	commissionService services.CommissionService, clock services.Clock) *AdminHandler {
	return &AdminHandler{
		ruleService:       ruleService,
		pointService:      pointService,
		commissionService: commissionService,
		clock:             clock,
	}
}

// ExpiryCheckRequest optionally backdates or forward-dates an expiry run
type ExpiryCheckRequest struct {
	AsOf *time.Time `json:"asOf"`
}

// AdjustmentRequest is the body of a manual point correction
type AdjustmentRequest struct {
	Delta       int64  `json:"delta" binding:"required"`
	Description string `json:"description" binding:"required"`
}

// GetRules handles GET /admin/loyalty-rules
func (h *AdminHandler) GetRules(c *gin.Context) {
	rules, err := h.ruleService.GetRules(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rules)
}

// UpdateRules handles PATCH /admin/loyalty-rules
func (h *AdminHandler) UpdateRules(c *gin.Context) {
	var patch models.LoyaltyRulePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	rules, err := h.ruleService.UpdateRules(c.Request.Context(), patch)
	if err != nil {
		respondError(c, err)
		return
	}
	slog.Info("Loyalty rules updated", "version", rules.Version, "by", c.GetString("userID"))
	c.JSON(http.StatusOK, rules)
}

// RunExpiryCheck handles POST /admin/expiry-check
func (h *AdminHandler) RunExpiryCheck(c *gin.Context) {
	var req ExpiryCheckRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}
	}
	asOf := h.clock.Now()
	if req.AsOf != nil {
		asOf = *req.AsOf
	}
	expired, err := h.pointService.RunExpiryCheck(c.Request.Context(), asOf)
	if err != nil {
		// Lots expired before the failure stay expired; a rerun picks up the rest.
		slog.Error("Expiry check incomplete", "error", err, "expired", expired)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"asOf": asOf, "expiredLots": expired})
}

// MarkCommissionPaid handles POST /admin/commissions/:id/paid
func (h *AdminHandler) MarkCommissionPaid(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}
	commission, err := h.commissionService.MarkPaid(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, commission)
}

// AdjustPoints handles POST /admin/members/:userId/adjustments
func (h *AdminHandler) AdjustPoints(c *gin.Context) {
	var req AdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	txn, err := h.pointService.AdjustPoints(c.Request.Context(), c.Param("userId"), req.Delta, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, txn)
}
