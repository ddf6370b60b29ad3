package handlers

import (
	"net/http"
	"strconv"

	"github.com/ArowuTest/loyalty-ledger/internal/services"
	"github.com/gin-gonic/gin"
)

// LedgerHandler serves a member's points and referral earnings
type LedgerHandler struct {
	pointService      services.PointService
	commissionService services.CommissionService
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(pointService services.PointService, commissionService services.CommissionService) *LedgerHandler {
	return &LedgerHandler{
		pointService:      pointService,
		commissionService: commissionService,
	}
}

// GetBalance handles GET /members/:userId/balance
func (h *LedgerHandler) GetBalance(c *gin.Context) {
	userID := c.Param("userId")
	balance, err := h.pointService.BalanceOf(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"userId": userID, "balance": balance})
}

// GetTransactions handles GET /members/:userId/transactions
func (h *LedgerHandler) GetTransactions(c *gin.Context) {
	page, limit := pageParams(c)
	txns, err := h.pointService.GetTransactionHistory(c.Request.Context(), c.Param("userId"), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txns, "page": page})
}

// GetCommissions handles GET /members/:userId/commissions
func (h *LedgerHandler) GetCommissions(c *gin.Context) {
	page, limit := pageParams(c)
	commissions, err := h.commissionService.GetCommissions(c.Request.Context(), c.Param("userId"), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"commissions": commissions, "page": page})
}

// GetReferralSummary handles GET /members/:userId/referral-summary
func (h *LedgerHandler) GetReferralSummary(c *gin.Context) {
	summary, err := h.commissionService.GetReferralSummary(c.Request.Context(), c.Param("userId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// PreviewPoints handles GET /points/preview?amount=
func (h *LedgerHandler) PreviewPoints(c *gin.Context) {
	amount, err := strconv.ParseInt(c.Query("amount"), 10, 64)
	if err != nil || amount < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be a non-negative integer"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"amount": amount,
		"points": h.pointService.CalculatePotentialPoints(c.Request.Context(), amount),
	})
}
