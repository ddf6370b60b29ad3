package handlers

import (
	"net/http"

	"github.com/ArowuTest/loyalty-ledger/internal/models"
	"github.com/ArowuTest/loyalty-ledger/internal/services"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RewardHandler handles the reward catalog and redemptions
type RewardHandler struct {
	rewardService services.RewardService
}

// NewRewardHandler creates a new RewardHandler
func NewRewardHandler(rewardService services.RewardService) *RewardHandler {
	return &RewardHandler{rewardService: rewardService}
}

// RedeemRequest is the body of a redemption
type RedeemRequest struct {
	RewardID string `json:"rewardId" binding:"required"`
}

// SetActiveRequest is the body of a catalog visibility change
type SetActiveRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

// GetCatalog handles GET /rewards?tier=
func (h *RewardHandler) GetCatalog(c *gin.Context) {
	rewards, err := h.rewardService.GetRewardCatalog(c.Request.Context(), models.Tier(c.Query("tier")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rewards": rewards})
}

// Redeem handles POST /members/:userId/redemptions
func (h *RewardHandler) Redeem(c *gin.Context) {
	var req RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	rewardID, err := primitive.ObjectIDFromHex(req.RewardID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid reward ID format"})
		return
	}

	result, err := h.rewardService.RedeemReward(c.Request.Context(), c.Param("userId"), rewardID)
	if err != nil {
		respondError(c, err)
		return
	}
	if !result.Success {
		c.JSON(redemptionStatus(result.Reason), result)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// CreateReward handles POST /admin/rewards
func (h *RewardHandler) CreateReward(c *gin.Context) {
	var reward models.Reward
	if err := c.ShouldBindJSON(&reward); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if err := h.rewardService.CreateReward(c.Request.Context(), &reward); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reward)
}

// SetRewardActive handles PATCH /admin/rewards/:id/active
func (h *RewardHandler) SetRewardActive(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}
	var req SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if err := h.rewardService.SetRewardActive(c.Request.Context(), id, *req.IsActive); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id.Hex(), "isActive": *req.IsActive})
}
