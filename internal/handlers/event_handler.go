package handlers

import (
	"errors"
	"net/http"

	"github.com/ArowuTest/loyalty-ledger/internal/models"
	"github.com/ArowuTest/loyalty-ledger/internal/services"
	"github.com/gin-gonic/gin"
)

// EventHandler receives events and directory updates from other services
type EventHandler struct {
	orderService  services.OrderService
	pointService  services.PointService
	memberService services.MemberService
}

// NewEventHandler creates a new EventHandler
func NewEventHandler(orderService services.OrderService, pointService services.PointService, memberService services.MemberService) *EventHandler {
	return &EventHandler{
		orderService:  orderService,
		pointService:  pointService,
		memberService: memberService,
	}
}

// BonusRequest is the body of a bonus award
type BonusRequest struct {
	Kind        models.BonusKind `json:"kind" binding:"required"`
	ReferenceID string           `json:"referenceId"`
}

// OrderCompleted handles POST /events/order-completed
func (h *EventHandler) OrderCompleted(c *gin.Context) {
	var evt services.OrderCompleted
	if err := c.ShouldBindJSON(&evt); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	summary, err := h.orderService.ProcessOrderCompletion(c.Request.Context(), evt)
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusCreated
	if summary.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, summary)
}

// AwardBonus handles POST /members/:userId/bonuses
func (h *EventHandler) AwardBonus(c *gin.Context) {
	var req BonusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	lot, err := h.pointService.AwardBonus(c.Request.Context(), c.Param("userId"), req.Kind, req.ReferenceID)
	if errors.Is(err, services.ErrDuplicateEvent) {
		c.JSON(http.StatusOK, gin.H{"duplicate": true})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, lot)
}

// SyncMember handles PUT /members/:userId
func (h *EventHandler) SyncMember(c *gin.Context) {
	var req services.MemberSync
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	member, err := h.memberService.SyncMember(c.Request.Context(), c.Param("userId"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, member)
}

// GetMember handles GET /members/:userId
func (h *EventHandler) GetMember(c *gin.Context) {
	member, err := h.memberService.GetMember(c.Request.Context(), c.Param("userId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, member)
}
