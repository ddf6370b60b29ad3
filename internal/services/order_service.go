package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ArowuTest/loyalty-ledger/internal/metrics"
	"github.com/ArowuTest/loyalty-ledger/internal/models"
	"github.com/ArowuTest/loyalty-ledger/internal/repositories"
	"golang.org/x/exp/slog"
)

// OrderCompleted is emitted by checkout once payment is captured.
type OrderCompleted struct {
	OrderID     string `json:"orderId" binding:"required"`
	BuyerID     string `json:"buyerId" binding:"required"`
	TotalAmount int64  `json:"totalAmount" binding:"required,gt=0"`
}

// OrderSummary reports what an order completion produced.
type OrderSummary struct {
	OrderID      string               `json:"orderId"`
	BuyerID      string               `json:"buyerId"`
	PointsEarned int64                `json:"pointsEarned"`
	Lot          *models.PointLot     `json:"lot,omitempty"`
	Commissions  []*models.Commission `json:"commissions"`
	// Replayed is true when the order was already completed; commissions are
	// still re-checked so a previously interrupted delivery completes.
	Replayed bool `json:"replayed"`
}

var _ OrderService = (*OrderServiceImpl)(nil)

// OrderServiceImpl reacts to completed orders: buyer points first, then the upline split.
type OrderServiceImpl struct {
	orders      repositories.OrderRepository
	points      *PointServiceImpl
	commissions *CommissionServiceImpl
	resolver    UplineResolver
	locks       *UserLocks
	metrics     *metrics.LedgerMetrics
}

// NewOrderService creates an OrderServiceImpl.
func NewOrderService(orders repositories.OrderRepository, points *PointServiceImpl, commissions *CommissionServiceImpl,
	resolver UplineResolver, m *metrics.LedgerMetrics) *OrderServiceImpl {
	return &OrderServiceImpl{
		orders:      orders,
		points:      points,
		commissions: commissions,
		resolver:    resolver,
		locks:       points.locks,
		metrics:     m,
	}
}

// ProcessOrderCompletion records the buyer's earn lot and distributes
// commissions while holding the buyer's lock. A replayed order is a
// success with Replayed set.
func (s *OrderServiceImpl) ProcessOrderCompletion(ctx context.Context, evt OrderCompleted) (*OrderSummary, error) {
	if strings.TrimSpace(evt.OrderID) == "" {
		return nil, invalid("orderId", "must not be empty")
	}
	if err := validateUser(evt.BuyerID); err != nil {
		return nil, err
	}
	if evt.TotalAmount <= 0 {
		return nil, invalid("totalAmount", "must be positive")
	}

	unlock := s.locks.Lock(evt.BuyerID)
	defer unlock()

	replayed, err := s.claimOrder(ctx, evt)
	if err != nil {
		if IsValidation(err) {
			s.metrics.ObserveOrder("conflict")
		} else {
			s.metrics.ObserveOrder("error")
		}
		return nil, err
	}

	summary := &OrderSummary{OrderID: evt.OrderID, BuyerID: evt.BuyerID, Replayed: replayed}
	lot, err := s.points.earnForOrderLocked(ctx, evt.OrderID, evt.BuyerID, evt.TotalAmount)
	switch {
	case errors.Is(err, ErrDuplicateEvent):
		summary.Replayed = true
		slog.Info("Order already credited, re-checking commissions", "orderId", evt.OrderID, "buyerId", evt.BuyerID)
	case err != nil:
		s.metrics.ObserveOrder("error")
		return nil, err
	case lot != nil:
		summary.Lot = lot
		summary.PointsEarned = lot.Amount
	}

	created, err := s.commissions.DistributeCommissions(ctx, evt.OrderID, evt.BuyerID, evt.TotalAmount, s.resolver)
	summary.Commissions = created
	if err != nil {
		s.metrics.ObserveOrder("error")
		slog.Error("Commission distribution failed", "error", err, "orderId", evt.OrderID, "buyerId", evt.BuyerID)
		return summary, err
	}

	if summary.Replayed {
		s.metrics.ObserveOrder("replayed")
	} else {
		s.metrics.ObserveOrder("processed")
	}
	slog.Info("Order completion processed", "orderId", evt.OrderID, "buyerId", evt.BuyerID,
		"pointsEarned", summary.PointsEarned, "commissions", len(created), "replayed", summary.Replayed)
	return summary, nil
}

// claimOrder records the first completion of an order. A later event for
// the same order id is a replay only if buyer and total match; anything
// else is rejected before points or commissions are written.
func (s *OrderServiceImpl) claimOrder(ctx context.Context, evt OrderCompleted) (bool, error) {
	record := &models.OrderCompletion{
		OrderID:     evt.OrderID,
		BuyerID:     evt.BuyerID,
		TotalAmount: evt.TotalAmount,
		CompletedAt: s.points.clock.Now(),
	}
	err := s.orders.Insert(ctx, record)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, repositories.ErrDuplicate) {
		return false, storeError("record order completion", err)
	}

	existing, err := s.orders.FindByID(ctx, evt.OrderID)
	if err != nil {
		return false, storeError("load order completion", err)
	}
	if !existing.Matches(evt.BuyerID, evt.TotalAmount) {
		slog.Warn("Conflicting completion for order", "orderId", evt.OrderID,
			"buyerId", evt.BuyerID, "totalAmount", evt.TotalAmount,
			"recordedBuyerId", existing.BuyerID, "recordedTotal", existing.TotalAmount)
		return false, invalid("orderId", fmt.Sprintf("order %s was already completed with a different buyer or total", evt.OrderID))
	}
	return true, nil
}
