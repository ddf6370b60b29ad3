package memory

import (
	"context"

	"github.com/ArowuTest/loyalty-ledger/internal/models"
	"github.com/ArowuTest/loyalty-ledger/internal/repositories"
)

var _ repositories.OrderRepository = (*OrderRepository)(nil)

// OrderRepository is an in-memory record of completed orders.
type OrderRepository struct {
	store *Store
}

// NewOrderRepository creates an OrderRepository over store.
func NewOrderRepository(store *Store) *OrderRepository {
	return &OrderRepository{store: store}
}

// Insert records a completion once per order id.
func (r *OrderRepository) Insert(ctx context.Context, order *models.OrderCompletion) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[order.OrderID]; ok {
		return repositories.ErrDuplicate
	}
	stored := *order
	s.orders[order.OrderID] = &stored
	return nil
}

// FindByID returns the completion recorded for orderID.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (*models.OrderCompletion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[orderID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := *o
	return &out, nil
}
