package memory

import (
	"context"
	"time"

	"github.com/ArowuTest/loyalty-ledger/internal/models"
	"github.com/ArowuTest/loyalty-ledger/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ repositories.CommissionRepository = (*CommissionRepository)(nil)

// CommissionRepository is the in-memory commission store.
type CommissionRepository struct {
	store *Store
}

// NewCommissionRepository creates a CommissionRepository over store.
func NewCommissionRepository(store *Store) *CommissionRepository {
	return &CommissionRepository{store: store}
}

// Create inserts a commission unless its idempotency key exists.
func (r *CommissionRepository) Create(ctx context.Context, c *models.Commission) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	key := commissionKey{orderID: c.OrderID, beneficiaryID: c.BeneficiaryID, level: c.Level}
	if _, seen := s.commKeys[key]; seen {
		return repositories.ErrDuplicate
	}
	c.ID = primitive.NewObjectID()
	stored := *c
	s.commissions[c.ID] = &stored
	s.commKeys[key] = c.ID
	s.commOrder = append(s.commOrder, c.ID)
	return nil
}

// FindByID returns a commission by id.
func (r *CommissionRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Commission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.commissions[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := *c
	return &out, nil
}

// FindByBeneficiaryID pages through an upline's commissions newest first.
func (r *CommissionRepository) FindByBeneficiaryID(ctx context.Context, beneficiaryID string, page, limit int) ([]*models.Commission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var mine []*models.Commission
	for i := len(s.commOrder) - 1; i >= 0; i-- {
		c := s.commissions[s.commOrder[i]]
		if c.BeneficiaryID == beneficiaryID {
			mine = append(mine, c)
		}
	}
	out := []*models.Commission{}
	for _, c := range paginate(mine, page, limit) {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

// SumByBeneficiaryID totals every commission credited to beneficiaryID.
func (r *CommissionRepository) SumByBeneficiaryID(ctx context.Context, beneficiaryID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64
	for _, c := range s.commissions {
		if c.BeneficiaryID == beneficiaryID {
			total += c.Amount
		}
	}
	return total, nil
}

// MarkPaid flips a pending commission to paid.
func (r *CommissionRepository) MarkPaid(ctx context.Context, id primitive.ObjectID, paidAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.commissions[id]
	if !ok {
		return repositories.ErrNotFound
	}
	if c.Status == models.CommissionPaid {
		return repositories.ErrConflict
	}
	c.Status = models.CommissionPaid
	c.PaidAt = &paidAt
	return nil
}
