package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/ArowuTest/loyalty-ledger/internal/models"
	"github.com/ArowuTest/loyalty-ledger/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ repositories.PointLedgerRepository = (*PointLedgerRepository)(nil)

// PointLedgerRepository is the in-memory point ledger.
type PointLedgerRepository struct {
	store *Store
}

// NewPointLedgerRepository creates a PointLedgerRepository over store.
func NewPointLedgerRepository(store *Store) *PointLedgerRepository {
	return &PointLedgerRepository{store: store}
}

// InsertLot stores a lot and its crediting transaction.
func (r *PointLedgerRepository) InsertLot(ctx context.Context, lot *models.PointLot, txn *models.PointTransaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if lot.SourceKey != "" {
		if _, seen := s.sourceKeys[lot.SourceKey]; seen {
			return repositories.ErrDuplicate
		}
	}
	lot.ID = primitive.NewObjectID()
	txn.ID = primitive.NewObjectID()
	txn.LotIDs = []primitive.ObjectID{lot.ID}

	stored := *lot
	s.lots[lot.ID] = &stored
	s.lotOrder = append(s.lotOrder, lot.ID)
	if lot.SourceKey != "" {
		s.sourceKeys[lot.SourceKey] = lot.ID
	}
	s.transactions = append(s.transactions, cloneTransaction(txn))
	return nil
}

// FindLotsByUserID returns copies of every lot of the user in insertion order.
func (r *PointLedgerRepository) FindLotsByUserID(ctx context.Context, userID string) ([]*models.PointLot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	lots := []*models.PointLot{}
	for _, id := range s.lotOrder {
		lot := s.lots[id]
		if lot.UserID == userID {
			c := *lot
			lots = append(lots, &c)
		}
	}
	return lots, nil
}

// FindExpiredLots returns lots past expiry that still hold points.
func (r *PointLedgerRepository) FindExpiredLots(ctx context.Context, asOf time.Time) ([]*models.PointLot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	lots := []*models.PointLot{}
	for _, id := range s.lotOrder {
		lot := s.lots[id]
		if lot.Remaining > 0 && lot.IsExpired(asOf) {
			c := *lot
			lots = append(lots, &c)
		}
	}
	return lots, nil
}

// CommitDrawdown validates every guard before touching state, so a failed
// drawdown leaves the store unchanged.
func (r *PointLedgerRepository) CommitDrawdown(ctx context.Context, d *repositories.Drawdown) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	need := make(map[primitive.ObjectID]int64, len(d.Draws))
	for _, draw := range d.Draws {
		if draw.Amount <= 0 {
			return fmt.Errorf("draw of %d points from lot %s: %w", draw.Amount, draw.LotID.Hex(), repositories.ErrConflict)
		}
		need[draw.LotID] += draw.Amount
	}
	for id, amount := range need {
		lot, ok := s.lots[id]
		if !ok {
			return fmt.Errorf("lot %s: %w", id.Hex(), repositories.ErrNotFound)
		}
		if lot.Remaining < amount {
			return fmt.Errorf("lot %s holds %d, need %d: %w", id.Hex(), lot.Remaining, amount, repositories.ErrConflict)
		}
	}
	var reward *models.Reward
	if d.RewardID != nil {
		var ok bool
		reward, ok = s.rewards[*d.RewardID]
		if !ok {
			return fmt.Errorf("reward %s: %w", d.RewardID.Hex(), repositories.ErrNotFound)
		}
		if reward.Stock <= 0 {
			return repositories.ErrOutOfStock
		}
	}

	for id, amount := range need {
		s.lots[id].Remaining -= amount
	}
	if reward != nil {
		reward.Stock--
		reward.UpdatedAt = time.Now()
	}
	for _, txn := range d.Transactions {
		txn.ID = primitive.NewObjectID()
		s.transactions = append(s.transactions, cloneTransaction(txn))
	}
	return nil
}

// FindTransactionsByUserID pages through a user's history newest first.
func (r *PointLedgerRepository) FindTransactionsByUserID(ctx context.Context, userID string, page, limit int) ([]*models.PointTransaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var mine []*models.PointTransaction
	for i := len(s.transactions) - 1; i >= 0; i-- {
		if s.transactions[i].UserID == userID {
			mine = append(mine, s.transactions[i])
		}
	}
	out := []*models.PointTransaction{}
	for _, txn := range paginate(mine, page, limit) {
		out = append(out, cloneTransaction(txn))
	}
	return out, nil
}

func cloneTransaction(txn *models.PointTransaction) *models.PointTransaction {
	c := *txn
	if txn.LotIDs != nil {
		c.LotIDs = append([]primitive.ObjectID(nil), txn.LotIDs...)
	}
	return &c
}
