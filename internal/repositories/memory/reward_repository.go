package memory

import (
	"context"
	"sort"
	"time"

	"github.com/ArowuTest/loyalty-ledger/internal/models"
	"github.com/ArowuTest/loyalty-ledger/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ repositories.RewardRepository = (*RewardRepository)(nil)

// RewardRepository is the in-memory reward catalog.
type RewardRepository struct {
	store *Store
}

// NewRewardRepository creates a RewardRepository over store.
func NewRewardRepository(store *Store) *RewardRepository {
	return &RewardRepository{store: store}
}

// Create adds a reward to the catalog.
func (r *RewardRepository) Create(ctx context.Context, reward *models.Reward) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	reward.ID = primitive.NewObjectID()
	reward.CreatedAt = time.Now()
	reward.UpdatedAt = reward.CreatedAt
	stored := *reward
	s.rewards[reward.ID] = &stored
	s.rewardOrder = append(s.rewardOrder, reward.ID)
	return nil
}

// FindByID returns a reward by id.
func (r *RewardRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Reward, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	reward, ok := s.rewards[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := *reward
	return &out, nil
}

// FindAll lists the catalog cheapest first, ties in creation order.
func (r *RewardRepository) FindAll(ctx context.Context, activeOnly bool) ([]*models.Reward, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	rewards := []*models.Reward{}
	for _, id := range s.rewardOrder {
		reward := s.rewards[id]
		if activeOnly && !reward.IsActive {
			continue
		}
		out := *reward
		rewards = append(rewards, &out)
	}
	sort.SliceStable(rewards, func(i, j int) bool {
		return rewards[i].PointsRequired < rewards[j].PointsRequired
	})
	return rewards, nil
}

// SetActive toggles whether a reward is offered.
func (r *RewardRepository) SetActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	reward, ok := s.rewards[id]
	if !ok {
		return repositories.ErrNotFound
	}
	reward.IsActive = active
	reward.UpdatedAt = time.Now()
	return nil
}
