package memory

import (
	"context"

	"github.com/ArowuTest/loyalty-ledger/internal/models"
	"github.com/ArowuTest/loyalty-ledger/internal/repositories"
)

var _ repositories.LoyaltyRuleRepository = (*LoyaltyRuleRepository)(nil)

// LoyaltyRuleRepository keeps the loyalty rule document in memory.
type LoyaltyRuleRepository struct {
	store *Store
}

// NewLoyaltyRuleRepository creates a LoyaltyRuleRepository over store.
func NewLoyaltyRuleRepository(store *Store) *LoyaltyRuleRepository {
	return &LoyaltyRuleRepository{store: store}
}

// Get returns the stored rule or ErrNotFound before the first Save.
func (r *LoyaltyRuleRepository) Get(ctx context.Context) (*models.LoyaltyRule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.rule == nil {
		return nil, repositories.ErrNotFound
	}
	out := *s.rule
	return &out, nil
}

// Save replaces the rule if the caller saw the latest version.
func (r *LoyaltyRuleRepository) Save(ctx context.Context, rule *models.LoyaltyRule) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var current int64
	if s.rule != nil {
		current = s.rule.Version
	}
	if rule.Version != current+1 {
		return repositories.ErrConflict
	}
	stored := *rule
	stored.ID = models.LoyaltyRuleID
	s.rule = &stored
	return nil
}
