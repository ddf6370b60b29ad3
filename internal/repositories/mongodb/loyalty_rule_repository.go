package mongodb

import (
	"context"
	"errors"

	"github.com/ArowuTest/loyalty-ledger/internal/models"
	"github.com/ArowuTest/loyalty-ledger/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Compile-time check to ensure LoyaltyRuleRepository implements the interface
var _ repositories.LoyaltyRuleRepository = (*LoyaltyRuleRepository)(nil)

// LoyaltyRuleRepository handles the single-row loyalty_rules collection.
type LoyaltyRuleRepository struct {
	collection *mongo.Collection
}

// NewLoyaltyRuleRepository creates a new LoyaltyRuleRepository
func NewLoyaltyRuleRepository(db *mongo.Database) *LoyaltyRuleRepository {
	return &LoyaltyRuleRepository{
		collection: db.Collection(loyaltyRulesCollection),
	}
}

// Get retrieves the current loyalty rule.
func (r *LoyaltyRuleRepository) Get(ctx context.Context) (*models.LoyaltyRule, error) {
	var rule models.LoyaltyRule
	err := r.collection.FindOne(ctx, bson.M{"_id": models.LoyaltyRuleID}).Decode(&rule)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// Save replaces the rule document guarded by its previous version. The
// first version is inserted via upsert; a concurrent first insert loses
// on the _id key.
func (r *LoyaltyRuleRepository) Save(ctx context.Context, rule *models.LoyaltyRule) error {
	rule.ID = models.LoyaltyRuleID
	filter := bson.M{"_id": models.LoyaltyRuleID, "version": rule.Version - 1}
	result, err := r.collection.ReplaceOne(ctx, filter, rule, options.Replace().SetUpsert(rule.Version == 1))
	if mongo.IsDuplicateKeyError(err) {
		return repositories.ErrConflict
	}
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 && result.UpsertedCount == 0 {
		return repositories.ErrConflict
	}
	return nil
}
