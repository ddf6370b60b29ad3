package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	pointLotsCollection         = "point_lots"
	pointTransactionsCollection = "point_transactions"
	commissionsCollection       = "commissions"
	rewardsCollection           = "rewards"
	loyaltyRulesCollection      = "loyalty_rules"
	membersCollection           = "members"
	orderCompletionsCollection  = "order_completions"
)

// EnsureIndexes creates the secondary and idempotency indexes the
// repositories rely on. It is safe to call on every start.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		pointLotsCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "expiresAt", Value: 1}}},
			{Keys: bson.D{{Key: "expiresAt", Value: 1}, {Key: "remaining", Value: 1}}},
			{
				Keys: bson.D{{Key: "sourceKey", Value: 1}},
				Options: options.Index().SetUnique(true).
					SetPartialFilterExpression(bson.M{"sourceKey": bson.M{"$type": "string"}}),
			},
		},
		pointTransactionsCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "occurredAt", Value: -1}}},
		},
		commissionsCollection: {
			{Keys: bson.D{{Key: "beneficiaryId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{
				Keys:    bson.D{{Key: "orderId", Value: 1}, {Key: "beneficiaryId", Value: 1}, {Key: "level", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		membersCollection: {
			{Keys: bson.D{{Key: "uplineId", Value: 1}}},
		},
	}
	for name, models := range specs {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}

func pageOptions(page, limit int) *options.FindOptions {
	if page < 1 {
		page = 1
	}
	return options.Find().
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))
}
