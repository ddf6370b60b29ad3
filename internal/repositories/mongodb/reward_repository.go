package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/ArowuTest/loyalty-ledger/internal/models"
	"github.com/ArowuTest/loyalty-ledger/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Compile-time check to ensure RewardRepository implements the interface
var _ repositories.RewardRepository = (*RewardRepository)(nil)

// RewardRepository handles MongoDB operations for Reward
type RewardRepository struct {
	collection *mongo.Collection
}

// NewRewardRepository creates a new RewardRepository
func NewRewardRepository(db *mongo.Database) *RewardRepository {
	return &RewardRepository{
		collection: db.Collection(rewardsCollection),
	}
}

// Create inserts a new reward
func (r *RewardRepository) Create(ctx context.Context, reward *models.Reward) error {
	reward.ID = primitive.NewObjectID()
	reward.CreatedAt = time.Now()
	reward.UpdatedAt = reward.CreatedAt
	_, err := r.collection.InsertOne(ctx, reward)
	return err
}

// FindByID finds a reward by ID
func (r *RewardRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Reward, error) {
	var reward models.Reward
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&reward)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &reward, nil
}

// FindAll lists the catalog cheapest first; ObjectIDs break ties in creation order.
func (r *RewardRepository) FindAll(ctx context.Context, activeOnly bool) ([]*models.Reward, error) {
	filter := bson.M{}
	if activeOnly {
		filter["isActive"] = true
	}
	opts := options.Find().SetSort(bson.D{{Key: "pointsRequired", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rewards []*models.Reward
	if err = cursor.All(ctx, &rewards); err != nil {
		return nil, err
	}
	if rewards == nil {
		rewards = []*models.Reward{}
	}
	return rewards, nil
}

// SetActive toggles whether a reward is offered.
func (r *RewardRepository) SetActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	update := bson.M{"$set": bson.M{"isActive": active, "updatedAt": time.Now()}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}
