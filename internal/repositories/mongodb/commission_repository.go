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
)

// Compile-time check to ensure CommissionRepository implements the interface
var _ repositories.CommissionRepository = (*CommissionRepository)(nil)

// CommissionRepository handles MongoDB operations for Commission
type CommissionRepository struct {
	collection *mongo.Collection
}

// NewCommissionRepository creates a new CommissionRepository
func NewCommissionRepository(db *mongo.Database) *CommissionRepository {
	return &CommissionRepository{
		collection: db.Collection(commissionsCollection),
	}
}

// Create inserts a commission; the unique (orderId, beneficiaryId, level)
// index turns a replay into ErrDuplicate.
func (r *CommissionRepository) Create(ctx context.Context, c *models.Commission) error {
	c.ID = primitive.NewObjectID()
	_, err := r.collection.InsertOne(ctx, c)
	if mongo.IsDuplicateKeyError(err) {
		return repositories.ErrDuplicate
	}
	return err
}

// FindByID finds a commission by ID
func (r *CommissionRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Commission, error) {
	var c models.Commission
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// FindByBeneficiaryID pages through an upline's commissions newest first.
func (r *CommissionRepository) FindByBeneficiaryID(ctx context.Context, beneficiaryID string, page, limit int) ([]*models.Commission, error) {
	opts := pageOptions(page, limit).SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"beneficiaryId": beneficiaryID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var commissions []*models.Commission
	if err = cursor.All(ctx, &commissions); err != nil {
		return nil, err
	}
	if commissions == nil {
		commissions = []*models.Commission{}
	}
	return commissions, nil
}

// SumByBeneficiaryID totals every commission credited to beneficiaryID.
func (r *CommissionRepository) SumByBeneficiaryID(ctx context.Context, beneficiaryID string) (int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"beneficiaryId": beneficiaryID}}},
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$amount"}}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Total int64 `bson:"total"`
	}
	if err = cursor.All(ctx, &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Total, nil
}

// MarkPaid flips a pending commission to paid.
func (r *CommissionRepository) MarkPaid(ctx context.Context, id primitive.ObjectID, paidAt time.Time) error {
	filter := bson.M{"_id": id, "status": models.CommissionPending}
	update := bson.M{"$set": bson.M{"status": models.CommissionPaid, "paidAt": paidAt}}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
		return repositories.ErrConflict
	}
	return nil
}
