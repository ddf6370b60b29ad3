package mongodb

import (
	"context"
	"errors"

	"github.com/ArowuTest/loyalty-ledger/internal/models"
	"github.com/ArowuTest/loyalty-ledger/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Compile-time check to ensure OrderRepository implements the interface
var _ repositories.OrderRepository = (*OrderRepository)(nil)

// OrderRepository handles MongoDB operations for OrderCompletion
type OrderRepository struct {
	collection *mongo.Collection
}

// NewOrderRepository creates a new OrderRepository
func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{
		collection: db.Collection(orderCompletionsCollection),
	}
}

// Insert records a completion keyed by order id; a second insert is ErrDuplicate.
func (r *OrderRepository) Insert(ctx context.Context, order *models.OrderCompletion) error {
	_, err := r.collection.InsertOne(ctx, order)
	if mongo.IsDuplicateKeyError(err) {
		return repositories.ErrDuplicate
	}
	return err
}

// FindByID finds a completion by order ID
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (*models.OrderCompletion, error) {
	var order models.OrderCompletion
	err := r.collection.FindOne(ctx, bson.M{"_id": orderID}).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}
