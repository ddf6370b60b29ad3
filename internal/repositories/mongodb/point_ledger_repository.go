package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ArowuTest/loyalty-ledger/internal/models"
	"github.com/ArowuTest/loyalty-ledger/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Compile-time check to ensure PointLedgerRepository implements the interface
var _ repositories.PointLedgerRepository = (*PointLedgerRepository)(nil)

// PointLedgerRepository handles MongoDB operations for point lots and
// point transactions. Multi-document writes run in a transaction, so the
// deployment must be a replica set.
type PointLedgerRepository struct {
	client       *mongo.Client
	lots         *mongo.Collection
	transactions *mongo.Collection
	rewards      *mongo.Collection
}

// NewPointLedgerRepository creates a new PointLedgerRepository
func NewPointLedgerRepository(db *mongo.Database) *PointLedgerRepository {
	return &PointLedgerRepository{
		client:       db.Client(),
		lots:         db.Collection(pointLotsCollection),
		transactions: db.Collection(pointTransactionsCollection),
		rewards:      db.Collection(rewardsCollection),
	}
}

// InsertLot writes the lot and its crediting transaction in one transaction.
func (r *PointLedgerRepository) InsertLot(ctx context.Context, lot *models.PointLot, txn *models.PointTransaction) error {
	lot.ID = primitive.NewObjectID()
	txn.ID = primitive.NewObjectID()
	txn.LotIDs = []primitive.ObjectID{lot.ID}

	err := r.withTransaction(ctx, func(sc mongo.SessionContext) error {
		if _, err := r.lots.InsertOne(sc, lot); err != nil {
			return err
		}
		_, err := r.transactions.InsertOne(sc, txn)
		return err
	})
	if mongo.IsDuplicateKeyError(err) {
		return repositories.ErrDuplicate
	}
	return err
}

// FindLotsByUserID returns every lot of the user, oldest expiry first.
func (r *PointLedgerRepository) FindLotsByUserID(ctx context.Context, userID string) ([]*models.PointLot, error) {
	opts := options.Find().SetSort(bson.D{{Key: "expiresAt", Value: 1}, {Key: "_id", Value: 1}})
	return r.findLots(ctx, bson.M{"userId": userID}, opts)
}

// FindExpiredLots finds lots past expiry that still hold points.
func (r *PointLedgerRepository) FindExpiredLots(ctx context.Context, asOf time.Time) ([]*models.PointLot, error) {
	filter := bson.M{
		"expiresAt": bson.M{"$lte": asOf},
		"remaining": bson.M{"$gt": 0},
	}
	opts := options.Find().SetSort(bson.D{{Key: "expiresAt", Value: 1}})
	return r.findLots(ctx, filter, opts)
}

func (r *PointLedgerRepository) findLots(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*models.PointLot, error) {
	cursor, err := r.lots.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var lots []*models.PointLot
	if err = cursor.All(ctx, &lots); err != nil {
		return nil, err
	}
	if lots == nil {
		lots = []*models.PointLot{}
	}
	return lots, nil
}

// CommitDrawdown applies the guarded lot decrements, the optional stock
// decrement and the transactions atomically. A guard that matches no
// document aborts the whole transaction.
func (r *PointLedgerRepository) CommitDrawdown(ctx context.Context, d *repositories.Drawdown) error {
	for _, txn := range d.Transactions {
		txn.ID = primitive.NewObjectID()
	}
	return r.withTransaction(ctx, func(sc mongo.SessionContext) error {
		for _, draw := range d.Draws {
			filter := bson.M{"_id": draw.LotID, "remaining": bson.M{"$gte": draw.Amount}}
			update := bson.M{"$inc": bson.M{"remaining": -draw.Amount}}
			result, err := r.lots.UpdateOne(sc, filter, update)
			if err != nil {
				return err
			}
			if result.MatchedCount == 0 {
				return fmt.Errorf("lot %s: %w", draw.LotID.Hex(), repositories.ErrConflict)
			}
		}
		if d.RewardID != nil {
			filter := bson.M{"_id": *d.RewardID, "stock": bson.M{"$gt": 0}}
			update := bson.M{
				"$inc": bson.M{"stock": -1},
				"$set": bson.M{"updatedAt": time.Now()},
			}
			result, err := r.rewards.UpdateOne(sc, filter, update)
			if err != nil {
				return err
			}
			if result.MatchedCount == 0 {
				return repositories.ErrOutOfStock
			}
		}
		if len(d.Transactions) > 0 {
			docs := make([]interface{}, 0, len(d.Transactions))
			for _, txn := range d.Transactions {
				docs = append(docs, txn)
			}
			if _, err := r.transactions.InsertMany(sc, docs); err != nil {
				return err
			}
		}
		return nil
	})
}

// FindTransactionsByUserID pages through a user's history newest first.
func (r *PointLedgerRepository) FindTransactionsByUserID(ctx context.Context, userID string, page, limit int) ([]*models.PointTransaction, error) {
	opts := pageOptions(page, limit).SetSort(bson.D{{Key: "occurredAt", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.transactions.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var transactions []*models.PointTransaction
	if err = cursor.All(ctx, &transactions); err != nil {
		return nil, err
	}
	if transactions == nil {
		transactions = []*models.PointTransaction{}
	}
	return transactions, nil
}

func (r *PointLedgerRepository) withTransaction(ctx context.Context, fn func(sc mongo.SessionContext) error) error {
	session, err := r.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.HasErrorLabel("TransientTransactionError") {
		return fmt.Errorf("%v: %w", err, repositories.ErrConflict)
	}
	return err
}
