package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/ArowuTest/loyalty-ledger/internal/models"
	"github.com/ArowuTest/loyalty-ledger/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Compile-time check to ensure MemberRepository implements the interface
var _ repositories.MemberRepository = (*MemberRepository)(nil)

// MemberRepository reads the members collection kept in sync by the user directory.
type MemberRepository struct {
	collection *mongo.Collection
}

// NewMemberRepository creates a new MemberRepository
func NewMemberRepository(db *mongo.Database) *MemberRepository {
	return &MemberRepository{
		collection: db.Collection(membersCollection),
	}
}

// Upsert creates or replaces a member document.
func (r *MemberRepository) Upsert(ctx context.Context, member *models.Member) error {
	if member.CreatedAt.IsZero() {
		member.CreatedAt = time.Now()
	}
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": member.ID}, member, options.Replace().SetUpsert(true))
	return err
}

// FindByID finds a member by ID
func (r *MemberRepository) FindByID(ctx context.Context, id string) (*models.Member, error) {
	var member models.Member
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&member)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// FindByUplineIDs returns the direct downline of any of the given members.
func (r *MemberRepository) FindByUplineIDs(ctx context.Context, uplineIDs []string) ([]*models.Member, error) {
	if len(uplineIDs) == 0 {
		return []*models.Member{}, nil
	}
	cursor, err := r.collection.Find(ctx, bson.M{"uplineId": bson.M{"$in": uplineIDs}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var members []*models.Member
	if err = cursor.All(ctx, &members); err != nil {
		return nil, err
	}
	if members == nil {
		members = []*models.Member{}
	}
	return members, nil
}
