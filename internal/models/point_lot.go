package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PointLot is a single credit of points tracked separately so that later
// redemptions and expiries can be attributed to it oldest-first.
// Only Remaining ever changes after the lot is written, and only downwards.
type PointLot struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID    string             `bson:"userId" json:"userId"`
	Kind      TransactionKind    `bson:"kind" json:"kind"`
	Amount    int64              `bson:"amount" json:"amount"`
	Remaining int64              `bson:"remaining" json:"remaining"`
	Reason    string             `bson:"reason" json:"reason"`
	// SourceKey deduplicates credits that must happen once, e.g. "order:<id>".
	SourceKey string    `bson:"sourceKey,omitempty" json:"-"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	ExpiresAt time.Time `bson:"expiresAt" json:"expiresAt"`
}

// IsExpired reports whether the lot can no longer be spent at asOf.
func (l *PointLot) IsExpired(asOf time.Time) bool {
	return !l.ExpiresAt.After(asOf)
}

// Available returns the spendable points of the lot at asOf.
func (l *PointLot) Available(asOf time.Time) int64 {
	if l.IsExpired(asOf) || l.Remaining <= 0 {
		return 0
	}
	return l.Remaining
}
