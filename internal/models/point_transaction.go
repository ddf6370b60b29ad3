package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TransactionKind classifies a line in a member's point history.
type TransactionKind string

const (
	TransactionEarn       TransactionKind = "earn"
	TransactionRedeem     TransactionKind = "redeem"
	TransactionExpire     TransactionKind = "expire"
	TransactionBonus      TransactionKind = "bonus"
	TransactionAdjustment TransactionKind = "adjustment"
)

// PointTransaction is a user-visible, append-only ledger line.
// Amount is signed: credits are positive, redemptions and expiries negative.
type PointTransaction struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"id,omitempty"`
	UserID      string               `bson:"userId" json:"userId"`
	Kind        TransactionKind      `bson:"kind" json:"kind"`
	Amount      int64                `bson:"amount" json:"amount"`
	Description string               `bson:"description" json:"description"`
	ReferenceID string               `bson:"referenceId,omitempty" json:"referenceId,omitempty"` // order, reward or bonus reference
	LotIDs      []primitive.ObjectID `bson:"lotIds,omitempty" json:"lotIds,omitempty"`           // lots created or drawn down
	OccurredAt  time.Time            `bson:"occurredAt" json:"occurredAt"`
}
