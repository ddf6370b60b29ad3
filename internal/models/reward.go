package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RewardKind is the variant of a catalog reward.
type RewardKind string

const (
	RewardVoucher      RewardKind = "voucher"
	RewardPhysicalItem RewardKind = "physical_item"
)

// IsValid reports whether k is a known reward kind.
func (k RewardKind) IsValid() bool {
	return k == RewardVoucher || k == RewardPhysicalItem
}

// TracksStock reports whether redeeming this kind consumes a unit of stock.
func (k RewardKind) TracksStock() bool {
	return k == RewardPhysicalItem
}

// Reward is an item members can exchange points for.
type Reward struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name           string             `bson:"name" json:"name" binding:"required"`
	Description    string             `bson:"description,omitempty" json:"description,omitempty"`
	PointsRequired int64              `bson:"pointsRequired" json:"pointsRequired" binding:"required,gt=0"`
	Stock          int64              `bson:"stock" json:"stock" binding:"gte=0"`
	Kind           RewardKind         `bson:"kind" json:"kind" binding:"required"`
	VoucherValue   int64              `bson:"voucherValue,omitempty" json:"voucherValue,omitempty"`
	IsActive       bool               `bson:"isActive" json:"isActive"`
	MinTier        Tier               `bson:"minTier,omitempty" json:"minTier,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}
