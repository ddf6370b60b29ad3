package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CommissionStatus tracks payout of a commission.
type CommissionStatus string

const (
	CommissionPending CommissionStatus = "pending"
	CommissionPaid    CommissionStatus = "paid"
)

// Commission is the share of an order total credited to an upline.
// (OrderID, BeneficiaryID, Level) is unique.
type Commission struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	BeneficiaryID string             `bson:"beneficiaryId" json:"beneficiaryId"`
	SourceUserID  string             `bson:"sourceUserId" json:"sourceUserId"` // the buyer, never the intermediate upline
	Level         int                `bson:"level" json:"level"`
	Amount        int64              `bson:"amount" json:"amount"`
	OrderID       string             `bson:"orderId" json:"orderId"`
	OrderTotal    int64              `bson:"orderTotal" json:"orderTotal"`
	Rate          string             `bson:"rate" json:"rate"`
	Status        CommissionStatus   `bson:"status" json:"status"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	PaidAt        *time.Time         `bson:"paidAt,omitempty" json:"paidAt,omitempty"`
}

// ReferralSummary aggregates a member's downline for dashboards.
type ReferralSummary struct {
	UserID           string `json:"userId"`
	Level1Count      int    `json:"level1Count"`
	Level2Count      int    `json:"level2Count"`
	TotalCommissions int64  `json:"totalCommissions"`
}
