package services

import (
	"context"
	"time"

	"github.com/ArowuTest/loyalty-ledger/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PointService defines point accounting operations
type PointService interface {
	// RecordEarn credits amount points as a new lot expiring after the configured window
	RecordEarn(ctx context.Context, userID string, amount int64, reason, referenceID string) (*models.PointLot, error)

	// AwardBonus credits a configured bonus once per (kind, user, reference)
	AwardBonus(ctx context.Context, userID string, kind models.BonusKind, referenceID string) (*models.PointLot, error)

	// AdjustPoints applies an admin correction, positive or negative
	AdjustPoints(ctx context.Context, userID string, delta int64, description string) (*models.PointTransaction, error)

	// BalanceOf returns the unexpired points of a user
	BalanceOf(ctx context.Context, userID string) (int64, error)

	// RedeemPoints spends points oldest-expiring first, all or nothing
	RedeemPoints(ctx context.Context, userID string, amount int64, reason, referenceID string) (*models.PointTransaction, error)

	// RunExpiryCheck zeroes lots expired by asOf and returns how many it zeroed
	RunExpiryCheck(ctx context.Context, asOf time.Time) (int, error)

	// CalculatePotentialPoints previews the points an order total would earn
	CalculatePotentialPoints(ctx context.Context, orderTotal int64) int64

	// GetTransactionHistory pages through a user's ledger, newest first
	GetTransactionHistory(ctx context.Context, userID string, page, limit int) ([]*models.PointTransaction, error)
}

// CommissionService defines referral commission operations
type CommissionService interface {
	DistributeCommissions(ctx context.Context, orderID, buyerID string, orderTotal int64, resolve UplineResolver) ([]*models.Commission, error)
	GetCommissions(ctx context.Context, beneficiaryID string, page, limit int) ([]*models.Commission, error)
	MarkPaid(ctx context.Context, id primitive.ObjectID) (*models.Commission, error)
	GetReferralSummary(ctx context.Context, userID string) (*models.ReferralSummary, error)
}

// RewardService defines reward catalog and redemption operations
type RewardService interface {
	GetRewardCatalog(ctx context.Context, tier models.Tier) ([]*models.Reward, error)
	CreateReward(ctx context.Context, reward *models.Reward) error
	SetRewardActive(ctx context.Context, id primitive.ObjectID, active bool) error
	RedeemReward(ctx context.Context, userID string, rewardID primitive.ObjectID) (*RedemptionResult, error)
}

// RuleService defines loyalty rule configuration operations
type RuleService interface {
	GetRules(ctx context.Context) (*models.LoyaltyRule, error)
	UpdateRules(ctx context.Context, patch models.LoyaltyRulePatch) (*models.LoyaltyRule, error)
	Reload(ctx context.Context) (*models.LoyaltyRule, error)
}

// OrderService defines the reaction to completed orders
type OrderService interface {
	ProcessOrderCompletion(ctx context.Context, evt OrderCompleted) (*OrderSummary, error)
}

// MemberService defines the user directory mirror
type MemberService interface {
	SyncMember(ctx context.Context, userID string, in MemberSync) (*models.Member, error)
	GetMember(ctx context.Context, userID string) (*models.Member, error)
}
