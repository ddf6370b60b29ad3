package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ArowuTest/loyalty-ledger/internal/metrics"
	"github.com/ArowuTest/loyalty-ledger/internal/models"
	"github.com/ArowuTest/loyalty-ledger/internal/repositories"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slog"
)

// RedemptionFailure says why a redemption was refused.
type RedemptionFailure string

const (
	RedemptionNotFound           RedemptionFailure = "NotFound"
	RedemptionOutOfStock         RedemptionFailure = "OutOfStock"
	RedemptionInsufficientPoints RedemptionFailure = "InsufficientPoints"
	RedemptionTierNotEligible    RedemptionFailure = "TierNotEligible"
)

// Err maps the failure to its error sentinel.
func (f RedemptionFailure) Err() error {
	switch f {
	case RedemptionNotFound:
		return ErrNotFound
	case RedemptionOutOfStock:
		return ErrOutOfStock
	case RedemptionInsufficientPoints:
		return ErrInsufficientBalance
	case RedemptionTierNotEligible:
		return ErrTierIneligible
	}
	return nil
}

// RedemptionResult is the receipt of a reward redemption. On refusal only
// Reason and Message are set.
type RedemptionResult struct {
	Success       bool              `json:"success"`
	Reason        RedemptionFailure `json:"reason,omitempty"`
	Message       string            `json:"message,omitempty"`
	ReceiptNo     string            `json:"receiptNo,omitempty"`
	TransactionID string            `json:"transactionId,omitempty"`
	RewardID      string            `json:"rewardId,omitempty"`
	PointsSpent   int64             `json:"pointsSpent,omitempty"`
	BalanceAfter  int64             `json:"balanceAfter"`
}

func refused(reason RedemptionFailure, message string, balance int64) *RedemptionResult {
	return &RedemptionResult{Reason: reason, Message: message, BalanceAfter: balance}
}

var _ RewardService = (*RewardServiceImpl)(nil)

// RewardServiceImpl runs the reward catalog and point-for-reward exchange.
type RewardServiceImpl struct {
	rewards repositories.RewardRepository
	members repositories.MemberRepository
	points  *PointServiceImpl
	locks   *UserLocks
	metrics *metrics.LedgerMetrics
}

// NewRewardService creates a RewardServiceImpl sharing the point service's ledger and locks.
func NewRewardService(rewards repositories.RewardRepository, members repositories.MemberRepository, points *PointServiceImpl, m *metrics.LedgerMetrics) *RewardServiceImpl {
	return &RewardServiceImpl{
		rewards: rewards,
		members: members,
		points:  points,
		locks:   points.locks,
		metrics: m,
	}
}

// GetRewardCatalog lists active rewards, restricted to those the tier may
// redeem when tier is set.
func (s *RewardServiceImpl) GetRewardCatalog(ctx context.Context, tier models.Tier) ([]*models.Reward, error) {
	if !tier.IsValid() {
		return nil, invalid("tier", fmt.Sprintf("unknown tier %q", tier))
	}
	all, err := s.rewards.FindAll(ctx, true)
	if err != nil {
		return nil, storeError("load rewards", err)
	}
	if tier == "" {
		return all, nil
	}
	out := make([]*models.Reward, 0, len(all))
	for _, r := range all {
		if tier.Qualifies(r.MinTier) {
			out = append(out, r)
		}
	}
	return out, nil
}

// CreateReward adds a reward to the catalog.
func (s *RewardServiceImpl) CreateReward(ctx context.Context, reward *models.Reward) error {
	switch {
	case strings.TrimSpace(reward.Name) == "":
		return invalid("name", "must not be empty")
	case reward.PointsRequired <= 0:
		return invalid("pointsRequired", "must be positive")
	case reward.Stock < 0:
		return invalid("stock", "must not be negative")
	case !reward.Kind.IsValid():
		return invalid("kind", fmt.Sprintf("unknown reward kind %q", reward.Kind))
	case !reward.MinTier.IsValid():
		return invalid("minTier", fmt.Sprintf("unknown tier %q", reward.MinTier))
	}
	if err := s.rewards.Create(ctx, reward); err != nil {
		return storeError("create reward", err)
	}
	slog.Info("Reward created", "rewardId", reward.ID, "name", reward.Name, "kind", reward.Kind, "pointsRequired", reward.PointsRequired)
	return nil
}

// SetRewardActive shows or hides a reward.
func (s *RewardServiceImpl) SetRewardActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	err := s.rewards.SetActive(ctx, id, active)
	if errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("reward %s: %w", id.Hex(), ErrNotFound)
	}
	if err != nil {
		return storeError("update reward", err)
	}
	return nil
}

// RedeemReward exchanges points for a reward. Checks run in order: reward
// exists and is active, has stock, the member can afford it, the member's
// tier qualifies. Points and stock are committed together. Business
// refusals come back as a result with a reason and a nil error.
func (s *RewardServiceImpl) RedeemReward(ctx context.Context, userID string, rewardID primitive.ObjectID) (*RedemptionResult, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(userID)
	defer unlock()

	result, err := s.redeemLocked(ctx, userID, rewardID)
	switch {
	case err != nil:
		s.metrics.ObserveRedemption("error")
	case result.Success:
		s.metrics.ObserveRedemption("success")
	default:
		s.metrics.ObserveRedemption(string(result.Reason))
		slog.Warn("Redemption refused", "userId", userID, "rewardId", rewardID, "reason", result.Reason)
	}
	return result, err
}

func (s *RewardServiceImpl) redeemLocked(ctx context.Context, userID string, rewardID primitive.ObjectID) (*RedemptionResult, error) {
	balance, err := s.points.BalanceOf(ctx, userID)
	if err != nil {
		return nil, err
	}

	reward, err := s.rewards.FindByID(ctx, rewardID)
	if errors.Is(err, repositories.ErrNotFound) {
		return refused(RedemptionNotFound, "Reward does not exist", balance), nil
	}
	if err != nil {
		return nil, storeError("load reward", err)
	}
	if !reward.IsActive {
		return refused(RedemptionNotFound, "Reward is no longer offered", balance), nil
	}
	if reward.Stock <= 0 {
		return refused(RedemptionOutOfStock, fmt.Sprintf("%s is out of stock", reward.Name), balance), nil
	}
	if balance < reward.PointsRequired {
		return refused(RedemptionInsufficientPoints,
			fmt.Sprintf("%s needs %d points, balance is %d", reward.Name, reward.PointsRequired, balance), balance), nil
	}
	if reward.MinTier != "" {
		member, err := s.members.FindByID(ctx, userID)
		if errors.Is(err, repositories.ErrNotFound) {
			return refused(RedemptionNotFound, "Member does not exist", balance), nil
		}
		if err != nil {
			return nil, storeError("load member", err)
		}
		if !member.Tier.Qualifies(reward.MinTier) {
			return refused(RedemptionTierNotEligible,
				fmt.Sprintf("%s requires %s tier", reward.Name, reward.MinTier), balance), nil
		}
	}

	var stockID *primitive.ObjectID
	if reward.Kind.TracksStock() {
		stockID = &reward.ID
	}
	txn, after, err := s.points.drawdownLocked(ctx, userID, reward.PointsRequired, models.TransactionRedeem,
		"Redeem: "+reward.Name, reward.ID.Hex(), stockID)
	switch {
	case errors.Is(err, ErrInsufficientBalance):
		return refused(RedemptionInsufficientPoints, err.Error(), after), nil
	case errors.Is(err, ErrOutOfStock):
		return refused(RedemptionOutOfStock, fmt.Sprintf("%s is out of stock", reward.Name), balance), nil
	case errors.Is(err, ErrNotFound):
		return refused(RedemptionNotFound, "Reward does not exist", balance), nil
	case err != nil:
		return nil, err
	}

	slog.Info("Reward redeemed", "userId", userID, "rewardId", reward.ID, "points", reward.PointsRequired, "transactionId", txn.ID)
	return &RedemptionResult{
		Success:       true,
		ReceiptNo:     uuid.NewString(),
		TransactionID: txn.ID.Hex(),
		RewardID:      reward.ID.Hex(),
		PointsSpent:   reward.PointsRequired,
		BalanceAfter:  after,
	}, nil
}
