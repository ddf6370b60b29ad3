package services

import (
	"testing"

	"github.com/ArowuTest/loyalty-ledger/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

func (f *fixture) reward(t *testing.T, name string, points, stock int64, kind models.RewardKind, minTier models.Tier) *models.Reward {
	t.Helper()
	r := &models.Reward{
		Name:           name,
		PointsRequired: points,
		Stock:          stock,
		Kind:           kind,
		IsActive:       true,
		MinTier:        minTier,
	}
	require.NoError(t, f.rewards.CreateReward(f.ctx, r))
	return r
}

func (f *fixture) stockOf(t *testing.T, id primitive.ObjectID) int64 {
	t.Helper()
	r, err := f.rewardRepo.FindByID(f.ctx, id)
	require.NoError(t, err)
	return r.Stock
}

func TestRedeemRewardSpendsPointsAndStockTogether(t *testing.T) {
	f := newFixture(t)
	f.member(t, "u1", "", models.TierRegular)
	f.earn(t, "u1", 500)
	mug := f.reward(t, "Mug", 300, 2, models.RewardPhysicalItem, "")

	result, err := f.rewards.RedeemReward(f.ctx, "u1", mug.ID)
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.NotEmpty(t, result.ReceiptNo)
	assert.NotEmpty(t, result.TransactionID)
	assert.Equal(t, mug.ID.Hex(), result.RewardID)
	assert.Equal(t, int64(300), result.PointsSpent)
	assert.Equal(t, int64(200), result.BalanceAfter)

	assert.Equal(t, int64(1), f.stockOf(t, mug.ID))
	assert.Equal(t, int64(200), f.balance(t, "u1"))

	latest := f.history(t, "u1")[0]
	assert.Equal(t, models.TransactionRedeem, latest.Kind)
	assert.Equal(t, "Redeem: Mug", latest.Description)
	assert.Equal(t, mug.ID.Hex(), latest.ReferenceID)
	assert.Equal(t, int64(-300), latest.Amount)
}

func TestRedeemVoucherKeepsStock(t *testing.T) {
	f := newFixture(t)
	f.earn(t, "u1", 500)
	voucher := f.reward(t, "10% off", 100, 5, models.RewardVoucher, "")

	result, err := f.rewards.RedeemReward(f.ctx, "u1", voucher.ID)
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, int64(5), f.stockOf(t, voucher.ID))
	assert.Equal(t, int64(400), f.balance(t, "u1"))
}

func TestRedeemRewardRefusals(t *testing.T) {
	f := newFixture(t)
	f.member(t, "silver", "", models.TierSilver)
	f.earn(t, "silver", 500)
	f.earn(t, "ghost", 500)

	soldOut := f.reward(t, "Poster", 100, 0, models.RewardPhysicalItem, "")
	pricey := f.reward(t, "Bike", 10_000, 3, models.RewardPhysicalItem, "")
	goldOnly := f.reward(t, "Lounge pass", 100, 3, models.RewardVoucher, models.TierGold)
	retired := f.reward(t, "Old mug", 100, 3, models.RewardPhysicalItem, "")
	require.NoError(t, f.rewards.SetRewardActive(f.ctx, retired.ID, false))

	tests := []struct {
		name     string
		userID   string
		rewardID primitive.ObjectID
		want     RedemptionFailure
	}{
		{name: "unknown reward", userID: "silver", rewardID: primitive.NewObjectID(), want: RedemptionNotFound},
		{name: "inactive reward", userID: "silver", rewardID: retired.ID, want: RedemptionNotFound},
		{name: "out of stock", userID: "silver", rewardID: soldOut.ID, want: RedemptionOutOfStock},
		{name: "insufficient points", userID: "silver", rewardID: pricey.ID, want: RedemptionInsufficientPoints},
		{name: "tier too low", userID: "silver", rewardID: goldOnly.ID, want: RedemptionTierNotEligible},
		{name: "unknown member on tiered reward", userID: "ghost", rewardID: goldOnly.ID, want: RedemptionNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := f.rewards.RedeemReward(f.ctx, tt.userID, tt.rewardID)
			require.NoError(t, err)
			assert.False(t, result.Success)
			assert.Equal(t, tt.want, result.Reason)
			assert.NotEmpty(t, result.Message)
			assert.Equal(t, int64(500), result.BalanceAfter)
		})
	}

	assert.Equal(t, int64(500), f.balance(t, "silver"))
	assert.Equal(t, int64(3), f.stockOf(t, pricey.ID))
}

func TestRedemptionFailureErr(t *testing.T) {
	assert.ErrorIs(t, RedemptionNotFound.Err(), ErrNotFound)
	assert.ErrorIs(t, RedemptionOutOfStock.Err(), ErrOutOfStock)
	assert.ErrorIs(t, RedemptionInsufficientPoints.Err(), ErrInsufficientBalance)
	assert.ErrorIs(t, RedemptionTierNotEligible.Err(), ErrTierIneligible)
	assert.NoError(t, RedemptionFailure("").Err())
}

func TestConcurrentRedemptionOfLastItem(t *testing.T) {
	f := newFixture(t)
	f.earn(t, "u1", 1000)
	f.earn(t, "u2", 1000)
	last := f.reward(t, "Signed jersey", 800, 1, models.RewardPhysicalItem, "")

	results := make([]*RedemptionResult, 2)
	var g errgroup.Group
	for i, user := range []string{"u1", "u2"} {
		i, user := i, user
		g.Go(func() error {
			r, err := f.rewards.RedeemReward(f.ctx, user, last.ID)
			results[i] = r
			return err
		})
	}
	require.NoError(t, g.Wait())

	var wins, outOfStock int
	for _, r := range results {
		if r.Success {
			wins++
		} else if r.Reason == RedemptionOutOfStock {
			outOfStock++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, outOfStock)
	assert.Equal(t, int64(0), f.stockOf(t, last.ID))
	assert.Equal(t, int64(1200), f.balance(t, "u1")+f.balance(t, "u2"))
}

func TestGetRewardCatalog(t *testing.T) {
	f := newFixture(t)
	f.reward(t, "Mug", 100, 3, models.RewardPhysicalItem, "")
	f.reward(t, "Silver voucher", 100, 3, models.RewardVoucher, models.TierSilver)
	f.reward(t, "Platinum trip", 100, 3, models.RewardVoucher, models.TierPlatinum)
	hidden := f.reward(t, "Hidden", 100, 3, models.RewardVoucher, "")
	require.NoError(t, f.rewards.SetRewardActive(f.ctx, hidden.ID, false))

	all, err := f.rewards.GetRewardCatalog(f.ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	gold, err := f.rewards.GetRewardCatalog(f.ctx, models.TierGold)
	require.NoError(t, err)
	require.Len(t, gold, 2)
	assert.Equal(t, "Mug", gold[0].Name)
	assert.Equal(t, "Silver voucher", gold[1].Name)

	_, err = f.rewards.GetRewardCatalog(f.ctx, models.Tier("diamond"))
	assert.True(t, IsValidation(err))
}

func TestCreateRewardValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		reward models.Reward
	}{
		{name: "blank name", reward: models.Reward{Name: " ", PointsRequired: 1, Kind: models.RewardVoucher}},
		{name: "free", reward: models.Reward{Name: "x", PointsRequired: 0, Kind: models.RewardVoucher}},
		{name: "negative stock", reward: models.Reward{Name: "x", PointsRequired: 1, Stock: -1, Kind: models.RewardVoucher}},
		{name: "unknown kind", reward: models.Reward{Name: "x", PointsRequired: 1, Kind: "service"}},
		{name: "unknown tier", reward: models.Reward{Name: "x", PointsRequired: 1, Kind: models.RewardVoucher, MinTier: "diamond"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.reward
			assert.True(t, IsValidation(f.rewards.CreateReward(f.ctx, &r)))
		})
	}

	assert.ErrorIs(t, f.rewards.SetRewardActive(f.ctx, primitive.NewObjectID(), true), ErrNotFound)
}
