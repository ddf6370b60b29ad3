package services

import (
	"context"
	"errors"
	"testing"

	"github.com/ArowuTest/loyalty-ledger/internal/models"
	"github.com/ArowuTest/loyalty-ledger/internal/repositories/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessOrderCompletion(t *testing.T) {
	f := newFixture(t)
	referralChain(t, f)

	summary, err := f.orders.ProcessOrderCompletion(f.ctx, OrderCompleted{OrderID: "o1", BuyerID: "buyer", TotalAmount: 1_000_000})
	require.NoError(t, err)

	assert.False(t, summary.Replayed)
	assert.Equal(t, int64(1000), summary.PointsEarned)
	require.NotNil(t, summary.Lot)
	assert.Equal(t, "Purchase #o1", summary.Lot.Reason)
	assert.Len(t, summary.Commissions, 2)
	assert.Equal(t, int64(1000), f.balance(t, "buyer"))

	txns := f.history(t, "buyer")
	require.Len(t, txns, 1)
	assert.Equal(t, "o1", txns[0].ReferenceID)
	assert.Equal(t, models.TransactionEarn, txns[0].Kind)
}

func TestProcessOrderCompletionReplayIsNoOp(t *testing.T) {
	f := newFixture(t)
	referralChain(t, f)
	evt := OrderCompleted{OrderID: "o1", BuyerID: "buyer", TotalAmount: 1_000_000}

	_, err := f.orders.ProcessOrderCompletion(f.ctx, evt)
	require.NoError(t, err)
	summary, err := f.orders.ProcessOrderCompletion(f.ctx, evt)
	require.NoError(t, err)

	assert.True(t, summary.Replayed)
	assert.Zero(t, summary.PointsEarned)
	assert.Empty(t, summary.Commissions)
	assert.Equal(t, int64(1000), f.balance(t, "buyer"))
	assert.Len(t, f.history(t, "buyer"), 1)
}

func TestProcessOrderCompletionRejectsReusedOrderID(t *testing.T) {
	tests := []struct {
		name   string
		second OrderCompleted
	}{
		{name: "different buyer", second: OrderCompleted{OrderID: "o1", BuyerID: "other", TotalAmount: 1_000_000}},
		{name: "different total", second: OrderCompleted{OrderID: "o1", BuyerID: "buyer", TotalAmount: 2_000_000}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			referralChain(t, f)
			f.member(t, "other-parent", "", models.TierRegular)
			f.member(t, "other", "other-parent", models.TierRegular)

			_, err := f.orders.ProcessOrderCompletion(f.ctx, OrderCompleted{OrderID: "o1", BuyerID: "buyer", TotalAmount: 1_000_000})
			require.NoError(t, err)

			summary, err := f.orders.ProcessOrderCompletion(f.ctx, tt.second)
			require.True(t, IsValidation(err), "got %v", err)
			assert.Nil(t, summary)

			for _, beneficiary := range []string{"parent", "grandparent", "other-parent"} {
				paid, err := f.commissions.GetCommissions(f.ctx, beneficiary, 1, 10)
				require.NoError(t, err)
				if beneficiary == "other-parent" {
					assert.Empty(t, paid)
				} else {
					require.Len(t, paid, 1)
					assert.Equal(t, int64(1_000_000), paid[0].OrderTotal)
				}
			}
			assert.Equal(t, int64(1000), f.balance(t, "buyer"))
			assert.Zero(t, f.balance(t, "other"))
		})
	}
}

func TestProcessOrderCompletionRejectsReusedOrderIDWithoutLot(t *testing.T) {
	f := newFixture(t)
	f.member(t, "lonely", "", models.TierRegular)
	referralChain(t, f)

	summary, err := f.orders.ProcessOrderCompletion(f.ctx, OrderCompleted{OrderID: "small", BuyerID: "lonely", TotalAmount: 50_000})
	require.NoError(t, err)
	assert.Nil(t, summary.Lot)
	assert.Empty(t, summary.Commissions)

	_, err = f.orders.ProcessOrderCompletion(f.ctx, OrderCompleted{OrderID: "small", BuyerID: "buyer", TotalAmount: 50_000})
	require.True(t, IsValidation(err), "got %v", err)

	paid, err := f.commissions.GetCommissions(f.ctx, "parent", 1, 10)
	require.NoError(t, err)
	assert.Empty(t, paid)
}

func TestProcessOrderCompletionBelowEarnUnit(t *testing.T) {
	f := newFixture(t)
	referralChain(t, f)

	summary, err := f.orders.ProcessOrderCompletion(f.ctx, OrderCompleted{OrderID: "o1", BuyerID: "buyer", TotalAmount: 50_000})
	require.NoError(t, err)
	assert.Nil(t, summary.Lot)
	assert.Zero(t, summary.PointsEarned)
	require.Len(t, summary.Commissions, 2)
	assert.Equal(t, int64(2500), summary.Commissions[0].Amount)
	assert.Equal(t, int64(1000), summary.Commissions[1].Amount)
	assert.Empty(t, f.history(t, "buyer"))
}

func TestProcessOrderCompletionUsesDoublePoints(t *testing.T) {
	f := newFixture(t)
	_, err := f.rules.UpdateRules(f.ctx, models.LoyaltyRulePatch{DoublePointsActive: ptr(true)})
	require.NoError(t, err)

	summary, err := f.orders.ProcessOrderCompletion(f.ctx, OrderCompleted{OrderID: "o1", BuyerID: "buyer", TotalAmount: 300_000})
	require.NoError(t, err)
	assert.Equal(t, int64(600), summary.PointsEarned)
}

func TestProcessOrderCompletionRetryFinishesCommissions(t *testing.T) {
	f := newFixture(t)
	referralChain(t, f)

	calls := 0
	members := NewMemberUplineResolver(f.memberRepo)
	flaky := UplineResolverFunc(func(ctx context.Context, userID string) (string, bool, error) {
		calls++
		if calls == 1 {
			return "", false, errors.New("directory unavailable")
		}
		return members.ResolveUpline(ctx, userID)
	})
	orders := NewOrderService(memory.NewOrderRepository(f.store), f.points, f.commissions, flaky, nil)
	evt := OrderCompleted{OrderID: "o1", BuyerID: "buyer", TotalAmount: 1_000_000}

	_, err := orders.ProcessOrderCompletion(f.ctx, evt)
	require.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Equal(t, int64(1000), f.balance(t, "buyer"))

	summary, err := orders.ProcessOrderCompletion(f.ctx, evt)
	require.NoError(t, err)
	assert.True(t, summary.Replayed)
	assert.Len(t, summary.Commissions, 2)
	assert.Equal(t, int64(1000), f.balance(t, "buyer"))
}

func TestProcessOrderCompletionValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		evt  OrderCompleted
	}{
		{name: "missing order", evt: OrderCompleted{BuyerID: "b", TotalAmount: 1}},
		{name: "missing buyer", evt: OrderCompleted{OrderID: "o", TotalAmount: 1}},
		{name: "zero total", evt: OrderCompleted{OrderID: "o", BuyerID: "b"}},
		{name: "negative total", evt: OrderCompleted{OrderID: "o", BuyerID: "b", TotalAmount: -5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.orders.ProcessOrderCompletion(f.ctx, tt.evt)
			assert.True(t, IsValidation(err))
		})
	}
}
