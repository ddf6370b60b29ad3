package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ArowuTest/loyalty-ledger/internal/models"
	"github.com/ArowuTest/loyalty-ledger/internal/repositories/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

var testRules = models.LoyaltyRule{
	EarnRatePer100k:   100,
	RegistrationBonus: 1000,
	ReviewBonus:       200,
	ReferralBonus:     2500,
	BirthdayBonus:     5000,
	PointExpiryMonths: 12,
}

type fixture struct {
	ctx         context.Context
	clock       *fakeClock
	store       *memory.Store
	ledger      *memory.PointLedgerRepository
	rewardRepo  *memory.RewardRepository
	memberRepo  *memory.MemberRepository
	rules       *RuleServiceImpl
	points      *PointServiceImpl
	commissions *CommissionServiceImpl
	rewards     *RewardServiceImpl
	members     *MemberServiceImpl
	orders      *OrderServiceImpl
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ctx:   context.Background(),
		clock: &fakeClock{now: t0},
		store: memory.NewStore(),
	}
	f.ledger = memory.NewPointLedgerRepository(f.store)
	f.rewardRepo = memory.NewRewardRepository(f.store)
	f.memberRepo = memory.NewMemberRepository(f.store)

	f.rules = NewRuleService(memory.NewLoyaltyRuleRepository(f.store), testRules, f.clock, 0)
	_, err := f.rules.Reload(f.ctx)
	require.NoError(t, err)

	f.points = NewPointService(f.ledger, f.rules, NewUserLocks(16), f.clock, nil)
	f.commissions, err = NewCommissionService(memory.NewCommissionRepository(f.store), f.memberRepo,
		[]decimal.Decimal{decimal.RequireFromString("0.05"), decimal.RequireFromString("0.02")}, f.clock, nil)
	require.NoError(t, err)
	f.rewards = NewRewardService(f.rewardRepo, f.memberRepo, f.points, nil)
	f.members = NewMemberService(f.memberRepo, f.clock)
	f.orders = NewOrderService(memory.NewOrderRepository(f.store), f.points, f.commissions, NewMemberUplineResolver(f.memberRepo), nil)
	return f
}

// member registers userID under uplineID ("" for none).
func (f *fixture) member(t *testing.T, userID, uplineID string, tier models.Tier) {
	t.Helper()
	_, err := f.members.SyncMember(f.ctx, userID, MemberSync{UplineID: uplineID, Tier: tier})
	require.NoError(t, err)
}

func (f *fixture) earn(t *testing.T, userID string, amount int64) *models.PointLot {
	t.Helper()
	lot, err := f.points.RecordEarn(f.ctx, userID, amount, "test earn", "")
	require.NoError(t, err)
	return lot
}

func (f *fixture) balance(t *testing.T, userID string) int64 {
	t.Helper()
	b, err := f.points.BalanceOf(f.ctx, userID)
	require.NoError(t, err)
	return b
}

func (f *fixture) lots(t *testing.T, userID string) map[string]int64 {
	t.Helper()
	lots, err := f.ledger.FindLotsByUserID(f.ctx, userID)
	require.NoError(t, err)
	out := make(map[string]int64, len(lots))
	for _, l := range lots {
		out[l.ID.Hex()] = l.Remaining
	}
	return out
}

func (f *fixture) history(t *testing.T, userID string) []*models.PointTransaction {
	t.Helper()
	txns, err := f.points.GetTransactionHistory(f.ctx, userID, 1, maxPageSize)
	require.NoError(t, err)
	return txns
}
