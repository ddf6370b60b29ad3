package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ArowuTest/loyalty-ledger/internal/models"
	"github.com/ArowuTest/loyalty-ledger/internal/repositories"
	"github.com/ArowuTest/loyalty-ledger/internal/repositories/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestReloadSeedsDefaults(t *testing.T) {
	store := memory.NewStore()
	repo := memory.NewLoyaltyRuleRepository(store)
	svc := NewRuleService(repo, testRules, &fakeClock{now: t0}, 0)

	_, err := repo.Get(context.Background())
	require.ErrorIs(t, err, repositories.ErrNotFound)

	rule, err := svc.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), rule.Version)
	assert.Equal(t, models.LoyaltyRuleID, rule.ID)
	assert.Equal(t, int64(100), rule.EarnRatePer100k)

	stored, err := repo.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Version)

	// A second instance picks up the stored rule rather than reseeding.
	other := NewRuleService(repo, models.LoyaltyRule{EarnRatePer100k: 1, PointExpiryMonths: 1}, &fakeClock{now: t0}, 0)
	rule, err = other.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(100), rule.EarnRatePer100k)
}

func TestUpdateRulesBumpsVersion(t *testing.T) {
	f := newFixture(t)
	f.clock.Advance(time.Hour)

	rule, err := f.rules.UpdateRules(f.ctx, models.LoyaltyRulePatch{
		EarnRatePer100k:    ptr(int64(150)),
		DoublePointsActive: ptr(true),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), rule.Version)
	assert.Equal(t, int64(150), rule.EarnRatePer100k)
	assert.True(t, rule.DoublePointsActive)
	assert.Equal(t, int64(1000), rule.RegistrationBonus)
	assert.Equal(t, t0.Add(time.Hour), rule.UpdatedAt)

	current, err := f.rules.GetRules(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, *rule, *current)
}

func TestUpdateRulesRejectsInvalidPatches(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		patch models.LoyaltyRulePatch
	}{
		{name: "empty", patch: models.LoyaltyRulePatch{}},
		{name: "negative earn rate", patch: models.LoyaltyRulePatch{EarnRatePer100k: ptr(int64(-1))}},
		{name: "negative review bonus", patch: models.LoyaltyRulePatch{ReviewBonus: ptr(int64(-10))}},
		{name: "zero expiry", patch: models.LoyaltyRulePatch{PointExpiryMonths: ptr(0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.rules.UpdateRules(f.ctx, tt.patch)
			assert.True(t, IsValidation(err))
		})
	}

	assert.Equal(t, int64(1), f.rules.Current().Version)
}

func TestUpdatedExpiryAppliesToNewLotsOnly(t *testing.T) {
	f := newFixture(t)
	before := f.earn(t, "u1", 10)

	_, err := f.rules.UpdateRules(f.ctx, models.LoyaltyRulePatch{PointExpiryMonths: ptr(3)})
	require.NoError(t, err)
	after := f.earn(t, "u1", 10)

	assert.Equal(t, t0.AddDate(0, 12, 0), before.ExpiresAt)
	assert.Equal(t, t0.AddDate(0, 3, 0), after.ExpiresAt)
}

func TestRuleSnapshotIsNeverTorn(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(f.ctx)
	defer cancel()

	var g errgroup.Group
	for i := 0; i < 4; i++ {
		g.Go(func() error {
			for ctx.Err() == nil {
				r := f.rules.Current()
				old := r.EarnRatePer100k == 100 && !r.DoublePointsActive
				updated := r.EarnRatePer100k == 300 && r.DoublePointsActive
				if !old && !updated {
					t.Errorf("torn rule read: %+v", r)
					return nil
				}
			}
			return nil
		})
	}

	_, err := f.rules.UpdateRules(f.ctx, models.LoyaltyRulePatch{
		EarnRatePer100k:    ptr(int64(300)),
		DoublePointsActive: ptr(true),
	})
	require.NoError(t, err)
	cancel()
	require.NoError(t, g.Wait())
}

func TestRulesPickUpUpdatesFromAnotherInstance(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewLoyaltyRuleRepository(memory.NewStore())
	clock := &fakeClock{now: t0}

	writer := NewRuleService(repo, testRules, clock, time.Minute)
	reader := NewRuleService(repo, testRules, clock, time.Minute)
	_, err := writer.Reload(ctx)
	require.NoError(t, err)
	_, err = reader.Reload(ctx)
	require.NoError(t, err)

	_, err = writer.UpdateRules(ctx, models.LoyaltyRulePatch{
		EarnRatePer100k:    ptr(int64(500)),
		DoublePointsActive: ptr(true),
	})
	require.NoError(t, err)

	cached := reader.Rules(ctx)
	assert.Equal(t, int64(1), cached.Version)
	assert.Equal(t, int64(100), cached.EarnRatePer100k)

	clock.Advance(time.Minute)
	fresh := reader.Rules(ctx)
	assert.Equal(t, int64(2), fresh.Version)
	assert.Equal(t, int64(500), fresh.EarnRatePer100k)
	assert.True(t, fresh.DoublePointsActive)

	current, err := reader.GetRules(ctx)
	require.NoError(t, err)
	assert.Equal(t, fresh, *current)
}

func TestPointsEarnUnderRulesUpdatedElsewhere(t *testing.T) {
	f := newFixture(t)
	repo := memory.NewLoyaltyRuleRepository(f.store)
	rules := NewRuleService(repo, testRules, f.clock, 30*time.Second)
	_, err := rules.Reload(f.ctx)
	require.NoError(t, err)
	points := NewPointService(f.ledger, rules, NewUserLocks(4), f.clock, nil)

	_, err = f.rules.UpdateRules(f.ctx, models.LoyaltyRulePatch{DoublePointsActive: ptr(true)})
	require.NoError(t, err)
	f.clock.Advance(30 * time.Second)

	assert.Equal(t, int64(400), points.CalculatePotentialPoints(f.ctx, 200_000))
}

type gatedRuleRepo struct {
	repositories.LoyaltyRuleRepository
	entered chan struct{}
	release chan struct{}
	gets    atomic.Int32
}

func (r *gatedRuleRepo) Get(ctx context.Context) (*models.LoyaltyRule, error) {
	if r.gets.Add(1) == 1 {
		close(r.entered)
	}
	<-r.release
	return r.LoyaltyRuleRepository.Get(ctx)
}

func TestStaleReadersShareOneReload(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewLoyaltyRuleRepository(memory.NewStore())
	clock := &fakeClock{now: t0}
	seeded := NewRuleService(inner, testRules, clock, 0)
	_, err := seeded.Reload(ctx)
	require.NoError(t, err)

	repo := &gatedRuleRepo{LoyaltyRuleRepository: inner, entered: make(chan struct{}), release: make(chan struct{})}
	svc := NewRuleService(repo, testRules, clock, time.Minute)

	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			if v := svc.Rules(ctx).Version; v != 1 {
				return fmt.Errorf("got version %d", v)
			}
			return nil
		})
	}
	<-repo.entered
	time.Sleep(50 * time.Millisecond)
	close(repo.release)
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), repo.gets.Load())
}

func TestStaleReloadDoesNotRegressSnapshot(t *testing.T) {
	f := newFixture(t)
	older := f.rules.Current()

	rule, err := f.rules.UpdateRules(f.ctx, models.LoyaltyRulePatch{ReviewBonus: ptr(int64(300))})
	require.NoError(t, err)

	f.rules.publish(&older)
	assert.Equal(t, rule.Version, f.rules.Current().Version)
	assert.Equal(t, int64(300), f.rules.Current().ReviewBonus)
}
