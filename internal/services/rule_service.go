package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ArowuTest/loyalty-ledger/internal/models"
	"github.com/ArowuTest/loyalty-ledger/internal/repositories"
	"golang.org/x/exp/slog"
	"golang.org/x/sync/singleflight"
)

var _ RuleService = (*RuleServiceImpl)(nil)

// RuleServiceImpl serves the loyalty rule from an immutable snapshot.
// Readers never block on writers; writers persist a new version and swap the
// pointer, so an earn computation sees either the old or the new rule set whole.
// Instances sharing a store pick up each other's updates once their
// snapshot is older than maxAge.
type RuleServiceImpl struct {
	repo     repositories.LoyaltyRuleRepository
	defaults models.LoyaltyRule
	clock    Clock
	maxAge   time.Duration

	snapshot atomic.Pointer[models.LoyaltyRule]
	loadedAt atomic.Int64
	writeMu  sync.Mutex
	reloads  singleflight.Group
}

// NewRuleService creates a RuleServiceImpl. Until Reload succeeds the
// snapshot holds defaults. A zero maxAge never refreshes on read.
func NewRuleService(repo repositories.LoyaltyRuleRepository, defaults models.LoyaltyRule, clock Clock, maxAge time.Duration) *RuleServiceImpl {
	s := &RuleServiceImpl{repo: repo, defaults: defaults, clock: clock, maxAge: maxAge}
	initial := defaults
	initial.ID = models.LoyaltyRuleID
	s.snapshot.Store(&initial)
	return s
}

// Current returns the cached rule set without touching the store.
func (s *RuleServiceImpl) Current() models.LoyaltyRule {
	return *s.snapshot.Load()
}

// Rules returns the active rule set, reloading it first when the snapshot
// has outlived maxAge. Concurrent stale readers share one reload; if it
// fails the cached rule is served.
func (s *RuleServiceImpl) Rules(ctx context.Context) models.LoyaltyRule {
	if s.stale() {
		if _, err := s.Reload(ctx); err != nil {
			slog.Warn("Loyalty rule refresh failed, serving cached rules", "error", err, "version", s.Current().Version)
		}
	}
	return s.Current()
}

func (s *RuleServiceImpl) stale() bool {
	if s.maxAge <= 0 {
		return false
	}
	loaded := time.Unix(0, s.loadedAt.Load())
	return s.clock.Now().Sub(loaded) >= s.maxAge
}

// publish swaps in rule unless a newer version is already cached.
func (s *RuleServiceImpl) publish(rule *models.LoyaltyRule) {
	for {
		cur := s.snapshot.Load()
		if cur.Version > rule.Version {
			break
		}
		if s.snapshot.CompareAndSwap(cur, rule) {
			if cur.Version != rule.Version {
				slog.Info("Loyalty rules snapshot advanced", "from", cur.Version, "to", rule.Version)
			}
			break
		}
	}
	s.loadedAt.Store(s.clock.Now().UnixNano())
}

// GetRules returns a copy of the active rule set.
func (s *RuleServiceImpl) GetRules(ctx context.Context) (*models.LoyaltyRule, error) {
	rule := s.Rules(ctx)
	return &rule, nil
}

// Reload refreshes the snapshot from the store, seeding the defaults when
// the store holds no rule yet. Concurrent callers share one store read.
func (s *RuleServiceImpl) Reload(ctx context.Context) (*models.LoyaltyRule, error) {
	v, err, _ := s.reloads.Do("rules", func() (interface{}, error) {
		rule, err := s.repo.Get(ctx)
		if errors.Is(err, repositories.ErrNotFound) {
			return s.seed(ctx)
		}
		if err != nil {
			return nil, storeError("load loyalty rules", err)
		}
		s.publish(rule)
		return rule, nil
	})
	if err != nil {
		return nil, err
	}
	rule := *v.(*models.LoyaltyRule)
	return &rule, nil
}

func (s *RuleServiceImpl) seed(ctx context.Context) (*models.LoyaltyRule, error) {
	rule := s.defaults
	rule.ID = models.LoyaltyRuleID
	rule.Version = 1
	rule.UpdatedAt = s.clock.Now()
	if err := validateRule(rule); err != nil {
		return nil, err
	}
	err := s.repo.Save(ctx, &rule)
	if errors.Is(err, repositories.ErrConflict) {
		// Another instance seeded first.
		stored, getErr := s.repo.Get(ctx)
		if getErr != nil {
			return nil, storeError("load loyalty rules", getErr)
		}
		s.publish(stored)
		return stored, nil
	}
	if err != nil {
		return nil, storeError("seed loyalty rules", err)
	}
	slog.Info("Seeded default loyalty rules", "earnRatePer100k", rule.EarnRatePer100k, "expiryMonths", rule.PointExpiryMonths)
	s.publish(&rule)
	return &rule, nil
}

// UpdateRules merges patch into the latest stored rule, persists it as the
// next version and swaps the snapshot.
func (s *RuleServiceImpl) UpdateRules(ctx context.Context, patch models.LoyaltyRulePatch) (*models.LoyaltyRule, error) {
	if patch.IsEmpty() {
		return nil, invalid("rules", "no fields to update")
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	base, err := s.repo.Get(ctx)
	if errors.Is(err, repositories.ErrNotFound) {
		seeded := s.defaults
		seeded.ID = models.LoyaltyRuleID
		base = &seeded
	} else if err != nil {
		return nil, storeError("load loyalty rules", err)
	}

	next := base.Apply(patch)
	if err := validateRule(next); err != nil {
		return nil, err
	}
	next.Version = base.Version + 1
	next.UpdatedAt = s.clock.Now()

	if err := s.repo.Save(ctx, &next); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return nil, storeError("save loyalty rules", fmt.Errorf("version %d was superseded: %w", base.Version, err))
		}
		return nil, storeError("save loyalty rules", err)
	}
	s.publish(&next)

	slog.Info("Loyalty rules updated", "version", next.Version, "earnRatePer100k", next.EarnRatePer100k,
		"doublePointsActive", next.DoublePointsActive, "expiryMonths", next.PointExpiryMonths)
	out := next
	return &out, nil
}

func validateRule(r models.LoyaltyRule) error {
	switch {
	case r.EarnRatePer100k < 0:
		return invalid("earnRatePer100k", "must not be negative")
	case r.RegistrationBonus < 0:
		return invalid("registrationBonus", "must not be negative")
	case r.ReviewBonus < 0:
		return invalid("reviewBonus", "must not be negative")
	case r.ReferralBonus < 0:
		return invalid("referralBonus", "must not be negative")
	case r.BirthdayBonus < 0:
		return invalid("birthdayBonus", "must not be negative")
	case r.PointExpiryMonths < 1:
		return invalid("pointExpiryMonths", "must be at least 1")
	}
	return nil
}
