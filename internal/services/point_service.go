package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ArowuTest/loyalty-ledger/internal/metrics"
	"github.com/ArowuTest/loyalty-ledger/internal/models"
	"github.com/ArowuTest/loyalty-ledger/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slog"
)

const (
	// earnUnit is the purchase amount that earns EarnRatePer100k points.
	earnUnit = 100_000
	// drawdownAttempts bounds re-planning when another writer changed the lots
	// between planning and commit.
	drawdownAttempts = 3
)

// RuleSource hands out the active loyalty rule snapshot.
type RuleSource interface {
	Rules(ctx context.Context) models.LoyaltyRule
}

var _ PointService = (*PointServiceImpl)(nil)

// PointServiceImpl keeps the per-user lot ledger.
type PointServiceImpl struct {
	ledger  repositories.PointLedgerRepository
	rules   RuleSource
	locks   *UserLocks
	clock   Clock
	metrics *metrics.LedgerMetrics
}

// NewPointService creates a PointServiceImpl. m may be nil.
func NewPointService(ledger repositories.PointLedgerRepository, rules RuleSource, locks *UserLocks, clock Clock, m *metrics.LedgerMetrics) *PointServiceImpl {
	return &PointServiceImpl{
		ledger:  ledger,
		rules:   rules,
		locks:   locks,
		clock:   clock,
		metrics: m,
	}
}

// CalculatePotentialPoints previews what an order total would earn under
// the active rules.
func (s *PointServiceImpl) CalculatePotentialPoints(ctx context.Context, orderTotal int64) int64 {
	return pointsFor(s.rules.Rules(ctx), orderTotal)
}

func pointsFor(rule models.LoyaltyRule, orderTotal int64) int64 {
	if orderTotal <= 0 {
		return 0
	}
	points := (orderTotal / earnUnit) * rule.EarnRatePer100k
	if rule.DoublePointsActive {
		points *= 2
	}
	return points
}

// RecordEarn credits amount points to userID as a new lot.
func (s *PointServiceImpl) RecordEarn(ctx context.Context, userID string, amount int64, reason, referenceID string) (*models.PointLot, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, invalid("amount", "must be positive")
	}
	unlock := s.locks.Lock(userID)
	defer unlock()

	lot, _, err := s.recordLotLocked(ctx, s.rules.Rules(ctx), userID, models.TransactionEarn, amount, reason, referenceID, "")
	return lot, err
}

// AwardBonus credits the configured bonus of kind. Each (kind, user,
// reference) pair is credited once; registration ignores the reference.
func (s *PointServiceImpl) AwardBonus(ctx context.Context, userID string, kind models.BonusKind, referenceID string) (*models.PointLot, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	rule := s.rules.Rules(ctx)
	amount, ok := rule.BonusFor(kind)
	if !ok {
		return nil, invalid("kind", fmt.Sprintf("unknown bonus kind %q", kind))
	}
	if amount <= 0 {
		return nil, invalid("kind", fmt.Sprintf("%s bonus is disabled", kind))
	}
	if kind == models.BonusRegistration {
		referenceID = ""
	} else if strings.TrimSpace(referenceID) == "" {
		return nil, invalid("referenceId", "required for "+string(kind)+" bonus")
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	sourceKey := fmt.Sprintf("bonus:%s:%s:%s", kind, userID, referenceID)
	reason := fmt.Sprintf("%s%s bonus", strings.ToUpper(string(kind[:1])), kind[1:])
	lot, _, err := s.recordLotLocked(ctx, rule, userID, models.TransactionBonus, amount, reason, referenceID, sourceKey)
	return lot, err
}

// AdjustPoints applies an administrative correction. A positive delta
// credits a new lot; a negative delta draws down FIFO, all or nothing.
func (s *PointServiceImpl) AdjustPoints(ctx context.Context, userID string, delta int64, description string) (*models.PointTransaction, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	if delta == 0 {
		return nil, invalid("delta", "must not be zero")
	}
	if strings.TrimSpace(description) == "" {
		description = "Manual adjustment"
	}
	unlock := s.locks.Lock(userID)
	defer unlock()

	if delta > 0 {
		_, txn, err := s.recordLotLocked(ctx, s.rules.Rules(ctx), userID, models.TransactionAdjustment, delta, description, "", "")
		return txn, err
	}
	txn, _, err := s.drawdownLocked(ctx, userID, -delta, models.TransactionAdjustment, description, "", nil)
	return txn, err
}

// earnForOrderLocked credits the purchase points of an order. It returns
// (nil, nil) when the total earns nothing. Caller holds the buyer lock.
func (s *PointServiceImpl) earnForOrderLocked(ctx context.Context, orderID, buyerID string, orderTotal int64) (*models.PointLot, error) {
	rule := s.rules.Rules(ctx)
	points := pointsFor(rule, orderTotal)
	if points <= 0 {
		return nil, nil
	}
	lot, _, err := s.recordLotLocked(ctx, rule, buyerID, models.TransactionEarn, points,
		"Purchase #"+orderID, orderID, "order:"+orderID)
	return lot, err
}

func (s *PointServiceImpl) recordLotLocked(ctx context.Context, rule models.LoyaltyRule, userID string, kind models.TransactionKind,
	amount int64, reason, referenceID, sourceKey string) (*models.PointLot, *models.PointTransaction, error) {
	now := s.clock.Now()
	lot := &models.PointLot{
		UserID:    userID,
		Kind:      kind,
		Amount:    amount,
		Remaining: amount,
		Reason:    reason,
		SourceKey: sourceKey,
		CreatedAt: now,
		ExpiresAt: now.AddDate(0, rule.PointExpiryMonths, 0),
	}
	txn := &models.PointTransaction{
		UserID:      userID,
		Kind:        kind,
		Amount:      amount,
		Description: reason,
		ReferenceID: referenceID,
		OccurredAt:  now,
	}
	if err := s.ledger.InsertLot(ctx, lot, txn); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, nil, fmt.Errorf("%s credit %q: %w", kind, sourceKey, ErrDuplicateEvent)
		}
		slog.Error("Failed to record point lot", "error", err, "userId", userID, "kind", kind, "amount", amount)
		return nil, nil, storeError("record point lot", err)
	}
	s.metrics.ObservePointsCredited(string(kind), amount)
	slog.Info("Points credited", "userId", userID, "kind", kind, "amount", amount, "lotId", lot.ID, "expiresAt", lot.ExpiresAt)
	return lot, txn, nil
}

// BalanceOf sums the unexpired remainder of every lot. It never mutates.
func (s *PointServiceImpl) BalanceOf(ctx context.Context, userID string) (int64, error) {
	if err := validateUser(userID); err != nil {
		return 0, err
	}
	lots, err := s.ledger.FindLotsByUserID(ctx, userID)
	if err != nil {
		return 0, storeError("load point lots", err)
	}
	return availableBalance(lots, s.clock.Now()), nil
}

func availableBalance(lots []*models.PointLot, asOf time.Time) int64 {
	var total int64
	for _, lot := range lots {
		total += lot.Available(asOf)
	}
	return total
}

// RedeemPoints spends amount points oldest-expiring first. Either the
// full amount is consumed or nothing is.
func (s *PointServiceImpl) RedeemPoints(ctx context.Context, userID string, amount int64, reason, referenceID string) (*models.PointTransaction, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, invalid("amount", "must be positive")
	}
	unlock := s.locks.Lock(userID)
	defer unlock()

	txn, _, err := s.drawdownLocked(ctx, userID, amount, models.TransactionRedeem, reason, referenceID, nil)
	return txn, err
}

// drawdownLocked consumes amount points FIFO and records one transaction of
// kind for the whole amount. rewardID, when set, takes a unit of stock in
// the same commit. Returns the balance left afterwards. Caller holds the user lock.
func (s *PointServiceImpl) drawdownLocked(ctx context.Context, userID string, amount int64, kind models.TransactionKind,
	description, referenceID string, rewardID *primitive.ObjectID) (*models.PointTransaction, int64, error) {
	var lastConflict error
	for attempt := 0; attempt < drawdownAttempts; attempt++ {
		lots, err := s.ledger.FindLotsByUserID(ctx, userID)
		if err != nil {
			return nil, 0, storeError("load point lots", err)
		}
		now := s.clock.Now()
		draws, available := planFIFO(lots, amount, now)
		if available < amount {
			return nil, available, fmt.Errorf("need %d points, have %d: %w", amount, available, ErrInsufficientBalance)
		}

		lotIDs := make([]primitive.ObjectID, 0, len(draws))
		for _, d := range draws {
			lotIDs = append(lotIDs, d.LotID)
		}
		txn := &models.PointTransaction{
			UserID:      userID,
			Kind:        kind,
			Amount:      -amount,
			Description: description,
			ReferenceID: referenceID,
			LotIDs:      lotIDs,
			OccurredAt:  now,
		}
		err = s.ledger.CommitDrawdown(ctx, &repositories.Drawdown{
			Draws:        draws,
			Transactions: []*models.PointTransaction{txn},
			RewardID:     rewardID,
		})
		switch {
		case err == nil:
			s.metrics.ObservePointsDebited(string(kind), amount)
			slog.Info("Points debited", "userId", userID, "kind", kind, "amount", amount, "lots", len(draws), "referenceId", referenceID)
			return txn, available - amount, nil
		case errors.Is(err, repositories.ErrConflict):
			lastConflict = err
			slog.Warn("Point lots changed during drawdown, re-planning", "userId", userID, "attempt", attempt+1)
			continue
		case errors.Is(err, repositories.ErrOutOfStock):
			return nil, available, ErrOutOfStock
		case errors.Is(err, repositories.ErrNotFound):
			return nil, available, fmt.Errorf("drawdown target: %w", ErrNotFound)
		default:
			slog.Error("Failed to commit drawdown", "error", err, "userId", userID, "amount", amount)
			return nil, available, storeError("commit drawdown", err)
		}
	}
	return nil, 0, storeError("commit drawdown", lastConflict)
}

// planFIFO walks spendable lots by ascending expiry and takes from each
// until amount is covered. available is the user's full spendable balance.
func planFIFO(lots []*models.PointLot, amount int64, asOf time.Time) (draws []repositories.LotDraw, available int64) {
	spendable := make([]*models.PointLot, 0, len(lots))
	for _, lot := range lots {
		if lot.Available(asOf) > 0 {
			spendable = append(spendable, lot)
			available += lot.Remaining
		}
	}
	sort.SliceStable(spendable, func(i, j int) bool {
		a, b := spendable[i], spendable[j]
		if !a.ExpiresAt.Equal(b.ExpiresAt) {
			return a.ExpiresAt.Before(b.ExpiresAt)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.Hex() < b.ID.Hex()
	})

	left := amount
	for _, lot := range spendable {
		if left == 0 {
			break
		}
		take := lot.Remaining
		if take > left {
			take = left
		}
		draws = append(draws, repositories.LotDraw{LotID: lot.ID, Amount: take})
		left -= take
	}
	return draws, available
}

// RunExpiryCheck zeroes every lot that expired by asOf and still held
// points, writing one expire transaction per lot. A zero asOf means now.
// Re-running is a no-op for lots already zeroed.
func (s *PointServiceImpl) RunExpiryCheck(ctx context.Context, asOf time.Time) (int, error) {
	if asOf.IsZero() {
		asOf = s.clock.Now()
	}
	expired, err := s.ledger.FindExpiredLots(ctx, asOf)
	if err != nil {
		return 0, storeError("find expired lots", err)
	}

	var users []string
	seen := make(map[string]bool)
	for _, lot := range expired {
		if !seen[lot.UserID] {
			seen[lot.UserID] = true
			users = append(users, lot.UserID)
		}
	}

	count := 0
	var errs []error
	for _, userID := range users {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		n, err := s.expireUser(ctx, userID, asOf)
		count += n
		if err != nil {
			slog.Error("Expiry check failed for user", "error", err, "userId", userID)
			errs = append(errs, err)
		}
	}
	slog.Info("Expiry check finished", "asOf", asOf, "users", len(users), "lotsExpired", count, "failures", len(errs))
	return count, errors.Join(errs...)
}

func (s *PointServiceImpl) expireUser(ctx context.Context, userID string, asOf time.Time) (int, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	lots, err := s.ledger.FindLotsByUserID(ctx, userID)
	if err != nil {
		return 0, storeError("load point lots", err)
	}
	now := s.clock.Now()
	d := &repositories.Drawdown{}
	var points int64
	for _, lot := range lots {
		if lot.Remaining <= 0 || !lot.IsExpired(asOf) {
			continue
		}
		d.Draws = append(d.Draws, repositories.LotDraw{LotID: lot.ID, Amount: lot.Remaining})
		d.Transactions = append(d.Transactions, &models.PointTransaction{
			UserID:      userID,
			Kind:        models.TransactionExpire,
			Amount:      -lot.Remaining,
			Description: "Points expired",
			ReferenceID: lot.ID.Hex(),
			LotIDs:      []primitive.ObjectID{lot.ID},
			OccurredAt:  now,
		})
		points += lot.Remaining
	}
	if len(d.Draws) == 0 {
		return 0, nil
	}
	if err := s.ledger.CommitDrawdown(ctx, d); err != nil {
		return 0, storeError("commit expiry", err)
	}
	for range d.Draws {
		s.metrics.ObserveLotExpired()
	}
	s.metrics.ObservePointsDebited(string(models.TransactionExpire), points)
	slog.Info("Expired point lots", "userId", userID, "lots", len(d.Draws), "points", points)
	return len(d.Draws), nil
}

// GetTransactionHistory pages through a user's ledger newest first.
func (s *PointServiceImpl) GetTransactionHistory(ctx context.Context, userID string, page, limit int) ([]*models.PointTransaction, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	page, limit = normalizePage(page, limit)
	txns, err := s.ledger.FindTransactionsByUserID(ctx, userID, page, limit)
	if err != nil {
		return nil, storeError("load transactions", err)
	}
	return txns, nil
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

func validateUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return invalid("userId", "must not be empty")
	}
	return nil
}
