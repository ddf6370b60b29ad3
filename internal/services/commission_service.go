package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/ArowuTest/loyalty-ledger/internal/metrics"
	"github.com/ArowuTest/loyalty-ledger/internal/models"
	"github.com/ArowuTest/loyalty-ledger/internal/repositories"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slog"
)

// MaxUplineDepth caps the referral walk at the buyer's grandparent.
const MaxUplineDepth = 2

// UplineResolver looks up who referred a user. ok is false when the user
// has no upline. It must not have side effects.
type UplineResolver interface {
	ResolveUpline(ctx context.Context, userID string) (uplineID string, ok bool, err error)
}

// UplineResolverFunc adapts a function to UplineResolver.
type UplineResolverFunc func(ctx context.Context, userID string) (string, bool, error)

func (f UplineResolverFunc) ResolveUpline(ctx context.Context, userID string) (string, bool, error) {
	return f(ctx, userID)
}

// MemberUplineResolver resolves uplines from the member directory. An
// upline id that points at no member is reported as no upline.
type MemberUplineResolver struct {
	members repositories.MemberRepository
}

// NewMemberUplineResolver creates a MemberUplineResolver.
func NewMemberUplineResolver(members repositories.MemberRepository) *MemberUplineResolver {
	return &MemberUplineResolver{members: members}
}

func (r *MemberUplineResolver) ResolveUpline(ctx context.Context, userID string) (string, bool, error) {
	member, err := r.members.FindByID(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if member.UplineID == "" {
		return "", false, nil
	}
	if _, err := r.members.FindByID(ctx, member.UplineID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			slog.Warn("Dangling upline reference", "userId", userID, "uplineId", member.UplineID)
			return "", false, nil
		}
		return "", false, err
	}
	return member.UplineID, true, nil
}

var _ CommissionService = (*CommissionServiceImpl)(nil)

// CommissionServiceImpl credits uplines a share of their downline's orders.
type CommissionServiceImpl struct {
	commissions repositories.CommissionRepository
	members     repositories.MemberRepository
	rates       []decimal.Decimal
	clock       Clock
	metrics     *metrics.LedgerMetrics
}

// NewCommissionService creates a CommissionServiceImpl. rates[i] is the
// share paid at level i+1; at most MaxUplineDepth rates are allowed.
func NewCommissionService(commissions repositories.CommissionRepository, members repositories.MemberRepository,
	rates []decimal.Decimal, clock Clock, m *metrics.LedgerMetrics) (*CommissionServiceImpl, error) {
	if len(rates) > MaxUplineDepth {
		return nil, fmt.Errorf("%d commission levels configured, at most %d allowed", len(rates), MaxUplineDepth)
	}
	for i, rate := range rates {
		if rate.IsNegative() {
			return nil, fmt.Errorf("level %d commission rate %s is negative", i+1, rate)
		}
	}
	return &CommissionServiceImpl{
		commissions: commissions,
		members:     members,
		rates:       rates,
		clock:       clock,
		metrics:     m,
	}, nil
}

// CommissionFor returns the floored commission of orderTotal at level.
func (s *CommissionServiceImpl) CommissionFor(orderTotal int64, level int) int64 {
	if level < 1 || level > len(s.rates) {
		return 0
	}
	return decimal.NewFromInt(orderTotal).Mul(s.rates[level-1]).Floor().IntPart()
}

// DistributeCommissions walks the buyer's upline chain up to the configured
// depth and records a commission per level. Records that already exist for
// (orderID, beneficiary, level) are skipped, so replays return no new records.
// Every record is sourced from the buyer, including level 2.
func (s *CommissionServiceImpl) DistributeCommissions(ctx context.Context, orderID, buyerID string, orderTotal int64, resolve UplineResolver) ([]*models.Commission, error) {
	if orderID == "" {
		return nil, invalid("orderId", "must not be empty")
	}
	if err := validateUser(buyerID); err != nil {
		return nil, err
	}
	if orderTotal <= 0 {
		return nil, invalid("totalAmount", "must be positive")
	}

	created := []*models.Commission{}
	visited := map[string]bool{buyerID: true}
	current := buyerID
	for level := 1; level <= len(s.rates); level++ {
		upline, ok, err := resolve.ResolveUpline(ctx, current)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) || errors.Is(err, ErrNotFound) {
				break
			}
			return created, storeError("resolve upline", err)
		}
		if !ok || upline == "" {
			break
		}
		if visited[upline] {
			slog.Warn("Referral cycle detected, truncating chain", "orderId", orderID, "buyerId", buyerID, "uplineId", upline, "level", level)
			break
		}
		visited[upline] = true
		current = upline

		amount := s.CommissionFor(orderTotal, level)
		if amount <= 0 {
			continue
		}
		c := &models.Commission{
			BeneficiaryID: upline,
			SourceUserID:  buyerID,
			Level:         level,
			Amount:        amount,
			OrderID:       orderID,
			OrderTotal:    orderTotal,
			Rate:          s.rates[level-1].String(),
			Status:        models.CommissionPending,
			CreatedAt:     s.clock.Now(),
		}
		if err := s.commissions.Create(ctx, c); err != nil {
			if errors.Is(err, repositories.ErrDuplicate) {
				slog.Info("Commission already recorded, skipping", "orderId", orderID, "beneficiaryId", upline, "level", level)
				continue
			}
			slog.Error("Failed to record commission", "error", err, "orderId", orderID, "beneficiaryId", upline, "level", level)
			return created, storeError("record commission", err)
		}
		s.metrics.ObserveCommission(level, amount)
		slog.Info("Commission recorded", "orderId", orderID, "beneficiaryId", upline, "sourceUserId", buyerID, "level", level, "amount", amount)
		created = append(created, c)
	}
	return created, nil
}

// GetCommissions pages through the commissions credited to beneficiaryID, newest first.
func (s *CommissionServiceImpl) GetCommissions(ctx context.Context, beneficiaryID string, page, limit int) ([]*models.Commission, error) {
	if err := validateUser(beneficiaryID); err != nil {
		return nil, err
	}
	page, limit = normalizePage(page, limit)
	list, err := s.commissions.FindByBeneficiaryID(ctx, beneficiaryID, page, limit)
	if err != nil {
		return nil, storeError("load commissions", err)
	}
	return list, nil
}

// MarkPaid settles a pending commission. Paying twice is a validation error.
func (s *CommissionServiceImpl) MarkPaid(ctx context.Context, id primitive.ObjectID) (*models.Commission, error) {
	err := s.commissions.MarkPaid(ctx, id, s.clock.Now())
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return nil, fmt.Errorf("commission %s: %w", id.Hex(), ErrNotFound)
	case errors.Is(err, repositories.ErrConflict):
		return nil, invalid("status", "commission already paid")
	case err != nil:
		return nil, storeError("mark commission paid", err)
	}
	c, err := s.commissions.FindByID(ctx, id)
	if err != nil {
		return nil, storeError("load commission", err)
	}
	slog.Info("Commission marked paid", "commissionId", id, "beneficiaryId", c.BeneficiaryID, "amount", c.Amount)
	return c, nil
}

// GetReferralSummary counts the member's first and second level downline
// and totals the commissions they generated.
func (s *CommissionServiceImpl) GetReferralSummary(ctx context.Context, userID string) (*models.ReferralSummary, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	level1, err := s.members.FindByUplineIDs(ctx, []string{userID})
	if err != nil {
		return nil, storeError("load downline", err)
	}
	ids := make([]string, 0, len(level1))
	for _, m := range level1 {
		ids = append(ids, m.ID)
	}
	level2, err := s.members.FindByUplineIDs(ctx, ids)
	if err != nil {
		return nil, storeError("load downline", err)
	}
	total, err := s.commissions.SumByBeneficiaryID(ctx, userID)
	if err != nil {
		return nil, storeError("sum commissions", err)
	}
	return &models.ReferralSummary{
		UserID:           userID,
		Level1Count:      len(level1),
		Level2Count:      len(level2),
		TotalCommissions: total,
	}, nil
}
