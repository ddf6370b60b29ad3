package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/ArowuTest/loyalty-ledger/internal/models"
	"github.com/ArowuTest/loyalty-ledger/internal/repositories"
	"golang.org/x/exp/slog"
)

// MemberSync is what the user directory pushes about a member.
type MemberSync struct {
	UplineID string      `json:"uplineId"`
	Tier     models.Tier `json:"tier"`
}

var _ MemberService = (*MemberServiceImpl)(nil)

// MemberServiceImpl mirrors referral links and tiers from the user directory.
type MemberServiceImpl struct {
	members repositories.MemberRepository
	clock   Clock
}

// NewMemberService creates a MemberServiceImpl.
func NewMemberService(members repositories.MemberRepository, clock Clock) *MemberServiceImpl {
	return &MemberServiceImpl{members: members, clock: clock}
}

// SyncMember creates or updates a member. The referral link is permanent
// once set; the tier may change freely.
func (s *MemberServiceImpl) SyncMember(ctx context.Context, userID string, in MemberSync) (*models.Member, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	if in.UplineID == userID {
		return nil, invalid("uplineId", "a member cannot refer themselves")
	}
	if !in.Tier.IsValid() {
		return nil, invalid("tier", fmt.Sprintf("unknown tier %q", in.Tier))
	}

	member, err := s.members.FindByID(ctx, userID)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		member = &models.Member{ID: userID, UplineID: in.UplineID, CreatedAt: s.clock.Now()}
	case err != nil:
		return nil, storeError("load member", err)
	case member.UplineID != "" && in.UplineID != "" && member.UplineID != in.UplineID:
		return nil, invalid("uplineId", "referral link is already set")
	case member.UplineID == "":
		member.UplineID = in.UplineID
	}
	member.Tier = in.Tier

	if err := s.members.Upsert(ctx, member); err != nil {
		return nil, storeError("save member", err)
	}
	slog.Info("Member synced", "userId", userID, "uplineId", member.UplineID, "tier", member.Tier)
	return member, nil
}

// GetMember returns a member.
func (s *MemberServiceImpl) GetMember(ctx context.Context, userID string) (*models.Member, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	member, err := s.members.FindByID(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("member %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, storeError("load member", err)
	}
	return member, nil
}
