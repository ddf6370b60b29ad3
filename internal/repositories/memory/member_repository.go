package memory

import (
	"context"
	"time"

	"github.com/ArowuTest/loyalty-ledger/internal/models"
	"github.com/ArowuTest/loyalty-ledger/internal/repositories"
)

var _ repositories.MemberRepository = (*MemberRepository)(nil)

// MemberRepository is an in-memory user directory.
type MemberRepository struct {
	store *Store
}

// NewMemberRepository creates a MemberRepository over store.
func NewMemberRepository(store *Store) *MemberRepository {
	return &MemberRepository{store: store}
}

// Upsert creates or replaces a member.
func (r *MemberRepository) Upsert(ctx context.Context, member *models.Member) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if member.CreatedAt.IsZero() {
		member.CreatedAt = time.Now()
	}
	stored := *member
	s.members[member.ID] = &stored
	return nil
}

// FindByID returns a member by id.
func (r *MemberRepository) FindByID(ctx context.Context, id string) (*models.Member, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.members[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := *m
	return &out, nil
}

// FindByUplineIDs returns the direct downline of any of the given members.
func (r *MemberRepository) FindByUplineIDs(ctx context.Context, uplineIDs []string) ([]*models.Member, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]struct{}, len(uplineIDs))
	for _, id := range uplineIDs {
		wanted[id] = struct{}{}
	}
	out := []*models.Member{}
	for _, m := range s.members {
		if _, ok := wanted[m.UplineID]; ok && m.UplineID != "" {
			c := *m
			out = append(out, &c)
		}
	}
	return out, nil
}
