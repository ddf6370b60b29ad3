package services

import (
	"testing"

	"github.com/ArowuTest/loyalty-ledger/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncMember(t *testing.T) {
	f := newFixture(t)

	m, err := f.members.SyncMember(f.ctx, "u1", MemberSync{UplineID: "u0", Tier: models.TierSilver})
	require.NoError(t, err)
	assert.Equal(t, "u0", m.UplineID)
	assert.Equal(t, models.TierSilver, m.Tier)
	assert.Equal(t, t0, m.CreatedAt)

	m, err = f.members.SyncMember(f.ctx, "u1", MemberSync{Tier: models.TierGold})
	require.NoError(t, err)
	assert.Equal(t, "u0", m.UplineID)
	assert.Equal(t, models.TierGold, m.Tier)

	_, err = f.members.SyncMember(f.ctx, "u1", MemberSync{UplineID: "u9", Tier: models.TierGold})
	assert.True(t, IsValidation(err))

	stored, err := f.members.GetMember(f.ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u0", stored.UplineID)
}

func TestSyncMemberSetsUplineOnce(t *testing.T) {
	f := newFixture(t)
	f.member(t, "u1", "", models.TierRegular)

	m, err := f.members.SyncMember(f.ctx, "u1", MemberSync{UplineID: "u0"})
	require.NoError(t, err)
	assert.Equal(t, "u0", m.UplineID)
}

func TestSyncMemberValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.members.SyncMember(f.ctx, "u1", MemberSync{UplineID: "u1"})
	assert.True(t, IsValidation(err))

	_, err = f.members.SyncMember(f.ctx, "u1", MemberSync{Tier: "diamond"})
	assert.True(t, IsValidation(err))

	_, err = f.members.SyncMember(f.ctx, "", MemberSync{})
	assert.True(t, IsValidation(err))

	_, err = f.members.GetMember(f.ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}
