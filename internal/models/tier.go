package models

// Tier is a member qualification level gating some rewards.
type Tier string

const (
	TierRegular  Tier = "regular"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

var tierRank = map[Tier]int{
	"":           0,
	TierRegular:  0,
	TierSilver:   1,
	TierGold:     2,
	TierPlatinum: 3,
}

// IsValid reports whether t is a known tier. The empty tier counts as regular.
func (t Tier) IsValid() bool {
	_, ok := tierRank[t]
	return ok
}

// Qualifies reports whether a holder of t may access something gated at min.
func (t Tier) Qualifies(min Tier) bool {
	have, ok := tierRank[t]
	if !ok {
		return false
	}
	need, ok := tierRank[min]
	if !ok {
		return false
	}
	return have >= need
}
