package models

import "time"

// LoyaltyRuleID is the key of the single loyalty_rules document.
const LoyaltyRuleID = "default"

// BonusKind names a one-off point award configured on the loyalty rule.
type BonusKind string

const (
	BonusRegistration BonusKind = "registration"
	BonusReview       BonusKind = "review"
	BonusReferral     BonusKind = "referral"
	BonusBirthday     BonusKind = "birthday"
)

// LoyaltyRule is the earn and expiry policy read by point accounting.
type LoyaltyRule struct {
	ID                 string    `bson:"_id" json:"-"`
	EarnRatePer100k    int64     `bson:"earnRatePer100k" json:"earnRatePer100k" mapstructure:"earnRatePer100k"`
	RegistrationBonus  int64     `bson:"registrationBonus" json:"registrationBonus" mapstructure:"registrationBonus"`
	ReviewBonus        int64     `bson:"reviewBonus" json:"reviewBonus" mapstructure:"reviewBonus"`
	ReferralBonus      int64     `bson:"referralBonus" json:"referralBonus" mapstructure:"referralBonus"`
	BirthdayBonus      int64     `bson:"birthdayBonus" json:"birthdayBonus" mapstructure:"birthdayBonus"`
	PointExpiryMonths  int       `bson:"pointExpiryMonths" json:"pointExpiryMonths" mapstructure:"pointExpiryMonths"`
	DoublePointsActive bool      `bson:"doublePointsActive" json:"doublePointsActive" mapstructure:"doublePointsActive"`
	Version            int64     `bson:"version" json:"version"`
	UpdatedAt          time.Time `bson:"updatedAt" json:"updatedAt"`
}

// LoyaltyRulePatch carries a partial rule update; nil fields are left unchanged.
type LoyaltyRulePatch struct {
	EarnRatePer100k    *int64 `json:"earnRatePer100k,omitempty"`
	RegistrationBonus  *int64 `json:"registrationBonus,omitempty"`
	ReviewBonus        *int64 `json:"reviewBonus,omitempty"`
	ReferralBonus      *int64 `json:"referralBonus,omitempty"`
	BirthdayBonus      *int64 `json:"birthdayBonus,omitempty"`
	PointExpiryMonths  *int   `json:"pointExpiryMonths,omitempty"`
	DoublePointsActive *bool  `json:"doublePointsActive,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p LoyaltyRulePatch) IsEmpty() bool {
	return p.EarnRatePer100k == nil && p.RegistrationBonus == nil && p.ReviewBonus == nil &&
		p.ReferralBonus == nil && p.BirthdayBonus == nil && p.PointExpiryMonths == nil &&
		p.DoublePointsActive == nil
}

// Apply returns a copy of r with the patch merged in. Version and
// UpdatedAt are left to the caller.
func (r LoyaltyRule) Apply(p LoyaltyRulePatch) LoyaltyRule {
	if p.EarnRatePer100k != nil {
		r.EarnRatePer100k = *p.EarnRatePer100k
	}
	if p.RegistrationBonus != nil {
		r.RegistrationBonus = *p.RegistrationBonus
	}
	if p.ReviewBonus != nil {
		r.ReviewBonus = *p.ReviewBonus
	}
	if p.ReferralBonus != nil {
		r.ReferralBonus = *p.ReferralBonus
	}
	if p.BirthdayBonus != nil {
		r.BirthdayBonus = *p.BirthdayBonus
	}
	if p.PointExpiryMonths != nil {
		r.PointExpiryMonths = *p.PointExpiryMonths
	}
	if p.DoublePointsActive != nil {
		r.DoublePointsActive = *p.DoublePointsActive
	}
	return r
}

// BonusFor returns the configured award for a bonus kind.
func (r LoyaltyRule) BonusFor(kind BonusKind) (int64, bool) {
	switch kind {
	case BonusRegistration:
		return r.RegistrationBonus, true
	case BonusReview:
		return r.ReviewBonus, true
	case BonusReferral:
		return r.ReferralBonus, true
	case BonusBirthday:
		return r.BirthdayBonus, true
	}
	return 0, false
}
