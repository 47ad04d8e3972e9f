package domain

// MembershipTier gates session length, recurrence cadence and restricted services.
type MembershipTier string

const (
	TierClub15         MembershipTier = "CLUB_15"
	TierQuinzeStandard MembershipTier = "QUINZE_STANDARD"
	TierQuinzePremium  MembershipTier = "QUINZE_PREMIUM"
	TierQuinzeSelect   MembershipTier = "QUINZE_SELECT"
)

var tierRank = map[MembershipTier]int{
	TierClub15:         1,
	TierQuinzeStandard: 2,
	TierQuinzePremium:  3,
	TierQuinzeSelect:   4,
}

// Valid reports whether t is a known tier.
func (t MembershipTier) Valid() bool {
	_, ok := tierRank[t]
	return ok
}

// rank orders tiers from lowest (1) to highest. Unknown tiers rank 0.
func (t MembershipTier) rank() int {
	return tierRank[t]
}

// AtLeast reports whether t ranks at or above other. Restricted tiers admit
// clients holding that tier or a higher one.
func (t MembershipTier) AtLeast(other MembershipTier) bool {
	return t.Valid() && t.rank() >= other.rank()
}

// Restricted reports whether booking this tier requires holding it.
func (t MembershipTier) Restricted() bool {
	return t == TierQuinzeSelect
}

// SessionMinutes is the default length of an appointment booked at this tier.
func (t MembershipTier) SessionMinutes() int {
	if t == TierQuinzeSelect {
		return 120
	}
	return 60
}

// RecurrenceWeeks is the spacing of the series generated at registration.
func (t MembershipTier) RecurrenceWeeks() int {
	switch t {
	case TierQuinzePremium, TierQuinzeSelect:
		return 1
	default:
		return 2
	}
}
