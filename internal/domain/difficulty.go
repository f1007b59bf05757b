package domain

import (
	"fmt"
	"strings"
)

// Tier names a difficulty level
type Tier string

const (
	TierEasy   Tier = "facil"
	TierMedium Tier = "medio"
	TierHard   Tier = "dificil"
)

// BlankRange bounds the number of blanks per exercise
type BlankRange struct {
	Min int `json:"min" yaml:"min"`
	Max int `json:"max" yaml:"max"`
}

// DifficultyProfile selects eligible grammatical categories and the blank
// count range for a tier.
type DifficultyProfile struct {
	Tier    Tier
	Allowed POSSet
	Blanks  BlankRange
}

var profiles = map[Tier]DifficultyProfile{
	TierEasy: {
		Tier:    TierEasy,
		Allowed: NewPOSSet(POSVerb, POSPron),
		Blanks:  BlankRange{Min: 1, Max: 2},
	},
	TierMedium: {
		Tier:    TierMedium,
		Allowed: NewPOSSet(POSVerb, POSPron, POSAdp),
		Blanks:  BlankRange{Min: 2, Max: 4},
	},
	TierHard: {
		Tier:    TierHard,
		Allowed: NewPOSSet(POSVerb, POSAdp, POSPron, POSSConj, POSCConj),
		Blanks:  BlankRange{Min: 3, Max: 6},
	},
}

// Tiers returns the tier names from easiest to hardest
func Tiers() []Tier {
	return []Tier{TierEasy, TierMedium, TierHard}
}

// LookupProfile resolves a tier key against the static profile table.
// The returned profile owns a private copy of the allowed set.
func LookupProfile(tier string) (DifficultyProfile, error) {
	p, ok := profiles[Tier(strings.ToLower(strings.TrimSpace(tier)))]
	if !ok {
		return DifficultyProfile{}, fmt.Errorf("%w: %q", ErrInvalidProfile, tier)
	}
	return p.clone(), nil
}

// Profiles returns every profile from easiest to hardest
func Profiles() []DifficultyProfile {
	out := make([]DifficultyProfile, 0, len(profiles))
	for _, t := range Tiers() {
		out = append(out, profiles[t].clone())
	}
	return out
}

// IsValidTier reports whether tier names a known profile
func IsValidTier(tier string) bool {
	_, err := LookupProfile(tier)
	return err == nil
}

func (p DifficultyProfile) clone() DifficultyProfile {
	allowed := make(POSSet, len(p.Allowed))
	for k := range p.Allowed {
		allowed[k] = struct{}{}
	}
	p.Allowed = allowed
	return p
}

// ProfileSummary is the serializable view of a profile
type ProfileSummary struct {
	Tier    Tier       `json:"tier"`
	Allowed []POS      `json:"allowed_pos"`
	Blanks  BlankRange `json:"blanks"`
}

// Summary returns the profile with its allowed set as a sorted list
func (p DifficultyProfile) Summary() ProfileSummary {
	return ProfileSummary{Tier: p.Tier, Allowed: p.Allowed.Sorted(), Blanks: p.Blanks}
}
