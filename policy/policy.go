// Package policy holds the thresholds and weights that drive imposter
// selection. A Policy is an immutable value; callers may supply a different
// one every round without invalidating fairness state.
package policy

import "encoding/json"

// Policy configures the picker.
//
// Hard constraints categorically exclude a player for a round. Soft
// coefficients only scale a player's selection weight.
type Policy struct {
	// MaxConsecutive is the longest allowed imposter streak.
	MaxConsecutive int `json:"max_consecutive"`
	// MinCooldownRounds is applied by CommitRound to picked players.
	MinCooldownRounds int `json:"min_cooldown_rounds"`
	// NewPlayerHardCooldownRounds excludes players for this many rounds after joining.
	NewPlayerHardCooldownRounds int `json:"new_player_hard_cooldown_rounds"`

	RecentWindow               int     `json:"recent_window"`
	PairRecentWindow           int     `json:"pair_recent_window"`
	AlphaFrequencyPenalty      float64 `json:"alpha_frequency_penalty"`
	BetaDistanceBonus          float64 `json:"beta_distance_bonus"`
	GammaPairPenalty           float64 `json:"gamma_pair_penalty"`
	PairPenaltyDecay           float64 `json:"pair_penalty_decay"`
	NewPlayerSoftPenaltyRounds int     `json:"new_player_soft_penalty_rounds"`
	NewPlayerPenaltyFactor     float64 `json:"new_player_penalty_factor"`
	JitterPercent              float64 `json:"jitter_percent"`
}

// Default returns the policy used when nothing else is configured.
func Default() Policy {
	return Policy{
		MaxConsecutive:              2,
		MinCooldownRounds:           0,
		NewPlayerHardCooldownRounds: 1,

		RecentWindow:               2,
		PairRecentWindow:           4,
		AlphaFrequencyPenalty:      0.35,
		BetaDistanceBonus:          0.12,
		GammaPairPenalty:           1.0,
		PairPenaltyDecay:           0.4,
		NewPlayerSoftPenaltyRounds: 2,
		NewPlayerPenaltyFactor:     0.6,
		JitterPercent:              0.05,
	}
}

// Normalized returns a copy with out-of-range values folded into the range
// the picker understands. A MaxConsecutive below 1 means unbounded; negative
// counts become zero; fractions are clamped to [0, 1].
func (p Policy) Normalized() Policy {
	if p.MinCooldownRounds < 0 {
		p.MinCooldownRounds = 0
	}
	if p.NewPlayerHardCooldownRounds < 0 {
		p.NewPlayerHardCooldownRounds = 0
	}
	if p.RecentWindow < 0 {
		p.RecentWindow = 0
	}
	if p.PairRecentWindow < 0 {
		p.PairRecentWindow = 0
	}
	if p.NewPlayerSoftPenaltyRounds < 0 {
		p.NewPlayerSoftPenaltyRounds = 0
	}
	p.NewPlayerPenaltyFactor = clamp01(p.NewPlayerPenaltyFactor)
	p.JitterPercent = clamp01(p.JitterPercent)
	return p
}

// StreakCapped reports whether a streak of n rounds hits MaxConsecutive.
func (p Policy) StreakCapped(n int) bool {
	if p.MaxConsecutive < 1 {
		return false
	}
	return n >= p.MaxConsecutive
}

func (p Policy) String() string {
	b, _ := json.Marshal(p)
	return string(b)
}

func clamp01(v float64) float64 {
	switch {
	case v != v: // NaN
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
