package picker

import (
	"math"

	"github.com/imposterparty/fairness/fairness"
	"github.com/imposterparty/fairness/policy"
)

const (
	minWeight          = 1e-6  // floor for base weights so nobody is locked out
	maxWeight          = 1e300 // ceiling so a pool of weights still sums to a finite total
	neverPickedBonus   = 1.15  // recency multiplier for players never picked
	recentWindowFactor = 0.5
)

// hardExclusion returns why ps cannot be picked in round, or exclusionNone.
//
// Players with JoinRound 0 were present when the session started; the
// new-player protections apply only to later arrivals.
func hardExclusion(ps fairness.PlayerStats, round int, pol policy.Policy) Exclusion {
	if pol.StreakCapped(ps.CurrentStreak) {
		return ExclusionStreak
	}
	if ps.CooldownUntilRound > round {
		return ExclusionCooldown
	}
	if ps.JoinRound > 0 && round < ps.JoinRound+pol.NewPlayerHardCooldownRounds {
		return ExclusionNewPlayer
	}
	return exclusionNone
}

// inNewPlayerSoftWindow reports whether ps is past the new-player hard
// cooldown but still inside the soft penalty window.
func inNewPlayerSoftWindow(ps fairness.PlayerStats, round int, pol policy.Policy) bool {
	if ps.JoinRound <= 0 || pol.NewPlayerSoftPenaltyRounds <= 0 {
		return false
	}
	start := ps.JoinRound + pol.NewPlayerHardCooldownRounds
	return round >= start && round < start+pol.NewPlayerSoftPenaltyRounds
}

// baseWeight computes the selection weight of c before pair penalties and
// jitter. The recent-window penalty is skipped from RelaxRecentWindow on.
func baseWeight(c candidate, round int, pol policy.Policy, level Relaxation, multiplier float64) float64 {
	ps := c.stats
	w := 1.0

	w /= 1 + pol.AlphaFrequencyPenalty*float64(ps.TimesImposter)

	if ps.EverPicked() {
		since := round - ps.LastPickedRound
		w *= 1 + pol.BetaDistanceBonus*float64(since)

		if level < RelaxRecentWindow && pol.RecentWindow > 0 && since <= pol.RecentWindow {
			w *= recentWindowFactor
		}
	} else {
		w *= neverPickedBonus
	}

	if inNewPlayerSoftWindow(ps, round, pol) {
		w *= pol.NewPlayerPenaltyFactor
	}

	if multiplier > 0 && !math.IsInf(multiplier, 0) {
		w *= multiplier
	}

	if math.IsNaN(w) || w < minWeight {
		w = minWeight
	}
	return min(w, maxWeight)
}

// pairPenalty sums the penalty of putting id on a team with the players
// already chosen in this pick.
func pairPenalty(id fairness.PlayerID, chosen []fairness.PlayerID, st *fairness.State, pol policy.Policy) float64 {
	if pol.PairRecentWindow <= 0 {
		return 0
	}
	round := st.Round()
	var acc float64
	for _, mate := range chosen {
		last, ok := st.PairLastRound(id, mate)
		if !ok {
			continue
		}
		since := round - last
		if since > pol.PairRecentWindow {
			continue
		}
		acc += pol.GammaPairPenalty * math.Exp(-pol.PairPenaltyDecay*float64(since))
	}
	return acc
}

// usable reports whether w can take part in a weighted draw.
func usable(w float64) bool {
	return w > 0 && !math.IsInf(w, 0) && !math.IsNaN(w)
}
