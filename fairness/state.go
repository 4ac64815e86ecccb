// Package fairness tracks per-player imposter history across the rounds of
// a play session.
//
// A State is owned by a single game session. It is not safe for concurrent
// use; hosts that touch it from several goroutines must serialize access.
// The picker reads a State but never changes it: after the host accepts a
// selection it calls CommitRound (or the granular RecordSelection,
// UpdateStats and AdvanceRound methods).
package fairness

import (
	"slices"

	"github.com/imposterparty/fairness/policy"
)

// PlayerID identifies a player. Only equality is meaningful.
type PlayerID string

// NeverPicked is the LastPickedRound of a player who has not been imposter.
const NeverPicked = -1

// PlayerStats is the fairness history of one player.
type PlayerStats struct {
	TimesImposter int `json:"times_imposter"`
	// CurrentStreak counts consecutive rounds picked, ending at LastPickedRound.
	CurrentStreak   int `json:"current_streak"`
	LastPickedRound int `json:"last_picked_round"`
	// CooldownUntilRound is exclusive: the player is excluded while the
	// current round is below it.
	CooldownUntilRound int `json:"cooldown_until_round"`
	JoinRound          int `json:"join_round"`
}

// NewPlayerStats returns the stats of a player nobody has seen before.
func NewPlayerStats() PlayerStats {
	return PlayerStats{LastPickedRound: NeverPicked}
}

// EverPicked reports whether the player has been imposter at least once.
func (ps PlayerStats) EverPicked() bool {
	return ps.LastPickedRound >= 0
}

// PairKey is an unordered pair of distinct players. NewPairKey orders the
// ids so (a, b) and (b, a) produce the same key.
type PairKey struct {
	A PlayerID
	B PlayerID
}

// NewPairKey returns the canonical key for a and b.
func NewPairKey(a, b PlayerID) PairKey {
	if b < a {
		a, b = b, a
	}
	return PairKey{A: a, B: b}
}

// State is the fairness memory of a session.
type State struct {
	round         int
	perPlayer     map[PlayerID]PlayerStats
	pairLastRound map[PairKey]int
}

// NewState returns an empty state at round zero.
func NewState() *State {
	return &State{
		perPlayer:     make(map[PlayerID]PlayerStats),
		pairLastRound: make(map[PairKey]int),
	}
}

// Round returns the index of the current round.
func (s *State) Round() int {
	return s.round
}

// Stats returns the stats for id, or fresh defaults if id is unknown. It
// does not store anything.
func (s *State) Stats(id PlayerID) PlayerStats {
	if ps, ok := s.perPlayer[id]; ok {
		return ps
	}
	return NewPlayerStats()
}

// Known reports whether id has a stored entry.
func (s *State) Known(id PlayerID) bool {
	_, ok := s.perPlayer[id]
	return ok
}

// UpdateStats fetches or creates the entry for id, applies fn and stores
// the result.
func (s *State) UpdateStats(id PlayerID, fn func(*PlayerStats)) {
	ps := s.Stats(id)
	fn(&ps)
	if ps.CooldownUntilRound < 0 {
		ps.CooldownUntilRound = 0
	}
	s.perPlayer[id] = ps
}

// Join records id as joining at the current round. Players already known
// keep their original join round.
func (s *State) Join(id PlayerID) {
	if s.Known(id) {
		return
	}
	s.UpdateStats(id, func(ps *PlayerStats) {
		ps.JoinRound = s.round
	})
}

// PairLastRound returns the last round a and b were imposters together.
func (s *State) PairLastRound(a, b PlayerID) (int, bool) {
	r, ok := s.pairLastRound[NewPairKey(a, b)]
	return r, ok
}

// RecordSelection marks ids as picked in the current round, and every pair
// among them as picked together. Streaks of players not in ids are left
// alone; see CommitRound.
func (s *State) RecordSelection(ids []PlayerID) {
	for _, id := range ids {
		s.UpdateStats(id, func(ps *PlayerStats) {
			ps.TimesImposter++
			ps.CurrentStreak++
			ps.LastPickedRound = s.round
		})
	}
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			if ids[i] == ids[j] {
				continue
			}
			s.pairLastRound[NewPairKey(ids[i], ids[j])] = s.round
		}
	}
}

// AdvanceRound moves to the next round. Call it exactly once per round.
func (s *State) AdvanceRound() {
	s.round++
}

// CommitRound applies all bookkeeping for a completed round: records the
// picked players, starts their cooldown, resets the streak of everyone in
// roster who was not picked, and advances the round.
func (s *State) CommitRound(picked, roster []PlayerID, pol policy.Policy) {
	pol = pol.Normalized()

	s.RecordSelection(picked)

	cooldownUntil := s.round + 1 + pol.MinCooldownRounds
	for _, id := range picked {
		s.UpdateStats(id, func(ps *PlayerStats) {
			ps.CooldownUntilRound = max(ps.CooldownUntilRound, cooldownUntil)
		})
	}

	for _, id := range roster {
		if slices.Contains(picked, id) {
			continue
		}
		s.UpdateStats(id, func(ps *PlayerStats) {
			ps.CurrentStreak = 0
		})
	}

	s.AdvanceRound()
}

// Players returns the ids with stored stats, sorted.
func (s *State) Players() []PlayerID {
	ids := make([]PlayerID, 0, len(s.perPlayer))
	for id := range s.perPlayer {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Clone returns a deep copy of s.
func (s *State) Clone() *State {
	c := &State{
		round:         s.round,
		perPlayer:     make(map[PlayerID]PlayerStats, len(s.perPlayer)),
		pairLastRound: make(map[PairKey]int, len(s.pairLastRound)),
	}
	for k, v := range s.perPlayer {
		c.perPlayer[k] = v
	}
	for k, v := range s.pairLastRound {
		c.pairLastRound[k] = v
	}
	return c
}
