// Package picker selects the imposters for a round.
//
// # Selection
//
// Each pick runs in five steps:
//   - hard exclusion: streak cap, cooldown and new-player hard cooldown
//   - base weight: frequency penalty, recency bonus, recent-window penalty,
//     new-player soft penalty and optional external multipliers
//   - pair penalty against teammates already chosen in the same pick
//   - jitter, a small random scaling of each weight
//   - weighted draw without replacement
//
// # Relaxation
//
// When no remaining candidate has a usable weight the picker relaxes soft
// penalties in a fixed order (see Relaxation). Hard exclusions are never
// lifted, so a pick may legitimately return fewer players than requested.
//
// The picker only reads fairness.State. The caller commits the result.
package picker

import (
	"log/slog"
	"time"

	"go.ntppool.org/common/logger"

	"github.com/imposterparty/fairness/fairness"
	"github.com/imposterparty/fairness/policy"
	"github.com/imposterparty/fairness/rng"
)

// Picker selects imposters. It keeps no per-round state and may be reused.
type Picker struct {
	log     *slog.Logger
	metrics *Metrics
}

// New returns a Picker. Both arguments may be nil.
func New(log *slog.Logger, metrics *Metrics) *Picker {
	if log == nil {
		log = logger.Setup()
	}
	return &Picker{log: log, metrics: metrics}
}

// Pick returns up to count imposters from players.
func (p *Picker) Pick(
	players []fairness.PlayerID,
	count int,
	pol policy.Policy,
	st *fairness.State,
	src rng.Source,
) []fairness.PlayerID {
	return p.Select(Request{Players: players, Count: count, Policy: pol}, st, src).Players
}

// Select runs a pick and reports how it was made.
func (p *Picker) Select(req Request, st *fairness.State, src rng.Source) Selection {
	start := time.Now()

	sel := p.selectPlayers(req, st, src)

	if p.metrics != nil {
		p.metrics.TrackSelection(sel, time.Since(start).Seconds())
	}

	if sel.Short() {
		p.log.Warn("picked fewer imposters than desired",
			"round", st.Round(),
			"desired", sel.Desired,
			"picked", len(sel.Players),
			"excluded", len(sel.Excluded))
	} else {
		p.log.Debug("picked imposters",
			"round", st.Round(),
			"desired", sel.Desired,
			"players", len(req.Players),
			"excluded", len(sel.Excluded),
			"relaxation", sel.Relaxation.String())
	}

	return sel
}

func (p *Picker) selectPlayers(req Request, st *fairness.State, src rng.Source) Selection {
	sel := Selection{
		Excluded: make(map[fairness.PlayerID]Exclusion),
	}

	players := dedupe(req.Players)
	if req.Count <= 0 || len(players) == 0 {
		return sel
	}

	// at least one player always stays a citizen
	sel.Desired = min(req.Count, max(0, len(players)-1))
	if sel.Desired == 0 {
		return sel
	}

	pol := req.Policy.Normalized()
	round := st.Round()

	eligible := make([]candidate, 0, len(players))
	for _, id := range players {
		ps := st.Stats(id)
		if reason := hardExclusion(ps, round, pol); reason != exclusionNone {
			sel.Excluded[id] = reason
			continue
		}
		eligible = append(eligible, candidate{id: id, stats: ps})
	}

	sel.Players = make([]fairness.PlayerID, 0, sel.Desired)
	level := RelaxNone

	for len(sel.Players) < sel.Desired {
		pool := remaining(eligible, sel.Players)
		if len(pool) == 0 {
			break
		}

		idx, ok := -1, false
		for {
			idx, ok = draw(pool, sel.Players, level, req, st, pol, src)
			if ok || level == RelaxUniform {
				break
			}
			level++
			p.log.Debug("relaxing soft penalties",
				"round", round,
				"level", level.String(),
				"pool", len(pool))
		}
		if !ok {
			break
		}

		sel.Players = append(sel.Players, pool[idx].id)
	}

	sel.Relaxation = level
	return sel
}

// Weights returns the base weight of every eligible player in req, without
// pair penalties or jitter. Hard-excluded players are omitted.
func (p *Picker) Weights(req Request, st *fairness.State) map[fairness.PlayerID]float64 {
	pol := req.Policy.Normalized()
	round := st.Round()

	weights := make(map[fairness.PlayerID]float64, len(req.Players))
	for _, id := range req.Players {
		c := candidate{id: id, stats: st.Stats(id)}
		if hardExclusion(c.stats, round, pol) != exclusionNone {
			continue
		}
		weights[id] = baseWeight(c, round, pol, RelaxNone, req.Multipliers[id])
	}
	return weights
}

// draw picks one index from pool at the given relaxation level. It returns
// false when no candidate has a usable weight.
func draw(
	pool []candidate,
	chosen []fairness.PlayerID,
	level Relaxation,
	req Request,
	st *fairness.State,
	pol policy.Policy,
	src rng.Source,
) (int, bool) {
	if level >= RelaxUniform {
		return rng.Intn(src, len(pool)), true
	}

	weights := effectiveWeights(pool, chosen, level, req, st, pol, src)

	var total float64
	for _, w := range weights {
		total += w
	}
	if !usable(total) {
		return -1, false
	}

	threshold := rng.Float64(src) * total
	var cumulative float64
	last := -1
	for i, w := range weights {
		if w == 0 {
			continue
		}
		last = i
		cumulative += w
		if threshold < cumulative {
			return i, true
		}
	}
	// rounding can leave threshold at the very top of the range
	return last, last >= 0
}

// effectiveWeights returns the draw weight for each member of pool. Weights
// that are not usable are reported as zero.
func effectiveWeights(
	pool []candidate,
	chosen []fairness.PlayerID,
	level Relaxation,
	req Request,
	st *fairness.State,
	pol policy.Policy,
	src rng.Source,
) []float64 {
	round := st.Round()
	weights := make([]float64, len(pool))

	for i, c := range pool {
		w := baseWeight(c, round, pol, level, req.Multipliers[c.id])

		if level < RelaxPairPenalty {
			w /= 1 + pairPenalty(c.id, chosen, st, pol)
		}

		if pol.JitterPercent > 0 {
			w *= rng.Uniform(src, 1-pol.JitterPercent, 1+pol.JitterPercent)
		}
		w = min(w, maxWeight)

		if usable(w) {
			weights[i] = w
		}
	}
	return weights
}

// remaining returns the members of eligible not yet in chosen, in order.
func remaining(eligible []candidate, chosen []fairness.PlayerID) []candidate {
	if len(chosen) == 0 {
		return eligible
	}
	taken := make(map[fairness.PlayerID]bool, len(chosen))
	for _, id := range chosen {
		taken[id] = true
	}
	pool := make([]candidate, 0, len(eligible)-len(chosen))
	for _, c := range eligible {
		if !taken[c.id] {
			pool = append(pool, c)
		}
	}
	return pool
}

func dedupe(ids []fairness.PlayerID) []fairness.PlayerID {
	seen := make(map[fairness.PlayerID]bool, len(ids))
	out := make([]fairness.PlayerID, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
