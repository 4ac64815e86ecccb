// Package simulator runs many synthetic rounds against a policy and reports
// how fair the picks were over the long run. It is used offline to tune a
// policy before adopting it.
package simulator

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"go.ntppool.org/common/logger"
	"go.ntppool.org/common/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/imposterparty/fairness/fairness"
	"github.com/imposterparty/fairness/picker"
	"github.com/imposterparty/fairness/policy"
	"github.com/imposterparty/fairness/rng"
	"github.com/imposterparty/fairness/ulid"
)

// ctxCheckInterval is how many rounds run between context checks
const ctxCheckInterval = 256

// simEpoch timestamps synthetic player ids so seeded runs are reproducible
var simEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Config describes one simulation.
type Config struct {
	Names             []string
	ImpostersPerRound int
	Rounds            int
	Policy            policy.Policy

	// Seed makes the run reproducible. Without one the system source is used.
	Seed *uint64

	// Joins maps a name to the round the player arrives. Names without an
	// entry play from round zero.
	Joins map[string]int

	// Multipliers are external weight hints by name.
	Multipliers map[string]float64
}

// Result aggregates a simulation.
type Result struct {
	Rounds int `json:"rounds"`
	// Skipped counts rounds where the picker came back short.
	Skipped int            `json:"skipped"`
	Picks   map[string]int `json:"picks"`
	// MaxStreak is the longest streak observed right after a pick.
	MaxStreak int `json:"max_streak"`
	// PairRepeats counts pairs picked together again within PairRecentWindow.
	PairRepeats int `json:"pair_repeats"`
	// Spread is max minus min picks among players present for the whole run.
	Spread int `json:"spread"`
}

// Simulator drives the picker against a throwaway state.
type Simulator struct {
	log     *slog.Logger
	picker  *picker.Picker
	metrics *Metrics
}

// New returns a Simulator. A nil picker gets a default one; metrics may be nil.
func New(log *slog.Logger, pk *picker.Picker, metrics *Metrics) *Simulator {
	if log == nil {
		log = logger.Setup()
	}
	if pk == nil {
		pk = picker.New(log, nil)
	}
	return &Simulator{log: log, picker: pk, metrics: metrics}
}

type player struct {
	name string
	id   fairness.PlayerID
	join int
}

// Run executes cfg. It only returns an error when ctx is cancelled, along
// with the partial result so far.
func (s *Simulator) Run(ctx context.Context, cfg Config) (Result, error) {
	ctx, span := tracing.Start(ctx, "simulator.Run",
		trace.WithAttributes(
			attribute.Int("players", len(cfg.Names)),
			attribute.Int("imposters", cfg.ImpostersPerRound),
			attribute.Int("rounds", cfg.Rounds),
		),
	)
	defer span.End()

	var src rng.Source
	var idSrc rng.Source
	if cfg.Seed != nil {
		span.SetAttributes(seedAttribute(*cfg.Seed))
		src = rng.NewXorShift(*cfg.Seed)
		idSrc = rng.NewXorShift(^*cfg.Seed)
	} else {
		src = rng.NewSystem()
		idSrc = rng.NewSystem()
	}

	players, err := assignIDs(cfg, ulid.NewGenerator(idSrc))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}

	res := Result{Picks: make(map[string]int, len(players))}
	for _, p := range players {
		res.Picks[p.name] = 0
	}

	names := make(map[fairness.PlayerID]string, len(players))
	multipliers := make(map[fairness.PlayerID]float64, len(cfg.Multipliers))
	for _, p := range players {
		names[p.id] = p.name
		if m, ok := cfg.Multipliers[p.name]; ok {
			multipliers[p.id] = m
		}
	}

	pol := cfg.Policy.Normalized()
	st := fairness.NewState()
	roster := make([]fairness.PlayerID, 0, len(players))

	for round := 0; round < cfg.Rounds; round++ {
		if round%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				res.Spread = spread(res, players, cfg.Rounds)
				return res, err
			}
		}

		roster = roster[:0]
		for _, p := range players {
			if p.join > round {
				continue
			}
			if p.join == round {
				st.Join(p.id)
			}
			roster = append(roster, p.id)
		}

		res.Rounds++

		sel := s.picker.Select(picker.Request{
			Players:     roster,
			Count:       cfg.ImpostersPerRound,
			Policy:      pol,
			Multipliers: multipliers,
		}, st, src)

		if len(sel.Players) != cfg.ImpostersPerRound {
			res.Skipped++
			st.AdvanceRound()
			if s.metrics != nil {
				s.metrics.SkippedRounds.Inc()
			}
			continue
		}

		repeats := pairRepeats(sel.Players, st, pol)
		res.PairRepeats += repeats

		st.CommitRound(sel.Players, roster, pol)

		for _, id := range sel.Players {
			res.Picks[names[id]]++
			res.MaxStreak = max(res.MaxStreak, st.Stats(id).CurrentStreak)
		}

		if s.metrics != nil {
			s.metrics.Rounds.Inc()
			s.metrics.PairRepeats.Add(float64(repeats))
		}
	}

	res.Spread = spread(res, players, cfg.Rounds)

	if s.metrics != nil {
		s.metrics.Runs.Inc()
	}

	s.log.DebugContext(ctx, "simulation complete",
		"rounds", res.Rounds,
		"skipped", res.Skipped,
		"maxStreak", res.MaxStreak,
		"pairRepeats", res.PairRepeats,
		"spread", res.Spread)

	return res, nil
}

// seedAttribute records seed in decimal; int64 attributes cannot hold the
// upper half of the range.
func seedAttribute(seed uint64) attribute.KeyValue {
	return attribute.String("seed", strconv.FormatUint(seed, 10))
}

// assignIDs gives every name a synthetic player id.
func assignIDs(cfg Config, gen *ulid.Generator) ([]player, error) {
	seen := make(map[string]bool, len(cfg.Names))
	players := make([]player, 0, len(cfg.Names))
	for i, name := range cfg.Names {
		if seen[name] {
			return nil, fmt.Errorf("duplicate player name %q", name)
		}
		seen[name] = true

		id, err := gen.Make(simEpoch.Add(time.Duration(i) * time.Millisecond))
		if err != nil {
			return nil, fmt.Errorf("player id for %q: %w", name, err)
		}
		players = append(players, player{
			name: name,
			id:   fairness.PlayerID(id.String()),
			join: max(cfg.Joins[name], 0),
		})
	}
	return players, nil
}

// pairRepeats counts the pairs in picked whose last joint pick was within
// the pair window. It must run before the round is recorded.
func pairRepeats(picked []fairness.PlayerID, st *fairness.State, pol policy.Policy) int {
	n := 0
	for i := 0; i < len(picked); i++ {
		for j := i + 1; j < len(picked); j++ {
			last, ok := st.PairLastRound(picked[i], picked[j])
			if ok && st.Round()-last <= pol.PairRecentWindow {
				n++
			}
		}
	}
	return n
}

func spread(res Result, players []player, rounds int) int {
	lo, hi := -1, 0
	for _, p := range players {
		if p.join > 0 || rounds == 0 {
			continue
		}
		n := res.Picks[p.name]
		if lo < 0 || n < lo {
			lo = n
		}
		hi = max(hi, n)
	}
	if lo < 0 {
		return 0
	}
	return hi - lo
}
