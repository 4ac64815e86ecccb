package simulator

import (
	"context"
	"fmt"

	"go.ntppool.org/common/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"
)

// SeedResult is one run of a sweep.
type SeedResult struct {
	Seed   uint64 `json:"seed"`
	Result Result `json:"result"`
}

// SweepSummary aggregates a sweep across seeds.
type SweepSummary struct {
	Runs []SeedResult `json:"runs"`

	WorstMaxStreak  int     `json:"worst_max_streak"`
	WorstSpread     int     `json:"worst_spread"`
	MeanPairRepeats float64 `json:"mean_pair_repeats"`
	MeanSpread      float64 `json:"mean_spread"`
	TotalSkipped    int     `json:"total_skipped"`
}

// Worst returns the n runs with the largest spread, ties broken by seed.
func (s SweepSummary) Worst(n int) []SeedResult {
	runs := slices.Clone(s.Runs)
	slices.SortFunc(runs, func(a, b SeedResult) int {
		if a.Result.Spread != b.Result.Spread {
			return b.Result.Spread - a.Result.Spread
		}
		switch {
		case a.Seed < b.Seed:
			return -1
		case a.Seed > b.Seed:
			return 1
		}
		return 0
	})
	if n >= 0 && n < len(runs) {
		runs = runs[:n]
	}
	return runs
}

// Sweep runs cfg once per seed with at most workers runs in flight. Runs
// are reported in seed order. The Seed in cfg is ignored.
func (s *Simulator) Sweep(ctx context.Context, cfg Config, seeds []uint64, workers int) (SweepSummary, error) {
	ctx, span := tracing.Start(ctx, "simulator.Sweep",
		trace.WithAttributes(
			attribute.Int("seeds", len(seeds)),
			attribute.Int("workers", workers),
		),
	)
	defer span.End()

	if workers < 1 {
		workers = 1
	}

	runs := make([]SeedResult, len(seeds))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, seed := range seeds {
		g.Go(func() error {
			c := cfg
			c.Seed = &seed
			res, err := s.Run(ctx, c)
			if err != nil {
				return fmt.Errorf("seed %d: %w", seed, err)
			}
			runs[i] = SeedResult{Seed: seed, Result: res}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return SweepSummary{}, err
	}

	sum := summarize(runs)

	span.SetAttributes(
		attribute.Int("worst_max_streak", sum.WorstMaxStreak),
		attribute.Int("worst_spread", sum.WorstSpread),
	)

	s.log.InfoContext(ctx, "sweep complete",
		"runs", len(runs),
		"worstMaxStreak", sum.WorstMaxStreak,
		"worstSpread", sum.WorstSpread,
		"meanPairRepeats", sum.MeanPairRepeats,
		"meanSpread", sum.MeanSpread)

	return sum, nil
}

func summarize(runs []SeedResult) SweepSummary {
	sum := SweepSummary{Runs: runs}
	if len(runs) == 0 {
		return sum
	}

	var repeats, spread int
	for _, r := range runs {
		sum.WorstMaxStreak = max(sum.WorstMaxStreak, r.Result.MaxStreak)
		sum.WorstSpread = max(sum.WorstSpread, r.Result.Spread)
		sum.TotalSkipped += r.Result.Skipped
		repeats += r.Result.PairRepeats
		spread += r.Result.Spread
	}
	sum.MeanPairRepeats = float64(repeats) / float64(len(runs))
	sum.MeanSpread = float64(spread) / float64(len(runs))

	return sum
}

// Seeds returns n consecutive seeds starting at first.
func Seeds(first uint64, n int) []uint64 {
	seeds := make([]uint64, 0, max(n, 0))
	for i := 0; i < n; i++ {
		seeds = append(seeds, first+uint64(i))
	}
	return seeds
}
