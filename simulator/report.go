package simulator

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/MakeNowJust/heredoc"
	"golang.org/x/exp/slices"
)

// WriteReport writes a human readable summary of res to w.
func WriteReport(w io.Writer, res Result) error {
	_, err := fmt.Fprint(w, heredoc.Docf(`
		Rounds:        %d
		Skipped:       %d
		Max streak:    %d
		Pair repeats:  %d
		Spread:        %d

	`, res.Rounds, res.Skipped, res.MaxStreak, res.PairRepeats, res.Spread))
	if err != nil {
		return err
	}

	names := make([]string, 0, len(res.Picks))
	for name := range res.Picks {
		names = append(names, name)
	}
	slices.Sort(names)

	played := res.Rounds - res.Skipped

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PLAYER\tPICKS\tSHARE")
	for _, name := range names {
		n := res.Picks[name]
		share := 0.0
		if played > 0 {
			share = float64(n) / float64(played)
		}
		fmt.Fprintf(tw, "%s\t%d\t%.3f\n", name, n, share)
	}
	return tw.Flush()
}

// WriteSweepReport writes the sweep aggregate and its worst runs to w.
func WriteSweepReport(w io.Writer, sum SweepSummary, worst int) error {
	_, err := fmt.Fprint(w, heredoc.Docf(`
		Runs:               %d
		Worst max streak:   %d
		Worst spread:       %d
		Mean spread:        %.2f
		Mean pair repeats:  %.2f
		Skipped rounds:     %d

	`, len(sum.Runs), sum.WorstMaxStreak, sum.WorstSpread,
		sum.MeanSpread, sum.MeanPairRepeats, sum.TotalSkipped))
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEED\tSPREAD\tMAX STREAK\tPAIR REPEATS\tSKIPPED")
	for _, r := range sum.Worst(worst) {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d\n",
			r.Seed, r.Result.Spread, r.Result.MaxStreak,
			r.Result.PairRepeats, r.Result.Skipped)
	}
	return tw.Flush()
}
