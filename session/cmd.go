package session

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/MakeNowJust/heredoc"
	"go.ntppool.org/common/logger"
	"golang.org/x/sync/errgroup"

	"github.com/imposterparty/fairness/fairness"
	"github.com/imposterparty/fairness/policy"
)

// StateFlags select the persisted session state.
type StateFlags struct {
	State string `short:"s" default:"imposter-state.json" type:"path" help:"Session state file"`
}

type (
	RoundCmd struct {
		StateFlags   `embed:""`
		policy.Flags `embed:""`

		Imposters int      `short:"i" default:"1" help:"Imposters to pick"`
		JSON      bool     `name:"json" help:"Print the round as JSON"`
		Players   []string `arg:"" help:"Players in this round"`
	}
	ShowCmd struct {
		StateFlags   `embed:""`
		policy.Flags `embed:""`

		JSON bool `name:"json" help:"Print the state as JSON"`
	}
	ResetCmd struct {
		StateFlags `embed:""`
	}
	PlayCmd struct {
		StateFlags `embed:""`

		Policy    string `type:"path" help:"Policy file, reloaded when it changes"`
		Imposters int    `short:"i" default:"1" help:"Imposters to pick each round"`
	}
)

func toIDs(names []string) []fairness.PlayerID {
	ids := make([]fairness.PlayerID, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		ids = append(ids, fairness.PlayerID(name))
	}
	return ids
}

func (cmd RoundCmd) Run(ctx context.Context) error {
	pol, err := cmd.Flags.Load()
	if err != nil {
		return err
	}

	s, err := New(Options{
		Policy:    policy.Static(pol),
		StatePath: cmd.State,
		Log:       logger.FromContext(ctx),
	})
	if err != nil {
		return err
	}

	r, err := s.PlayRound(ctx, toIDs(cmd.Players), cmd.Imposters)
	if err != nil {
		return err
	}

	if cmd.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	return writeRound(os.Stdout, r)
}

func (cmd ShowCmd) Run(ctx context.Context) error {
	pol, err := cmd.Flags.Load()
	if err != nil {
		return err
	}

	s, err := New(Options{
		Policy:    policy.Static(pol),
		StatePath: cmd.State,
		Log:       logger.FromContext(ctx),
	})
	if err != nil {
		return err
	}

	if cmd.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(s.State())
	}
	return writeState(os.Stdout, s)
}

func (cmd ResetCmd) Run(ctx context.Context) error {
	s, err := New(Options{
		StatePath: cmd.State,
		Log:       logger.FromContext(ctx),
	})
	if err != nil {
		return err
	}
	return s.Reset(ctx)
}

// Run reads one roster per line from stdin, comma separated, and plays a
// round for each. An empty line replays the previous roster.
func (cmd PlayCmd) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)

	var src policy.Source = policy.Static(policy.Default())
	var watcher *policy.Watcher
	if cmd.Policy != "" {
		var err error
		watcher, err = policy.NewWatcher(ctx, cmd.Policy)
		if err != nil {
			return err
		}
		src = watcher
	}

	s, err := New(Options{
		Policy:    src,
		StatePath: cmd.State,
		Log:       log,
	})
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if watcher != nil {
		g.Go(func() error {
			return watcher.Run(ctx)
		})
	}

	g.Go(func() error {
		defer cancel()
		return playLines(ctx, s, os.Stdin, os.Stdout, cmd.Imposters)
	})

	return g.Wait()
}

// playLines plays a round for every roster read from in until in is
// exhausted or ctx is done. A read blocked on an idle input does not delay
// cancellation; the reading goroutine exits once in returns.
func playLines(ctx context.Context, s *Session, in io.Reader, out io.Writer, count int) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	var roster []fairness.PlayerID
	for {
		var line string
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			line = l
		}

		if line = strings.TrimSpace(line); line != "" {
			roster = toIDs(strings.Split(line, ","))
		}
		if len(roster) == 0 {
			continue
		}

		r, err := s.PlayRound(ctx, roster, count)
		if err != nil {
			return err
		}
		if err := writeRound(out, r); err != nil {
			return err
		}
	}
}

func writeRound(w io.Writer, r Round) error {
	names := make([]string, len(r.Imposters))
	for i, id := range r.Imposters {
		names[i] = string(id)
	}

	imposters := strings.Join(names, ", ")
	if imposters == "" {
		imposters = "(none)"
	}

	_, err := fmt.Fprint(w, heredoc.Docf(`
		Round %d  (%s)
		Imposters: %s
	`, r.Number, r.ID, imposters))
	if err != nil {
		return err
	}

	if r.Selection.Short() {
		_, err = fmt.Fprintf(w, "Only %d of %d imposters could be picked\n",
			len(r.Imposters), r.Selection.Desired)
	}
	return err
}

func writeState(w io.Writer, s *Session) error {
	st := s.State()
	ids := st.Players()
	weights := s.Weights(ids)

	if _, err := fmt.Fprintf(w, "Next round: %d\n\n", st.Round()); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PLAYER\tPICKS\tSTREAK\tLAST\tCOOLDOWN\tJOINED\tWEIGHT")
	for _, id := range ids {
		ps := st.Stats(id)

		last := "-"
		if ps.EverPicked() {
			last = fmt.Sprint(ps.LastPickedRound)
		}
		weight := "excluded"
		if wt, ok := weights[id]; ok {
			weight = fmt.Sprintf("%.3f", wt)
		}

		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%d\t%d\t%s\n",
			id, ps.TimesImposter, ps.CurrentStreak, last,
			ps.CooldownUntilRound, ps.JoinRound, weight)
	}
	return tw.Flush()
}
