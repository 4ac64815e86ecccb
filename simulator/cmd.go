package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"go.ntppool.org/common/logger"
	"go.ntppool.org/common/metricsserver"
	"go.ntppool.org/common/version"

	"github.com/imposterparty/fairness/picker"
	"github.com/imposterparty/fairness/policy"
)

// SessionFlags describe the simulated session.
type SessionFlags struct {
	Players    []string           `short:"p" default:"ana,ben,cleo,dev,eli,fay" help:"Player names"`
	Imposters  int                `short:"i" default:"1" help:"Imposters per round"`
	Rounds     int                `short:"r" default:"1000" help:"Rounds to simulate"`
	Join       map[string]int     `help:"Late joiners as name=round"`
	Multiplier map[string]float64 `help:"Weight multipliers as name=factor"`
	Verbose    bool               `flag:"verbose" short:"v" help:"Enable verbose debug logging"`
	JSON       bool               `name:"json" help:"Print the result as JSON"`

	policy.Flags `embed:""`
}

type (
	RunCmd struct {
		SessionFlags `embed:""`

		Seed *uint64 `help:"Seed for a reproducible run"`
	}
	SweepCmd struct {
		SessionFlags `embed:""`

		FirstSeed   uint64 `default:"1" help:"First seed"`
		Seeds       int    `default:"64" help:"Number of seeds"`
		Workers     int    `short:"w" default:"4" help:"Parallel runs"`
		Worst       int    `default:"5" help:"Number of worst runs to list"`
		MetricsPort int    `default:"0" help:"Metrics server port, 0 to disable" flag:"metrics-port"`
	}
)

func (f SessionFlags) config() (Config, error) {
	pol, err := f.Flags.Load()
	if err != nil {
		return Config{}, err
	}
	if f.Imposters < 1 {
		return Config{}, fmt.Errorf("imposters must be at least 1, got %d", f.Imposters)
	}
	return Config{
		Names:             f.Players,
		ImpostersPerRound: f.Imposters,
		Rounds:            f.Rounds,
		Policy:            pol,
		Joins:             f.Join,
		Multipliers:       f.Multiplier,
	}, nil
}

func (f SessionFlags) setupLog(ctx context.Context) (context.Context, *slog.Logger) {
	log := logger.FromContext(ctx)
	if f.Verbose {
		debugHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
		log = slog.New(debugHandler)
		ctx = logger.NewContext(ctx, log)
	}
	return ctx, log
}

func (cmd RunCmd) Run(ctx context.Context) error {
	ctx, log := cmd.setupLog(ctx)

	cfg, err := cmd.config()
	if err != nil {
		return err
	}
	cfg.Seed = cmd.Seed

	log.DebugContext(ctx, "starting simulation",
		"players", len(cfg.Names),
		"imposters", cfg.ImpostersPerRound,
		"rounds", cfg.Rounds,
		"policy", cfg.Policy.String())

	sim := New(log, picker.New(log, nil), nil)
	res, err := sim.Run(ctx, cfg)
	if err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}

	if cmd.JSON {
		return printJSON(res)
	}
	return WriteReport(os.Stdout, res)
}

func (cmd SweepCmd) Run(ctx context.Context) error {
	ctx, log := cmd.setupLog(ctx)

	cfg, err := cmd.config()
	if err != nil {
		return err
	}

	var (
		pm *picker.Metrics
		sm *Metrics
	)
	if cmd.MetricsPort > 0 {
		metricssrv := metricsserver.New()
		version.RegisterMetric("imposter_fairness", metricssrv.Registry())
		go func() {
			if err := metricssrv.ListenAndServe(ctx, cmd.MetricsPort); err != nil {
				log.Error("metrics server error", "err", err)
			}
		}()
		pm = picker.NewMetrics(metricssrv.Registry())
		sm = NewMetrics(metricssrv.Registry())
	}

	log.InfoContext(ctx, "starting sweep",
		"seeds", cmd.Seeds,
		"firstSeed", cmd.FirstSeed,
		"workers", cmd.Workers,
		"version", version.Version())

	sim := New(log, picker.New(log, pm), sm)
	sum, err := sim.Sweep(ctx, cfg, Seeds(cmd.FirstSeed, cmd.Seeds), cmd.Workers)
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}

	if cmd.JSON {
		return printJSON(sum)
	}
	return WriteSweepReport(os.Stdout, sum, cmd.Worst)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
