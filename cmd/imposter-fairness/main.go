package main

import (
	"fmt"

	"go.ntppool.org/common/logger"
	"go.ntppool.org/common/version"

	rootcmd "github.com/imposterparty/fairness/cmd"
	"github.com/imposterparty/fairness/session"
	"github.com/imposterparty/fairness/simulator"
)

const name = "imposter-fairness"

func init() {
	logger.ConfigPrefix = "IMPOSTER"
}

type CLI struct {
	Simulate simulator.RunCmd   `cmd:"" help:"simulate one session against a policy"`
	Sweep    simulator.SweepCmd `cmd:"" help:"simulate many seeds in parallel"`

	Round session.RoundCmd `cmd:"" help:"pick the imposters for one round"`
	Play  session.PlayCmd  `cmd:"" help:"play rounds read from stdin"`
	Show  session.ShowCmd  `cmd:"" help:"show the session state"`
	Reset session.ResetCmd `cmd:"" help:"discard the session state"`

	Version versionCmd `cmd:"" help:"print the version"`
}

type versionCmd struct{}

func (versionCmd) Run() error {
	fmt.Printf("%s %s\n", name, version.Version())
	return nil
}

func main() {
	rootcmd.Run(&CLI{}, name, "Fair imposter selection for party games", "IMPOSTER",
		"imposter-fairness.json",
		"~/.config/imposter-fairness/config.json",
	)
}
