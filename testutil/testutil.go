// Package testutil holds fixtures shared by the package tests.
package testutil

import (
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/imposterparty/fairness/fairness"
)

type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// Logger returns a logger writing to the test log. Output only shows for
// failed tests or with -v.
func Logger(t testing.TB) *slog.Logger {
	return slog.New(slog.NewTextHandler(testWriter{t: t}, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// Roster returns n player ids "p00", "p01", ...
func Roster(n int) []fairness.PlayerID {
	ids := make([]fairness.PlayerID, n)
	for i := range ids {
		ids[i] = fairness.PlayerID(fmt.Sprintf("p%02d", i))
	}
	return ids
}

// StateAtRound returns an empty state advanced to round.
func StateAtRound(round int) *fairness.State {
	st := fairness.NewState()
	for range round {
		st.AdvanceRound()
	}
	return st
}
