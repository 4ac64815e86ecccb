// Package session runs the imposter pick for a live game. A Session owns the
// fairness state for the lifetime of a play session and applies the round
// bookkeeping after every pick, so hosts only supply the roster.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.ntppool.org/common/logger"

	"github.com/imposterparty/fairness/fairness"
	"github.com/imposterparty/fairness/picker"
	"github.com/imposterparty/fairness/policy"
	"github.com/imposterparty/fairness/rng"
	"github.com/imposterparty/fairness/ulid"
)

var (
	ErrNoPlayers   = errors.New("session: roster is empty")
	ErrNoImposters = errors.New("session: imposter count must be at least 1")
)

// Options configure a Session. Every field is optional.
type Options struct {
	Policy policy.Source
	Picker *picker.Picker
	Source rng.Source

	// StatePath, when set, is loaded on start and saved after every round.
	StatePath string

	Log *slog.Logger
}

// Session is safe for concurrent use; rounds are serialized.
type Session struct {
	log    *slog.Logger
	policy policy.Source
	picker *picker.Picker
	path   string

	mu    sync.Mutex
	state *fairness.State
	src   rng.Source
}

// Request is one round.
type Request struct {
	Roster      []fairness.PlayerID
	Count       int
	Multipliers map[fairness.PlayerID]float64
}

// Round is the outcome of a played round.
type Round struct {
	ID        string              `json:"id"`
	Number    int                 `json:"round"`
	Imposters []fairness.PlayerID `json:"imposters"`
	Selection picker.Selection    `json:"-"`
	Policy    policy.Policy       `json:"policy"`
}

// New returns a Session, loading the state file when one is configured.
func New(opts Options) (*Session, error) {
	s := &Session{
		log:    opts.Log,
		policy: opts.Policy,
		picker: opts.Picker,
		path:   opts.StatePath,
		src:    opts.Source,
	}
	if s.log == nil {
		s.log = logger.Setup()
	}
	if s.policy == nil {
		s.policy = policy.Static(policy.Default())
	}
	if s.picker == nil {
		s.picker = picker.New(s.log, nil)
	}
	if s.src == nil {
		s.src = rng.NewSystem()
	}

	if s.path == "" {
		s.state = fairness.NewState()
		return s, nil
	}

	st, err := fairness.LoadFile(s.path)
	if err != nil {
		return nil, err
	}
	s.state = st

	s.log.Debug("loaded session state", "path", s.path, "round", st.Round(), "players", len(st.Players()))

	return s, nil
}

// PlayRound picks count imposters from roster and commits the round.
func (s *Session) PlayRound(ctx context.Context, roster []fairness.PlayerID, count int) (Round, error) {
	return s.Play(ctx, Request{Roster: roster, Count: count})
}

// Play runs req against the current policy. Roster members seen for the
// first time join at the current round.
//
// An empty roster or a count below 1 is rejected with ErrNoPlayers or
// ErrNoImposters before anything is recorded. The picker alone would return
// an empty selection for these, but committing it would burn a round and
// reset every streak, which is never what a host asking for a round means. The round is committed even when
// the picker comes back short, so streaks of players left out still reset.
// If the state cannot be saved the round is still returned, with the error.
func (s *Session) Play(ctx context.Context, req Request) (Round, error) {
	if len(req.Roster) == 0 {
		return Round{}, ErrNoPlayers
	}
	if req.Count < 1 {
		return Round{}, ErrNoImposters
	}

	id, err := ulid.MakeULID(time.Now())
	if err != nil {
		return Round{}, fmt.Errorf("round id: %w", err)
	}

	pol := s.policy.Current()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, pid := range req.Roster {
		s.state.Join(pid)
	}

	number := s.state.Round()

	sel := s.picker.Select(picker.Request{
		Players:     req.Roster,
		Count:       req.Count,
		Policy:      pol,
		Multipliers: req.Multipliers,
	}, s.state, s.src)

	s.state.CommitRound(sel.Players, req.Roster, pol)

	r := Round{
		ID:        id.String(),
		Number:    number,
		Imposters: sel.Players,
		Selection: sel,
		Policy:    pol,
	}

	s.log.InfoContext(ctx, "round played",
		"id", r.ID,
		"round", number,
		"players", len(req.Roster),
		"imposters", len(sel.Players),
		"desired", sel.Desired,
		"relaxation", sel.Relaxation.String())

	if err := s.save(); err != nil {
		return r, err
	}
	return r, nil
}

// Weights returns the base weights for roster under the current policy.
func (s *Session) Weights(roster []fairness.PlayerID) map[fairness.PlayerID]float64 {
	pol := s.policy.Current()

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.picker.Weights(picker.Request{Players: roster, Policy: pol}, s.state)
}

// State returns a copy of the current fairness state.
func (s *Session) State() *fairness.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Reset discards all history and starts again from round zero.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = fairness.NewState()
	s.log.InfoContext(ctx, "session state reset", "path", s.path)

	return s.save()
}

// save must be called with mu held.
func (s *Session) save() error {
	if s.path == "" {
		return nil
	}
	if err := s.state.SaveFile(s.path); err != nil {
		return fmt.Errorf("saving session state: %w", err)
	}
	return nil
}
