package fairness

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"slices"
	"strings"
)

// Snapshot is the serializable form of a State.
type Snapshot struct {
	Round   int                      `json:"round"`
	Players map[PlayerID]PlayerStats `json:"players"`
	Pairs   []PairRecord             `json:"pairs"`
}

// PairRecord is one entry of the pair history.
type PairRecord struct {
	A         PlayerID `json:"a"`
	B         PlayerID `json:"b"`
	LastRound int      `json:"last_round"`
}

// Snapshot returns a copy of the state. Pairs are sorted so the encoding is
// stable.
func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		Round:   s.round,
		Players: make(map[PlayerID]PlayerStats, len(s.perPlayer)),
		Pairs:   make([]PairRecord, 0, len(s.pairLastRound)),
	}
	for id, ps := range s.perPlayer {
		snap.Players[id] = ps
	}
	for k, r := range s.pairLastRound {
		snap.Pairs = append(snap.Pairs, PairRecord{A: k.A, B: k.B, LastRound: r})
	}
	slices.SortFunc(snap.Pairs, func(x, y PairRecord) int {
		if c := strings.Compare(string(x.A), string(y.A)); c != 0 {
			return c
		}
		return strings.Compare(string(x.B), string(y.B))
	})
	return snap
}

// Restore builds a State from snap. Pair records are canonicalized and
// records pairing a player with itself are dropped.
func Restore(snap Snapshot) *State {
	s := NewState()
	s.round = max(snap.Round, 0)
	for id, ps := range snap.Players {
		if ps.CooldownUntilRound < 0 {
			ps.CooldownUntilRound = 0
		}
		s.perPlayer[id] = ps
	}
	for _, pr := range snap.Pairs {
		if pr.A == pr.B {
			continue
		}
		s.pairLastRound[NewPairKey(pr.A, pr.B)] = pr.LastRound
	}
	return s
}

func (s *State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Snapshot())
}

func (s *State) UnmarshalJSON(b []byte) error {
	var snap Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return err
	}
	*s = *Restore(snap)
	return nil
}

// LoadFile reads a state saved with SaveFile. A missing file yields a new
// empty state.
func LoadFile(path string) (*State, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewState(), nil
		}
		return nil, err
	}

	s := NewState()
	if err := json.Unmarshal(b, s); err != nil {
		return nil, err
	}
	return s, nil
}

// SaveFile writes the state to path, replacing it atomically.
func (s *State) SaveFile(path string) error {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return replaceFile(path, b)
}

func replaceFile(path string, b []byte) error {
	tmpPath := path + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return err
	}
	defer func() {
		f.Close()
		if err != nil {
			os.Remove(tmpPath)
		}
	}()

	n, err := f.Write(b)
	if err == nil && n < len(b) {
		err = io.ErrShortWrite
	}
	if err1 := f.Close(); err == nil {
		err = err1
	}
	if err != nil {
		return err
	}

	err = os.Rename(tmpPath, path)
	if err != nil {
		return err
	}

	return nil
}
