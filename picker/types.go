package picker

//go:generate go tool github.com/dmarkham/enumer -type=Relaxation -trimprefix=Relax

import (
	"github.com/imposterparty/fairness/fairness"
	"github.com/imposterparty/fairness/policy"
)

// Relaxation is how far the picker had to loosen soft penalties to fill a
// selection. Hard exclusions are never relaxed.
type Relaxation uint8

const (
	RelaxNone         Relaxation = iota
	RelaxPairPenalty             // pair penalty ignored
	RelaxRecentWindow            // pair penalty and recent-window penalty ignored
	RelaxUniform                 // uniform draw over the remaining eligible players
)

// Exclusion is the reason a player could not be picked this round.
type Exclusion string

const (
	exclusionNone      Exclusion = ""
	ExclusionStreak    Exclusion = "streak"     // streak reached MaxConsecutive
	ExclusionCooldown  Exclusion = "cooldown"   // still cooling down from a recent pick
	ExclusionNewPlayer Exclusion = "new_player" // inside the new-player hard cooldown
)

// Request describes a single pick.
type Request struct {
	// Players is the ordered, duplicate-free roster for the round.
	Players []fairness.PlayerID
	Count   int
	Policy  policy.Policy
	// Multipliers are optional per-player weight hints. Values that are not
	// positive and finite are ignored.
	Multipliers map[fairness.PlayerID]float64
}

// Selection is the outcome of a pick.
type Selection struct {
	Players []fairness.PlayerID
	// Desired is the number of imposters the picker tried to select, after
	// capping the requested count so at least one player is not imposter.
	Desired    int
	Relaxation Relaxation
	Excluded   map[fairness.PlayerID]Exclusion
}

// Short reports whether fewer players than desired were picked.
func (s Selection) Short() bool {
	return len(s.Players) < s.Desired
}

// candidate is an eligible player with the stats used to weigh it
type candidate struct {
	id    fairness.PlayerID
	stats fairness.PlayerStats
}
