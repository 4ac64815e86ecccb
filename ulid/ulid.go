// Package ulid makes sortable identifiers for players and rounds.
package ulid

import (
	"sync"
	"time"

	oklid "github.com/oklog/ulid/v2"

	"github.com/imposterparty/fairness/rng"
)

// Generator makes monotonic ULIDs with entropy from an rng.Source, so a
// seeded source yields the same identifiers on every run.
type Generator struct {
	mu   sync.Mutex
	mono *oklid.MonotonicEntropy
}

// NewGenerator returns a Generator drawing entropy from src.
func NewGenerator(src rng.Source) *Generator {
	inc := src.Next() & ^uint64(1<<63) // only want 63 bits
	return &Generator{
		mono: oklid.Monotonic(rng.NewReader(src), inc),
	}
}

// Make returns a new ULID for t. Within the same millisecond the ids
// increase monotonically.
func (g *Generator) Make(t time.Time) (oklid.ULID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	return oklid.New(oklid.Timestamp(t), g.mono)
}

var (
	systemOnce sync.Once
	system     *Generator
)

// MakeULID returns a ULID for t using system entropy.
func MakeULID(t time.Time) (oklid.ULID, error) {
	systemOnce.Do(func() {
		system = NewGenerator(rng.NewSystem())
	})
	return system.Make(t)
}
