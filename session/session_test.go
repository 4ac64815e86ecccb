package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imposterparty/fairness/fairness"
	"github.com/imposterparty/fairness/policy"
	"github.com/imposterparty/fairness/rng"
	"github.com/imposterparty/fairness/testutil"
)

func testSession(t *testing.T, opts Options) *Session {
	t.Helper()
	if opts.Log == nil {
		opts.Log = testutil.Logger(t)
	}
	if opts.Source == nil {
		opts.Source = rng.NewXorShift(42)
	}
	s, err := New(opts)
	require.NoError(t, err)
	return s
}

var players = []fairness.PlayerID{"ana", "ben", "cleo", "dev", "eli"}

func TestPlayRoundCommits(t *testing.T) {
	ctx := context.Background()
	s := testSession(t, Options{})

	r, err := s.PlayRound(ctx, players, 2)
	require.NoError(t, err)

	assert.Equal(t, 0, r.Number)
	assert.Len(t, r.Imposters, 2)
	assert.NotEmpty(t, r.ID)
	assert.False(t, r.Selection.Short())

	st := s.State()
	assert.Equal(t, 1, st.Round())
	for _, id := range players {
		ps := st.Stats(id)
		if ps.EverPicked() {
			assert.Equal(t, 0, ps.LastPickedRound)
			assert.Equal(t, 1, ps.CurrentStreak)
			assert.Equal(t, 1, ps.CooldownUntilRound)
		} else {
			assert.Equal(t, 0, ps.CurrentStreak)
		}
		assert.Equal(t, 0, ps.JoinRound)
	}
	_, ok := st.PairLastRound(r.Imposters[0], r.Imposters[1])
	assert.True(t, ok)
}

func TestPlayRoundIDsDiffer(t *testing.T) {
	ctx := context.Background()
	s := testSession(t, Options{})

	a, err := s.PlayRound(ctx, players, 1)
	require.NoError(t, err)
	b, err := s.PlayRound(ctx, players, 1)
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, a.Number+1, b.Number)
}

func TestPlayRoundInvalid(t *testing.T) {
	ctx := context.Background()
	s := testSession(t, Options{})

	_, err := s.PlayRound(ctx, nil, 1)
	require.ErrorIs(t, err, ErrNoPlayers)

	_, err = s.PlayRound(ctx, players, 0)
	require.ErrorIs(t, err, ErrNoImposters)

	_, err = s.PlayRound(ctx, players, -2)
	require.ErrorIs(t, err, ErrNoImposters)

	assert.Equal(t, 0, s.State().Round())
	assert.Empty(t, s.State().Players(), "rejected rounds must not join players")

	// the picker itself answers the same request with an empty selection
	sel := s.picker.Pick(players, 0, policy.Default(), s.State(), rng.NewXorShift(1))
	assert.Empty(t, sel)
}

func TestStreakCapAcrossRounds(t *testing.T) {
	ctx := context.Background()
	pol := policy.Default()
	pol.MaxConsecutive = 1
	s := testSession(t, Options{Policy: policy.Static(pol)})

	var prev []fairness.PlayerID
	for i := 0; i < 50; i++ {
		r, err := s.PlayRound(ctx, players, 1)
		require.NoError(t, err)
		require.Len(t, r.Imposters, 1)
		if prev != nil {
			assert.NotEqual(t, prev[0], r.Imposters[0], "round %d", r.Number)
		}
		prev = r.Imposters
	}
}

func TestLateJoinerProtected(t *testing.T) {
	ctx := context.Background()
	pol := policy.Default()
	pol.NewPlayerHardCooldownRounds = 3
	s := testSession(t, Options{Policy: policy.Static(pol)})

	for i := 0; i < 4; i++ {
		_, err := s.PlayRound(ctx, players, 1)
		require.NoError(t, err)
	}

	roster := append([]fairness.PlayerID{"zed"}, players...)
	for i := 0; i < 3; i++ {
		r, err := s.PlayRound(ctx, roster, 2)
		require.NoError(t, err)
		assert.NotContains(t, r.Imposters, fairness.PlayerID("zed"))
	}
	assert.Equal(t, 4, s.State().Stats("zed").JoinRound)
}

func TestShortRoundStillResetsStreaks(t *testing.T) {
	ctx := context.Background()
	pol := policy.Default()
	pol.MaxConsecutive = 1
	s := testSession(t, Options{Policy: policy.Static(pol)})

	duo := []fairness.PlayerID{"ana", "ben"}
	r, err := s.PlayRound(ctx, duo, 1)
	require.NoError(t, err)
	require.Len(t, r.Imposters, 1)
	picked := r.Imposters[0]

	// last round's imposter is streak capped and cleo has only just joined
	trio := []fairness.PlayerID{"ana", "ben", "cleo"}
	r, err = s.PlayRound(ctx, trio, 2)
	require.NoError(t, err)
	assert.True(t, r.Selection.Short())
	assert.NotContains(t, r.Imposters, picked)

	assert.Equal(t, 0, s.State().Stats(picked).CurrentStreak)
	assert.Equal(t, 2, s.State().Round())
}

func TestPersistence(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")

	s := testSession(t, Options{StatePath: path})
	for i := 0; i < 3; i++ {
		_, err := s.PlayRound(ctx, players, 1)
		require.NoError(t, err)
	}
	want := s.State().Snapshot()

	reopened := testSession(t, Options{StatePath: path})
	assert.Equal(t, want, reopened.State().Snapshot())
	assert.Equal(t, 3, reopened.State().Round())

	require.NoError(t, reopened.Reset(ctx))
	again := testSession(t, Options{StatePath: path})
	assert.Equal(t, 0, again.State().Round())
	assert.Empty(t, again.State().Players())
}

func TestCorruptStateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := New(Options{StatePath: path})
	require.Error(t, err)
}

func TestSaveFailureReturnsRound(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "missing-dir", "state.json")
	s := testSession(t, Options{StatePath: path})

	r, err := s.PlayRound(ctx, players, 1)
	require.Error(t, err)
	assert.Len(t, r.Imposters, 1)
	assert.Equal(t, 1, s.State().Round())
}

func TestConcurrentRounds(t *testing.T) {
	ctx := context.Background()
	s := testSession(t, Options{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_, err := s.PlayRound(ctx, players, 1)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	st := s.State()
	assert.Equal(t, 80, st.Round())

	total := 0
	for _, id := range st.Players() {
		total += st.Stats(id).TimesImposter
	}
	assert.Equal(t, 80, total)
}

func TestWeights(t *testing.T) {
	ctx := context.Background()
	s := testSession(t, Options{})

	r, err := s.PlayRound(ctx, players, 1)
	require.NoError(t, err)

	w := s.Weights(players)
	require.Len(t, w, len(players))
	for _, id := range players {
		if id == r.Imposters[0] {
			continue
		}
		assert.Greater(t, w[id], w[r.Imposters[0]], "%s", id)
	}
}

func TestPlayLines(t *testing.T) {
	ctx := context.Background()
	s := testSession(t, Options{})

	in := strings.NewReader("ana, ben, cleo\n\n\ndev,eli,ana\n")
	var out bytes.Buffer

	require.NoError(t, playLines(ctx, s, in, &out, 1))

	assert.Equal(t, 4, s.State().Round())
	assert.Equal(t, 4, strings.Count(out.String(), "Imposters: "))
	assert.True(t, s.State().Known("dev"))
}

func TestPlayLinesStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := testSession(t, Options{})

	pr, pw := io.Pipe()
	defer pw.Close()

	done := make(chan error, 1)
	go func() { done <- playLines(ctx, s, pr, io.Discard, 1) }()

	_, err := io.WriteString(pw, "ana,ben,cleo\n")
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		return s.State().Round() == 1
	}, 2*time.Second, 10*time.Millisecond)

	// the input stays open and idle
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("playLines kept waiting for input after cancel")
	}
	assert.Equal(t, 1, s.State().Round())
}

type failingReader struct{ err error }

func (r failingReader) Read([]byte) (int, error) { return 0, r.err }

func TestPlayLinesReadError(t *testing.T) {
	s := testSession(t, Options{})
	readErr := errors.New("stdin gone")

	err := playLines(context.Background(), s, failingReader{err: readErr}, io.Discard, 1)
	require.ErrorIs(t, err, readErr)
}

func TestWriteRoundClampedCount(t *testing.T) {
	ctx := context.Background()
	s := testSession(t, Options{})

	r, err := s.PlayRound(ctx, []fairness.PlayerID{"ana", "ben"}, 3)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, writeRound(&out, r))
	assert.Contains(t, out.String(), "Round 0")
	assert.NotContains(t, out.String(), "Only")
}

func TestWriteState(t *testing.T) {
	ctx := context.Background()
	pol := policy.Default()
	pol.MaxConsecutive = 1
	s := testSession(t, Options{Policy: policy.Static(pol)})

	_, err := s.PlayRound(ctx, players, 1)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, writeState(&out, s))

	text := out.String()
	assert.True(t, strings.HasPrefix(text, "Next round: 1"))
	assert.Equal(t, 1, strings.Count(text, "excluded"))
	for _, id := range players {
		assert.Contains(t, text, string(id))
	}
}
