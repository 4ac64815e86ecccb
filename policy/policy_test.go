package policy

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalized(t *testing.T) {
	p := Policy{
		MaxConsecutive:              0,
		MinCooldownRounds:           -3,
		NewPlayerHardCooldownRounds: -1,
		RecentWindow:                -2,
		PairRecentWindow:            -5,
		NewPlayerSoftPenaltyRounds:  -1,
		NewPlayerPenaltyFactor:      1.7,
		JitterPercent:               math.NaN(),
	}.Normalized()

	assert.Equal(t, 0, p.MinCooldownRounds)
	assert.Equal(t, 0, p.NewPlayerHardCooldownRounds)
	assert.Equal(t, 0, p.RecentWindow)
	assert.Equal(t, 0, p.PairRecentWindow)
	assert.Equal(t, 0, p.NewPlayerSoftPenaltyRounds)
	assert.Equal(t, 1.0, p.NewPlayerPenaltyFactor)
	assert.Equal(t, 0.0, p.JitterPercent)
}

func TestStreakCapped(t *testing.T) {
	tests := []struct {
		name   string
		max    int
		streak int
		want   bool
	}{
		{"below cap", 2, 1, false},
		{"at cap", 2, 2, true},
		{"above cap", 1, 3, true},
		{"unbounded zero", 0, 100, false},
		{"unbounded negative", -1, 100, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Policy{MaxConsecutive: tt.max}
			assert.Equal(t, tt.want, p.StreakCapped(tt.streak))
		})
	}
}

func TestMergePartial(t *testing.T) {
	p, err := Merge(Default(), []byte(`{"max_consecutive": 1, "jitter_percent": 0}`))
	require.NoError(t, err)

	want := Default()
	want.MaxConsecutive = 1
	want.JitterPercent = 0
	assert.Equal(t, want, p)
}

func TestMergeInvalid(t *testing.T) {
	_, err := Merge(Default(), []byte(`{"max_consecutive": `))
	assert.Error(t, err)

	_, err = Merge(Default(), []byte(`{"max_consecutive": "three"}`))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.json")

	_, err := Load(path)
	require.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, os.WriteFile(path, []byte(`{"recent_window": 6}`), 0o644))
	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 6, p.RecentWindow)
	assert.Equal(t, Default().MaxConsecutive, p.MaxConsecutive)
}

func TestStatic(t *testing.T) {
	p := Default()
	p.GammaPairPenalty = 3
	var src Source = Static(p)
	assert.Equal(t, p, src.Current())
}

func TestWatcherMissingFile(t *testing.T) {
	w, err := NewWatcher(context.Background(), filepath.Join(t.TempDir(), "none.json"))
	require.NoError(t, err)
	assert.Equal(t, Default(), w.Current())
}

func TestWatcherInvalidInitialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.json")
	require.NoError(t, os.WriteFile(path, []byte(`not json`), 0o644))

	_, err := NewWatcher(context.Background(), path)
	assert.Error(t, err)
}

func TestWatcherReloadKeepsPrevious(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"max_consecutive": 3}`), 0o644))

	ctx := context.Background()
	w, err := NewWatcher(ctx, path)
	require.NoError(t, err)
	w.maxRetries = 1
	assert.Equal(t, 3, w.Current().MaxConsecutive)

	require.NoError(t, os.WriteFile(path, []byte(`{broken`), 0o644))
	assert.Error(t, w.Reload(ctx))
	assert.Equal(t, 3, w.Current().MaxConsecutive)

	require.NoError(t, os.WriteFile(path, []byte(`{"max_consecutive": 4}`), 0o644))
	require.NoError(t, w.Reload(ctx))
	assert.Equal(t, 4, w.Current().MaxConsecutive)
}

func TestWatcherRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"max_consecutive": 3}`), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, err := NewWatcher(ctx, path)
	require.NoError(t, err)
	w.debounce = 10 * time.Millisecond

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// give the watcher a moment to register the directory
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(`{"max_consecutive": 5}`), 0o644))

	assert.Eventually(t, func() bool {
		return w.Current().MaxConsecutive == 5
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
