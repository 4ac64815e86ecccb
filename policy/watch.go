package policy

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/fsnotify/fsnotify"
	"go.ntppool.org/common/logger"
)

// Source supplies the policy for the next round.
type Source interface {
	Current() Policy
}

// Static is a Source that never changes.
type Static Policy

func (s Static) Current() Policy { return Policy(s) }

// Watcher keeps the policy from a file current. Edits made while a session
// is running take effect from the next round; a document that fails to
// parse leaves the previous policy in place.
type Watcher struct {
	path string
	log  *slog.Logger

	lock    sync.RWMutex
	current Policy

	debounce   time.Duration
	maxRetries uint
}

// NewWatcher loads path and returns a Watcher for it. A missing file yields
// the default policy until one is written.
func NewWatcher(ctx context.Context, path string) (*Watcher, error) {
	w := &Watcher{
		path:       path,
		log:        logger.FromContext(ctx).WithGroup("policy-watcher"),
		current:    Default(),
		debounce:   100 * time.Millisecond,
		maxRetries: 5,
	}

	p, err := Load(path)
	switch {
	case err == nil:
		w.current = p
	case errors.Is(err, os.ErrNotExist):
		w.log.InfoContext(ctx, "policy file not found, using defaults", "path", path)
	default:
		return nil, err
	}

	return w, nil
}

// Current returns the most recently loaded policy.
func (w *Watcher) Current() Policy {
	w.lock.RLock()
	defer w.lock.RUnlock()
	return w.current
}

// Reload reads the policy file again, retrying briefly since editors often
// write the file in several steps.
func (w *Watcher) Reload(ctx context.Context) error {
	expback := backoff.NewExponentialBackOff()
	expback.InitialInterval = 50 * time.Millisecond
	expback.MaxInterval = time.Second

	p, err := backoff.Retry(ctx, func() (Policy, error) {
		p, err := Load(w.path)
		if errors.Is(err, os.ErrNotExist) {
			return Policy{}, backoff.Permanent(err)
		}
		return p, err
	}, backoff.WithBackOff(expback), backoff.WithMaxTries(w.maxRetries))
	if err != nil {
		return err
	}

	w.lock.Lock()
	prev := w.current
	w.current = p
	w.lock.Unlock()

	if prev != p {
		w.log.InfoContext(ctx, "policy reloaded", "path", w.path, "policy", p.String())
	}
	return nil
}

// Run watches the policy file until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir, name := filepath.Dir(w.path), filepath.Base(w.path)
	if err := watcher.Add(dir); err != nil {
		return err
	}
	w.log.InfoContext(ctx, "watching policy file", "dir", dir, "file", name)

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		var debounceC <-chan time.Time
		if debounceTimer != nil {
			debounceC = debounceTimer.C
		}

		select {
		case <-ctx.Done():
			return nil

		case <-debounceC:
			debounceTimer = nil
			if err := w.Reload(ctx); err != nil {
				w.log.WarnContext(ctx, "could not reload policy, keeping previous", "path", w.path, "err", err)
			}

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.log.DebugContext(ctx, "policy file changed", "event", event.String())
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.NewTimer(w.debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.WarnContext(ctx, "policy watcher error", "err", err)
		}
	}
}
