package syncengine

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sosuisen/gitdocdb/internal/worktree"
)

// relPath converts an fsnotify event's absolute path into a
// tree-relative, slash-separated path for IsMetadata comparisons.
func relPath(root, abs string) string {
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return abs
	}
	return filepath.ToSlash(strings.TrimPrefix(rel, "./"))
}

// clampInterval enforces MinLiveSyncInterval and falls back to
// DefaultLiveSyncInterval when d is unset.
func clampInterval(d time.Duration) time.Duration {
	if d <= 0 {
		d = DefaultLiveSyncInterval
	}
	if d < MinLiveSyncInterval {
		return MinLiveSyncInterval
	}
	return d
}

// StartLiveSync runs Sync on a ticker until ctx is canceled or Stop
// is called. A filesystem watcher on the working tree emits an
// EventChange for each local write outside the metadata directory;
// it does not trigger a sync or reset the ticker, so syncs happen
// only on ticks.
func (e *Engine) StartLiveSync(ctx context.Context) error {
	interval := clampInterval(e.settings.LiveSyncInterval)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(e.projector.Root); err != nil {
		watcher.Close()
		return err
	}

	e.liveStop = make(chan struct{})
	e.livePaused = make(chan bool, 1)
	e.liveDone = make(chan struct{})

	go e.liveLoop(ctx, watcher, interval)
	return nil
}

// StopLiveSync halts the live-sync loop started by StartLiveSync and
// waits for it to exit.
func (e *Engine) StopLiveSync() {
	if e.liveStop == nil {
		return
	}
	close(e.liveStop)
	<-e.liveDone
	e.liveStop = nil
}

// PauseLiveSync suspends the ticker without tearing down the watcher;
// ResumeLiveSync restarts it. Both are no-ops if live sync isn't running.
func (e *Engine) PauseLiveSync()  { e.setPaused(true) }
func (e *Engine) ResumeLiveSync() { e.setPaused(false) }

func (e *Engine) setPaused(p bool) {
	if e.livePaused == nil {
		return
	}
	select {
	case e.livePaused <- p:
	default:
	}
}

func (e *Engine) liveLoop(ctx context.Context, watcher *fsnotify.Watcher, interval time.Duration) {
	defer close(e.liveDone)
	defer watcher.Close()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	paused := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.liveStop:
			return
		case p := <-e.livePaused:
			if p && !paused {
				e.emit(Event{Kind: EventPause})
			}
			if !p && paused {
				e.emit(Event{Kind: EventResume})
			}
			paused = p
		case ev, ok := <-watcher.Events:
			if !ok {
				continue
			}
			if paused || worktree.IsMetadata(relPath(e.projector.Root, ev.Name)) {
				continue
			}
			e.emit(Event{Kind: EventChange, Message: ev.Name})
		case <-watcher.Errors:
			// best-effort: a watcher error doesn't stop live sync, the
			// ticker still drives periodic syncs.
		case <-ticker.C:
			if paused {
				continue
			}
			e.emit(Event{Kind: EventBeforeLiveSync})
			if _, err := e.Sync(ctx); err != nil {
				// Sync already emitted EventError; keep the loop alive.
				continue
			}
		}
	}
}
