package bridge

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// pollFallback is the poll interval used when a fsnotify watch can't
// be established (e.g. an NFS mount that doesn't deliver inotify
// events). Established once per waitForSentinel call, never adjusted
// mid-wait.
const pollFallback = 2 * time.Second

// waitForSentinel blocks until sentinelPath exists, ctx is canceled,
// or timeout elapses, whichever comes first. It prefers an fsnotify
// watch on the sentinel's parent directory; if the watch can't be
// established, it degrades to polling rather than failing the run,
// since the caller (EXPLORING phase) must bound its wait either way.
// onFallback, if non-nil, is called once with the TransientInfraError
// that caused the degrade to polling, so a caller can log or audit it
// without it becoming the wait's own return error.
func waitForSentinel(ctx context.Context, sentinelPath string, timeout time.Duration, onFallback func(error)) error {
	if _, err := os.Stat(sentinelPath); err == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dir := filepath.Dir(sentinelPath)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		if onFallback != nil {
			onFallback(&TransientInfraError{Op: "create sentinel watcher", Err: err})
		}
		return pollForSentinel(ctx, sentinelPath)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		if onFallback != nil {
			onFallback(&TransientInfraError{Op: "watch sentinel directory", Err: err})
		}
		return pollForSentinel(ctx, sentinelPath)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return pollForSentinel(ctx, sentinelPath)
			}
			if event.Name == sentinelPath {
				if _, err := os.Stat(sentinelPath); err == nil {
					return nil
				}
			}
		case _, ok := <-watcher.Errors:
			if !ok {
				return pollForSentinel(ctx, sentinelPath)
			}
		}
	}
}

// pollForSentinel is the degraded-mode wait used when a filesystem
// watch isn't available.
func pollForSentinel(ctx context.Context, sentinelPath string) error {
	ticker := time.NewTicker(pollFallback)
	defer ticker.Stop()
	for {
		if _, err := os.Stat(sentinelPath); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
