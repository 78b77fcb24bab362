package storysource

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/verte-zerg/retell/internal/model"
)

const (
	pollInterval = 2 * time.Second
	settleDelay  = 50 * time.Millisecond
)

// Watch reloads the story file whenever it is written and hands valid pools
// to onChange. Reload failures go to onErr and keep the previous pool. Watch
// blocks until ctx is done; without fsnotify it falls back to polling.
func Watch(ctx context.Context, path string, onChange func([]model.Story), onErr func(error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		onErr(fmt.Errorf("fsnotify unavailable, polling instead: %w", err))
		return poll(ctx, path, onChange, onErr)
	}
	defer func() {
		if cerr := watcher.Close(); cerr != nil {
			onErr(fmt.Errorf("failed to close watcher: %w", cerr))
		}
	}()

	// Editors replace files on save, so watch the directory.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		onErr(fmt.Errorf("failed to watch story directory, polling instead: %w", err))
		return poll(ctx, path, onChange, onErr)
	}

	target := filepath.Clean(path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return poll(ctx, path, onChange, onErr)
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			// Small delay so a write in progress completes.
			time.Sleep(settleDelay)
			reload(path, onChange, onErr)
		case werr, ok := <-watcher.Errors:
			if !ok {
				return poll(ctx, path, onChange, onErr)
			}
			onErr(fmt.Errorf("story watcher: %w", werr))
		}
	}
}

func poll(ctx context.Context, path string, onChange func([]model.Story), onErr func(error)) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var lastMod time.Time
	if info, err := os.Stat(path); err == nil {
		lastMod = info.ModTime()
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			info, err := os.Stat(path)
			if err != nil {
				continue
			}
			if info.ModTime().After(lastMod) {
				lastMod = info.ModTime()
				reload(path, onChange, onErr)
			}
		}
	}
}

func reload(path string, onChange func([]model.Story), onErr func(error)) {
	stories, err := Load(path)
	if err != nil {
		onErr(err)
		return
	}
	onChange(stories)
}
