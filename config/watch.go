package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"vawter.tech/stopper"
)

// DebounceDelay is how long Watch waits after the last file event before it
// reloads.
const DebounceDelay = 50 * time.Millisecond

const watchGracePeriod = 100 * time.Millisecond

// Watch reloads the file at path whenever it changes and calls fn with the
// result. A configuration that fails to load is reported through fn with a
// nil Config. Watch blocks until ctx is cancelled.
//
// The parent directory is watched rather than the file, so editors that
// replace the file on save keep triggering reloads.
func Watch(ctx context.Context, path string, fn func(*Config, error)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("config: watching %s: %w", filepath.Dir(abs), err)
	}

	var (
		mu        sync.Mutex
		debouncer *time.Timer
	)

	reload := func() {
		cfg, err := Load(abs)
		if err != nil {
			fn(nil, err)
			return
		}

		fn(cfg, nil)
	}

	sctx := stopper.WithContext(ctx)
	sctx.Defer(func() {
		mu.Lock()
		if debouncer != nil {
			debouncer.Stop()
		}
		mu.Unlock()

		_ = watcher.Close()
	})

	sctx.Go(func(sctx *stopper.Context) error {
		for {
			select {
			case <-sctx.Stopping():
				return nil

			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}

				if filepath.Clean(event.Name) != abs {
					continue
				}

				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
					!event.Has(fsnotify.Rename) {
					continue
				}

				mu.Lock()
				if debouncer != nil {
					debouncer.Stop()
				}
				debouncer = time.AfterFunc(DebounceDelay, reload)
				mu.Unlock()

			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}

				fn(nil, fmt.Errorf("config: watching %s: %w", abs, err))
			}
		}
	})

	<-ctx.Done()
	sctx.Stop(watchGracePeriod)

	return sctx.Wait()
}
