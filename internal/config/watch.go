// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/relaycast/relaycast/internal/log"
)

// Watch re-loads the config file whenever it changes and invokes onChange
// with the newly validated configuration. Invalid edits are logged and
// ignored; the running configuration stays in effect. Watch blocks until
// ctx is cancelled.
func (l *Loader) Watch(ctx context.Context, onChange func(*Config)) error {
	if l.path == "" {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory: editors replace files by rename, which drops
	// a watch placed on the file itself.
	if err := watcher.Add(filepath.Dir(l.path)); err != nil {
		return err
	}

	logger := log.WithComponent("config")
	var debounce *time.Timer
	target := filepath.Clean(l.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			// Editors emit bursts of events per save.
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(250*time.Millisecond, func() {
				cfg, err := l.Load()
				if err != nil {
					logger.Warn().Err(err).Str("event", "config.reload_failed").
						Str("path", l.path).Msg("ignoring invalid config change")
					return
				}
				logger.Info().Str("event", "config.reloaded").Str("path", l.path).
					Msg("configuration reloaded")
				onChange(cfg)
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Str("event", "config.watch_error").Msg("config watcher error")
		}
	}
}
