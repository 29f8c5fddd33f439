// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package shader

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch invalidates sources as they change on disk until ctx is done.
// Changes are applied by the next Reload.
func (l *Library) Watch(ctx context.Context) error {
	if l.dir == "" {
		return ErrNotWatchable
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("shader: watch: %w", err)
	}
	if err := w.Add(l.dir); err != nil {
		w.Close()
		return fmt.Errorf("shader: watch %s: %w", l.dir, err)
	}
	slogger().Info("shader: watching sources", "dir", l.dir)

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
					l.Invalidate(filepath.Base(ev.Name))
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slogger().Warn("shader: watch error", "err", err)
			}
		}
	}()
	return nil
}
