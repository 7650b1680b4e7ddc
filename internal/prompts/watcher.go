package prompts

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the store when the prompts file is edited externally
// (a text editor, a sync tool, another shiftpromptctl invocation).
type Watcher struct {
	store   *Store
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	onErr   func(error)
}

// Watch starts watching the store's backing file. onErr receives reload
// failures (malformed edits keep the previous list); it may be nil.
func Watch(store *Store, onErr func(error)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	// Watch the directory: saves via rename would drop a file-level watch.
	if err := fsw.Add(filepath.Dir(store.Path())); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch prompts directory: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{store: store, watcher: fsw, cancel: cancel, onErr: onErr}
	go w.loop(ctx)
	return w, nil
}

func (w *Watcher) loop(ctx context.Context) {
	var debounce *time.Timer
	const debounceDelay = 150 * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.store.Path()) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, func() {
				if err := w.store.Reload(); err != nil && w.onErr != nil {
					w.onErr(err)
				}
			})

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	w.cancel()
	return w.watcher.Close()
}
