package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/felixgeelhaar/gateway-go/domain/config"
	"github.com/felixgeelhaar/gateway-go/infrastructure/logging"
)

// defaultDebounce batches the burst of events editors emit on save.
const defaultDebounce = 500 * time.Millisecond

// Watcher reloads a configuration file when it changes on disk and
// hands the parsed result to a callback. Reloads that fail to parse or
// validate are logged and dropped; the previous configuration stays in
// effect.
type Watcher struct {
	path     string
	loader   *Loader
	onChange func(*config.GatewayConfig)
	debounce time.Duration

	watcher *fsnotify.Watcher
	mu      sync.Mutex
	dirty   bool
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewWatcher creates a watcher for the given config file. onChange is
// invoked from the watcher goroutine with each successfully loaded
// configuration.
func NewWatcher(path string, loader *Loader, onChange func(*config.GatewayConfig)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if loader == nil {
		loader = NewLoader()
	}
	return &Watcher{
		path:     filepath.Clean(path),
		loader:   loader,
		onChange: onChange,
		debounce: defaultDebounce,
		watcher:  fsw,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; the watch loop runs in a
// goroutine until Stop is called or the context is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	// Watch the directory: editors typically replace the file on save,
	// which drops a watch registered on the file itself.
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	logging.Debug().
		Add(logging.Component("config")).
		Add(logging.Str("path", w.path)).
		Msg("watching configuration file")

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		logging.Error().
			Add(logging.Component("config")).
			Add(logging.ErrorField(err)).
			Msg("closing config watcher")
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Error().
				Add(logging.Component("config")).
				Add(logging.ErrorField(err)).
				Msg("config watch error")

		case <-ticker.C:
			w.mu.Lock()
			dirty := w.dirty
			w.dirty = false
			w.mu.Unlock()
			if dirty {
				w.reload()
			}
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}
	w.mu.Lock()
	w.dirty = true
	w.mu.Unlock()
}

func (w *Watcher) reload() {
	cfg, err := w.loader.LoadFile(w.path)
	if err != nil {
		logging.Warn().
			Add(logging.Component("config")).
			Add(logging.Str("path", w.path)).
			Add(logging.ErrorField(err)).
			Msg("config reload rejected")
		return
	}

	logging.Info().
		Add(logging.Component("config")).
		Add(logging.Str("path", w.path)).
		Msg("configuration reloaded")

	if w.onChange != nil {
		w.onChange(cfg)
	}
}
