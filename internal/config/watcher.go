package config

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"ringclient/pkg/logging"
)

const (
	// DefaultDebounceInterval is the time to wait after the last change to
	// config.yaml before reloading it.
	DefaultDebounceInterval = 500 * time.Millisecond

	// DefaultPollInterval is used when fsnotify is not available.
	DefaultPollInterval = 5 * time.Second
)

// WatcherConfig holds configuration for the config file watcher.
type WatcherConfig struct {
	// ConfigPath is the configuration directory.
	ConfigPath string

	// Debounce defaults to DefaultDebounceInterval.
	Debounce time.Duration

	// PollInterval defaults to DefaultPollInterval.
	PollInterval time.Duration

	// OnChange receives the reloaded configuration. Reloads that fail to
	// parse or validate are logged and not reported.
	OnChange func(RingConfig)
}

// Watcher reloads config.yaml when it changes. Editors often replace the
// file instead of writing it, so the whole directory is watched.
type Watcher struct {
	mu sync.Mutex

	config    WatcherConfig
	fsWatcher *fsnotify.Watcher
	stopCh    chan struct{}
	running   bool
	lastMod   time.Time

	debounceMu    sync.Mutex
	debounceTimer *time.Timer
}

// NewWatcher creates a watcher. Call Start to begin watching.
func NewWatcher(config WatcherConfig) *Watcher {
	if config.Debounce <= 0 {
		config.Debounce = DefaultDebounceInterval
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	return &Watcher{config: config}
}

// Start begins watching. Calling Start on a running watcher is a no-op.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	w.stopCh = make(chan struct{})
	w.running = true

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logging.Warn("ConfigWatcher", "fsnotify not available, falling back to polling: %v", err)
		go w.pollForChanges(w.stopCh)
		return nil
	}

	if err := watcher.Add(w.config.ConfigPath); err != nil {
		logging.Warn("ConfigWatcher", "Failed to watch directory %s, falling back to polling: %v",
			w.config.ConfigPath, err)
		watcher.Close()
		go w.pollForChanges(w.stopCh)
		return nil
	}

	w.fsWatcher = watcher
	go w.processEvents(w.stopCh, watcher.Events, watcher.Errors)

	logging.Debug("ConfigWatcher", "Watching %s for configuration changes", w.config.ConfigPath)
	return nil
}

func (w *Watcher) processEvents(stopCh <-chan struct{}, eventsCh <-chan fsnotify.Event, errorsCh <-chan error) {
	for {
		select {
		case <-stopCh:
			return

		case event, ok := <-eventsCh:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != configFileName {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			logging.Debug("ConfigWatcher", "Configuration file changed: %s", event.Name)
			w.reloadDebounced()

		case err, ok := <-errorsCh:
			if !ok {
				return
			}
			logging.Error("ConfigWatcher", err, "fsnotify error")
		}
	}
}

func (w *Watcher) pollForChanges(stopCh <-chan struct{}) {
	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	w.modifiedSinceLastPoll()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if w.modifiedSinceLastPoll() {
				w.reloadDebounced()
			}
		}
	}
}

func (w *Watcher) modifiedSinceLastPoll() bool {
	info, err := os.Stat(ConfigFilePath(w.config.ConfigPath))
	if err != nil {
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	changed := !w.lastMod.IsZero() && info.ModTime().After(w.lastMod)
	w.lastMod = info.ModTime()
	return changed
}

func (w *Watcher) reloadDebounced() {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.config.Debounce, w.reload)
}

func (w *Watcher) reload() {
	if !w.IsRunning() {
		return
	}

	config, err := readConfigFile(w.config.ConfigPath)
	if err != nil {
		logging.Error("ConfigWatcher", err, "Ignoring invalid configuration")
		return
	}
	if err := applyEnv(&config); err != nil {
		logging.Error("ConfigWatcher", err, "Ignoring invalid configuration")
		return
	}
	if config.SystemID == "" {
		if config.SystemID, err = loadOrCreateSystemID(w.config.ConfigPath); err != nil {
			logging.Error("ConfigWatcher", err, "Ignoring configuration change")
			return
		}
	}
	if errs := config.Validate(); errs.HasErrors() {
		logging.Error("ConfigWatcher", errs, "Ignoring invalid configuration")
		return
	}

	if w.config.OnChange != nil {
		w.config.OnChange(config)
	}
}

// Stop stops watching and cancels any pending reload.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}

	w.running = false
	close(w.stopCh)

	w.debounceMu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}
	w.debounceMu.Unlock()

	if w.fsWatcher != nil {
		if err := w.fsWatcher.Close(); err != nil {
			logging.Warn("ConfigWatcher", "Error closing fsnotify watcher: %v", err)
		}
		w.fsWatcher = nil
	}
	return nil
}

// IsRunning returns whether the watcher is currently active.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
