package clawgateway

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce is how long after the last file event a reload is attempted.
// Editors and config writers often touch the file several times in a burst.
const reloadDebounce = 500 * time.Millisecond

// ConfigManager owns the live configuration snapshot. The snapshot is
// immutable and swapped wholesale on reload, so every in-flight request
// observes one consistent config. A reload that fails validation is logged
// and the prior snapshot stays active; a partially-applied config is not
// possible.
type ConfigManager struct {
	path    string
	current atomic.Pointer[Config]
	logger  *slog.Logger

	watcher *fsnotify.Watcher
	stopCh  chan struct{}

	debounceMu    sync.Mutex
	debounceTimer *time.Timer

	// OnReload, when set before Watch, is called with each successfully
	// reloaded snapshot.
	OnReload func(*Config)
}

// NewConfigManager loads and validates the config at path. Validation
// failures here are fatal to startup.
func NewConfigManager(path string, logger *slog.Logger) (*ConfigManager, error) {
	if logger == nil {
		logger = slog.Default()
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}

	cfg, err := LoadConfig(abs)
	if err != nil {
		return nil, err
	}

	m := &ConfigManager{
		path:   abs,
		logger: logger,
		stopCh: make(chan struct{}),
	}
	m.current.Store(cfg)
	return m, nil
}

// Current returns the live config snapshot. Callers must not mutate it and
// must not re-fetch it mid-request; grab it once and pass it down.
func (m *ConfigManager) Current() *Config {
	return m.current.Load()
}

// Path returns the absolute config file path.
func (m *ConfigManager) Path() string { return m.path }

// Watch starts watching the config file for changes. The parent directory is
// watched rather than the file itself so atomic rename-into-place writes are
// seen.
func (m *ConfigManager) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch config dir: %w", err)
	}
	m.watcher = watcher

	go m.watchLoop()
	return nil
}

func (m *ConfigManager) watchLoop() {
	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != m.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			m.scheduleReload()
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.logger.Warn("Config watcher error", "error", err)
		case <-m.stopCh:
			return
		}
	}
}

// scheduleReload debounces bursts of file events into one reload.
func (m *ConfigManager) scheduleReload() {
	m.debounceMu.Lock()
	defer m.debounceMu.Unlock()

	if m.debounceTimer != nil {
		m.debounceTimer.Stop()
	}
	m.debounceTimer = time.AfterFunc(reloadDebounce, m.Reload)
}

// Reload re-reads and validates the config file, swapping the snapshot on
// success. On failure the previous valid config stays active.
func (m *ConfigManager) Reload() {
	cfg, err := LoadConfig(m.path)
	if err != nil {
		m.logger.Error("Config reload failed, keeping previous config", "path", m.path, "error", err)
		return
	}

	m.current.Store(cfg)
	m.logger.Info("Config reloaded", "path", m.path, "mode", cfg.Mode)

	if m.OnReload != nil {
		m.OnReload(cfg)
	}
}

// Close stops the watcher and any pending debounced reload.
func (m *ConfigManager) Close() error {
	close(m.stopCh)

	m.debounceMu.Lock()
	if m.debounceTimer != nil {
		m.debounceTimer.Stop()
	}
	m.debounceMu.Unlock()

	if m.watcher != nil {
		return m.watcher.Close()
	}
	return nil
}
