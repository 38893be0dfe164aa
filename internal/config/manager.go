package config

import (
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

// Manager holds the live configuration and reloads it when the file changes.
// Readers call Get on every request; subscribers are told about successful reloads.
type Manager struct {
	path    string
	current atomic.Pointer[Config]

	mu       sync.Mutex
	onChange []func(old, updated *Config)
	lastMod  time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewManager wraps an already loaded configuration. path may be empty, in which
// case the configuration is static.
func NewManager(cfg *Config, path string) *Manager {
	m := &Manager{path: path, stopCh: make(chan struct{})}
	m.current.Store(cfg)
	if info, err := statFile(path); err == nil {
		m.lastMod = info.ModTime()
	}
	return m
}

// Get returns the current configuration. Callers must treat it as read-only.
func (m *Manager) Get() *Config {
	return m.current.Load()
}

// Path returns the file backing the configuration, if any.
func (m *Manager) Path() string { return m.path }

// OnChange registers a callback invoked after each successful reload.
func (m *Manager) OnChange(fn func(old, updated *Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = append(m.onChange, fn)
}

// Reload re-reads the file. Invalid files are logged and ignored so a typo never takes the gateway down.
func (m *Manager) Reload() error {
	if m.path == "" {
		return nil
	}
	updated, _, err := Load(m.path)
	if err != nil {
		log.WithError(err).WithField("path", m.path).Warn("failed to reload config, keeping previous")
		return err
	}
	old := m.current.Load()
	updated = mergeReloadable(old, updated)
	m.current.Store(updated)

	m.mu.Lock()
	callbacks := make([]func(old, updated *Config), len(m.onChange))
	copy(callbacks, m.onChange)
	m.mu.Unlock()
	for _, fn := range callbacks {
		fn(old, updated)
	}
	logConfigChanges(old, updated)
	return nil
}

// Close stops the file watcher.
func (m *Manager) Close() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// mergeReloadable keeps restart-only settings from the running config and takes
// the hot-reloadable ones from the freshly loaded file.
func mergeReloadable(old, fresh *Config) *Config {
	if old == nil {
		return fresh
	}
	out := old.Clone()
	out.OCI.ModelMapping = fresh.OCI.ModelMapping
	out.OCI.CoherePrefixes = fresh.OCI.CoherePrefixes
	out.Mapping = fresh.Mapping
	out.Auth = fresh.Auth
	return out
}

func logConfigChanges(old, updated *Config) {
	if old == nil || updated == nil {
		return
	}
	fields := log.Fields{
		"models":       len(updated.OCI.ModelMapping),
		"client_keys":  len(updated.Auth.APIKeys) + len(updated.Auth.APIKeyHashes),
		"strict_param": updated.Mapping.StrictParams,
	}
	if len(old.OCI.ModelMapping) != len(updated.OCI.ModelMapping) {
		fields["models_before"] = len(old.OCI.ModelMapping)
	}
	log.WithFields(fields).Info("config_reloaded")
}
