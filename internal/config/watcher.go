package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

const reloadDebounce = 100 * time.Millisecond

func statFile(path string) (os.FileInfo, error) {
	if path == "" {
		return nil, os.ErrNotExist
	}
	return os.Stat(path)
}

// Watch starts watching the config file for changes. It is a no-op without a file.
func (m *Manager) Watch() {
	if _, err := statFile(m.path); err != nil {
		return
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.WithError(err).Warn("failed to create file watcher, falling back to polling")
		m.startPolling(5 * time.Second)
		return
	}
	// Watch the directory as well to catch atomic writes (rename over the file).
	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		log.WithError(err).WithField("path", m.path).Warn("failed to watch config directory, falling back to polling")
		watcher.Close()
		m.startPolling(5 * time.Second)
		return
	}
	log.WithField("path", m.path).Info("config watcher started using fsnotify")

	target := filepath.Clean(m.path)
	go func() {
		defer watcher.Close()
		var debounce *time.Timer
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(reloadDebounce, m.checkAndReload)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.WithError(err).Warn("config watcher error")
			case <-m.stopCh:
				if debounce != nil {
					debounce.Stop()
				}
				return
			}
		}
	}()
}

func (m *Manager) startPolling(interval time.Duration) {
	ticker := time.NewTicker(interval)
	log.WithField("interval", interval.String()).Info("config watcher started using polling")
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.checkAndReload()
			case <-m.stopCh:
				return
			}
		}
	}()
}

func (m *Manager) checkAndReload() {
	info, err := statFile(m.path)
	if err != nil {
		return
	}
	m.mu.Lock()
	changed := info.ModTime().After(m.lastMod)
	if changed {
		m.lastMod = info.ModTime()
	}
	m.mu.Unlock()
	if changed {
		_ = m.Reload()
	}
}
