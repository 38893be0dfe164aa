// Package tasks supervises the gateway's background jobs.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

type Status string

const (
	StatusRunning  Status = "running"
	StatusStopped  Status = "stopped"
	StatusFailed   Status = "failed"
	StatusCanceled Status = "canceled"
)

// Info is a point-in-time view of a task.
type Info struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"start_time"`
	Status      Status    `json:"status"`
	Runs        int64     `json:"runs"`
	Failures    int64     `json:"failures"`
	LastError   string    `json:"last_error,omitempty"`
}

type Func func(ctx context.Context) error

type task struct {
	info   Info
	cancel context.CancelFunc
}

// Manager runs named tasks under a shared parent context.
type Manager struct {
	mu     sync.RWMutex
	tasks  map[string]*task
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	now    func() time.Time
}

func NewManager(ctx context.Context) *Manager {
	ctx, cancel := context.WithCancel(ctx)
	return &Manager{
		tasks:  make(map[string]*task),
		ctx:    ctx,
		cancel: cancel,
		now:    time.Now,
	}
}

// Start runs fn once in its own goroutine. Names are unique for the manager's lifetime.
func (m *Manager) Start(name, description string, fn Func) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tasks[name]; exists {
		return fmt.Errorf("task %s already exists", name)
	}
	taskCtx, cancel := context.WithCancel(m.ctx)
	t := &task{
		info: Info{
			Name:        name,
			Description: description,
			StartTime:   m.now(),
			Status:      StatusRunning,
		},
		cancel: cancel,
	}
	m.tasks[name] = t

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				log.WithFields(log.Fields{"task": name, "panic": r}).Error("task panicked")
				m.finish(t, StatusFailed, fmt.Errorf("panic: %v", r))
			}
		}()

		log.WithFields(log.Fields{"task": name, "description": description}).Info("task started")
		err := fn(taskCtx)
		switch {
		case err == nil:
			m.finish(t, StatusStopped, nil)
			log.WithField("task", name).Info("task stopped")
		case errors.Is(err, context.Canceled) || taskCtx.Err() != nil:
			m.finish(t, StatusCanceled, nil)
		default:
			m.finish(t, StatusFailed, err)
			log.WithFields(log.Fields{"task": name, "error": err}).Error("task failed")
		}
	}()
	return nil
}

func (m *Manager) finish(t *task, st Status, err error) {
	m.mu.Lock()
	t.info.Status = st
	if err != nil {
		t.info.LastError = err.Error()
	}
	m.mu.Unlock()
}

// StartPeriodic runs fn immediately and then every interval. A failing run is logged
// and counted; the task keeps going until stopped.
func (m *Manager) StartPeriodic(name, description string, interval time.Duration, fn Func) error {
	if interval <= 0 {
		return fmt.Errorf("task %s: interval must be positive", name)
	}
	return m.Start(name, description, func(ctx context.Context) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			m.runOnce(ctx, name, fn)
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})
}

func (m *Manager) runOnce(ctx context.Context, name string, fn Func) {
	err := fn(ctx)
	m.mu.Lock()
	if t, ok := m.tasks[name]; ok {
		t.info.Runs++
		if err != nil {
			t.info.Failures++
			t.info.LastError = err.Error()
		}
	}
	m.mu.Unlock()
	if err != nil && ctx.Err() == nil {
		log.WithFields(log.Fields{"task": name, "error": err}).Warn("periodic task run failed")
	}
}

// Stop cancels one running task.
func (m *Manager) Stop(name string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[name]
	if !ok {
		return fmt.Errorf("task %s not found", name)
	}
	if t.info.Status != StatusRunning {
		return fmt.Errorf("task %s is not running", name)
	}
	t.cancel()
	return nil
}

// Shutdown cancels every task and waits for them, bounded by ctx.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.cancel()
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) Get(name string) (Info, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[name]
	if !ok {
		return Info{}, false
	}
	return t.info, true
}

// List returns all tasks ordered by name.
func (m *Manager) List() []Info {
	m.mu.RLock()
	out := make([]Info, 0, len(m.tasks))
	for _, t := range m.tasks {
		out = append(out, t.info)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
