package stats

import (
	"context"
	"sync"
)

// Counter fields kept per model.
const (
	FieldRequests         = "requests"
	FieldErrors           = "errors"
	FieldPromptTokens     = "prompt_tokens"
	FieldCompletionTokens = "completion_tokens"
)

// Backend stores per-model counters.
type Backend interface {
	Increment(ctx context.Context, model string, deltas map[string]int64) error
	Snapshot(ctx context.Context) (map[string]map[string]int64, error)
	Reset(ctx context.Context) error
	Close() error
}

// MemoryBackend keeps counters in process memory.
type MemoryBackend struct {
	mu     sync.Mutex
	counts map[string]map[string]int64
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{counts: make(map[string]map[string]int64)}
}

func (m *MemoryBackend) Increment(_ context.Context, model string, deltas map[string]int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row := m.counts[model]
	if row == nil {
		row = make(map[string]int64, len(deltas))
		m.counts[model] = row
	}
	for field, d := range deltas {
		row[field] += d
	}
	return nil
}

func (m *MemoryBackend) Snapshot(context.Context) (map[string]map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]map[string]int64, len(m.counts))
	for model, row := range m.counts {
		cp := make(map[string]int64, len(row))
		for k, v := range row {
			cp[k] = v
		}
		out[model] = cp
	}
	return out, nil
}

func (m *MemoryBackend) Reset(context.Context) error {
	m.mu.Lock()
	m.counts = make(map[string]map[string]int64)
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) Close() error { return nil }
