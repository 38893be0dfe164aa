package stats

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"ocigenai-gateway/internal/config"
	"ocigenai-gateway/internal/models"
)

// ModelUsage is the aggregated usage of one model.
type ModelUsage struct {
	Model            string `json:"model"`
	Requests         int64  `json:"requests"`
	Errors           int64  `json:"errors"`
	PromptTokens     int64  `json:"prompt_tokens"`
	CompletionTokens int64  `json:"completion_tokens"`
	TotalTokens      int64  `json:"total_tokens"`
}

// Recorder aggregates per-model usage. A nil Recorder ignores every call.
type Recorder struct {
	backend Backend
	timeout time.Duration
}

func NewRecorder(backend Backend) *Recorder {
	return &Recorder{backend: backend, timeout: 2 * time.Second}
}

// New builds the recorder selected by cfg. The "none" backend yields a nil Recorder.
func New(ctx context.Context, cfg config.StatsConfig) (*Recorder, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", config.StatsBackendMemory:
		return NewRecorder(NewMemoryBackend()), nil
	case config.StatsBackendRedis:
		b, err := NewRedisBackend(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisPrefix)
		if err != nil {
			return nil, err
		}
		return NewRecorder(b), nil
	case config.StatsBackendPostgres:
		b, err := NewPostgresBackend(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return NewRecorder(b), nil
	case config.StatsBackendMongoDB:
		b, err := NewMongoBackend(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return NewRecorder(b), nil
	case config.StatsBackendNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown stats backend %q", cfg.Backend)
	}
}

// Record counts one finished request. Storage failures are logged, never returned,
// so usage accounting cannot fail a client request.
func (r *Recorder) Record(ctx context.Context, model string, failed bool, usage models.Usage) {
	if r == nil || r.backend == nil {
		return
	}
	deltas := map[string]int64{FieldRequests: 1}
	if failed {
		deltas[FieldErrors] = 1
	}
	if usage.PromptTokens > 0 {
		deltas[FieldPromptTokens] = int64(usage.PromptTokens)
	}
	if usage.CompletionTokens > 0 {
		deltas[FieldCompletionTokens] = int64(usage.CompletionTokens)
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()
	if err := r.backend.Increment(ctx, model, deltas); err != nil {
		log.WithError(err).WithField("model", model).Warn("failed to record usage")
	}
}

// Snapshot returns usage per model, sorted by model name.
func (r *Recorder) Snapshot(ctx context.Context) ([]ModelUsage, error) {
	if r == nil || r.backend == nil {
		return []ModelUsage{}, nil
	}
	raw, err := r.backend.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ModelUsage, 0, len(raw))
	for model, row := range raw {
		u := ModelUsage{
			Model:            model,
			Requests:         row[FieldRequests],
			Errors:           row[FieldErrors],
			PromptTokens:     row[FieldPromptTokens],
			CompletionTokens: row[FieldCompletionTokens],
		}
		u.TotalTokens = u.PromptTokens + u.CompletionTokens
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Model < out[j].Model })
	return out, nil
}

// Reset clears all counters.
func (r *Recorder) Reset(ctx context.Context) error {
	if r == nil || r.backend == nil {
		return nil
	}
	return r.backend.Reset(ctx)
}

func (r *Recorder) Close() error {
	if r == nil || r.backend == nil {
		return nil
	}
	return r.backend.Close()
}
