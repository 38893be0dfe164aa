package gateway

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	apperrors "ocigenai-gateway/internal/errors"
	"ocigenai-gateway/internal/models"
	"ocigenai-gateway/internal/monitoring"
	"ocigenai-gateway/internal/streaming"
	"ocigenai-gateway/internal/upstream"
)

// Stream outcomes reported in metrics.
const (
	outcomeCompleted     = "completed"
	outcomeClientGone    = "client_gone"
	outcomeBeforeContent = "failed_before_content"
	outcomeMidStream     = "mid_stream_error"
)

// Stream relays a streaming request to em. When the returned Result is not committed,
// nothing reached em and the caller still owns the response. A failure before any content
// is retried once if it was a transport failure.
func (d *Dispatcher) Stream(ctx context.Context, p *Prepared, em streaming.Emitter) (streaming.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeouts.StreamMax)
	defer cancel()

	model := p.Target.ModelID
	obs := &firstChunkObserver{Emitter: em, start: d.now(), now: d.now, model: model}
	var res streaming.Result
	var relayErr error

	err := d.withRetry(ctx, model, func(ctx context.Context, cred *oauth2.Token) (bool, error) {
		src, err := d.client.OpenStream(ctx, p.Upstream, cred)
		if err != nil {
			return true, err
		}
		relay := streaming.NewRelay(streaming.Options{
			ID:           p.ID,
			Model:        p.Request.Model,
			Created:      p.Created,
			IncludeUsage: p.Request.IncludeUsage(),
			IdleTimeout:  d.timeouts.StreamIdle,
		})
		res, relayErr = relay.Run(ctx, src, obs)
		if errors.Is(relayErr, streaming.ErrClientGone) {
			return false, relayErr
		}
		return !res.Committed, relayErr
	})

	monitoring.StreamChunksTotal.WithLabelValues(model).Add(float64(res.Chunks))
	entry := log.WithFields(log.Fields{
		"request_id": upstream.RequestID(ctx),
		"model":      model,
		"chunks":     res.Chunks,
		"committed":  res.Committed,
	})
	if err == nil {
		monitoring.StreamOutcomes.WithLabelValues(model, outcomeCompleted).Inc()
		d.record(ctx, p, false, res.Usage)
		entry.WithField("finish_reason", res.FinishReason).Debug("stream finished")
		return res, nil
	}

	ge := apperrors.Translate(err)
	outcome := outcomeMidStream
	switch {
	case errors.Is(relayErr, streaming.ErrClientGone) || errors.Is(ge, context.Canceled):
		outcome = outcomeClientGone
	case !res.Committed:
		outcome = outcomeBeforeContent
	}
	monitoring.StreamOutcomes.WithLabelValues(model, outcome).Inc()
	d.record(ctx, p, true, res.Usage)
	entry.WithError(ge).WithFields(log.Fields{"kind": ge.Kind.String(), "outcome": outcome}).Warn("stream ended with error")
	return res, ge
}

// firstChunkObserver measures the latency until the first chunk reaches the client.
type firstChunkObserver struct {
	streaming.Emitter
	once  sync.Once
	start time.Time
	now   func() time.Time
	model string
}

func (o *firstChunkObserver) Chunk(c *models.StreamChunk) error {
	o.once.Do(func() {
		monitoring.StreamTimeToFirstChunk.WithLabelValues(o.model).Observe(o.now().Sub(o.start).Seconds())
	})
	return o.Emitter.Chunk(c)
}
