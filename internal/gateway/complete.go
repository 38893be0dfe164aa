package gateway

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	apperrors "ocigenai-gateway/internal/errors"
	"ocigenai-gateway/internal/models"
	"ocigenai-gateway/internal/translator"
	"ocigenai-gateway/internal/upstream"
)

// Complete runs a non-streaming request. n > 1 fans out into n parallel upstream
// calls whose choices are merged in order.
func (d *Dispatcher) Complete(ctx context.Context, p *Prepared) (*models.ChatResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeouts.Request)
	defer cancel()

	n := p.Request.Choices()
	parts := make([]*models.ChatResponse, n)
	if n == 1 {
		resp, err := d.completeOnce(ctx, p)
		if err != nil {
			return nil, d.fail(ctx, p, err)
		}
		parts[0] = resp
	} else {
		g, gctx := errgroup.WithContext(ctx)
		for i := 0; i < n; i++ {
			i := i
			g.Go(func() error {
				resp, err := d.completeOnce(gctx, p)
				if err != nil {
					return err
				}
				parts[i] = resp
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, d.fail(ctx, p, err)
		}
	}

	resp := translator.MergeChoices(parts)
	d.record(ctx, p, false, resp.Usage)
	log.WithFields(log.Fields{
		"request_id":        upstream.RequestID(ctx),
		"model":             p.Target.ModelID,
		"choices":           len(resp.Choices),
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
	}).Debug("chat completion finished")
	return resp, nil
}

func (d *Dispatcher) completeOnce(ctx context.Context, p *Prepared) (*models.ChatResponse, error) {
	var reply *models.UpstreamResponse
	err := d.withRetry(ctx, p.Target.ModelID, func(ctx context.Context, cred *oauth2.Token) (bool, error) {
		var err error
		reply, err = d.client.Chat(ctx, p.Upstream, cred)
		return true, err
	})
	if err != nil {
		return nil, err
	}
	return translator.FromUpstream(reply, p.meta())
}

func (d *Dispatcher) fail(ctx context.Context, p *Prepared, err error) *apperrors.GatewayError {
	var ge *apperrors.GatewayError
	if !errors.As(err, &ge) && errors.Is(err, context.DeadlineExceeded) {
		err = apperrors.Transport(err, true)
	}
	ge = apperrors.Translate(err)
	d.record(ctx, p, true, models.Usage{})
	log.WithError(ge).WithFields(log.Fields{
		"request_id": upstream.RequestID(ctx),
		"model":      p.Target.ModelID,
		"kind":       ge.Kind.String(),
	}).Warn("chat completion failed")
	return ge
}
