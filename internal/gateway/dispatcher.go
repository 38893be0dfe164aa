package gateway

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"ocigenai-gateway/internal/config"
	"ocigenai-gateway/internal/constants"
	apperrors "ocigenai-gateway/internal/errors"
	"ocigenai-gateway/internal/models"
	"ocigenai-gateway/internal/monitoring"
	"ocigenai-gateway/internal/stats"
	"ocigenai-gateway/internal/translator"
	"ocigenai-gateway/internal/upstream"
)

// Credentials is the part of the credential provider the dispatcher needs.
type Credentials interface {
	Acquire(ctx context.Context) (*oauth2.Token, error)
	Invalidate(stale *oauth2.Token)
}

// Timeouts bound upstream calls.
type Timeouts struct {
	// Request bounds a whole non-streaming call, retry included.
	Request time.Duration
	// StreamIdle bounds the gap between two upstream stream events.
	StreamIdle time.Duration
	// StreamMax bounds a whole stream.
	StreamMax    time.Duration
	RetryBackoff time.Duration
}

// settings is the hot-reloadable part of the dispatcher.
type settings struct {
	resolver *models.Resolver
	mapping  translator.Options
}

// Dispatcher validates chat requests, maps them onto OCI and runs the upstream call.
// Every error it returns is a *errors.GatewayError.
type Dispatcher struct {
	client   upstream.Client
	creds    Credentials
	stats    *stats.Recorder
	timeouts Timeouts
	current  atomic.Pointer[settings]

	now   func() time.Time
	newID func() string
}

// New builds a dispatcher from cfg. stats may be nil.
func New(cfg *config.Config, client upstream.Client, creds Credentials, recorder *stats.Recorder) *Dispatcher {
	d := &Dispatcher{
		client: client,
		creds:  creds,
		stats:  recorder,
		timeouts: Timeouts{
			Request:      cfg.Upstream.RequestTimeout(),
			StreamIdle:   cfg.Upstream.StreamIdleTimeout(),
			StreamMax:    cfg.Upstream.StreamMaxDuration(),
			RetryBackoff: cfg.Upstream.RetryBackoff(),
		},
		now:   time.Now,
		newID: func() string { return "chatcmpl-" + strings.ReplaceAll(uuid.NewString(), "-", "") },
	}
	if d.timeouts.Request <= 0 {
		d.timeouts.Request = constants.UpstreamRequestTimeout
	}
	if d.timeouts.StreamMax <= 0 {
		d.timeouts.StreamMax = constants.UpstreamStreamMaxDuration
	}
	if d.timeouts.RetryBackoff <= 0 {
		d.timeouts.RetryBackoff = constants.TransportRetryBackoff
	}
	d.Reconfigure(cfg)
	return d
}

// Reconfigure swaps model mapping and parameter handling. In-flight requests keep the old values.
func (d *Dispatcher) Reconfigure(cfg *config.Config) {
	d.current.Store(&settings{
		resolver: models.NewResolver(cfg.OCI),
		mapping: translator.Options{
			StrictParams:     cfg.Mapping.StrictParams,
			CompartmentID:    cfg.OCI.CompartmentID,
			DefaultMaxTokens: cfg.Mapping.DefaultMaxTokens,
			MaxTokensLimit:   cfg.Mapping.MaxTokensLimit,
		},
	})
}

// Models lists the client-facing model names.
func (d *Dispatcher) Models() models.ModelList {
	return d.current.Load().resolver.List(d.now().Unix())
}

// Prepared is a validated request ready to be sent.
type Prepared struct {
	Request     *models.ChatRequest
	Target      models.Target
	Upstream    *models.UpstreamRequest
	Adjustments []translator.ParamAdjustment
	ID          string
	Created     int64
}

// Prepare validates req and maps it onto the upstream schema without any I/O.
func (d *Dispatcher) Prepare(req *models.ChatRequest) (*Prepared, error) {
	if req == nil {
		return nil, apperrors.InvalidRequest("request body is required")
	}
	if req.Stream && req.Choices() > 1 {
		return nil, apperrors.InvalidParameter("n", "n greater than 1 is not supported with stream=true")
	}
	s := d.current.Load()
	target, err := s.resolver.Resolve(req.Model)
	if err != nil {
		return nil, apperrors.Translate(err)
	}
	up, adjustments, err := translator.ToUpstream(req, target, s.mapping)
	if err != nil {
		return nil, apperrors.Translate(err)
	}
	for _, a := range adjustments {
		monitoring.ClampedParamsTotal.WithLabelValues(a.Param).Inc()
		log.WithFields(log.Fields{"param": a.Param, "requested": a.Requested, "applied": a.Applied, "model": target.ModelID}).Info("sampling parameter clamped")
	}
	return &Prepared{
		Request:     req,
		Target:      target,
		Upstream:    up,
		Adjustments: adjustments,
		ID:          d.newID(),
		Created:     d.now().Unix(),
	}, nil
}

func (p *Prepared) meta() translator.ResponseMeta {
	return translator.ResponseMeta{ID: p.ID, Created: p.Created, Model: p.Request.Model}
}

// withRetry runs op with a fresh credential and repeats it once after a retryable
// transport failure. An upstream 401 invalidates the credential for the next caller.
func (d *Dispatcher) withRetry(ctx context.Context, model string, op func(ctx context.Context, cred *oauth2.Token) (retryable bool, err error)) error {
	for attempt := 0; ; attempt++ {
		cred, err := d.creds.Acquire(ctx)
		if err != nil {
			return apperrors.Translate(err)
		}
		retryable, err := op(ctx, cred)
		if err == nil {
			if attempt > 0 {
				monitoring.UpstreamRetryAttempts.WithLabelValues("success").Inc()
			}
			return nil
		}
		ge := apperrors.Translate(err)
		monitoring.UpstreamErrors.WithLabelValues(model, ge.Kind.String()).Inc()
		var statusErr *apperrors.UpstreamStatusError
		if errors.As(err, &statusErr) && statusErr.Status == http.StatusUnauthorized {
			d.creds.Invalidate(cred)
		}
		if !retryable || !ge.Retryable() || ctx.Err() != nil || attempt >= constants.TransportRetryAttempts {
			if attempt > 0 {
				monitoring.UpstreamRetryAttempts.WithLabelValues("failure").Inc()
			}
			return ge
		}
		log.WithError(err).WithFields(log.Fields{
			"model":      model,
			"request_id": upstream.RequestID(ctx),
			"attempt":    attempt + 1,
		}).Warn("retrying upstream after transport failure")
		select {
		case <-ctx.Done():
			return apperrors.Translate(ctx.Err())
		case <-time.After(d.timeouts.RetryBackoff):
		}
	}
}

func (d *Dispatcher) record(ctx context.Context, p *Prepared, failed bool, usage models.Usage) {
	model := p.Target.ModelID
	if usage.PromptTokens > 0 {
		monitoring.TokensTotal.WithLabelValues(model, "prompt").Add(float64(usage.PromptTokens))
	}
	if usage.CompletionTokens > 0 {
		monitoring.TokensTotal.WithLabelValues(model, "completion").Add(float64(usage.CompletionTokens))
	}
	d.stats.Record(ctx, model, failed, usage)
}
