package credential

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"ocigenai-gateway/internal/constants"
	apperrors "ocigenai-gateway/internal/errors"
	"ocigenai-gateway/internal/monitoring"
	"ocigenai-gateway/internal/monitoring/tracing"
)

const refreshKey = "refresh"

// Options tunes a Provider. Zero values take the package defaults.
type Options struct {
	// SafetyMargin treats a credential as expired this long before its real expiry.
	SafetyMargin time.Duration
	// AcquireTimeout bounds one refresh, retries included.
	AcquireTimeout time.Duration
	// RetryAttempts is the number of immediate retries after a failed fetch.
	// Zero takes the default; a negative value disables retries.
	RetryAttempts int
	Now           func() time.Time
}

func (o Options) withDefaults() Options {
	if o.SafetyMargin <= 0 {
		o.SafetyMargin = constants.CredentialSafetyMargin
	}
	if o.AcquireTimeout <= 0 {
		o.AcquireTimeout = constants.CredentialAcquireTimeout
	}
	switch {
	case o.RetryAttempts == 0:
		o.RetryAttempts = constants.CredentialRetryAttempts
	case o.RetryAttempts < 0:
		o.RetryAttempts = 0
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Provider hands out a valid upstream credential. Concurrent callers that find the cached
// credential expired share a single refresh.
type Provider struct {
	src   Source
	opts  Options
	group singleflight.Group

	mu     sync.RWMutex
	cached *oauth2.Token
}

func NewProvider(src Source, opts Options) *Provider {
	return &Provider{src: src, opts: opts.withDefaults()}
}

// Acquire returns a credential valid for at least the safety margin. Cancelling ctx
// abandons the wait but not a refresh other callers may be sharing.
func (p *Provider) Acquire(ctx context.Context) (*oauth2.Token, error) {
	if tok := p.current(); tok != nil {
		return tok, nil
	}
	ch := p.group.DoChan(refreshKey, func() (any, error) {
		return p.refresh()
	})
	select {
	case <-ctx.Done():
		return nil, apperrors.CredentialUnavailable(ctx.Err())
	case res := <-ch:
		if res.Shared {
			monitoring.CredentialCoalescedWaits.Inc()
		}
		if res.Err != nil {
			return nil, apperrors.CredentialUnavailable(res.Err)
		}
		return res.Val.(*oauth2.Token), nil
	}
}

// Invalidate drops stale from the cache, typically after the upstream rejected it.
// A credential refreshed in the meantime is kept. A nil stale drops whatever is cached.
func (p *Provider) Invalidate(stale *oauth2.Token) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cached == nil {
		return
	}
	if stale == nil || stale.AccessToken == p.cached.AccessToken {
		p.cached = nil
		log.WithField("source", p.src.Name()).Info("upstream credential invalidated")
	}
}

// Status describes the cached credential.
type Status struct {
	Source string    `json:"source"`
	Valid  bool      `json:"valid"`
	Expiry time.Time `json:"expiry,omitempty"`
}

func (p *Provider) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	st := Status{Source: p.src.Name()}
	if p.cached != nil {
		st.Expiry = p.cached.Expiry
		st.Valid = p.usable(p.cached)
	}
	return st
}

func (p *Provider) current() *oauth2.Token {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.cached != nil && p.usable(p.cached) {
		return p.cached
	}
	return nil
}

func (p *Provider) usable(tok *oauth2.Token) bool {
	if tok.AccessToken == "" {
		return false
	}
	if tok.Expiry.IsZero() {
		return true
	}
	return p.opts.Now().Add(p.opts.SafetyMargin).Before(tok.Expiry)
}

// refresh runs detached from any single caller so one cancellation cannot fail the others.
func (p *Provider) refresh() (*oauth2.Token, error) {
	if tok := p.current(); tok != nil {
		return tok, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.opts.AcquireTimeout)
	defer cancel()
	ctx, span := tracing.StartSpan(ctx, "credential", "Provider.Refresh")
	defer span.End()
	span.SetAttributes(attribute.String("credential.source", p.src.Name()))

	start := p.opts.Now()
	var lastErr error
	for attempt := 0; attempt <= p.opts.RetryAttempts; attempt++ {
		tok, err := p.src.Fetch(ctx)
		if err == nil && (tok == nil || tok.AccessToken == "") {
			err = errors.New("source returned an empty credential")
		}
		if err == nil {
			p.store(tok)
			monitoring.CredentialRefreshes.WithLabelValues(p.src.Name(), "success").Inc()
			monitoring.CredentialRefreshDuration.WithLabelValues(p.src.Name()).Observe(p.opts.Now().Sub(start).Seconds())
			return tok, nil
		}
		lastErr = err
		log.WithError(err).WithFields(log.Fields{"source": p.src.Name(), "attempt": attempt + 1}).Warn("credential refresh failed")
		if ctx.Err() != nil {
			break
		}
	}
	monitoring.CredentialRefreshes.WithLabelValues(p.src.Name(), "failure").Inc()
	span.RecordError(lastErr)
	span.SetStatus(codes.Error, "refresh failed")
	return nil, fmt.Errorf("refresh %s credential: %w", p.src.Name(), lastErr)
}

func (p *Provider) store(tok *oauth2.Token) {
	entry := log.WithField("source", p.src.Name())
	if !tok.Expiry.IsZero() {
		entry = entry.WithField("expires_at", tok.Expiry.UTC().Format(time.RFC3339))
		if !p.usable(tok) {
			entry.Warn("refreshed credential expires within the safety margin")
		}
	}
	entry.Debug("upstream credential refreshed")
	p.mu.Lock()
	p.cached = tok
	p.mu.Unlock()
}
