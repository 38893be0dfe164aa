package credential

import (
	"context"

	"golang.org/x/oauth2"
)

// Source fetches a fresh upstream credential. Implementations do not cache;
// the Provider owns caching and coalescing.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (*oauth2.Token, error)
}

// tokenSourceAdapter exposes any oauth2.TokenSource as a Source.
type tokenSourceAdapter struct {
	name string
	ts   oauth2.TokenSource
}

// FromTokenSource wraps ts. ts.Token is not context aware, so ctx only bounds the wait.
func FromTokenSource(name string, ts oauth2.TokenSource) Source {
	return &tokenSourceAdapter{name: name, ts: ts}
}

func (a *tokenSourceAdapter) Name() string { return a.name }

func (a *tokenSourceAdapter) Fetch(ctx context.Context) (*oauth2.Token, error) {
	type result struct {
		tok *oauth2.Token
		err error
	}
	ch := make(chan result, 1)
	go func() {
		tok, err := a.ts.Token()
		ch <- result{tok, err}
	}()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		return r.tok, r.err
	}
}

// NewStaticSource serves a fixed bearer token that never expires.
func NewStaticSource(token string) Source {
	return FromTokenSource("static", oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}))
}
