package upstream

import (
	"context"

	"golang.org/x/oauth2"

	"ocigenai-gateway/internal/models"
)

// Client sends chat requests to OCI Generative AI.
//
// Non-2xx replies come back as *errors.UpstreamStatusError; connection failures are
// returned as-is for errors.Translate to classify.
type Client interface {
	Chat(ctx context.Context, req *models.UpstreamRequest, cred *oauth2.Token) (*models.UpstreamResponse, error)
	// OpenStream returns once the upstream accepted the request and sent headers.
	OpenStream(ctx context.Context, req *models.UpstreamRequest, cred *oauth2.Token) (Stream, error)
}

// Stream is an open upstream event stream. Recv returns io.EOF when the upstream closed
// the connection. Close releases the connection and unblocks a pending Recv.
type Stream interface {
	Recv() (models.UpstreamEvent, error)
	Close() error
}
