package streaming

import (
	apperrors "ocigenai-gateway/internal/errors"
	"ocigenai-gateway/internal/models"
)

// Source yields decoded upstream events in arrival order. Recv blocks until the next
// event is available and returns io.EOF once the upstream closes the stream.
// Close unblocks a pending Recv.
type Source interface {
	Recv() (models.UpstreamEvent, error)
	Close() error
}

// Emitter writes downstream stream units. Chunk and Error may commit response headers.
type Emitter interface {
	Chunk(chunk *models.StreamChunk) error
	Error(err *apperrors.GatewayError) error
	Done() error
}

// ErrClientGone is returned by Run when the emitter can no longer write to the client.
var ErrClientGone = apperrors.ErrClientGone
