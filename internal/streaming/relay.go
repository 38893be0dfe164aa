package streaming

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	apperrors "ocigenai-gateway/internal/errors"
	"ocigenai-gateway/internal/models"
	"ocigenai-gateway/internal/translator"
)

// State is the relay lifecycle position.
type State int32

const (
	StateIdle State = iota
	StateAwaitingFirstChunk
	StateRelaying
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingFirstChunk:
		return "awaiting_first_chunk"
	case StateRelaying:
		return "relaying"
	case StateTerminated:
		return "terminated"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Options identifies one stream instance.
type Options struct {
	ID      string
	Model   string
	Created int64
	// IncludeUsage attaches usage to the final chunk.
	IncludeUsage bool
	// IdleTimeout bounds the gap between two upstream events. Zero disables it.
	IdleTimeout time.Duration
}

// Result summarizes a finished relay.
type Result struct {
	// Committed is set once anything was written downstream.
	Committed    bool
	Chunks       int
	FinishReason string
	Usage        models.Usage
}

type received struct {
	ev  models.UpstreamEvent
	err error
}

// Relay turns upstream events into OpenAI chunks for a single stream.
// A Relay is used once; Run must not be called concurrently.
type Relay struct {
	opts  Options
	mu    sync.Mutex
	state State

	text      runeBuffer
	tools     *toolCallIndex
	roleSent  bool
	committed bool
	chunks    int
	usage     *models.OCIUsage
}

func NewRelay(opts Options) *Relay {
	return &Relay{opts: opts, tools: newToolCallIndex()}
}

// State returns the current lifecycle position.
func (r *Relay) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Relay) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// Run relays src to em until the upstream terminates, fails, or ctx ends.
//
// Failures before anything was written are returned without touching em, so the caller
// can still answer with a plain error or retry. Once committed, a failure is reported to
// the client as an error event and returned as a mid-stream error. The end marker follows
// only a proper terminal signal. src is always closed when Run returns.
func (r *Relay) Run(ctx context.Context, src Source, em Emitter) (Result, error) {
	if r.State() != StateIdle {
		return Result{}, apperrors.Internal(errors.New("relay already used"))
	}
	r.setState(StateAwaitingFirstChunk)
	defer r.setState(StateTerminated)

	done := make(chan struct{})
	events := make(chan received)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			ev, err := src.Recv()
			select {
			case events <- received{ev: ev, err: err}:
			case <-done:
				return
			}
			if err != nil {
				return
			}
		}
	}()
	defer func() {
		close(done)
		_ = src.Close()
		wg.Wait()
	}()

	idle := newIdleTimer(r.opts.IdleTimeout)
	defer idle.Stop()

	var finish *models.UpstreamEvent
	for {
		select {
		case <-ctx.Done():
			return r.fail(em, ctxError(ctx))
		case <-idle.C():
			if finish != nil {
				return r.finish(em, finish)
			}
			return r.fail(em, apperrors.Transport(fmt.Errorf("no upstream event for %s", r.opts.IdleTimeout), true))
		case rcv := <-events:
			idle.Reset()
			if rcv.err != nil {
				if finish != nil {
					return r.finish(em, finish)
				}
				if errors.Is(rcv.err, io.EOF) {
					return r.fail(em, apperrors.Transport(io.ErrUnexpectedEOF, false))
				}
				return r.fail(em, rcv.err)
			}
			if rcv.ev.Usage != nil {
				r.usage = rcv.ev.Usage
			}
			if finish != nil {
				// already terminal; only a late usage event is of interest
				if r.usage != nil {
					return r.finish(em, finish)
				}
				continue
			}
			if err := r.relay(em, rcv.ev); err != nil {
				return r.result(), err
			}
			if rcv.ev.Terminal {
				ev := rcv.ev
				finish = &ev
				if !r.opts.IncludeUsage || r.usage != nil {
					return r.finish(em, finish)
				}
			}
		}
	}
}

// relay emits the content and tool-call fragments of one event.
func (r *Relay) relay(em Emitter, ev models.UpstreamEvent) error {
	var delta models.Delta
	if ev.Text != "" {
		delta.Content = r.text.Push(ev.Text)
	}
	if ev.Terminal {
		delta.Content += r.text.Flush()
	}
	if len(ev.ToolCalls) > 0 {
		delta.ToolCalls = r.tools.deltas(ev.ToolCalls)
	}
	if delta.IsEmpty() {
		return nil
	}
	if !r.roleSent {
		delta.Role = models.RoleAssistant
		r.roleSent = true
	}
	return r.emit(em, r.chunk(delta, nil, ""))
}

// finish emits the single final chunk and the end marker.
func (r *Relay) finish(em Emitter, ev *models.UpstreamEvent) (Result, error) {
	reason, original := translator.MapFinishReason(ev.FinishReason)
	chunk := r.chunk(models.Delta{}, &reason, original)
	if r.opts.IncludeUsage {
		u := translator.UsageFrom(r.usage)
		chunk.Usage = &u
	}
	if err := r.emit(em, chunk); err != nil {
		return r.result(), err
	}
	if err := em.Done(); err != nil {
		return r.result(), fmt.Errorf("%w: %v", ErrClientGone, err)
	}
	res := r.result()
	res.FinishReason = reason
	log.WithFields(log.Fields{"stream_id": r.opts.ID, "chunks": res.Chunks, "finish_reason": reason}).Debug("stream relay finished")
	return res, nil
}

// fail ends the relay with err. Before commit nothing is written.
func (r *Relay) fail(em Emitter, err error) (Result, error) {
	ge := apperrors.Translate(err)
	if !r.committed || isClientCancel(ge) {
		return r.result(), ge
	}
	if ge.Kind != apperrors.KindUpstreamProtocol {
		ge = apperrors.MidStream(err)
	}
	if werr := em.Error(ge); werr != nil {
		log.WithError(werr).WithField("stream_id", r.opts.ID).Debug("failed to write stream error event")
	}
	return r.result(), ge
}

func (r *Relay) emit(em Emitter, chunk *models.StreamChunk) error {
	if err := em.Chunk(chunk); err != nil {
		return fmt.Errorf("%w: %v", ErrClientGone, err)
	}
	r.committed = true
	r.chunks++
	r.setState(StateRelaying)
	return nil
}

func (r *Relay) chunk(delta models.Delta, finish *string, original string) *models.StreamChunk {
	return &models.StreamChunk{
		ID:      r.opts.ID,
		Object:  translator.ObjectChatCompletionChunk,
		Created: r.opts.Created,
		Model:   r.opts.Model,
		Choices: []models.StreamChoice{{Delta: delta, FinishReason: finish, OCIFinishReason: original}},
	}
}

func (r *Relay) result() Result {
	return Result{Committed: r.committed, Chunks: r.chunks, Usage: translator.UsageFrom(r.usage)}
}

func ctxError(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperrors.Transport(ctx.Err(), true)
	}
	return ctx.Err()
}

func isClientCancel(ge *apperrors.GatewayError) bool {
	return ge.ClientAborted() || errors.Is(ge, context.Canceled)
}
