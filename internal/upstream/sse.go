package upstream

import (
	"bufio"
	"bytes"
	"io"
	"sync"

	"ocigenai-gateway/internal/constants"
	"ocigenai-gateway/internal/models"
	"ocigenai-gateway/internal/translator"
)

var (
	dataPrefix = []byte("data:")
	doneMarker = []byte("[DONE]")
)

// EventStream decodes an OCI server-sent event body into UpstreamEvents.
type EventStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	data    bytes.Buffer
	once    sync.Once
}

// NewEventStream takes ownership of body.
func NewEventStream(body io.ReadCloser) *EventStream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, constants.SSEScannerInitialBufferSize), constants.SSEScannerMaxBufferSize)
	return &EventStream{body: body, scanner: scanner}
}

// Recv returns the next event. Comments, event names and blank keep-alives are skipped.
// Multi-line data fields are joined with newlines as SSE prescribes.
func (s *EventStream) Recv() (models.UpstreamEvent, error) {
	payload, err := s.nextData()
	if err != nil {
		return models.UpstreamEvent{}, err
	}
	if bytes.Equal(payload, doneMarker) {
		return models.UpstreamEvent{}, io.EOF
	}
	return translator.ParseStreamEvent(payload)
}

func (s *EventStream) nextData() ([]byte, error) {
	s.data.Reset()
	for s.scanner.Scan() {
		line := s.scanner.Bytes()
		if len(line) == 0 {
			if s.data.Len() > 0 {
				return s.data.Bytes(), nil
			}
			continue
		}
		if !bytes.HasPrefix(line, dataPrefix) {
			continue
		}
		v := bytes.TrimPrefix(line[len(dataPrefix):], []byte(" "))
		if s.data.Len() > 0 {
			s.data.WriteByte('\n')
		}
		s.data.Write(v)
	}
	if err := s.scanner.Err(); err != nil {
		return nil, err
	}
	if s.data.Len() > 0 {
		return s.data.Bytes(), nil
	}
	return nil, io.EOF
}

// Close closes the underlying body once.
func (s *EventStream) Close() error {
	var err error
	s.once.Do(func() { err = s.body.Close() })
	return err
}
