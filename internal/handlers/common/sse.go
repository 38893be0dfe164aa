package common

import (
	"encoding/json"
	"net/http"
)

// SSEWriteData writes one SSE data frame with a JSON payload.
func SSEWriteData(w http.ResponseWriter, flusher http.Flusher, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return SSEWriteRaw(w, flusher, b)
}

// SSEWriteRaw writes an already encoded payload as one SSE data frame.
func SSEWriteRaw(w http.ResponseWriter, flusher http.Flusher, data []byte) error {
	frame := make([]byte, 0, len(data)+8)
	frame = append(frame, "data: "...)
	frame = append(frame, data...)
	frame = append(frame, '\n', '\n')
	if _, err := w.Write(frame); err != nil {
		return err
	}
	if flusher != nil {
		flusher.Flush()
	}
	return nil
}

// SSEWriteDone writes the [DONE] marker that ends an OpenAI stream.
func SSEWriteDone(w http.ResponseWriter, flusher http.Flusher) error {
	if _, err := w.Write([]byte("data: [DONE]\n\n")); err != nil {
		return err
	}
	if flusher != nil {
		flusher.Flush()
	}
	return nil
}
