// Package sse writes server-sent event frames for the chat stream.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// doneMarker terminates a successfully finalized stream.
const doneMarker = "[DONE]"

type textFrame struct {
	Text string `json:"text"`
}

type errorFrame struct {
	Error string `json:"error"`
}

// Writer emits SSE data frames over an http.ResponseWriter, flushing
// after every frame so chunks reach the client as they arrive.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewWriter sets the streaming response headers and returns a Writer.
// It fails if the underlying ResponseWriter cannot flush, since buffered
// SSE defeats the point.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flushing")
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	// Disable proxy buffering so frames are not coalesced.
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &Writer{w: w, flusher: flusher}, nil
}

func (s *Writer) WriteText(text string) error {
	payload, err := json.Marshal(textFrame{Text: text})
	if err != nil {
		return fmt.Errorf("encoding text frame: %w", err)
	}
	return s.writeFrame(payload)
}

func (s *Writer) WriteError(message string) error {
	payload, err := json.Marshal(errorFrame{Error: message})
	if err != nil {
		return fmt.Errorf("encoding error frame: %w", err)
	}
	return s.writeFrame(payload)
}

func (s *Writer) WriteDone() error {
	return s.writeFrame([]byte(doneMarker))
}

func (s *Writer) writeFrame(data []byte) error {
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
