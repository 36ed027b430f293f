package api

import (
	"fmt"
	"net/http"

	"github.com/bytedance/sonic"
)

// UI message stream event types
const (
	eventStart     = "start"
	eventTextStart = "text-start"
	eventTextDelta = "text-delta"
	eventTextEnd   = "text-end"
	eventFinish    = "finish"
	eventError     = "error"
)

// streamEvent is one data line of the chat stream
type streamEvent struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	Delta     string `json:"delta,omitempty"`
	ErrorText string `json:"errorText,omitempty"`
}

// eventStream writes server-sent events and flushes after each one
type eventStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newEventStream(w http.ResponseWriter) (*eventStream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support streaming")
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	h.Set("X-Vercel-AI-UI-Message-Stream", "v1")
	w.WriteHeader(http.StatusOK)
	return &eventStream{w: w, flusher: flusher}, nil
}

func (s *eventStream) send(event streamEvent) error {
	data, err := sonic.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *eventStream) start(textID string) error {
	if err := s.send(streamEvent{Type: eventStart}); err != nil {
		return err
	}
	return s.send(streamEvent{Type: eventTextStart, ID: textID})
}

func (s *eventStream) delta(textID, text string) error {
	return s.send(streamEvent{Type: eventTextDelta, ID: textID, Delta: text})
}

func (s *eventStream) finish(textID string) error {
	if err := s.send(streamEvent{Type: eventTextEnd, ID: textID}); err != nil {
		return err
	}
	if err := s.send(streamEvent{Type: eventFinish}); err != nil {
		return err
	}
	if _, err := fmt.Fprint(s.w, "data: [DONE]\n\n"); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *eventStream) fail(msg string) error {
	return s.send(streamEvent{Type: eventError, ErrorText: msg})
}
