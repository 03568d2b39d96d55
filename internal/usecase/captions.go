package usecase

import (
	"strings"

	"herohire/internal/ports"
)

// consumeCaptions forwards the running caption to the view until the stream ends.
func consumeCaptions(stream ports.StreamingSession, events ports.EventSink, done chan struct{}) {
	defer close(done)

	last := ""
	for event := range stream.Events() {
		text := strings.TrimSpace(event.Text)
		if text == "" || text == last {
			continue
		}
		last = text
		events.Caption(text)
	}
}
