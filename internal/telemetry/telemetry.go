// Package telemetry emits structured category/action/status events for
// the taxa classifier and staged parser, logged through
// arbor and optionally pushed to connected websocket clients.
package telemetry

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
)

// Event is one telemetry record: a [category, action,
// status] triple with free-form measurements and metadata.
type Event struct {
	Category     string                 `json:"category"`
	Action       string                 `json:"action"`
	Status       string                 `json:"status"`
	Measurements map[string]float64     `json:"measurements,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// Sink accepts telemetry events. Implementations must be safe for
// concurrent use — the taxa stage fans out across sections.
type Sink interface {
	Emit(Event)
}

// LogSink logs every event through arbor at debug level.
type LogSink struct {
	logger arbor.ILogger
}

// NewLogSink creates a Sink that writes each event to logger.
func NewLogSink(logger arbor.ILogger) *LogSink {
	return &LogSink{logger: logger}
}

// Emit implements Sink.
func (s *LogSink) Emit(e Event) {
	if s.logger == nil {
		return
	}
	entry := s.logger.Debug().
		Str("category", e.Category).
		Str("action", e.Action).
		Str("status", e.Status)
	for k, v := range e.Measurements {
		entry = entry.Float64(k, v)
	}
	entry.Msg("telemetry")
}

// WebSocketSink broadcasts every event as JSON to connected clients, in
// addition to logging it, for live progress viewers.
type WebSocketSink struct {
	logger  arbor.ILogger
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

// NewWebSocketSink creates a Sink that broadcasts to registered
// connections and logs through logger.
func NewWebSocketSink(logger arbor.ILogger) *WebSocketSink {
	return &WebSocketSink{logger: logger, clients: map[*websocket.Conn]bool{}}
}

// Register adds conn to the broadcast set; the caller owns the
// connection's lifecycle and must call Unregister on close.
func (s *WebSocketSink) Register(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[conn] = true
}

// Unregister removes conn from the broadcast set.
func (s *WebSocketSink) Unregister(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, conn)
}

// Emit implements Sink.
func (s *WebSocketSink) Emit(e Event) {
	if s.logger != nil {
		s.logger.Debug().Str("category", e.Category).Str("action", e.Action).Str("status", e.Status).Msg("telemetry")
	}

	payload, err := json.Marshal(e)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.clients {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			if s.logger != nil {
				s.logger.Warn().Err(err).Msg("telemetry: dropping unreachable websocket client")
			}
			delete(s.clients, conn)
		}
	}
}
