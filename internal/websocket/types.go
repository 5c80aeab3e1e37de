package websocket

import (
	"time"

	"github.com/coder/websocket"

	"github.com/conneroisu/bundlekit/internal/validation"
)

// Message types sent to live-reload clients.
const (
	MessageConnected = "connected"
	MessageReload    = "reload"
	MessageErrors    = "errors"
)

// Client represents a WebSocket client connection
type Client struct {
	conn        *websocket.Conn
	send        chan []byte
	remoteAddr  string
	connectedAt time.Time
}

// UpdateMessage represents a message sent to the browser
type UpdateMessage struct {
	Type      string    `json:"type"`
	Hash      string    `json:"hash,omitempty"`
	Errors    []string  `json:"errors,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// OriginValidator interface for WebSocket origin validation
type OriginValidator interface {
	IsAllowedOrigin(origin string) bool
}

// AllowedOrigins accepts exactly the listed origins.
type AllowedOrigins []string

// IsAllowedOrigin implements OriginValidator.
func (a AllowedOrigins) IsAllowedOrigin(origin string) bool {
	return validation.ValidateOrigin(origin, a) == nil
}
