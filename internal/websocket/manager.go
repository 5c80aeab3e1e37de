// Package websocket broadcasts live-reload notifications to browsers
// connected to the dev server.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/conneroisu/bundlekit/internal/logging"
)

const (
	sendBuffer   = 16
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

// WebSocketManager owns the live-reload connections. A single hub
// goroutine registers, unregisters and broadcasts; connections are only
// touched by their own writer goroutine.
type WebSocketManager struct {
	clients      map[*Client]struct{}
	clientsMutex sync.RWMutex

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	originValidator OriginValidator
	logger          logging.Logger

	ctx          context.Context
	cancel       context.CancelFunc
	done         chan struct{}
	shutdownOnce sync.Once
}

// NewWebSocketManager creates a manager and starts its hub.
func NewWebSocketManager(originValidator OriginValidator, logger logging.Logger) *WebSocketManager {
	if originValidator == nil {
		panic("WebSocketManager: originValidator cannot be nil")
	}
	if logger == nil {
		logger = logging.Discard()
	}

	ctx, cancel := context.WithCancel(context.Background())
	manager := &WebSocketManager{
		clients:         make(map[*Client]struct{}),
		broadcast:       make(chan []byte, 64),
		register:        make(chan *Client, 32),
		unregister:      make(chan *Client, 32),
		originValidator: originValidator,
		logger:          logger.WithComponent("livereload"),
		ctx:             ctx,
		cancel:          cancel,
		done:            make(chan struct{}),
	}

	go manager.runHub()

	return manager
}

// HandleWebSocket upgrades a live-reload connection.
func (wm *WebSocketManager) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if wm.ctx.Err() != nil {
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}

	origin := r.Header.Get("Origin")
	if origin != "" && !wm.originValidator.IsAllowedOrigin(origin) {
		wm.logger.Warn(r.Context(), nil, "websocket connection rejected", "origin", origin, "remote", r.RemoteAddr)
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// origin already checked above
		InsecureSkipVerify: true,
		CompressionMode:    websocket.CompressionDisabled,
	})
	if err != nil {
		wm.logger.Warn(r.Context(), err, "websocket upgrade failed", "remote", r.RemoteAddr)
		return
	}

	client := &Client{
		conn:        conn,
		send:        make(chan []byte, sendBuffer),
		remoteAddr:  r.RemoteAddr,
		connectedAt: time.Now(),
	}

	select {
	case wm.register <- client:
	case <-wm.ctx.Done():
		_ = conn.Close(websocket.StatusServiceRestart, "server shutting down")
		return
	}

	wm.handleClient(client)
}

func (wm *WebSocketManager) runHub() {
	defer close(wm.done)

	for {
		select {
		case client := <-wm.register:
			wm.clientsMutex.Lock()
			wm.clients[client] = struct{}{}
			total := len(wm.clients)
			wm.clientsMutex.Unlock()

			wm.logger.Debug(wm.ctx, "live-reload client connected", "remote", client.remoteAddr, "clients", total)
			wm.queue(client, wm.marshal(UpdateMessage{Type: MessageConnected, Timestamp: time.Now()}))

		case client := <-wm.unregister:
			wm.remove(client)

		case message := <-wm.broadcast:
			wm.clientsMutex.RLock()
			clients := make([]*Client, 0, len(wm.clients))
			for client := range wm.clients {
				clients = append(clients, client)
			}
			wm.clientsMutex.RUnlock()

			for _, client := range clients {
				wm.queue(client, message)
			}

		case <-wm.ctx.Done():
			wm.clientsMutex.Lock()
			for client := range wm.clients {
				close(client.send)
				delete(wm.clients, client)
			}
			wm.clientsMutex.Unlock()
			return
		}
	}
}

// queue hands message to a client's writer, dropping clients that fell
// behind.
func (wm *WebSocketManager) queue(client *Client, message []byte) {
	if message == nil {
		return
	}
	select {
	case client.send <- message:
	default:
		wm.remove(client)
	}
}

func (wm *WebSocketManager) remove(client *Client) {
	wm.clientsMutex.Lock()
	_, exists := wm.clients[client]
	if exists {
		delete(wm.clients, client)
		close(client.send)
	}
	total := len(wm.clients)
	wm.clientsMutex.Unlock()

	if exists {
		wm.logger.Debug(wm.ctx, "live-reload client disconnected", "remote", client.remoteAddr, "clients", total)
	}
}

// handleClient writes queued messages until the client goes away. Browsers
// never send anything, so reads are only used to notice the close.
func (wm *WebSocketManager) handleClient(client *Client) {
	ctx := client.conn.CloseRead(wm.ctx)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer func() {
		select {
		case wm.unregister <- client:
		case <-wm.ctx.Done():
		}
	}()

	for {
		select {
		case message, ok := <-client.send:
			if !ok {
				_ = client.conn.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := client.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()
			if err != nil {
				wm.logger.Debug(ctx, "websocket write failed", "remote", client.remoteAddr, "error", err)
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := client.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}

		case <-ctx.Done():
			_ = client.conn.Close(websocket.StatusNormalClosure, "")
			return
		}
	}
}

func (wm *WebSocketManager) marshal(message UpdateMessage) []byte {
	data, err := json.Marshal(message)
	if err != nil {
		wm.logger.Warn(wm.ctx, err, "failed to marshal live-reload message")
		return nil
	}
	return data
}

// BroadcastMessage sends a message to all connected WebSocket clients
func (wm *WebSocketManager) BroadcastMessage(message UpdateMessage) {
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now()
	}
	data := wm.marshal(message)
	if data == nil {
		return
	}

	select {
	case wm.broadcast <- data:
	case <-wm.ctx.Done():
	default:
		wm.logger.Debug(wm.ctx, "broadcast channel full, dropping message", "type", message.Type)
	}
}

// Reload tells every browser to reload.
func (wm *WebSocketManager) Reload(hash string) {
	wm.BroadcastMessage(UpdateMessage{Type: MessageReload, Hash: hash})
}

// ReportErrors sends compile errors to every browser for display.
func (wm *WebSocketManager) ReportErrors(errs []string) {
	wm.BroadcastMessage(UpdateMessage{Type: MessageErrors, Errors: errs})
}

// GetConnectedClients returns the number of connected clients
func (wm *WebSocketManager) GetConnectedClients() int {
	wm.clientsMutex.RLock()
	defer wm.clientsMutex.RUnlock()
	return len(wm.clients)
}

// Shutdown closes every connection and stops the hub.
func (wm *WebSocketManager) Shutdown(ctx context.Context) error {
	wm.shutdownOnce.Do(wm.cancel)

	select {
	case <-wm.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("websocket shutdown: %w", ctx.Err())
	}
}

// IsShutdown returns whether the WebSocket manager has been shut down
func (wm *WebSocketManager) IsShutdown() bool {
	return wm.ctx.Err() != nil
}
