// Package activity provides real-time activity event capture and fan-out.
package activity

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/historia/cockpit-archive/internal/models"
)

// Store defines the interface for activity log persistence operations.
type Store interface {
	CreateActivityLog(ctx context.Context, log *models.ActivityLog) error
}

// Client represents a connected WebSocket client.
type Client struct {
	id     uuid.UUID
	userID uuid.UUID
	conn   *websocket.Conn
	send   chan *models.ActivityLog
	feed   *Feed
	filter *ClientFilter
	mu     sync.Mutex
}

// ClientFilter holds the filter preferences for a connected client.
type ClientFilter struct {
	Actions       []models.ActivityAction `json:"actions,omitempty"`
	ResourceTypes []string                `json:"resource_types,omitempty"`
	UserIDs       []uuid.UUID             `json:"user_ids,omitempty"`
}

// Matches checks if an entry matches the client's filter.
func (f *ClientFilter) Matches(entry *models.ActivityLog) bool {
	if f == nil {
		return true
	}

	if len(f.Actions) > 0 {
		found := false
		for _, a := range f.Actions {
			if a == entry.Action {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(f.ResourceTypes) > 0 {
		found := false
		for _, rt := range f.ResourceTypes {
			if rt == entry.ResourceType {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(f.UserIDs) > 0 && entry.UserID != nil {
		found := false
		for _, id := range f.UserIDs {
			if id == *entry.UserID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

// Config holds configuration for the Feed.
type Config struct {
	// PingInterval is how often to send ping messages to clients.
	PingInterval time.Duration
	// WriteTimeout is the timeout for writing to a client.
	WriteTimeout time.Duration
	// ReadTimeout is the timeout for reading from a client.
	ReadTimeout time.Duration
	// MaxMessageSize is the maximum size of a message from a client.
	MaxMessageSize int64
	// SendBufferSize is the size of the send buffer per client.
	SendBufferSize int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		PingInterval:   30 * time.Second,
		WriteTimeout:   10 * time.Second,
		ReadTimeout:    60 * time.Second,
		MaxMessageSize: 512,
		SendBufferSize: 256,
	}
}

// Feed manages activity broadcasting to connected clients.
type Feed struct {
	config   Config
	store    Store
	logger   zerolog.Logger
	upgrader websocket.Upgrader

	clients   map[uuid.UUID]*Client
	clientsMu sync.RWMutex

	broadcast  chan *models.ActivityLog
	register   chan *Client
	unregister chan *Client

	done chan struct{}
	wg   sync.WaitGroup
}

// NewFeed creates a new Feed with the given configuration.
func NewFeed(store Store, cfg Config, logger zerolog.Logger) *Feed {
	return &Feed{
		config: cfg,
		store:  store,
		logger: logger.With().Str("component", "activity_feed").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // CORS middleware already vets the origin
			},
		},
		clients:    make(map[uuid.UUID]*Client),
		broadcast:  make(chan *models.ActivityLog, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Start begins processing events and client management.
func (f *Feed) Start() {
	f.wg.Add(1)
	go f.run()
	f.logger.Info().Msg("activity feed started")
}

// Stop stops the feed and closes all client connections.
func (f *Feed) Stop() {
	close(f.done)
	f.wg.Wait()
	f.logger.Info().Msg("activity feed stopped")
}

// run is the main event loop.
func (f *Feed) run() {
	defer f.wg.Done()

	for {
		select {
		case <-f.done:
			f.closeAllClients()
			return

		case client := <-f.register:
			f.addClient(client)

		case client := <-f.unregister:
			f.removeClient(client)

		case entry := <-f.broadcast:
			f.broadcastEntry(entry)
		}
	}
}

// addClient adds a client to the feed.
func (f *Feed) addClient(client *Client) {
	f.clientsMu.Lock()
	defer f.clientsMu.Unlock()

	f.clients[client.id] = client

	f.logger.Debug().
		Str("client_id", client.id.String()).
		Str("user_id", client.userID.String()).
		Msg("client connected")
}

// removeClient removes a client from the feed.
func (f *Feed) removeClient(client *Client) {
	f.clientsMu.Lock()
	defer f.clientsMu.Unlock()

	if _, ok := f.clients[client.id]; !ok {
		return
	}

	delete(f.clients, client.id)
	close(client.send)

	f.logger.Debug().
		Str("client_id", client.id.String()).
		Msg("client disconnected")
}

// closeAllClients closes all client connections.
func (f *Feed) closeAllClients() {
	f.clientsMu.Lock()
	defer f.clientsMu.Unlock()

	for _, client := range f.clients {
		close(client.send)
	}
	f.clients = make(map[uuid.UUID]*Client)
}

// broadcastEntry sends an entry to all connected clients.
func (f *Feed) broadcastEntry(entry *models.ActivityLog) {
	f.clientsMu.RLock()
	defer f.clientsMu.RUnlock()

	for _, client := range f.clients {
		if client.filter.Matches(entry) {
			select {
			case client.send <- entry:
			default:
				// Client's send buffer is full, skip
				f.logger.Warn().
					Str("client_id", client.id.String()).
					Msg("client send buffer full, dropping entry")
			}
		}
	}
}

// Publish publishes an activity entry to the feed and persists it.
func (f *Feed) Publish(ctx context.Context, entry *models.ActivityLog) error {
	if f.store != nil {
		if err := f.store.CreateActivityLog(ctx, entry); err != nil {
			f.logger.Error().Err(err).
				Str("action", string(entry.Action)).
				Msg("failed to persist activity entry")
			return err
		}
	}

	select {
	case f.broadcast <- entry:
	default:
		f.logger.Warn().Msg("broadcast buffer full, dropping entry")
	}

	return nil
}

// PublishReviewDecision publishes a review decision on a change request.
func (f *Feed) PublishReviewDecision(ctx context.Context, userID, requestID uuid.UUID, action models.ActivityAction, details string) error {
	entry := models.NewActivityLog(action, "change_request").
		WithUser(userID).
		WithResource(requestID).
		WithDetails(details)
	return f.Publish(ctx, entry)
}

// PublishUserLogin publishes a user login event.
func (f *Feed) PublishUserLogin(ctx context.Context, userID uuid.UUID, ipAddress, userAgent string) error {
	entry := models.NewActivityLog(models.ActivityActionLogin, "session").
		WithUser(userID).
		WithRequestInfo(ipAddress, userAgent)
	return f.Publish(ctx, entry)
}

// PublishUserLogout publishes a user logout event.
func (f *Feed) PublishUserLogout(ctx context.Context, userID uuid.UUID) error {
	entry := models.NewActivityLog(models.ActivityActionLogout, "session").WithUser(userID)
	return f.Publish(ctx, entry)
}

// HandleWebSocket handles a WebSocket connection upgrade and client management.
func (f *Feed) HandleWebSocket(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Error().Err(err).Msg("failed to upgrade websocket connection")
		return
	}

	client := &Client{
		id:     uuid.New(),
		userID: userID,
		conn:   conn,
		send:   make(chan *models.ActivityLog, f.config.SendBufferSize),
		feed:   f,
		filter: &ClientFilter{},
	}

	f.register <- client

	// Start read and write pumps
	go client.writePump()
	go client.readPump()
}

// ClientCount returns the number of connected clients.
func (f *Feed) ClientCount() int {
	f.clientsMu.RLock()
	defer f.clientsMu.RUnlock()
	return len(f.clients)
}

// readPump reads messages from the client.
func (c *Client) readPump() {
	defer func() {
		c.feed.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.feed.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.feed.config.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.feed.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.feed.logger.Debug().Err(err).Msg("websocket read error")
			}
			break
		}

		// Parse filter update message
		var filterUpdate struct {
			Type   string       `json:"type"`
			Filter ClientFilter `json:"filter"`
		}
		if err := json.Unmarshal(message, &filterUpdate); err == nil && filterUpdate.Type == "filter" {
			c.mu.Lock()
			c.filter = &filterUpdate.Filter
			c.mu.Unlock()
		}
	}
}

// writePump writes messages to the client.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.feed.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case entry, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.feed.config.WriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}

			data, _ := json.Marshal(entry)
			w.Write(data)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.feed.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
