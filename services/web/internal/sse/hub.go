package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"knowhow/pkg/logger"

	"github.com/google/uuid"
)

type Event string

const (
	EventCourseView    Event = "CourseView"
	EventSearchResults Event = "SearchResults"
	EventError         Event = "Error"
)

type Message struct {
	Channel string `json:"channel"`
	Event   Event  `json:"event"`
	Data    any    `json:"data,omitempty"`
}

type Client struct {
	ID       uuid.UUID
	UserID   string
	Channels map[string]bool
	Outbound chan Message
	done     chan struct{}
	once     sync.Once
}

// Done is closed once the client has been closed.
func (c *Client) Done() <-chan struct{} { return c.done }

type Hub struct {
	mu            sync.RWMutex
	logger        *logger.Logger
	subscriptions map[string]map[*Client]bool
	clients       map[uuid.UUID]*Client
	heartbeat     time.Duration
}

func NewHub(log *logger.Logger, heartbeat time.Duration) *Hub {
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}
	return &Hub{
		logger:        log.With("component", "SSEHub"),
		subscriptions: make(map[string]map[*Client]bool),
		clients:       make(map[uuid.UUID]*Client),
		heartbeat:     heartbeat,
	}
}

func (hub *Hub) NewClient(userID string) *Client {
	c := &Client{
		ID:       uuid.New(),
		UserID:   userID,
		Channels: make(map[string]bool),
		Outbound: make(chan Message, 10),
		done:     make(chan struct{}),
	}
	hub.mu.Lock()
	hub.clients[c.ID] = c
	hub.mu.Unlock()
	return c
}

// Client looks up a connected client by id.
func (hub *Hub) Client(id uuid.UUID) (*Client, bool) {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	c, ok := hub.clients[id]
	return c, ok
}

func (hub *Hub) AddChannel(client *Client, channel string) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	channel = strings.TrimSpace(channel)
	if channel == "" {
		return
	}

	client.Channels[channel] = true

	clients, exists := hub.subscriptions[channel]
	if !exists {
		clients = make(map[*Client]bool)
		hub.subscriptions[channel] = clients
	}
	clients[client] = true

	hub.logger.Debug("SSE client subscribed", "clientID", client.ID, "channel", channel)
}

func (hub *Hub) RemoveChannel(client *Client, channel string) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	channel = strings.TrimSpace(channel)
	if channel == "" {
		return
	}
	delete(client.Channels, channel)

	if subMap, ok := hub.subscriptions[channel]; ok {
		delete(subMap, client)
		if len(subMap) == 0 {
			delete(hub.subscriptions, channel)
		}
	}
	hub.logger.Debug("SSE client unsubscribed from channel", "clientID", client.ID, "channel", channel)
}

func (hub *Hub) removeClientLocked(client *Client) {
	for ch := range client.Channels {
		if subMap, ok := hub.subscriptions[ch]; ok {
			delete(subMap, client)
			if len(subMap) == 0 {
				delete(hub.subscriptions, ch)
			}
		}
	}
	client.Channels = make(map[string]bool)
	delete(hub.clients, client.ID)
}

// Broadcast queues msg for every client on msg.Channel. Slow clients lose messages.
func (hub *Hub) Broadcast(msg Message) int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if msg.Channel == "" {
		return 0
	}
	sent := 0
	for c := range hub.subscriptions[msg.Channel] {
		if hub.offer(c, msg) {
			sent++
		}
	}
	return sent
}

// Send queues msg for one client.
func (hub *Hub) Send(client *Client, msg Message) bool {
	return hub.offer(client, msg)
}

func (hub *Hub) offer(c *Client, msg Message) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.Outbound <- msg:
		return true
	default:
		hub.logger.Warn("Dropping SSE message; outbound buffer full", "clientID", c.ID)
		return false
	}
}

// Serve streams the client's messages until the request ends or the client is closed.
func (hub *Hub) Serve(w http.ResponseWriter, r *http.Request, client *Client) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported!", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	_, _ = fmt.Fprintf(w, "event: ready\ndata: {\"client_id\":%q}\n\n", client.ID.String())
	flusher.Flush()

	ctx := r.Context()
	heartbeat := time.NewTicker(hub.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			hub.logger.Debug("SSE client context done", "clientID", client.ID, "err", ctx.Err())
			return
		case <-client.done:
			return
		case <-heartbeat.C:
			_, _ = fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case msg := <-client.Outbound:
			jsonBytes, err := json.Marshal(msg)
			if err != nil {
				hub.logger.Warn("Failed to marshal SSE message", "error", err)
				continue
			}
			_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Event, jsonBytes)
			flusher.Flush()
		}
	}
}

// CloseClient unsubscribes the client everywhere and ends its stream.
func (hub *Hub) CloseClient(client *Client) {
	hub.mu.Lock()
	hub.removeClientLocked(client)
	hub.mu.Unlock()
	client.once.Do(func() { close(client.done) })
}

// Channel names.
func CourseChannel(courseID int64, userID string) string {
	return fmt.Sprintf("course:%d:%s", courseID, userID)
}

func SearchChannel(clientID uuid.UUID) string {
	return "search:" + clientID.String()
}
