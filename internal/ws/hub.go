// Package ws pushes activity log entries to connected operator dashboards.
package ws

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/damoang/angple-editorial/internal/domain"
	pkglogger "github.com/damoang/angple-editorial/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const redisPubSubChannel = "editorial:activity"

// Event is the frame sent to clients
type Event struct {
	Type    string             `json:"type"` // "activity"
	Payload domain.ActivityLog `json:"payload"`
}

// envelope carries the origin so an instance ignores its own Redis echo
type envelope struct {
	Origin string `json:"origin"`
	Event  Event  `json:"event"`
}

// Hub fans activity entries out to every registered client
type Hub struct {
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan Event

	mu          sync.RWMutex
	redisClient *redis.Client
	instanceID  string
	ctx         context.Context
	cancel      context.CancelFunc
	log         zerolog.Logger
}

// NewHub creates a new Hub. redisClient may be nil for a single instance.
func NewHub(redisClient *redis.Client, instanceID string) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:     make(map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan Event, 256),
		redisClient: redisClient,
		instanceID:  instanceID,
		ctx:         ctx,
		cancel:      cancel,
		log:         pkglogger.WithComponent("ws_hub"),
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	if h.redisClient != nil {
		go h.subscribeRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			h.mu.Lock()
			for client := range h.clients {
				if !client.wants(event.Payload.Action) {
					continue
				}
				select {
				case client.send <- data:
				default:
					// 느린 클라이언트는 끊는다
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()

		case <-h.ctx.Done():
			return
		}
	}
}

// PublishActivity queues an entry for local clients and other instances.
// It never blocks; entries are dropped when the queue is full.
func (h *Hub) PublishActivity(entry domain.ActivityLog) {
	event := Event{Type: "activity", Payload: entry}
	h.enqueue(event)

	if h.redisClient != nil {
		data, err := json.Marshal(envelope{Origin: h.instanceID, Event: event})
		if err == nil {
			h.redisClient.Publish(h.ctx, redisPubSubChannel, data) //nolint:errcheck
		}
	}
}

func (h *Hub) enqueue(event Event) {
	select {
	case h.broadcast <- event:
	default:
		h.log.Warn().Str("action", event.Payload.Action).Msg("activity broadcast queue full, event dropped")
	}
}

// subscribeRedis relays entries recorded by other instances
func (h *Hub) subscribeRedis() {
	pubsub := h.redisClient.Subscribe(h.ctx, redisPubSubChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil || env.Origin == h.instanceID {
				continue
			}
			h.enqueue(env.Event)
		case <-h.ctx.Done():
			return
		}
	}
}

// Stop gracefully shuts down the hub
func (h *Hub) Stop() {
	h.cancel()
}

// matchesPrefix reports whether action starts with any prefix. No prefixes matches all.
func matchesPrefix(action string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, p := range prefixes {
		if strings.HasPrefix(action, p) {
			return true
		}
	}
	return false
}
