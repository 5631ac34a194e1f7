package community

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/AnshRaj112/mooddrop-backend/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	EventDropCreated   = "drop_created"
	EventReplyCreated  = "reply_created"
	EventReactionAdded = "reaction_added"

	// EventsChannel is the Redis channel used to relay events between
	// server instances.
	EventsChannel = "mooddrop:drops:events"

	subscriberBuffer = 16
)

// Event is the payload sent to websocket subscribers.
type Event struct {
	Type      string              `json:"type"`
	DropID    string              `json:"dropId,omitempty"`
	Drop      *models.Drop        `json:"drop,omitempty"`
	Reply     *models.Reply       `json:"reply,omitempty"`
	Reaction  models.ReactionKind `json:"reaction,omitempty"`
	Timestamp time.Time           `json:"timestamp"`

	// Origin identifies the instance that published a relayed event.
	Origin string `json:"origin,omitempty"`
}

// Hub fans feed events out to local subscribers.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]chan Event
	nextID uint64
	log    *slog.Logger

	origin string
	redis  *redis.Client
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{subs: make(map[uint64]chan Event), log: logger}
}

// Subscribe registers a listener. The returned function unregisters it and
// closes the channel. A subscriber that falls behind misses events.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the number of local listeners.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) fanOut(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			h.log.Warn("community: subscriber lagging, event dropped", "subscriber", id, "type", ev.Type)
		}
	}
}

// Publish delivers ev locally and, when a relay is running, to the other
// instances.
func (h *Hub) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	h.fanOut(ev)

	h.mu.RLock()
	client, origin := h.redis, h.origin
	h.mu.RUnlock()
	if client == nil {
		return
	}
	ev.Origin = origin
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("community: encode relay event", "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Publish(ctx, EventsChannel, data).Err(); err != nil {
		h.log.Warn("community: relay publish failed", "error", err)
	}
}

// RunRedisRelay forwards events published by other instances to local
// subscribers until ctx is done. origin must be unique per instance.
func (h *Hub) RunRedisRelay(ctx context.Context, client *redis.Client, origin string) {
	h.mu.Lock()
	h.redis, h.origin = client, origin
	h.mu.Unlock()

	backoff := time.Second
	for ctx.Err() == nil {
		err := h.relay(ctx, client, origin, func() { backoff = time.Second })
		if ctx.Err() != nil {
			return
		}
		h.log.Warn("community: relay subscriber stopped, retrying", "error", err, "backoff", backoff)
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, 30*time.Second)
	}
}

func (h *Hub) relay(ctx context.Context, client *redis.Client, origin string, connected func()) error {
	pubsub := client.Subscribe(ctx, EventsChannel)
	defer pubsub.Close()

	h.log.Info("✅ Drops relay subscribed", "channel", EventsChannel)
	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			return err
		}
		connected()

		var ev Event
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			h.log.Warn("community: bad relay payload", "error", err)
			continue
		}
		if ev.Origin == origin {
			continue
		}
		ev.Origin = ""
		h.fanOut(ev)
	}
}
