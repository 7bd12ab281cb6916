// Package ws pushes change hints to connected clients. Events carry no
// message content; clients react by polling.
package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pliu/siso/internal/metrics"
	"github.com/sirupsen/logrus"
)

// Event is the JSON frame written to a socket.
type Event struct {
	Type   string `json:"type"`
	ChatID string `json:"chatId"`
}

type notification struct {
	userID  string
	payload []byte
}

type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Events addressed to a single user.
	notify chan notification

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Closed when Run returns.
	done chan struct{}

	mu     sync.RWMutex
	online map[string]int

	log     logrus.FieldLogger
	metrics *metrics.Metrics
}

func NewHub(log logrus.FieldLogger, m *metrics.Metrics) *Hub {
	return &Hub{
		notify:     make(chan notification, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		online:     make(map[string]int),
		done:       make(chan struct{}),
		log:        log,
		metrics:    m,
	}
}

// Run owns the client set until ctx is done, then closes every socket.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			return
		case client := <-h.register:
			h.clients[client] = true
			h.mu.Lock()
			h.online[client.userID]++
			h.mu.Unlock()
			h.metrics.WSConnected()
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
			}
		case n := <-h.notify:
			for client := range h.clients {
				if client.userID != n.userID {
					continue
				}
				select {
				case client.send <- n.payload:
				default:
					h.log.WithField("user", client.userID).Warn("notification buffer full, dropping socket")
					h.drop(client)
				}
			}
		}
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.send)
	h.mu.Lock()
	if h.online[client.userID]--; h.online[client.userID] <= 0 {
		delete(h.online, client.userID)
	}
	h.mu.Unlock()
	h.metrics.WSDisconnected()
}

// Online reports whether userID has at least one registered socket.
func (h *Hub) Online(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.online[userID] > 0
}

// Notify queues an event for every socket of userID. It never blocks; when
// the user has no socket or the queue is full the hint is dropped and the
// client catches up on its next poll.
func (h *Hub) Notify(userID, eventType, chatID string) {
	if !h.Online(userID) {
		h.log.WithFields(logrus.Fields{"user": userID, "event": eventType}).Debug("user offline, dropping hint")
		return
	}
	payload, err := json.Marshal(Event{Type: eventType, ChatID: chatID})
	if err != nil {
		return
	}
	select {
	case h.notify <- notification{userID: userID, payload: payload}:
	default:
		h.log.WithField("user", userID).Debug("notify queue full, dropping hint")
	}
}
