// internal/ws/hub.go
package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"wellnest-service/internal/domain/booking"

	"go.uber.org/zap"
)

// Event is a booking lifecycle notification pushed to both parties.
type Event struct {
	Type    string           `json:"type"`
	Booking *booking.Booking `json:"booking"`
	At      time.Time        `json:"at"`
}

// Hub fans booking events out to connected clients, keyed by identity.
// Push-only: clients never send application messages.
type Hub struct {
	clients map[int64]map[*Client]bool
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client
	events     chan targetedEvent

	logger *zap.Logger
}

type targetedEvent struct {
	identityIDs []int64
	payload     []byte
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[int64]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan targetedEvent, 256),
		logger:     logger,
	}
}

// Run owns the client registry until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case ev := <-h.events:
			h.deliver(ev)
		}
	}
}

// NotifyBookingEvent pushes a booking event to the requester and the expert.
// Never blocks the caller: if the event buffer is full the event is dropped.
func (h *Hub) NotifyBookingEvent(b *booking.Booking, event string) {
	payload, err := json.Marshal(Event{Type: event, Booking: b, At: time.Now()})
	if err != nil {
		h.logger.Error("failed to marshal booking event", zap.Error(err))
		return
	}

	ev := targetedEvent{
		identityIDs: []int64{b.RequesterID, b.ExpertID},
		payload:     payload,
	}

	select {
	case h.events <- ev:
	default:
		h.logger.Warn("event buffer full, dropping booking event",
			zap.String("booking_id", b.ID),
			zap.String("event", event),
		)
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.identityID] == nil {
		h.clients[client.identityID] = make(map[*Client]bool)
	}
	h.clients[client.identityID][client] = true

	h.logger.Debug("ws client connected",
		zap.Int64("identity_id", client.identityID),
		zap.Int("total", h.totalClients()),
	)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[client.identityID]; ok {
		if _, exists := clients[client]; exists {
			delete(clients, client)
			client.close()
			if len(clients) == 0 {
				delete(h.clients, client.identityID)
			}
		}
	}
}

func (h *Hub) deliver(ev targetedEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, id := range ev.identityIDs {
		for client := range h.clients[id] {
			client.send(ev.payload)
		}
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, clients := range h.clients {
		for client := range clients {
			client.close()
		}
	}
	h.clients = make(map[int64]map[*Client]bool)
	h.logger.Info("ws hub shut down")
}

// totalClients assumes h.mu is held.
func (h *Hub) totalClients() int {
	n := 0
	for _, clients := range h.clients {
		n += len(clients)
	}
	return n
}
