package websocket

import (
	"github.com/growthpath/growthpath-be/internal/models"
	"github.com/rs/zerolog/log"
)

const publishBuffer = 256

type userMessage struct {
	userID  string
	payload []byte
}

// Hub maintains the set of active clients and routes activity to the clients
// of the user it belongs to. All maps are owned by the Run goroutine.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	// Messages addressed to every client of one user.
	publish chan userMessage

	// A map of user IDs to the set of that user's connected clients.
	subscriptions map[string]map[*Client]bool

	done chan struct{}
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
		publish:       make(chan userMessage, publishBuffer),
		clients:       make(map[*Client]bool),
		subscriptions: make(map[string]map[*Client]bool),
		done:          make(chan struct{}),
	}
}

// Run starts the Hub's message processing loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.clients[client] = true
			h.addSubscription(client)
			log.Info().Int("total_clients", len(h.clients)).Str("user_id", client.UserID).Msg("Client connected")
		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				log.Info().Int("total_clients", len(h.clients)).Str("user_id", client.UserID).Msg("Client disconnected")
			}
		case msg := <-h.publish:
			h.sendTo(msg.userID, msg.payload)
		case <-h.done:
			for client := range h.clients {
				h.drop(client)
			}
			return
		}
	}
}

// Stop ends the Run loop and drops every client.
func (h *Hub) Stop() {
	close(h.done)
}

// Join registers client unless the hub has stopped.
func (h *Hub) Join(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Leave unregisters client. It is a no-op once the hub has stopped.
func (h *Hub) Leave(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}

// PublishActivity queues an activity event for the owning user's clients.
// It never blocks; when the queue is full the event is dropped.
func (h *Hub) PublishActivity(event models.Event) {
	payload, err := NewActivityMessage(event)
	if err != nil {
		log.Error().Err(err).Str("event_id", event.ID.Hex()).Msg("Failed to encode activity message")
		return
	}
	h.PublishTo(event.UserID.Hex(), payload)
}

// PublishTo queues a raw message for every client of userID.
func (h *Hub) PublishTo(userID string, payload []byte) {
	select {
	case h.publish <- userMessage{userID: userID, payload: payload}:
	default:
		log.Warn().Str("user_id", userID).Msg("Websocket publish queue full, dropping message")
	}
}

func (h *Hub) sendTo(userID string, message []byte) {
	for client := range h.subscriptions[userID] {
		select {
		case client.Send <- message:
		default:
			// Slow consumer.
			h.drop(client)
		}
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.done)
	h.removeSubscription(client)
}

func (h *Hub) addSubscription(client *Client) {
	if h.subscriptions[client.UserID] == nil {
		h.subscriptions[client.UserID] = make(map[*Client]bool)
	}
	h.subscriptions[client.UserID][client] = true
}

func (h *Hub) removeSubscription(client *Client) {
	if subs, ok := h.subscriptions[client.UserID]; ok {
		delete(subs, client)
		if len(subs) == 0 {
			delete(h.subscriptions, client.UserID)
		}
	}
}
