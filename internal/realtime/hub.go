package realtime

import (
	"encoding/json"
	"log"
	"sync"
)

// Client represents a single websocket client connection.
// The network conn itself is managed by the ws handler.
type Client interface {
	Send(message []byte) bool
	Close()
}

// EventType names a task change pushed to clients.
type EventType string

const (
	TaskCreated          EventType = "task_created"
	TaskUpdated          EventType = "task_updated"
	TaskDeleted          EventType = "task_deleted"
	TaskStatusChanged    EventType = "task_status_changed"
	TaskChecklistUpdated EventType = "task_checklist_updated"
	TaskReviewed         EventType = "task_reviewed"
	MembershipApproved   EventType = "membership_approved"
)

// Event is the JSON payload sent over the socket.
type Event struct {
	Type           EventType `json:"type"`
	TaskID         string    `json:"taskId,omitempty"`
	OrganizationID string    `json:"organizationId"`
	ActorID        string    `json:"actorId"`
}

// Publisher delivers events to users.
type Publisher interface {
	Publish(evt Event, userIDs ...string)
}

// Hub maintains active user connections and fans events out to them.
type Hub struct {
	mu              sync.RWMutex
	userIdToClients map[string]map[Client]struct{}
}

func NewHub() *Hub {
	return &Hub{userIdToClients: make(map[string]map[Client]struct{})}
}

// Register adds a client under a user ID.
func (h *Hub) Register(userID string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.userIdToClients[userID]; !ok {
		h.userIdToClients[userID] = make(map[Client]struct{})
	}
	h.userIdToClients[userID][client] = struct{}{}
}

// Unregister removes a client; if user has no more clients, cleans up map.
func (h *Hub) Unregister(userID string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.userIdToClients[userID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.userIdToClients, userID)
		}
	}
}

// Connected returns how many clients userID has open.
func (h *Hub) Connected(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userIdToClients[userID])
}

// Broadcast sends a message to all clients of a user.
func (h *Hub) Broadcast(userID string, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.userIdToClients[userID] {
		// a failed write is cleaned up by the handler's reader loop
		_ = c.Send(message)
	}
}

// Publish encodes evt once and broadcasts it to every distinct user.
func (h *Hub) Publish(evt Event, userIDs ...string) {
	msg, err := json.Marshal(evt)
	if err != nil {
		log.Printf("realtime: encode %s: %v", evt.Type, err)
		return
	}
	seen := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		if _, dup := seen[id]; dup || id == "" {
			continue
		}
		seen[id] = struct{}{}
		h.Broadcast(id, msg)
	}
}
