package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"duel-arena/server/internal/duel"
	"duel-arena/server/internal/net/proto"
)

// conn is the slice of *websocket.Conn the gateway needs; tests swap in
// fakes.
type conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type subscriber struct {
	id   string
	conn conn
	// mu serializes writes; gorilla connections allow one writer at a
	// time.
	mu sync.Mutex
}

func (s *subscriber) write(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub tracks the connected platform front-ends and implements the
// dispatcher's Renderer contract: broadcast renders to every subscriber,
// private notices to one. Display names are resolved here, after the
// state commit, never inside the store's critical section.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]*subscriber
	names       map[string]string
	bots        map[string]bool
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]*subscriber),
		names:       make(map[string]string),
		bots:        make(map[string]bool),
	}
}

// Subscribe registers a connection under the client id, replacing any
// previous connection for the same id.
func (h *Hub) Subscribe(clientID string, c conn) *subscriber {
	sub := &subscriber{id: clientID, conn: c}
	h.mu.Lock()
	if previous, ok := h.subscribers[clientID]; ok {
		previous.conn.Close()
	}
	h.subscribers[clientID] = sub
	if _, ok := h.names[clientID]; !ok {
		h.names[clientID] = clientID
	}
	h.mu.Unlock()
	return sub
}

// Identify records the display name and bot flag a client announced.
func (h *Hub) Identify(clientID, name string, bot bool) {
	name = strings.TrimSpace(name)
	h.mu.Lock()
	if name != "" {
		h.names[clientID] = name
	}
	h.bots[clientID] = bot
	h.mu.Unlock()
}

// Disconnect drops the subscriber. Name and bot registrations survive so
// in-flight duels keep rendering sensible descriptions.
func (h *Hub) Disconnect(clientID string, c conn) {
	h.mu.Lock()
	if current, ok := h.subscribers[clientID]; ok && current.conn == c {
		delete(h.subscribers, clientID)
	}
	h.mu.Unlock()
}

// IsBot reports whether the client registered itself as an automated
// actor. Unknown ids count as human; the platform is the authority.
func (h *Hub) IsBot(clientID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.bots[clientID]
}

// SubscriberCount reports connected front-ends, for diagnostics.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Render broadcasts the instruction to every subscriber.
func (h *Hub) Render(_ context.Context, sessionKey string, instr duel.RenderInstruction) error {
	instr.Description = h.resolveNames(instr.Description)
	msg := proto.NewRenderMessage(sessionKey, instr)
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal render payload: %w", err)
	}

	h.mu.RLock()
	subs := make([]*subscriber, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	var firstErr error
	for _, sub := range subs {
		if err := sub.write(data); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("write to %s: %w", sub.id, err)
		}
	}
	return firstErr
}

// Notice sends a private message to one actor. A disconnected actor is
// not an error; the rejection simply has nowhere to go.
func (h *Hub) Notice(_ context.Context, sessionKey, actorID, message string) error {
	h.mu.RLock()
	sub, ok := h.subscribers[actorID]
	h.mu.RUnlock()
	if !ok {
		return nil
	}

	data, err := json.Marshal(proto.NewNoticeMessage(sessionKey, message))
	if err != nil {
		return fmt.Errorf("marshal notice payload: %w", err)
	}
	if err := sub.write(data); err != nil {
		return fmt.Errorf("write to %s: %w", actorID, err)
	}
	return nil
}

// resolveNames substitutes registered display names for raw client ids in
// instruction text.
func (h *Hub) resolveNames(text string) string {
	if text == "" {
		return text
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, name := range h.names {
		if id == name {
			continue
		}
		if strings.Contains(text, id) {
			text = strings.ReplaceAll(text, id, name)
		}
	}
	return text
}
