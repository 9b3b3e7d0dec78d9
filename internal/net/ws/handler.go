package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	nethttp "net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"duel-arena/server/internal/dispatch"
	"duel-arena/server/internal/duel"
	"duel-arena/server/internal/net/proto"
)

type HandlerConfig struct {
	Logger *log.Logger
}

// Handler upgrades platform front-end connections and pumps their
// messages into the dispatcher.
type Handler struct {
	hub        *Hub
	dispatcher *dispatch.Dispatcher
	logger     *log.Logger
	upgrader   websocket.Upgrader
}

func NewHandler(hub *Hub, dispatcher *dispatch.Dispatcher, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	return &Handler{
		hub:        hub,
		dispatcher: dispatcher,
		logger:     logger,
		upgrader:   upgrader,
	}
}

func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	clientID := r.URL.Query().Get("id")
	if clientID == "" {
		nethttp.Error(w, "missing id", nethttp.StatusBadRequest)
		return
	}

	c, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed for %s: %v", clientID, err)
		return
	}

	h.serve(clientID, c)
}

// serve runs the read loop for one connection. Every decoded interaction
// is handed to the dispatcher on its own goroutine; ordering across events
// is the store's problem, not the socket's.
func (h *Handler) serve(clientID string, c conn) {
	sub := h.hub.Subscribe(clientID, c)
	defer h.hub.Disconnect(clientID, c)

	for {
		_, payload, err := c.ReadMessage()
		if err != nil {
			return
		}

		var msg proto.ClientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			h.logger.Printf("discarding malformed message from %s: %v", clientID, err)
			continue
		}

		switch msg.Type {
		case proto.TypeHello:
			h.hub.Identify(clientID, msg.Name, msg.Bot)
			h.writeJSON(sub, clientID, proto.HelloAckMessage{
				Ver:  proto.Version,
				Type: proto.TypeHelloAck,
				ID:   clientID,
				Name: msg.Name,
			})
		case proto.TypeChallenge:
			h.handleChallenge(sub, clientID, msg)
		case proto.TypeInteraction:
			event, ok := proto.InteractionEvent(clientID, msg)
			if !ok {
				h.logger.Printf("discarding malformed interaction from %s", clientID)
				continue
			}
			go h.dispatcher.Handle(context.Background(), event)
		case proto.TypeHeartbeat:
			h.writeJSON(sub, clientID, proto.HeartbeatMessage{
				Ver:        proto.Version,
				Type:       proto.TypeHeartbeat,
				ServerTime: time.Now().UnixMilli(),
				ClientTime: msg.SentAt,
			})
		default:
			h.logger.Printf("unknown message type %q from %s", msg.Type, clientID)
		}
	}
}

// handleChallenge mints the session key (the id of the message that will
// host the duel's buttons) and seeds the duel. Validation failures go back
// to the initiator only.
func (h *Handler) handleChallenge(sub *subscriber, clientID string, msg proto.ClientMessage) {
	sessionKey := uuid.NewString()
	err := h.dispatcher.OpenChallenge(context.Background(), sessionKey, clientID, msg.Opponent, h.hub.IsBot(msg.Opponent))
	if err != nil {
		reason := "challenge rejected"
		switch {
		case errors.Is(err, duel.ErrSelfChallenge), errors.Is(err, duel.ErrBotOpponent):
			reason = "You can't duel yourself or a bot!"
		case errors.Is(err, duel.ErrMissingActor):
			reason = "Pick an opponent to duel."
		default:
			h.logger.Printf("challenge from %s failed: %v", clientID, err)
		}
		h.writeJSON(sub, clientID, proto.ChallengeRejectMessage{
			Ver:    proto.Version,
			Type:   proto.TypeChallengeReject,
			Reason: reason,
		})
		return
	}

	h.writeJSON(sub, clientID, proto.ChallengeAckMessage{
		Ver:       proto.Version,
		Type:      proto.TypeChallengeAck,
		MessageID: sessionKey,
	})
}

func (h *Handler) writeJSON(sub *subscriber, clientID string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Printf("failed to marshal response for %s: %v", clientID, err)
		return
	}
	if err := sub.write(data); err != nil {
		h.logger.Printf("write failed for %s: %v", clientID, err)
	}
}
