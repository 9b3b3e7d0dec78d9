// Package proto defines the versioned JSON wire messages exchanged with
// platform front-ends over the websocket gateway.
package proto

import (
	"strings"

	"duel-arena/server/internal/dispatch"
	"duel-arena/server/internal/duel"
)

// Version tracks the wire-protocol revision expected by clients.
const Version = 1

// Client message type identifiers.
const (
	TypeHello       = "hello"
	TypeChallenge   = "challenge"
	TypeInteraction = "interaction"
	TypeHeartbeat   = "heartbeat"
)

// Outbound message type identifiers.
const (
	TypeHelloAck        = "helloAck"
	TypeRender          = "render"
	TypeNotice          = "notice"
	TypeChallengeAck    = "challengeAck"
	TypeChallengeReject = "challengeReject"
)

// ClientMessage captures an inbound websocket message from a platform
// front-end. Fields are a union across message types; Type selects which
// are meaningful.
type ClientMessage struct {
	Ver  int    `json:"ver,omitempty"`
	Type string `json:"type"`
	// hello
	Name string `json:"name,omitempty"`
	Bot  bool   `json:"bot,omitempty"`
	// challenge
	Opponent string `json:"opponent,omitempty"`
	// interaction: the id of the message hosting the duel's buttons plus
	// the pressed action.
	MessageID string `json:"messageId,omitempty"`
	Action    string `json:"action,omitempty"`
	// heartbeat
	SentAt int64 `json:"sentAt,omitempty"`
}

// HelloAckMessage confirms registration and echoes the assigned client id.
type HelloAckMessage struct {
	Ver  int    `json:"ver"`
	Type string `json:"type"`
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RenderMessage is the broadcast render payload: everything a front-end
// needs to redraw the duel message, nothing more.
type RenderMessage struct {
	Ver          int    `json:"ver"`
	Type         string `json:"type"`
	MessageID    string `json:"messageId"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	ChallengerHP int    `json:"challengerHp"`
	OpponentHP   int    `json:"opponentHp"`
	Controls     string `json:"controls"`
	ActiveID     string `json:"activeId,omitempty"`
}

// NoticeMessage is a private reply to one actor, never broadcast.
type NoticeMessage struct {
	Ver       int    `json:"ver"`
	Type      string `json:"type"`
	MessageID string `json:"messageId"`
	Message   string `json:"message"`
}

// ChallengeAckMessage tells the initiating front-end which message id now
// hosts the duel.
type ChallengeAckMessage struct {
	Ver       int    `json:"ver"`
	Type      string `json:"type"`
	MessageID string `json:"messageId"`
}

// ChallengeRejectMessage reports an invalid invitation to its initiator.
type ChallengeRejectMessage struct {
	Ver    int    `json:"ver"`
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// HeartbeatMessage acknowledges a client heartbeat.
type HeartbeatMessage struct {
	Ver        int    `json:"ver"`
	Type       string `json:"type"`
	ServerTime int64  `json:"serverTime"`
	ClientTime int64  `json:"clientTime"`
}

// InteractionEvent decodes a raw interaction message into a dispatcher
// event. It reports false for anything the dispatcher would discard,
// letting the gateway drop malformed clicks early.
func InteractionEvent(actorID string, msg ClientMessage) (dispatch.Event, bool) {
	if msg.Type != TypeInteraction {
		return dispatch.Event{}, false
	}
	kind := duel.ActionKind(strings.ToLower(strings.TrimSpace(msg.Action)))
	if !kind.IsValid() {
		return dispatch.Event{}, false
	}
	key := strings.TrimSpace(msg.MessageID)
	if key == "" || actorID == "" {
		return dispatch.Event{}, false
	}
	return dispatch.Event{SessionKey: key, ActorID: actorID, Action: kind}, true
}

// NewRenderMessage lifts a render instruction onto the wire.
func NewRenderMessage(sessionKey string, instr duel.RenderInstruction) RenderMessage {
	return RenderMessage{
		Ver:          Version,
		Type:         TypeRender,
		MessageID:    sessionKey,
		Title:        instr.Title,
		Description:  instr.Description,
		ChallengerHP: instr.ChallengerHP,
		OpponentHP:   instr.OpponentHP,
		Controls:     string(instr.Controls),
		ActiveID:     instr.ActiveID,
	}
}

// NewNoticeMessage builds the private rejection payload.
func NewNoticeMessage(sessionKey, message string) NoticeMessage {
	return NoticeMessage{
		Ver:       Version,
		Type:      TypeNotice,
		MessageID: sessionKey,
		Message:   message,
	}
}
