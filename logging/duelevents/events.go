// Package duelevents provides typed log events for the duel lifecycle.
package duelevents

import (
	"context"

	"duel-arena/server/logging"
)

const (
	ChallengeIssuedEventType    logging.EventType = "duel.challenge_issued"
	ChallengeAcceptedEventType  logging.EventType = "duel.challenge_accepted"
	ChallengeCancelledEventType logging.EventType = "duel.challenge_cancelled"
	AttackResolvedEventType     logging.EventType = "duel.attack_resolved"
	DuelFinishedEventType       logging.EventType = "duel.finished"
	ActionRejectedEventType     logging.EventType = "duel.action_rejected"
)

func playerRef(id string) logging.EntityRef {
	return logging.EntityRef{ID: id, Kind: logging.EntityKindPlayer}
}

// ChallengeIssued records a fresh invitation being seeded.
func ChallengeIssued(ctx context.Context, pub logging.Publisher, session, challengerID, opponentID string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     ChallengeIssuedEventType,
		Session:  session,
		Actor:    playerRef(challengerID),
		Targets:  []logging.EntityRef{playerRef(opponentID)},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryDuel,
	})
}

// ChallengeAccepted records the opponent taking up arms.
func ChallengeAccepted(ctx context.Context, pub logging.Publisher, session, opponentID string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     ChallengeAcceptedEventType,
		Session:  session,
		Actor:    playerRef(opponentID),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryDuel,
	})
}

// ChallengeCancelled records an invitation being torn down.
func ChallengeCancelled(ctx context.Context, pub logging.Publisher, session, actorID string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     ChallengeCancelledEventType,
		Session:  session,
		Actor:    playerRef(actorID),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryDuel,
	})
}

type AttackPayload struct {
	Damage       int `json:"damage"`
	ChallengerHP int `json:"challengerHp"`
	OpponentHP   int `json:"opponentHp"`
}

// AttackResolved records one committed swing.
func AttackResolved(ctx context.Context, pub logging.Publisher, session, attackerID, defenderID string, payload AttackPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     AttackResolvedEventType,
		Session:  session,
		Actor:    playerRef(attackerID),
		Targets:  []logging.EntityRef{playerRef(defenderID)},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryDuel,
		Payload:  payload,
	})
}

// DuelFinished records the winner the instant the duel leaves the store.
func DuelFinished(ctx context.Context, pub logging.Publisher, session, winnerID, loserID string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     DuelFinishedEventType,
		Session:  session,
		Actor:    playerRef(winnerID),
		Targets:  []logging.EntityRef{playerRef(loserID)},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryDuel,
	})
}

// ActionRejected records a guarded click. Debug severity: rejections are
// routine, not errors.
func ActionRejected(ctx context.Context, pub logging.Publisher, session, actorID, reason string) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     ActionRejectedEventType,
		Session:  session,
		Actor:    playerRef(actorID),
		Severity: logging.SeverityDebug,
		Category: logging.CategoryDuel,
	}
	pub.Publish(ctx, event.WithExtra("reason", reason))
}
