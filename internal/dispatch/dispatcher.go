// Package dispatch routes inbound interaction events through the duel
// state machine and hands the resulting render instructions to the
// rendering collaborator.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"duel-arena/server/internal/duel"
	"duel-arena/server/logging"
	"duel-arena/server/logging/duelevents"
)

// Event is one decoded platform interaction: a button click on the message
// identified by SessionKey, performed by ActorID.
type Event struct {
	SessionKey string
	ActorID    string
	Action     duel.ActionKind
}

// Renderer is the outbound collaborator. It only ever sees render
// instructions, never duel state. Render addresses the whole duel
// audience; Notice is a private reply to a single actor.
type Renderer interface {
	Render(ctx context.Context, sessionKey string, instr duel.RenderInstruction) error
	Notice(ctx context.Context, sessionKey, actorID, message string) error
}

// Dispatcher owns the orchestration between store, state machine, and
// renderer. All gameplay decisions live in duel.Apply; the dispatcher only
// sequences them.
type Dispatcher struct {
	store     *duel.Store
	renderer  Renderer
	publisher logging.Publisher
}

func New(store *duel.Store, renderer Renderer, publisher logging.Publisher) *Dispatcher {
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	return &Dispatcher{store: store, renderer: renderer, publisher: publisher}
}

// Store exposes the session store for diagnostics.
func (d *Dispatcher) Store() *duel.Store {
	return d.store
}

// OpenChallenge validates an invitation, seeds the store under the freshly
// minted session key, and emits the invitation render instruction. The
// returned error surfaces to the initiator only.
func (d *Dispatcher) OpenChallenge(ctx context.Context, sessionKey, challengerID, opponentID string, opponentIsBot bool) error {
	state, err := duel.NewChallenge(challengerID, opponentID, opponentIsBot)
	if err != nil {
		return err
	}
	if err := d.store.Insert(sessionKey, state); err != nil {
		return fmt.Errorf("seed challenge: %w", err)
	}

	duelevents.ChallengeIssued(ctx, d.publisher, sessionKey, challengerID, opponentID)
	d.render(ctx, sessionKey, duel.Invitation(state))
	return nil
}

// Handle processes one interaction event. The whole get-compute-commit
// cycle runs inside the store's per-key critical section; rendering and
// name resolution happen strictly after the commit.
func (d *Dispatcher) Handle(ctx context.Context, event Event) {
	if !event.Action.IsValid() || event.SessionKey == "" || event.ActorID == "" {
		return
	}

	var (
		prev  duel.State
		next  *duel.State
		instr duel.RenderInstruction
	)
	err := d.store.Update(event.SessionKey, func(current duel.State) (*duel.State, error) {
		prev = current
		var applyErr error
		next, instr, applyErr = duel.Apply(current, duel.Action{Kind: event.Action, ActorID: event.ActorID})
		if applyErr != nil {
			return nil, applyErr
		}
		return next, nil
	})

	switch {
	case err == nil:
		d.logOutcome(ctx, event, prev, next, instr)
		d.render(ctx, event.SessionKey, instr)
	case errors.Is(err, duel.ErrNotFound):
		// Stale click for an already finished or cancelled duel.
	default:
		var rejection *duel.Rejection
		if errors.As(err, &rejection) {
			duelevents.ActionRejected(ctx, d.publisher, event.SessionKey, event.ActorID, rejection.Reason)
			d.notice(ctx, event.SessionKey, event.ActorID, rejection.Reason)
			return
		}
		d.publisher.Publish(ctx, logging.Event{
			Type:     "dispatch.update_failed",
			Session:  event.SessionKey,
			Actor:    logging.EntityRef{ID: event.ActorID, Kind: logging.EntityKindPlayer},
			Severity: logging.SeverityError,
			Category: logging.CategorySystem,
			Payload:  err.Error(),
		})
	}
}

// logOutcome translates a committed transition into the matching duel
// events. prev is the state the action was applied to; next is nil when
// the session was removed.
func (d *Dispatcher) logOutcome(ctx context.Context, event Event, prev duel.State, next *duel.State, instr duel.RenderInstruction) {
	switch event.Action {
	case duel.ActionAccept:
		duelevents.ChallengeAccepted(ctx, d.publisher, event.SessionKey, event.ActorID)
	case duel.ActionCancel:
		duelevents.ChallengeCancelled(ctx, d.publisher, event.SessionKey, event.ActorID)
	case duel.ActionAttack:
		defenderID := prev.OpponentID
		if event.ActorID == prev.OpponentID {
			defenderID = prev.ChallengerID
		}
		payload := duelevents.AttackPayload{
			Damage:       duel.AttackDamage,
			ChallengerHP: instr.ChallengerHP,
			OpponentHP:   instr.OpponentHP,
		}
		duelevents.AttackResolved(ctx, d.publisher, event.SessionKey, event.ActorID, defenderID, payload)
		if next == nil {
			duelevents.DuelFinished(ctx, d.publisher, event.SessionKey, event.ActorID, defenderID)
		}
	}
}

// render forwards an instruction to the collaborator. The transition is
// already committed, so a failed notification is logged and swallowed.
func (d *Dispatcher) render(ctx context.Context, sessionKey string, instr duel.RenderInstruction) {
	if d.renderer == nil {
		return
	}
	if err := d.renderer.Render(ctx, sessionKey, instr); err != nil {
		d.reportRenderFailure(ctx, sessionKey, err)
	}
}

func (d *Dispatcher) notice(ctx context.Context, sessionKey, actorID, message string) {
	if d.renderer == nil {
		return
	}
	if err := d.renderer.Notice(ctx, sessionKey, actorID, message); err != nil {
		d.reportRenderFailure(ctx, sessionKey, err)
	}
}

func (d *Dispatcher) reportRenderFailure(ctx context.Context, sessionKey string, err error) {
	d.publisher.Publish(ctx, logging.Event{
		Type:     "dispatch.render_failed",
		Session:  sessionKey,
		Actor:    logging.EntityRef{Kind: logging.EntityKindSystem},
		Severity: logging.SeverityWarn,
		Category: logging.CategorySystem,
		Payload:  err.Error(),
	})
}
