package duel

import "fmt"

// Apply advances a duel by one action. It is a pure function: no I/O, no
// clock, deterministic for a given (state, action) pair.
//
// The first return value is the successor state; nil means the session
// must be removed from the store (cancelled or finished). A *Rejection
// error means the action was refused by a guard, the state is untouched,
// and the instruction result is meaningless.
func Apply(state State, action Action) (*State, RenderInstruction, error) {
	switch state.Phase {
	case PhaseAwaitingAcceptance:
		switch action.Kind {
		case ActionAccept:
			return applyAccept(state, action)
		case ActionCancel:
			return applyCancel(state, action)
		default:
			return nil, RenderInstruction{}, &Rejection{Reason: ReasonNotForYou}
		}
	case PhaseInProgress:
		switch action.Kind {
		case ActionAttack:
			return applyAttack(state, action)
		default:
			return nil, RenderInstruction{}, &Rejection{Reason: ReasonNotForYou}
		}
	default:
		// Finished states never survive in the store, so any action
		// reaching here is a stale click.
		return nil, RenderInstruction{}, &Rejection{Reason: ReasonNotForYou}
	}
}

// applyAccept starts the duel. Only the challenged opponent may accept,
// and the challenger always takes the first turn.
func applyAccept(state State, action Action) (*State, RenderInstruction, error) {
	if action.ActorID != state.OpponentID {
		return nil, RenderInstruction{}, &Rejection{Reason: ReasonNotForYou}
	}

	next := state
	next.Phase = PhaseInProgress
	next.Turn = state.ChallengerID

	instr := RenderInstruction{
		Title: "Duel Started!",
		Description: fmt.Sprintf("%s vs %s\n\nIt is %s's turn to attack!",
			state.ChallengerID, state.OpponentID, state.ChallengerID),
		ChallengerHP: next.ChallengerHP,
		OpponentHP:   next.OpponentHP,
		Controls:     ControlsAttackOrWait,
		ActiveID:     next.Turn,
	}
	return &next, instr, nil
}

// applyCancel tears the invitation down. Either participant may cancel.
func applyCancel(state State, action Action) (*State, RenderInstruction, error) {
	if !state.IsParticipant(action.ActorID) {
		return nil, RenderInstruction{}, &Rejection{Reason: ReasonNotForYou}
	}

	instr := RenderInstruction{
		Title:        "Duel Cancelled",
		Description:  "The duel has been cancelled.",
		ChallengerHP: state.ChallengerHP,
		OpponentHP:   state.OpponentHP,
		Controls:     ControlsNone,
	}
	return nil, instr, nil
}

// applyAttack resolves one swing: subtract fixed damage from the defender,
// clamp at zero, then evaluate the win. The clamp runs before the zero
// check so overkill damage cannot change the outcome via underflow.
func applyAttack(state State, action Action) (*State, RenderInstruction, error) {
	if action.ActorID != state.Turn {
		return nil, RenderInstruction{}, &Rejection{Reason: ReasonNotYourTurn}
	}

	next := state
	defenderID := state.opponentOf(action.ActorID)
	if defenderID == next.ChallengerID {
		next.ChallengerHP = clampDamage(next.ChallengerHP, AttackDamage)
	} else {
		next.OpponentHP = clampDamage(next.OpponentHP, AttackDamage)
	}

	var winnerID string
	switch {
	case next.ChallengerHP == 0:
		winnerID = next.OpponentID
	case next.OpponentHP == 0:
		winnerID = next.ChallengerID
	}

	if winnerID != "" {
		next.Phase = PhaseFinished
		instr := RenderInstruction{
			Title: "Duel Finished!",
			Description: fmt.Sprintf("%s defeated %s!",
				winnerID, next.opponentOf(winnerID)),
			ChallengerHP: next.ChallengerHP,
			OpponentHP:   next.OpponentHP,
			Controls:     ControlsNone,
		}
		return nil, instr, nil
	}

	next.Turn = defenderID
	instr := RenderInstruction{
		Title: "Duel in Progress",
		Description: fmt.Sprintf("%s attacked %s for %d damage! It is now %s's turn.",
			action.ActorID, defenderID, AttackDamage, next.Turn),
		ChallengerHP: next.ChallengerHP,
		OpponentHP:   next.OpponentHP,
		Controls:     ControlsAttackOrWait,
		ActiveID:     next.Turn,
	}
	return &next, instr, nil
}

func clampDamage(hp, damage int) int {
	if damage >= hp {
		return 0
	}
	return hp - damage
}
