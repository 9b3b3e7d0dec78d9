package duel

import "errors"

// Challenge validation errors. These surface to the invitation initiator
// only; no State exists until validation passes.
var (
	ErrSelfChallenge = errors.New("you can't duel yourself")
	ErrBotOpponent   = errors.New("you can't duel a bot")
	ErrMissingActor  = errors.New("challenge requires both participant ids")
)

// NewChallenge validates an invitation and returns the initial duel state.
// The challenger is provisionally given the first turn; Apply assigns it
// for real once the opponent accepts.
func NewChallenge(challengerID, opponentID string, opponentIsBot bool) (State, error) {
	if challengerID == "" || opponentID == "" {
		return State{}, ErrMissingActor
	}
	if challengerID == opponentID {
		return State{}, ErrSelfChallenge
	}
	if opponentIsBot {
		return State{}, ErrBotOpponent
	}

	return State{
		ChallengerID: challengerID,
		OpponentID:   opponentID,
		ChallengerHP: InitialHP,
		OpponentHP:   InitialHP,
		Turn:         challengerID,
		Phase:        PhaseAwaitingAcceptance,
	}, nil
}

// Invitation renders the freshly issued challenge. It lives here rather
// than in Apply because no interaction event has occurred yet; the command
// layer forwards it right after seeding the store.
func Invitation(state State) RenderInstruction {
	return RenderInstruction{
		Title: "Duel Challenge",
		Description: state.ChallengerID + " has challenged " + state.OpponentID +
			" to a duel! Press 'Accept' to take up arms, or 'Cancel' if your cowardice surpasses you.",
		ChallengerHP: state.ChallengerHP,
		OpponentHP:   state.OpponentHP,
		Controls:     ControlsAcceptOrCancel,
		ActiveID:     state.OpponentID,
	}
}
