package duel

// InitialHP is the health both participants start a duel with.
const InitialHP = 100

// AttackDamage is the fixed amount removed from the defender per attack.
const AttackDamage = 10

// Phase describes the coarse lifecycle stage of a duel.
type Phase string

const (
	// PhaseAwaitingAcceptance covers the window between the challenge
	// being issued and the opponent pressing accept or either side
	// cancelling.
	PhaseAwaitingAcceptance Phase = "awaiting_acceptance"
	// PhaseInProgress means both participants are trading attacks.
	PhaseInProgress Phase = "in_progress"
	// PhaseFinished is terminal; finished duels are removed from the
	// store in the same update that declares the winner.
	PhaseFinished Phase = "finished"
)

// IsValid reports whether the phase is one of the known lifecycle stages.
func (p Phase) IsValid() bool {
	switch p {
	case PhaseAwaitingAcceptance, PhaseInProgress, PhaseFinished:
		return true
	default:
		return false
	}
}

// State is the full record of one active duel. Participant identifiers are
// opaque platform ids; the engine never interprets them beyond equality.
type State struct {
	ChallengerID string
	OpponentID   string
	ChallengerHP int
	OpponentHP   int
	// Turn holds the id of the participant currently allowed to attack.
	// Invariant: always equals ChallengerID or OpponentID.
	Turn  string
	Phase Phase
}

// IsParticipant reports whether id belongs to either side of the duel.
func (s State) IsParticipant(id string) bool {
	return id == s.ChallengerID || id == s.OpponentID
}

// opponentOf returns the other participant's id. Callers must pass a
// participant id.
func (s State) opponentOf(id string) string {
	if id == s.ChallengerID {
		return s.OpponentID
	}
	return s.ChallengerID
}

// ActionKind tags the three interaction buttons a participant can press.
type ActionKind string

const (
	ActionAccept ActionKind = "accept"
	ActionCancel ActionKind = "cancel"
	ActionAttack ActionKind = "attack"
)

// IsValid reports whether the kind is a known interaction.
func (k ActionKind) IsValid() bool {
	switch k {
	case ActionAccept, ActionCancel, ActionAttack:
		return true
	default:
		return false
	}
}

// Action is the state machine's input: which button was pressed and by
// whom. The actor id comes straight from the platform event and is never
// trusted without validation against the stored state.
type Action struct {
	Kind    ActionKind
	ActorID string
}

// Controls names the interactive elements the renderer should present
// after an update.
type Controls string

const (
	ControlsAcceptOrCancel Controls = "accept_or_cancel"
	ControlsAttackOrWait   Controls = "attack_or_wait"
	ControlsNone           Controls = "none"
)

// RenderInstruction is the engine's sole output artifact. The rendering
// collaborator sees nothing else, so nothing else can leak.
type RenderInstruction struct {
	Title        string
	Description  string
	ChallengerHP int
	OpponentHP   int
	Controls     Controls
	// ActiveID names the participant the controls are aimed at. Empty
	// when Controls is ControlsNone.
	ActiveID string
}

// Rejection is returned for guarded actions that must not mutate state.
// It is reported privately to the triggering actor only.
type Rejection struct {
	Reason string
}

func (r *Rejection) Error() string {
	return r.Reason
}

// Rejection reasons, kept short because they are shown verbatim to the
// clicking user.
const (
	ReasonNotForYou   = "This duel challenge is not for you!"
	ReasonNotYourTurn = "It's not your turn!"
)
