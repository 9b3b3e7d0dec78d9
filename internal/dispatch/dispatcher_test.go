package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"

	"duel-arena/server/internal/duel"
	"duel-arena/server/logging"
	"duel-arena/server/logging/duelevents"
)

type renderCall struct {
	sessionKey string
	instr      duel.RenderInstruction
}

type noticeCall struct {
	sessionKey string
	actorID    string
	message    string
}

type fakeRenderer struct {
	mu      sync.Mutex
	renders []renderCall
	notices []noticeCall
	fail    error
}

func (r *fakeRenderer) Render(_ context.Context, sessionKey string, instr duel.RenderInstruction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.renders = append(r.renders, renderCall{sessionKey: sessionKey, instr: instr})
	return nil
}

func (r *fakeRenderer) Notice(_ context.Context, sessionKey, actorID, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.notices = append(r.notices, noticeCall{sessionKey: sessionKey, actorID: actorID, message: message})
	return nil
}

func (r *fakeRenderer) lastRender(t *testing.T) renderCall {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.renders) == 0 {
		t.Fatalf("expected at least one render call")
	}
	return r.renders[len(r.renders)-1]
}

type capturingPublisher struct {
	mu     sync.Mutex
	events []logging.Event
}

func (p *capturingPublisher) Publish(_ context.Context, event logging.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *capturingPublisher) types() []logging.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	kinds := make([]logging.EventType, 0, len(p.events))
	for _, event := range p.events {
		kinds = append(kinds, event.Type)
	}
	return kinds
}

func newTestDispatcher() (*Dispatcher, *fakeRenderer, *capturingPublisher) {
	renderer := &fakeRenderer{}
	publisher := &capturingPublisher{}
	return New(duel.NewStore(), renderer, publisher), renderer, publisher
}

func TestOpenChallengeSeedsStoreAndRendersInvitation(t *testing.T) {
	d, renderer, publisher := newTestDispatcher()

	if err := d.OpenChallenge(context.Background(), "msg-1", "alice", "bob", false); err != nil {
		t.Fatalf("open challenge failed: %v", err)
	}

	state, ok := d.Store().Get("msg-1")
	if !ok {
		t.Fatalf("expected session to be seeded")
	}
	if state.Phase != duel.PhaseAwaitingAcceptance {
		t.Fatalf("expected awaiting acceptance, got %q", state.Phase)
	}

	call := renderer.lastRender(t)
	if call.instr.Controls != duel.ControlsAcceptOrCancel {
		t.Fatalf("expected invitation controls, got %q", call.instr.Controls)
	}
	found := false
	for _, kind := range publisher.types() {
		if kind == duelevents.ChallengeIssuedEventType {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected challenge_issued event, got %v", publisher.types())
	}
}

func TestOpenChallengeRejectsSelfDuelWithoutSeeding(t *testing.T) {
	d, renderer, _ := newTestDispatcher()

	err := d.OpenChallenge(context.Background(), "msg-1", "alice", "alice", false)
	if !errors.Is(err, duel.ErrSelfChallenge) {
		t.Fatalf("expected ErrSelfChallenge, got %v", err)
	}
	if d.Store().Len() != 0 {
		t.Fatalf("failed challenge must not seed the store")
	}
	renderer.mu.Lock()
	defer renderer.mu.Unlock()
	if len(renderer.renders) != 0 {
		t.Fatalf("failed challenge must not render")
	}
}

func TestHandleAcceptTransitionsAndBroadcasts(t *testing.T) {
	d, renderer, _ := newTestDispatcher()
	if err := d.OpenChallenge(context.Background(), "msg-1", "alice", "bob", false); err != nil {
		t.Fatalf("open challenge failed: %v", err)
	}

	d.Handle(context.Background(), Event{SessionKey: "msg-1", ActorID: "bob", Action: duel.ActionAccept})

	state, ok := d.Store().Get("msg-1")
	if !ok || state.Phase != duel.PhaseInProgress {
		t.Fatalf("expected in-progress session, got %+v ok=%v", state, ok)
	}
	call := renderer.lastRender(t)
	if call.instr.Controls != duel.ControlsAttackOrWait || call.instr.ActiveID != "alice" {
		t.Fatalf("expected attack controls for alice, got %+v", call.instr)
	}
}

func TestHandleRejectionIsPrivateAndLeavesStateUntouched(t *testing.T) {
	d, renderer, _ := newTestDispatcher()
	if err := d.OpenChallenge(context.Background(), "msg-1", "alice", "bob", false); err != nil {
		t.Fatalf("open challenge failed: %v", err)
	}
	before, _ := d.Store().Get("msg-1")
	renderer.mu.Lock()
	rendersBefore := len(renderer.renders)
	renderer.mu.Unlock()

	// The challenger cannot accept their own challenge.
	d.Handle(context.Background(), Event{SessionKey: "msg-1", ActorID: "alice", Action: duel.ActionAccept})

	after, _ := d.Store().Get("msg-1")
	if after != before {
		t.Fatalf("rejection mutated state: %+v -> %+v", before, after)
	}
	renderer.mu.Lock()
	defer renderer.mu.Unlock()
	if len(renderer.renders) != rendersBefore {
		t.Fatalf("rejection must not broadcast")
	}
	if len(renderer.notices) != 1 {
		t.Fatalf("expected exactly one private notice, got %d", len(renderer.notices))
	}
	notice := renderer.notices[0]
	if notice.actorID != "alice" || notice.message != duel.ReasonNotForYou {
		t.Fatalf("unexpected notice %+v", notice)
	}
}

func TestHandleAbsentSessionIsSilentNoOp(t *testing.T) {
	d, renderer, publisher := newTestDispatcher()

	d.Handle(context.Background(), Event{SessionKey: "ghost", ActorID: "alice", Action: duel.ActionAttack})

	renderer.mu.Lock()
	defer renderer.mu.Unlock()
	if len(renderer.renders) != 0 || len(renderer.notices) != 0 {
		t.Fatalf("absent session must not reach the renderer")
	}
	for _, event := range publisher.events {
		if event.Severity >= logging.SeverityWarn {
			t.Fatalf("absent session must not log %q", event.Type)
		}
	}
}

func TestHandleFinishingAttackRemovesSessionAndLogsWinner(t *testing.T) {
	d, renderer, publisher := newTestDispatcher()
	store := d.Store()
	if err := store.Insert("msg-1", duel.State{
		ChallengerID: "alice",
		OpponentID:   "bob",
		ChallengerHP: 10,
		OpponentHP:   duel.InitialHP,
		Turn:         "bob",
		Phase:        duel.PhaseInProgress,
	}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	d.Handle(context.Background(), Event{SessionKey: "msg-1", ActorID: "bob", Action: duel.ActionAttack})

	if store.Len() != 0 {
		t.Fatalf("finished duel must leave the store")
	}
	call := renderer.lastRender(t)
	if call.instr.Controls != duel.ControlsNone {
		t.Fatalf("expected no controls after finish, got %q", call.instr.Controls)
	}
	if call.instr.ChallengerHP != 0 {
		t.Fatalf("expected challenger at 0 hp, got %d", call.instr.ChallengerHP)
	}

	sawFinish := false
	for _, kind := range publisher.types() {
		if kind == duelevents.DuelFinishedEventType {
			sawFinish = true
		}
	}
	if !sawFinish {
		t.Fatalf("expected duel.finished event, got %v", publisher.types())
	}
}

func TestHandleRendererFailureKeepsCommittedState(t *testing.T) {
	d, renderer, _ := newTestDispatcher()
	if err := d.OpenChallenge(context.Background(), "msg-1", "alice", "bob", false); err != nil {
		t.Fatalf("open challenge failed: %v", err)
	}

	renderer.mu.Lock()
	renderer.fail = errors.New("socket gone")
	renderer.mu.Unlock()

	d.Handle(context.Background(), Event{SessionKey: "msg-1", ActorID: "bob", Action: duel.ActionAccept})

	state, ok := d.Store().Get("msg-1")
	if !ok || state.Phase != duel.PhaseInProgress {
		t.Fatalf("render failure must not roll back the commit, got %+v ok=%v", state, ok)
	}
}

func TestHandleIgnoresMalformedEvents(t *testing.T) {
	d, renderer, _ := newTestDispatcher()
	if err := d.OpenChallenge(context.Background(), "msg-1", "alice", "bob", false); err != nil {
		t.Fatalf("open challenge failed: %v", err)
	}

	d.Handle(context.Background(), Event{SessionKey: "msg-1", ActorID: "bob", Action: "explode"})
	d.Handle(context.Background(), Event{SessionKey: "", ActorID: "bob", Action: duel.ActionAccept})
	d.Handle(context.Background(), Event{SessionKey: "msg-1", ActorID: "", Action: duel.ActionAccept})

	state, _ := d.Store().Get("msg-1")
	if state.Phase != duel.PhaseAwaitingAcceptance {
		t.Fatalf("malformed events must not advance the duel, got %q", state.Phase)
	}
	renderer.mu.Lock()
	defer renderer.mu.Unlock()
	if len(renderer.notices) != 0 {
		t.Fatalf("malformed events are dropped, not surfaced")
	}
}
