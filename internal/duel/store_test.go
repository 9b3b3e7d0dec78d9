package duel

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestStoreInsertRejectsDuplicateKey(t *testing.T) {
	store := NewStore()
	state, err := NewChallenge("alice", "bob", false)
	if err != nil {
		t.Fatalf("challenge failed: %v", err)
	}

	if err := store.Insert("msg-1", state); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	if err := store.Insert("msg-1", state); !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
	if err := store.Insert("msg-2", state); err != nil {
		t.Fatalf("insert under distinct key failed: %v", err)
	}
}

func TestStoreGetReturnsCopy(t *testing.T) {
	store := NewStore()
	state, _ := NewChallenge("alice", "bob", false)
	if err := store.Insert("msg-1", state); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	got, ok := store.Get("msg-1")
	if !ok {
		t.Fatalf("expected session to be present")
	}
	got.ChallengerHP = 1

	again, _ := store.Get("msg-1")
	if again.ChallengerHP != InitialHP {
		t.Fatalf("Get must hand out copies, stored hp changed to %d", again.ChallengerHP)
	}
}

func TestStoreReplaceRequiresExistingKey(t *testing.T) {
	store := NewStore()
	state, _ := NewChallenge("alice", "bob", false)

	if err := store.Replace("missing", state); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := store.Insert("msg-1", state); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	state.Phase = PhaseInProgress
	if err := store.Replace("msg-1", state); err != nil {
		t.Fatalf("replace failed: %v", err)
	}
	got, _ := store.Get("msg-1")
	if got.Phase != PhaseInProgress {
		t.Fatalf("replace did not commit, phase %q", got.Phase)
	}
}

func TestStoreRemoveIsTerminal(t *testing.T) {
	store := NewStore()
	state, _ := NewChallenge("alice", "bob", false)
	if err := store.Insert("msg-1", state); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	store.Remove("msg-1")
	if _, ok := store.Get("msg-1"); ok {
		t.Fatalf("expected session to be gone")
	}
	if err := store.Update("msg-1", func(State) (*State, error) {
		t.Fatalf("update callback must not run for removed keys")
		return nil, nil
	}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	// Removing twice is harmless.
	store.Remove("msg-1")
}

func TestStoreUpdateRemovesWhenCallbackReturnsNil(t *testing.T) {
	store := NewStore()
	state, _ := NewChallenge("alice", "bob", false)
	if err := store.Insert("msg-1", state); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	if err := store.Update("msg-1", func(State) (*State, error) {
		return nil, nil
	}); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty store, got %d sessions", store.Len())
	}
}

func TestStoreUpdateErrorLeavesStateUntouched(t *testing.T) {
	store := NewStore()
	state, _ := NewChallenge("alice", "bob", false)
	if err := store.Insert("msg-1", state); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	boom := errors.New("boom")
	if err := store.Update("msg-1", func(current State) (*State, error) {
		current.ChallengerHP = 1
		return &current, boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}

	got, ok := store.Get("msg-1")
	if !ok || got.ChallengerHP != InitialHP {
		t.Fatalf("failed update must not commit, got %+v ok=%v", got, ok)
	}
}

// TestStoreConcurrentAttacksAreSerialized drives a full duel with many
// goroutines racing on a single key: every applied swing must land exactly
// once, with no lost turn flips or double-counted damage.
func TestStoreConcurrentAttacksAreSerialized(t *testing.T) {
	store := NewStore()
	initial := State{
		ChallengerID: "alice",
		OpponentID:   "bob",
		ChallengerHP: InitialHP,
		OpponentHP:   InitialHP,
		Turn:         "alice",
		Phase:        PhaseInProgress,
	}
	if err := store.Insert("msg-1", initial); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	const workers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	applied := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				err := store.Update("msg-1", func(current State) (*State, error) {
					// Act as whoever's turn it is so every event is a
					// valid swing; the store must still serialize them.
					next, _, err := Apply(current, Action{Kind: ActionAttack, ActorID: current.Turn})
					if err != nil {
						return nil, err
					}
					mu.Lock()
					applied++
					mu.Unlock()
					return next, nil
				})
				if errors.Is(err, ErrNotFound) {
					return
				}
				if err != nil {
					t.Errorf("unexpected update error: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if applied != 19 {
		t.Fatalf("expected exactly 19 applied attacks, got %d", applied)
	}
	if store.Len() != 0 {
		t.Fatalf("finished duel must leave the store, got %d sessions", store.Len())
	}
}

func TestStoreKeysAreIndependent(t *testing.T) {
	store := NewStore()
	first, _ := NewChallenge("alice", "bob", false)
	second, _ := NewChallenge("carol", "dave", false)
	if err := store.Insert("msg-1", first); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if err := store.Insert("msg-2", second); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	release := make(chan struct{})
	entered := make(chan struct{})
	go store.Update("msg-1", func(current State) (*State, error) {
		close(entered)
		<-release
		return &current, nil
	})
	<-entered

	// A mutation on another key must not wait for msg-1's critical
	// section.
	done := make(chan struct{})
	go func() {
		store.Update("msg-2", func(current State) (*State, error) {
			return &current, nil
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("update on msg-2 blocked behind msg-1's critical section")
	}
	close(release)
}
