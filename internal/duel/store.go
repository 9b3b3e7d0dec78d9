package duel

import (
	"errors"
	"sync"
)

// Store errors.
var (
	// ErrDuplicateKey is returned by Insert when the session key is
	// already occupied. Invitation keys are freshly minted platform
	// message ids, so a collision is a caller bug.
	ErrDuplicateKey = errors.New("session key already present")
	// ErrNotFound is returned by Replace for keys with no live session.
	ErrNotFound = errors.New("session not found")
)

// Store is the only shared mutable resource of the engine: a mapping from
// session key (the id of the platform message hosting the duel's buttons)
// to duel state.
//
// Locking is two-level. The outer RWMutex guards the map shape; each
// session carries its own mutex serializing the full read-compute-write
// cycle for that key. Events on distinct keys therefore run concurrently
// while events on one key are totally ordered.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*session
}

type session struct {
	mu    sync.Mutex
	state State
	// removed marks a session that lost the race between map lookup and
	// entry lock acquisition. Holders of a removed entry must retry the
	// lookup rather than mutate a ghost.
	removed bool
}

// NewStore returns an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*session)}
}

// Get returns a copy of the state stored under key, if any.
func (s *Store) Get(key string) (State, bool) {
	s.mu.RLock()
	entry, ok := s.sessions[key]
	s.mu.RUnlock()
	if !ok {
		return State{}, false
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.removed {
		return State{}, false
	}
	return entry.state, true
}

// Insert seeds a fresh session. It fails if the key is already present.
func (s *Store) Insert(key string, state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.sessions[key]; ok {
		entry.mu.Lock()
		live := !entry.removed
		entry.mu.Unlock()
		if live {
			return ErrDuplicateKey
		}
	}
	s.sessions[key] = &session{state: state}
	return nil
}

// Replace overwrites an existing session atomically. It fails if the key
// is absent.
func (s *Store) Replace(key string, state State) error {
	return s.Update(key, func(State) (*State, error) {
		return &state, nil
	})
}

// Remove drops the session under key. Removing an absent key is a no-op.
// Taking the entry lock before unlinking serializes removal against any
// in-flight Update on the same key.
func (s *Store) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[key]
	if !ok {
		return
	}
	entry.mu.Lock()
	entry.removed = true
	entry.mu.Unlock()
	delete(s.sessions, key)
}

// Update runs fn inside the per-key critical section. fn receives the
// current state and returns the successor: a non-nil state is committed
// under the same key, nil removes the session. If fn returns an error
// nothing is committed and the error is passed through.
//
// Update returns ErrNotFound when no session exists for key. It never
// calls fn in that case.
func (s *Store) Update(key string, fn func(State) (*State, error)) error {
	for {
		s.mu.RLock()
		entry, ok := s.sessions[key]
		s.mu.RUnlock()
		if !ok {
			return ErrNotFound
		}

		entry.mu.Lock()
		if entry.removed {
			// Lost the race against Remove; the key may have been
			// reseeded in the meantime, so look it up again.
			entry.mu.Unlock()
			continue
		}

		next, err := fn(entry.state)
		if err != nil {
			entry.mu.Unlock()
			return err
		}
		if next != nil {
			entry.state = *next
			entry.mu.Unlock()
			return nil
		}

		// fn asked for removal. Mark the entry dead before touching the
		// map so concurrent holders retry instead of resurrecting it.
		entry.removed = true
		entry.mu.Unlock()

		s.mu.Lock()
		if current, ok := s.sessions[key]; ok && current == entry {
			delete(s.sessions, key)
		}
		s.mu.Unlock()
		return nil
	}
}

// Len reports the number of live sessions, for diagnostics.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
