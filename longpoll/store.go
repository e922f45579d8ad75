package longpoll

import "sync"

// Store is the ordered, de-duplicated set of received messages.
// Snapshot order is most recently arrived first.
//
// One writer (the active Subscription) and any number of readers may use a
// Store concurrently.
type Store struct {
	mu sync.RWMutex
	// arrival order, oldest first; Snapshot reverses it
	messages []Message
	seen     map[int64]struct{}
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{seen: make(map[int64]struct{})}
}

// Merge adds m at the front unless a message with the same ID is already
// present. Reports whether the store changed.
func (s *Store) Merge(m Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[m.ID]; ok {
		return false
	}
	s.seen[m.ID] = struct{}{}
	s.messages = append(s.messages, m)
	return true
}

// Snapshot returns a copy of the contents, newest first.
func (s *Store) Snapshot() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.messages))
	for i, m := range s.messages {
		out[len(s.messages)-1-i] = m
	}
	return out
}

// Len returns the number of stored messages.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Contains reports whether a message with id has been merged.
func (s *Store) Contains(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.seen[id]
	return ok
}
