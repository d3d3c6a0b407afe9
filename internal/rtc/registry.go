package rtc

import (
	"fmt"
	"sort"
	"sync"
)

// SessionRegistry indexes participants by connection id and by display name.
// Both indexes change together under one lock.
type SessionRegistry struct {
	mu     sync.RWMutex
	byConn map[string]*Participant
	byName map[string]*Participant
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		byConn: make(map[string]*Participant),
		byName: make(map[string]*Participant),
	}
}

// Register adds p. A connection or name already present is a conflict.
func (s *SessionRegistry) Register(p *Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byName[p.Name]; ok {
		return fmt.Errorf("%w: name %q already in use", ErrConflict, p.Name)
	}
	if _, ok := s.byConn[p.Conn.ID()]; ok {
		return fmt.Errorf("%w: connection %s already registered", ErrConflict, p.Conn.ID())
	}
	s.byConn[p.Conn.ID()] = p
	s.byName[p.Name] = p
	return nil
}

func (s *SessionRegistry) LookupByConnection(connID string) (*Participant, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byConn[connID]
	return p, ok
}

func (s *SessionRegistry) LookupByName(name string) (*Participant, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byName[name]
	return p, ok
}

// Remove drops the participant registered for connID. An unknown connection
// returns false; disconnects routinely race with cleanup.
func (s *SessionRegistry) Remove(connID string) (*Participant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byConn[connID]
	if !ok {
		return nil, false
	}
	delete(s.byConn, connID)
	delete(s.byName, p.Name)
	return p, true
}

func (s *SessionRegistry) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byConn)
}

// Names returns the registered display names in sorted order.
func (s *SessionRegistry) Names() []string {
	s.mu.RLock()
	names := make([]string, 0, len(s.byName))
	for name := range s.byName {
		names = append(names, name)
	}
	s.mu.RUnlock()
	sort.Strings(names)
	return names
}

func (s *SessionRegistry) All() []*Participant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Participant, 0, len(s.byConn))
	for _, p := range s.byConn {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
