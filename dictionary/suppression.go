package dictionary

import "sync"

// Suppression holds words the user asked never to see. An entry with an
// empty key suppresses the value under any reading.
type Suppression struct {
	mu      sync.RWMutex
	entries map[[2]string]struct{}
}

func NewSuppression() *Suppression {
	return &Suppression{entries: make(map[[2]string]struct{})}
}

func (s *Suppression) Add(key, value string) {
	s.mu.Lock()
	s.entries[[2]string{key, value}] = struct{}{}
	s.mu.Unlock()
}

// Reset drops all entries.
func (s *Suppression) Reset() {
	s.mu.Lock()
	s.entries = make(map[[2]string]struct{})
	s.mu.Unlock()
}

func (s *Suppression) IsEmpty() bool {
	if s == nil {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries) == 0
}

func (s *Suppression) IsSuppressed(key, value string) bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.entries) == 0 {
		return false
	}
	if _, ok := s.entries[[2]string{key, value}]; ok {
		return true
	}
	_, ok := s.entries[[2]string{"", value}]
	return ok
}
