package approval

import "sync"

// MemoryStore is an in-memory Store used by tests and by callers that want
// approval state scoped to the process lifetime.
type MemoryStore struct {
	mu     sync.Mutex
	always map[string]bool
	yolo   bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{always: make(map[string]bool)}
}

// PolicyFor implements Store.PolicyFor.
func (s *MemoryStore) PolicyFor(tool string) (Policy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.yolo {
		return PolicyYolo, nil
	}
	if s.always[tool] {
		return PolicyAlways, nil
	}
	return PolicyPrompt, nil
}

// Apply implements Store.Apply.
func (s *MemoryStore) Apply(tool string, d Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.yolo = false
	if d == DecisionAlways {
		s.always[tool] = true
	}
	return nil
}

// SetYolo implements Store.SetYolo.
func (s *MemoryStore) SetYolo(enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.yolo = enabled
	return nil
}

// Yolo implements Store.Yolo.
func (s *MemoryStore) Yolo() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.yolo, nil
}
