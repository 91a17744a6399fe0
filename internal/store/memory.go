package store

import "sync"

// MemoryStore is a map-backed store. Tests use the error fields
// to exercise the engine's degraded persistence paths.
type MemoryStore struct {
	mu    sync.Mutex
	blobs map[string][]byte

	// LoadErr and SaveErr, when set, are returned by every
	// Load/Save call.
	LoadErr error
	SaveErr error
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (s *MemoryStore) Load(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.LoadErr != nil {
		return nil, false, s.LoadErr
	}
	data, ok := s.blobs[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

func (s *MemoryStore) Save(key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.blobs[key] = append([]byte(nil), data...)
	return nil
}

// Put seeds a blob directly, bypassing SaveErr. Test helper.
func (s *MemoryStore) Put(key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = append([]byte(nil), data...)
}
