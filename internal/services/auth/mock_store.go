package auth

import "sync"

// MockStore is an in-memory auth store for testing. It is safe for
// concurrent use because the sync service reads it from its own goroutine.
type MockStore struct {
	mu     sync.Mutex
	tokens map[string]string
}

func NewMockStore() *MockStore {
	return &MockStore{tokens: make(map[string]string)}
}

func (m *MockStore) SetToken(key string, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[NormalizeKey(key)] = token
	return nil
}

func (m *MockStore) GetToken(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.tokens[NormalizeKey(key)]
	if !ok {
		return "", ErrTokenNotFound
	}
	return token, nil
}

func (m *MockStore) DeleteToken(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tokens[NormalizeKey(key)]; !ok {
		return ErrTokenNotFound
	}
	delete(m.tokens, NormalizeKey(key))
	return nil
}
