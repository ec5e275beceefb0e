// Package credentials holds the access/refresh token pair used to authenticate calls to the remote API.
package credentials

import (
	"context"
	"sync"

	"github.com/playarena/arena-gateway/internal/models"
)

// Store keeps one credential pair. Implementations must be safe for concurrent use
// and must never expose a pair where only one of the two tokens was updated.
type Store interface {
	// Get returns the current pair or nil when nothing is stored
	Get(ctx context.Context) (*models.CredentialPair, error)
	// Set replaces both tokens at once
	Set(ctx context.Context, pair models.CredentialPair) error
	// Clear removes the pair, clearing an empty store is not an error
	Clear(ctx context.Context) error
	// Key identifies the scope of the pair, refreshes are serialized per key
	Key() string
}

// MemoryStore keeps the pair in process memory, used by command line clients and tests.
type MemoryStore struct {
	key  string
	lock sync.RWMutex
	pair *models.CredentialPair
}

func NewMemoryStore(key string) *MemoryStore {
	return &MemoryStore{key: key}
}

func (m *MemoryStore) Get(_ context.Context) (*models.CredentialPair, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	if m.pair == nil {
		return nil, nil
	}
	pair := *m.pair
	return &pair, nil
}

func (m *MemoryStore) Set(_ context.Context, pair models.CredentialPair) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.pair = &pair
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.pair = nil
	return nil
}

func (m *MemoryStore) Key() string {
	return m.key
}
