// internal/store/memory.go
package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/skygrid/skygrid/internal/gameerr"
	"github.com/skygrid/skygrid/internal/models"
)

// MemoryStore keeps games as JSON blobs in a map. Encoding through JSON
// gives it the same copy semantics as the Redis store, so tests exercise the
// real load-mutate-save discipline instead of sharing pointers. It also
// serves single-process deployments that run without Redis.
type MemoryStore struct {
	mu    sync.Mutex
	games map[string][]byte
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{games: make(map[string][]byte)}
}

// Load implements GameStore.
func (s *MemoryStore) Load(ctx context.Context, code string) (*models.Game, error) {
	s.mu.Lock()
	data, ok := s.games[code]
	s.mu.Unlock()
	if !ok {
		return nil, gameerr.ErrGameNotFound
	}
	var g models.Game
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// Save implements GameStore.
func (s *MemoryStore) Save(ctx context.Context, g *models.Game) error {
	data, err := json.Marshal(g)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.games[g.Code] = data
	s.mu.Unlock()
	return nil
}

// RemovePlayer implements GameStore.
func (s *MemoryStore) RemovePlayer(ctx context.Context, code string, playerID uuid.UUID) error {
	g, err := s.Load(ctx, code)
	if err != nil {
		return err
	}
	kept := g.Players[:0]
	for _, p := range g.Players {
		if p.ID != playerID {
			kept = append(kept, p)
		}
	}
	g.Players = kept
	return s.Save(ctx, g)
}

// Remove implements GameStore.
func (s *MemoryStore) Remove(ctx context.Context, code string) error {
	s.mu.Lock()
	delete(s.games, code)
	s.mu.Unlock()
	return nil
}
