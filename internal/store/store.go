// internal/store/store.go
package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/skygrid/skygrid/internal/models"
)

// GameStore is the persistence port the core is driven through. The
// orchestration layer serializes Load-mutate-Save per game code; the store
// itself makes no atomicity promises beyond single operations.
type GameStore interface {
	// Load returns the game stored under a join code, or
	// gameerr.ErrGameNotFound.
	Load(ctx context.Context, code string) (*models.Game, error)
	// Save persists the full game state under its code.
	Save(ctx context.Context, g *models.Game) error
	// RemovePlayer drops one seat from a stored game without rewriting the
	// caller's in-memory copy.
	RemovePlayer(ctx context.Context, code string, playerID uuid.UUID) error
	// Remove deletes the game entirely.
	Remove(ctx context.Context, code string) error
}
