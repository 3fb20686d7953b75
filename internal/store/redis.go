// internal/store/redis.go
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/skygrid/skygrid/internal/gameerr"
	"github.com/skygrid/skygrid/internal/models"
)

// gameTTL is how long an untouched game survives in Redis. Every Save
// refreshes it, so only abandoned games expire.
const gameTTL = 12 * time.Hour

// RedisStore keeps each game as a JSON value under "game:{CODE}".
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore wraps an already-connected client.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// ConnectRedis builds a Redis client from environment variables:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_DB (optional, default 0)
func ConnectRedis(ctx context.Context) (*redis.Client, error) {
	addr := getEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := getEnvInt("REDIS_DB", 0)

	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

func gameKey(code string) string {
	return "game:" + code
}

// Load implements GameStore.
func (s *RedisStore) Load(ctx context.Context, code string) (*models.Game, error) {
	data, err := s.rdb.Get(ctx, gameKey(code)).Bytes()
	if err == redis.Nil {
		return nil, gameerr.ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load game %s: %w", code, err)
	}
	var g models.Game
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("failed to decode game %s: %w", code, err)
	}
	return &g, nil
}

// Save implements GameStore.
func (s *RedisStore) Save(ctx context.Context, g *models.Game) error {
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("failed to encode game %s: %w", g.Code, err)
	}
	if err := s.rdb.Set(ctx, gameKey(g.Code), data, gameTTL).Err(); err != nil {
		return fmt.Errorf("failed to save game %s: %w", g.Code, err)
	}
	return nil
}

// RemovePlayer implements GameStore with a load-filter-save cycle; the
// orchestration layer's per-code serialization makes that safe.
func (s *RedisStore) RemovePlayer(ctx context.Context, code string, playerID uuid.UUID) error {
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
func (s *RedisStore) Remove(ctx context.Context, code string) error {
	if err := s.rdb.Del(ctx, gameKey(code)).Err(); err != nil {
		return fmt.Errorf("failed to remove game %s: %w", code, err)
	}
	return nil
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
