// internal/handlers/dispatch.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/skygrid/skygrid/internal/gameerr"
	"github.com/skygrid/skygrid/internal/models"
	"github.com/skygrid/skygrid/internal/statesync"
)

// lockGame returns the mutex that serializes all mutations of one game code.
// Lock entries are never reaped; a finished game's mutex is a few bytes and
// codes are not reused within a process lifetime.
func (gs *GameServer) lockGame(code string) *sync.Mutex {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	l, ok := gs.locks[code]
	if !ok {
		l = &sync.Mutex{}
		gs.locks[code] = l
	}
	return l
}

// WithGame runs one serialized load-mutate-save-broadcast cycle against the
// game stored under code. fn mutates the loaded game in place; if it returns
// an error nothing is persisted or broadcast. A non-empty diff bumps the
// state version by exactly one and goes out as a patch; a version that went
// backwards (lobby reset) goes out as a full snapshot instead.
func (gs *GameServer) WithGame(ctx context.Context, code string, fn func(g *models.Game) error) error {
	l := gs.lockGame(code)
	l.Lock()
	defer l.Unlock()

	g, err := gs.Store.Load(ctx, code)
	if err != nil {
		return err
	}
	prev := g.ToSnapshot()

	if err := fn(g); err != nil {
		return err
	}
	return gs.commit(ctx, g, prev)
}

// mutateAsync adapts WithGame to the timer-callback signature used by the
// connection and kick managers. Games that vanished before the timer fired
// are not an error.
func (gs *GameServer) mutateAsync(code, reason string, fn func(g *models.Game) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := gs.WithGame(ctx, code, fn); err != nil && !errors.Is(err, gameerr.ErrGameNotFound) {
		gs.Logger.Warnf("Deferred mutation (%s) failed for game %s: %v", reason, code, err)
	}
}

// commit persists and broadcasts the outcome of a mutation.
func (gs *GameServer) commit(ctx context.Context, g *models.Game, prev *models.GameSnapshot) error {
	if len(g.Players) == 0 {
		gs.Kick.Clear(g.Code)
		gs.rooms.closeRoom(g.Code)
		if err := gs.Store.Remove(ctx, g.Code); err != nil {
			return err
		}
		gs.Logger.WithField("game", g.Code).Info("last player gone, game removed")
		return nil
	}

	if g.StateVersion < prev.StateVersion {
		// The mutation reset the version counter (replay back to lobby);
		// diffs cannot express that, so everyone gets the full snapshot.
		g.UpdatedAt = time.Now()
		if err := gs.Store.Save(ctx, g); err != nil {
			return err
		}
		gs.rooms.broadcast(g.Code, snapshotEvent(g.ToSnapshot()))
		return nil
	}

	op := statesync.Diff(prev, g.ToSnapshot())
	if op == nil {
		return nil
	}

	now := time.Now()
	g.UpdatedAt = now
	g.StateVersion = op.Game.StateVersion
	op.Game.UpdatedAt = &now

	if err := gs.Store.Save(ctx, g); err != nil {
		return err
	}
	gs.rooms.broadcast(g.Code, wsEvent{Type: EventPatch, Payload: op})

	if g.Status == models.GamePlaying && g.RoundStatus == models.RoundOver && prev.RoundStatus != models.RoundOver {
		gs.Conn.ScheduleRoundRestart(g.Code)
	}
	if gs.Archiver != nil && prev.Status == models.GamePlaying &&
		(g.Status == models.GameFinished || g.Status == models.GameStopped) {
		// Archive a private copy; the live game keeps mutating once the
		// dispatch lock is released.
		if cp := cloneGame(g); cp != nil {
			go gs.archive(cp)
		}
	}
	return nil
}

func cloneGame(g *models.Game) *models.Game {
	data, err := json.Marshal(g)
	if err != nil {
		return nil
	}
	var cp models.Game
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil
	}
	return &cp
}

// archive records a finished game outside the dispatch lock; failures are
// logged and dropped, the live game is unaffected.
func (gs *GameServer) archive(g *models.Game) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := gs.Archiver.ArchiveFinishedGame(ctx, g); err != nil {
		gs.Logger.Warnf("Failed to archive game %s: %v", g.Code, err)
	}
}
