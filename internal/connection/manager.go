// internal/connection/manager.go
//
// Package connection owns the disconnect/reconnect lifecycle: per-player
// grace timers, the fallback game mutations that run when a grace period
// expires, and the delayed round restart. Timers live here, keyed by player
// or game, never on the domain objects themselves.
package connection

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/skygrid/skygrid/internal/game"
	"github.com/skygrid/skygrid/internal/gameerr"
	"github.com/skygrid/skygrid/internal/models"
)

// Default grace periods. A transport-level drop gets the short window; a
// voluntary leave mid-round gets the longer one.
const (
	DefaultLeaveTimeout          = 30 * time.Second
	DefaultConnectionLostTimeout = 10 * time.Second
	DefaultRoundRestartDelay     = 10 * time.Second
)

// Mutator runs fn against the live game stored under code, inside the
// orchestration layer's per-code serialization, then persists the result and
// broadcasts the diff. Timer callbacks are funneled through it so a timer
// firing can never race a player action on the same game.
type Mutator func(code string, reason string, fn func(g *models.Game) error)

// Manager tracks one cancellable grace timer per departed player and one
// pending restart timer per game.
type Manager struct {
	LeaveTimeout          time.Duration
	ConnectionLostTimeout time.Duration
	RoundRestartDelay     time.Duration

	logger *logrus.Logger
	mutate Mutator

	mu       sync.Mutex
	timers   map[uuid.UUID]*time.Timer
	restarts map[string]*time.Timer
}

// NewManager builds a manager with the default grace periods.
func NewManager(logger *logrus.Logger, mutate Mutator) *Manager {
	return &Manager{
		LeaveTimeout:          DefaultLeaveTimeout,
		ConnectionLostTimeout: DefaultConnectionLostTimeout,
		RoundRestartDelay:     DefaultRoundRestartDelay,
		logger:                logger,
		mutate:                mutate,
		timers:                make(map[uuid.UUID]*time.Timer),
		restarts:              make(map[string]*time.Timer),
	}
}

// MarkLeave processes a voluntary leave. Outside an active round there is
// nothing to resume, so the seat is dropped immediately; mid-round the player
// keeps their seat for the leave grace period.
func (m *Manager) MarkLeave(g *models.Game, playerID uuid.UUID) error {
	p := g.GetPlayer(playerID)
	if p == nil {
		return gameerr.ErrPlayerNotFound
	}
	if !g.IsPlaying() {
		m.logger.WithFields(logrus.Fields{"game": g.Code, "player": playerID}).Info("player left, removing seat")
		m.finalizeDeparture(g, p)
		return nil
	}
	p.ConnectionStatus = models.ConnectionLeave
	m.armTimer(g.Code, playerID, m.LeaveTimeout)
	m.logger.WithFields(logrus.Fields{"game": g.Code, "player": playerID}).Info("player left mid-round, grace timer armed")
	return nil
}

// MarkConnectionLost processes a transport-level drop (read loop error, ping
// timeout). The short grace timer is armed; reconnecting cancels it.
func (m *Manager) MarkConnectionLost(g *models.Game, playerID uuid.UUID) error {
	p := g.GetPlayer(playerID)
	if p == nil {
		return gameerr.ErrPlayerNotFound
	}
	if !p.IsConnected() {
		// Already in a grace period or fully disconnected.
		return nil
	}
	p.ConnectionStatus = models.ConnectionLost
	m.armTimer(g.Code, playerID, m.ConnectionLostTimeout)
	m.logger.WithFields(logrus.Fields{"game": g.Code, "player": playerID}).Info("connection lost, grace timer armed")
	return nil
}

// Reconnect restores a player whose grace timer has not fired yet. The new
// transport session id replaces the old one; turn order and revealed cards
// are untouched, so no diffable game mutation happens beyond the player's
// own status and socket id.
func (m *Manager) Reconnect(g *models.Game, playerID uuid.UUID, socketID string) error {
	p := g.GetPlayer(playerID)
	if p == nil {
		return gameerr.ErrCannotReconnect
	}
	switch p.ConnectionStatus {
	case models.ConnectionConnected:
		// The old session died without being noticed; adopt the new one.
		p.SocketID = socketID
		return nil
	case models.ConnectionLeave, models.ConnectionLost:
		m.CancelTimer(playerID)
		p.ConnectionStatus = models.ConnectionConnected
		p.SocketID = socketID
		m.logger.WithFields(logrus.Fields{"game": g.Code, "player": playerID}).Info("player reconnected inside grace period")
		return nil
	default:
		return gameerr.ErrCannotReconnect
	}
}

// CancelTimer drops a player's pending grace timer, if any. Also used by the
// kick consensus when a vote resolves against a player who was already in a
// grace period.
func (m *Manager) CancelTimer(playerID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.timers[playerID]; ok {
		t.Stop()
		delete(m.timers, playerID)
	}
}

// armTimer schedules the disconnection fallback, replacing any timer already
// running for the player.
func (m *Manager) armTimer(code string, playerID uuid.UUID, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.timers[playerID]; ok {
		t.Stop()
	}
	m.timers[playerID] = time.AfterFunc(d, func() {
		m.mu.Lock()
		delete(m.timers, playerID)
		m.mu.Unlock()
		m.mutate(code, "grace period expired", func(g *models.Game) error {
			m.expire(g, playerID)
			return nil
		})
	})
}

// expire runs when a grace timer fires. The player may have reconnected (or
// been removed) between the timer firing and the mutation being scheduled;
// such stale callbacks are dropped.
func (m *Manager) expire(g *models.Game, playerID uuid.UUID) {
	p := g.GetPlayer(playerID)
	if p == nil || p.IsConnected() {
		m.logger.WithFields(logrus.Fields{"game": g.Code, "player": playerID}).Debug("stale grace timer ignored")
		return
	}
	m.logger.WithFields(logrus.Fields{"game": g.Code, "player": playerID}).Info("grace period expired, player disconnected")
	m.finalizeDeparture(g, p)
}

// finalizeDeparture performs the Disconnected transition and its fallback
// mutations. Outside an active round the seat is removed outright; mid-round
// the seat is retained but excluded from turn order, and the departure may
// advance the turn, complete the initial reveal, finish the round or stop
// the game entirely.
func (m *Manager) finalizeDeparture(g *models.Game, p *models.Player) {
	p.ConnectionStatus = models.ConnectionDisconnected
	p.SocketID = ""

	if !g.IsPlaying() {
		_ = game.RemovePlayer(g, p.ID)
		// A departure between rounds (RoundOver) must not leave a pending
		// restart timer to deal the next round to too few players.
		if g.Status == models.GamePlaying && g.ConnectedCount() < models.MinPlayers {
			m.logger.WithField("game", g.Code).Info("too few players connected between rounds, stopping game")
			game.StopGame(g)
		}
		return
	}

	game.ReassignAdmin(g)
	if g.ConnectedCount() < models.MinPlayers {
		m.logger.WithField("game", g.Code).Info("too few players connected, stopping game")
		game.StopGame(g)
		return
	}
	game.AdvanceTurnIfCurrent(g, p.ID)
	game.CheckInitialRevealComplete(g)
	game.CheckLastLapComplete(g)
	if g.Status == models.GamePlaying && g.RoundStatus == models.RoundOver {
		m.ScheduleRoundRestart(g.Code)
	}
}

// ForceDisconnect drops a player without a grace period, cancelling any
// pending timer first. Used when a kick vote succeeds against the player.
func (m *Manager) ForceDisconnect(g *models.Game, playerID uuid.UUID) {
	p := g.GetPlayer(playerID)
	if p == nil {
		return
	}
	m.CancelTimer(playerID)
	m.logger.WithFields(logrus.Fields{"game": g.Code, "player": playerID}).Info("player force-disconnected")
	m.finalizeDeparture(g, p)
}

// ScheduleRoundRestart arms the fixed-delay restart of the next round after
// a round ended. A second call while a restart is pending is a no-op.
func (m *Manager) ScheduleRoundRestart(code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.restarts[code]; ok {
		return
	}
	m.restarts[code] = time.AfterFunc(m.RoundRestartDelay, func() {
		m.mu.Lock()
		delete(m.restarts, code)
		m.mu.Unlock()
		m.mutate(code, "round restart", func(g *models.Game) error {
			if err := game.StartNextRound(g); err != nil {
				// The game finished, stopped or reset while the restart was
				// pending; nothing to do.
				m.logger.WithField("game", code).Debug("round restart skipped")
				return nil
			}
			return nil
		})
	})
}

// Shutdown cancels every pending timer. Games left mid-grace simply keep
// their current persisted state.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, t := range m.timers {
		t.Stop()
		delete(m.timers, id)
	}
	for code, t := range m.restarts {
		t.Stop()
		delete(m.restarts, code)
	}
}
