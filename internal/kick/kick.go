// internal/kick/kick.go
//
// Package kick implements majority voting to eject a player. At most one
// vote runs per game at a time; a vote passes when the yes ballots reach a
// 60% quorum of the connected players other than the target, and lapses
// after a fixed timeout.
package kick

import (
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/skygrid/skygrid/internal/connection"
	"github.com/skygrid/skygrid/internal/gameerr"
	"github.com/skygrid/skygrid/internal/models"
)

// DefaultVoteTimeout is how long a vote stays open before lapsing.
const DefaultVoteTimeout = 30 * time.Second

// quorumRatio is the share of eligible voters whose yes ballots are needed.
const quorumRatio = 0.6

// Outcome is the state of a vote after a ballot (or the timeout) lands.
type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeKicked
	OutcomeRejected
	OutcomeExpired
)

// vote is one in-flight kick vote. Ballots maps voter id to accept/reject.
type vote struct {
	target    uuid.UUID
	initiator uuid.UUID
	required  int
	ballots   map[uuid.UUID]bool
	timer     *time.Timer
}

// Snapshot is the client-facing view of a vote, sent alongside vote events.
type Snapshot struct {
	TargetID    uuid.UUID `json:"targetId"`
	InitiatorID uuid.UUID `json:"initiatorId"`
	Required    int       `json:"required"`
	YesVotes    int       `json:"yesVotes"`
	TotalVotes  int       `json:"totalVotes"`
}

// Manager tracks at most one vote per game code.
type Manager struct {
	VoteTimeout time.Duration

	// Notify is called when a vote lapses on its own timer, since no player
	// action is in flight to carry the result. May be nil.
	Notify func(code string, snap Snapshot, outcome Outcome)

	logger     *logrus.Logger
	mutate     connection.Mutator
	disconnect func(g *models.Game, playerID uuid.UUID)

	mu    sync.Mutex
	votes map[string]*vote
}

// NewManager wires the vote bookkeeping to the orchestration layer. mutate
// funnels the timeout callback through per-game serialization; disconnect is
// the forced-departure transition applied to a kicked player.
func NewManager(logger *logrus.Logger, mutate connection.Mutator, disconnect func(g *models.Game, playerID uuid.UUID)) *Manager {
	return &Manager{
		VoteTimeout: DefaultVoteTimeout,
		logger:      logger,
		mutate:      mutate,
		disconnect:  disconnect,
		votes:       make(map[string]*vote),
	}
}

// quorum computes the yes ballots needed: 60% of connected players excluding
// the target, rounded up, never below one.
func quorum(g *models.Game, target uuid.UUID) int {
	eligible := 0
	for _, p := range g.Players {
		if p.ID != target && p.IsConnected() {
			eligible++
		}
	}
	required := int(math.Ceil(float64(eligible) * quorumRatio))
	if required < 1 {
		required = 1
	}
	return required
}

// eligibleVoters counts the players allowed to cast a ballot right now.
func eligibleVoters(g *models.Game, target uuid.UUID) int {
	n := 0
	for _, p := range g.Players {
		if p.ID != target && p.IsConnected() {
			n++
		}
	}
	return n
}

// Initiate opens a vote against target. The initiator's yes ballot is cast
// immediately, so in a two-player game the vote resolves on the spot.
func (m *Manager) Initiate(g *models.Game, initiatorID, targetID uuid.UUID) (Snapshot, Outcome, error) {
	initiator := g.GetPlayer(initiatorID)
	target := g.GetPlayer(targetID)
	if initiator == nil || target == nil {
		return Snapshot{}, OutcomePending, gameerr.ErrPlayerNotFound
	}
	if initiatorID == targetID || !initiator.IsConnected() {
		return Snapshot{}, OutcomePending, gameerr.ErrNotAllowed
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.votes[g.Code]; ok {
		return Snapshot{}, OutcomePending, gameerr.ErrKickVoteInProgress
	}

	v := &vote{
		target:    targetID,
		initiator: initiatorID,
		required:  quorum(g, targetID),
		ballots:   map[uuid.UUID]bool{initiatorID: true},
	}
	m.votes[g.Code] = v
	m.logger.WithFields(logrus.Fields{
		"game":     g.Code,
		"target":   targetID,
		"required": v.required,
	}).Info("kick vote started")

	outcome := m.resolveLocked(g, v)
	if outcome == OutcomePending {
		v.timer = time.AfterFunc(m.VoteTimeout, func() { m.expire(g.Code, v) })
	}
	return snapshotOf(v), outcome, nil
}

// CastVote records one ballot. The target cannot vote, and each player votes
// at most once.
func (m *Manager) CastVote(g *models.Game, voterID uuid.UUID, accept bool) (Snapshot, Outcome, error) {
	voter := g.GetPlayer(voterID)
	if voter == nil {
		return Snapshot{}, OutcomePending, gameerr.ErrPlayerNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.votes[g.Code]
	if !ok {
		return Snapshot{}, OutcomePending, gameerr.ErrNoKickVoteInProgress
	}
	if voterID == v.target || !voter.IsConnected() {
		return Snapshot{}, OutcomePending, gameerr.ErrNotAllowed
	}
	if _, voted := v.ballots[voterID]; voted {
		return Snapshot{}, OutcomePending, gameerr.ErrPlayerAlreadyVoted
	}
	v.ballots[voterID] = accept

	outcome := m.resolveLocked(g, v)
	return snapshotOf(v), outcome, nil
}

// Active returns the current vote for a game, if one is open.
func (m *Manager) Active(code string) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.votes[code]
	if !ok {
		return Snapshot{}, false
	}
	return snapshotOf(v), true
}

// Clear drops any open vote without resolving it, e.g. when the target
// departs on their own or the game is torn down.
func (m *Manager) Clear(code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearLocked(code)
}

func (m *Manager) clearLocked(code string) {
	if v, ok := m.votes[code]; ok {
		if v.timer != nil {
			v.timer.Stop()
		}
		delete(m.votes, code)
	}
}

// resolveLocked checks whether the vote has reached a verdict. Quorum kicks
// the target immediately; if every eligible voter has spoken and quorum was
// not reached, the vote is rejected. Caller holds m.mu.
func (m *Manager) resolveLocked(g *models.Game, v *vote) Outcome {
	yes := 0
	for _, accept := range v.ballots {
		if accept {
			yes++
		}
	}

	if yes >= v.required {
		m.clearLocked(g.Code)
		m.logger.WithFields(logrus.Fields{"game": g.Code, "target": v.target}).Info("kick vote passed")
		m.disconnect(g, v.target)
		return OutcomeKicked
	}
	if len(v.ballots) >= eligibleVoters(g, v.target) {
		m.clearLocked(g.Code)
		m.logger.WithFields(logrus.Fields{"game": g.Code, "target": v.target}).Info("kick vote rejected")
		return OutcomeRejected
	}
	return OutcomePending
}

// expire runs on the vote timer. The vote may already have resolved; only
// the exact vote the timer was armed for is cleared.
func (m *Manager) expire(code string, expected *vote) {
	m.mutate(code, "kick vote expired", func(g *models.Game) error {
		m.mu.Lock()
		v, ok := m.votes[code]
		if !ok || v != expected {
			m.mu.Unlock()
			return nil
		}
		snap := snapshotOf(v)
		m.clearLocked(code)
		m.mu.Unlock()

		m.logger.WithFields(logrus.Fields{"game": code, "target": snap.TargetID}).Info("kick vote expired")
		if m.Notify != nil {
			m.Notify(code, snap, OutcomeExpired)
		}
		return nil
	})
}

// Shutdown stops all vote timers.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for code, v := range m.votes {
		if v.timer != nil {
			v.timer.Stop()
		}
		delete(m.votes, code)
	}
}

func snapshotOf(v *vote) Snapshot {
	yes := 0
	for _, accept := range v.ballots {
		if accept {
			yes++
		}
	}
	return Snapshot{
		TargetID:    v.target,
		InitiatorID: v.initiator,
		Required:    v.required,
		YesVotes:    yes,
		TotalVotes:  len(v.ballots),
	}
}
