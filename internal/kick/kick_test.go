// internal/kick/kick_test.go
package kick

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skygrid/skygrid/internal/game"
	"github.com/skygrid/skygrid/internal/gameerr"
	"github.com/skygrid/skygrid/internal/models"
)

type testEnv struct {
	mu           sync.Mutex
	g            *models.Game
	m            *Manager
	disconnected []uuid.UUID
}

func newTestEnv(t *testing.T, n int) (*testEnv, []*models.Player) {
	t.Helper()
	players := make([]*models.Player, n)
	players[0] = models.NewPlayer("alice", "cat", "sock-0")
	g := game.NewGame("KICKG", players[0], models.DefaultSettings())
	for i := 1; i < n; i++ {
		players[i] = models.NewPlayer("player", "dog", "sock")
		require.NoError(t, game.AddPlayer(g, players[i]))
	}

	env := &testEnv{g: g}
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	env.m = NewManager(logger,
		func(code, reason string, fn func(g *models.Game) error) {
			env.mu.Lock()
			defer env.mu.Unlock()
			_ = fn(env.g)
		},
		func(g *models.Game, playerID uuid.UUID) {
			env.disconnected = append(env.disconnected, playerID)
			if p := g.GetPlayer(playerID); p != nil {
				p.ConnectionStatus = models.ConnectionDisconnected
			}
		},
	)
	t.Cleanup(env.m.Shutdown)
	return env, players
}

func (e *testEnv) run(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn()
}

// Quorum law: with five eligible voters the vote needs ceil(0.6*5) = 3 yes
// ballots, no more and no fewer.
func TestKickQuorum(t *testing.T) {
	env, players := newTestEnv(t, 6)
	target := players[5]

	env.run(func() {
		snap, outcome, err := env.m.Initiate(env.g, players[0].ID, target.ID)
		require.NoError(t, err)
		assert.Equal(t, OutcomePending, outcome)
		assert.Equal(t, 3, snap.Required)
		assert.Equal(t, 1, snap.YesVotes, "initiator votes yes immediately")

		_, outcome, err = env.m.CastVote(env.g, players[1].ID, true)
		require.NoError(t, err)
		assert.Equal(t, OutcomePending, outcome)

		// A rejection does not count toward quorum.
		_, outcome, err = env.m.CastVote(env.g, players[2].ID, false)
		require.NoError(t, err)
		assert.Equal(t, OutcomePending, outcome)

		snap, outcome, err = env.m.CastVote(env.g, players[3].ID, true)
		require.NoError(t, err)
		assert.Equal(t, OutcomeKicked, outcome)
		assert.Equal(t, 3, snap.YesVotes)
	})

	assert.Equal(t, []uuid.UUID{target.ID}, env.disconnected)
	assert.Equal(t, models.ConnectionDisconnected, target.ConnectionStatus)
	_, active := env.m.Active(env.g.Code)
	assert.False(t, active, "resolved vote is cleared")
}

func TestKickVoteGuards(t *testing.T) {
	env, players := newTestEnv(t, 4)
	target := players[3]

	env.run(func() {
		_, _, err := env.m.CastVote(env.g, players[1].ID, true)
		assert.ErrorIs(t, err, gameerr.ErrNoKickVoteInProgress)

		_, _, err = env.m.Initiate(env.g, players[0].ID, players[0].ID)
		assert.ErrorIs(t, err, gameerr.ErrNotAllowed)

		_, _, err = env.m.Initiate(env.g, players[0].ID, uuid.New())
		assert.ErrorIs(t, err, gameerr.ErrPlayerNotFound)

		_, outcome, err := env.m.Initiate(env.g, players[0].ID, target.ID)
		require.NoError(t, err)
		require.Equal(t, OutcomePending, outcome)

		_, _, err = env.m.Initiate(env.g, players[1].ID, target.ID)
		assert.ErrorIs(t, err, gameerr.ErrKickVoteInProgress)

		_, _, err = env.m.CastVote(env.g, players[0].ID, true)
		assert.ErrorIs(t, err, gameerr.ErrPlayerAlreadyVoted)

		_, _, err = env.m.CastVote(env.g, target.ID, false)
		assert.ErrorIs(t, err, gameerr.ErrNotAllowed, "the target has no ballot")
	})
}

// With three eligible voters the quorum is ceil(0.6*3) = 2; one yes plus two
// no ballots exhausts the electorate below quorum and rejects the vote.
func TestKickRejectedWhenAllVotedWithoutQuorum(t *testing.T) {
	env, players := newTestEnv(t, 4)
	target := players[3]

	env.run(func() {
		_, outcome, err := env.m.Initiate(env.g, players[0].ID, target.ID)
		require.NoError(t, err)
		require.Equal(t, OutcomePending, outcome)

		_, outcome, err = env.m.CastVote(env.g, players[1].ID, false)
		require.NoError(t, err)
		assert.Equal(t, OutcomePending, outcome)

		_, outcome, err = env.m.CastVote(env.g, players[2].ID, false)
		require.NoError(t, err)
		assert.Equal(t, OutcomeRejected, outcome)
	})

	assert.Empty(t, env.disconnected)
	assert.Equal(t, models.ConnectionConnected, target.ConnectionStatus)
	_, active := env.m.Active(env.g.Code)
	assert.False(t, active)
}

// In a two-player game the initiator alone satisfies the quorum.
func TestKickTwoPlayerResolvesImmediately(t *testing.T) {
	env, players := newTestEnv(t, 2)

	env.run(func() {
		snap, outcome, err := env.m.Initiate(env.g, players[0].ID, players[1].ID)
		require.NoError(t, err)
		assert.Equal(t, OutcomeKicked, outcome)
		assert.Equal(t, 1, snap.Required)
	})
	assert.Equal(t, []uuid.UUID{players[1].ID}, env.disconnected)
}

func TestKickVoteExpires(t *testing.T) {
	env, players := newTestEnv(t, 4)
	target := players[3]
	env.m.VoteTimeout = 20 * time.Millisecond

	var notified []Outcome
	var notifyMu sync.Mutex
	env.m.Notify = func(code string, snap Snapshot, outcome Outcome) {
		notifyMu.Lock()
		defer notifyMu.Unlock()
		notified = append(notified, outcome)
	}

	env.run(func() {
		_, outcome, err := env.m.Initiate(env.g, players[0].ID, target.ID)
		require.NoError(t, err)
		require.Equal(t, OutcomePending, outcome)
	})

	time.Sleep(100 * time.Millisecond)

	_, active := env.m.Active(env.g.Code)
	assert.False(t, active, "expired vote is cleared")
	assert.Empty(t, env.disconnected, "target is untouched on timeout")
	notifyMu.Lock()
	assert.Equal(t, []Outcome{OutcomeExpired}, notified)
	notifyMu.Unlock()

	// A fresh vote can start once the old one lapsed.
	env.run(func() {
		_, _, err := env.m.Initiate(env.g, players[0].ID, target.ID)
		require.NoError(t, err)
	})
}

func TestKickClearDropsVote(t *testing.T) {
	env, players := newTestEnv(t, 4)

	env.run(func() {
		_, _, err := env.m.Initiate(env.g, players[0].ID, players[3].ID)
		require.NoError(t, err)
	})
	env.m.Clear(env.g.Code)
	_, active := env.m.Active(env.g.Code)
	assert.False(t, active)
}
