// internal/game/game_test.go
package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skygrid/skygrid/internal/gameerr"
	"github.com/skygrid/skygrid/internal/models"
)

// setupLobby builds a lobby with n connected players; the first is admin.
func setupLobby(t *testing.T, n int, settings models.Settings) (*models.Game, []*models.Player) {
	t.Helper()
	players := make([]*models.Player, n)
	players[0] = models.NewPlayer("alice", "cat", "sock-0")
	g := NewGame("TESTG", players[0], settings)
	for i := 1; i < n; i++ {
		players[i] = models.NewPlayer("player", "dog", "sock")
		require.NoError(t, AddPlayer(g, players[i]))
	}
	return g, players
}

// setupPlaying deals a round and fast-forwards past the initial reveal so
// that players[0] holds the turn in ChooseAPile.
func setupPlaying(t *testing.T, n int, settings models.Settings) (*models.Game, []*models.Player) {
	t.Helper()
	g, players := setupLobby(t, n, settings)
	require.NoError(t, Start(g, players[0].ID))
	g.RoundStatus = models.RoundPlaying
	g.Turn = 0
	g.TurnStatus = models.TurnChooseAPile
	return g, players
}

func TestAddPlayerCapacityAndLifecycle(t *testing.T) {
	settings := models.DefaultSettings()
	settings.MaxPlayers = 2
	g, players := setupLobby(t, 2, settings)

	err := AddPlayer(g, models.NewPlayer("late", "", ""))
	assert.ErrorIs(t, err, gameerr.ErrGameIsFull)

	require.NoError(t, Start(g, players[0].ID))
	err = AddPlayer(g, models.NewPlayer("later", "", ""))
	assert.ErrorIs(t, err, gameerr.ErrGameAlreadyStarted)
}

func TestStartRequiresAdminAndEnoughPlayers(t *testing.T) {
	g, players := setupLobby(t, 2, models.DefaultSettings())

	assert.ErrorIs(t, Start(g, players[1].ID), gameerr.ErrNotAllowed)

	solo := models.NewPlayer("solo", "", "")
	gSolo := NewGame("SOLOG", solo, models.DefaultSettings())
	assert.ErrorIs(t, Start(gSolo, solo.ID), gameerr.ErrTooFewPlayers)

	require.NoError(t, Start(g, players[0].ID))
	assert.Equal(t, models.GamePlaying, g.Status)
	assert.Equal(t, 1, g.RoundNumber)
	assert.Equal(t, models.RoundWaitingInitialReveal, g.RoundStatus)
	assert.ErrorIs(t, Start(g, players[0].ID), gameerr.ErrGameAlreadyStarted)
}

func TestDealRoundShapesGrids(t *testing.T) {
	settings := models.DefaultSettings()
	g, players := setupLobby(t, 3, settings)
	require.NoError(t, Start(g, players[0].ID))

	for _, p := range players {
		require.Len(t, p.Cards, settings.CardPerColumn)
		for _, col := range p.Cards {
			require.Len(t, col, settings.CardPerRow)
			for _, c := range col {
				assert.False(t, c.IsVisible)
			}
		}
	}
	perGrid := settings.CardPerColumn * settings.CardPerRow
	assert.Len(t, g.DiscardPile, 1)
	assert.Len(t, g.DrawPile, 150-3*perGrid-1)
}

// Scenario: with two initial reveals each, the starting turn goes to the
// player with the higher revealed sum.
func TestInitialRevealAssignsStarterByRevealedSum(t *testing.T) {
	g, players := setupLobby(t, 2, models.DefaultSettings())
	a, b := players[0], players[1]
	require.NoError(t, Start(g, a.ID))

	a.Cards[0][0].Value, a.Cards[0][1].Value = 10, 3
	b.Cards[0][0].Value, b.Cards[0][1].Value = 10, 9

	require.NoError(t, RevealInitialCard(g, a.ID, 0, 0))
	require.NoError(t, RevealInitialCard(g, a.ID, 0, 1))
	assert.Equal(t, models.RoundWaitingInitialReveal, g.RoundStatus)

	// Reveal budget is enforced.
	require.NoError(t, RevealInitialCard(g, b.ID, 0, 0))
	require.NoError(t, RevealInitialCard(g, b.ID, 0, 1))
	assert.ErrorIs(t, RevealInitialCard(g, b.ID, 1, 0), gameerr.ErrInvalidTurnState)

	assert.Equal(t, models.RoundPlaying, g.RoundStatus)
	assert.Equal(t, b.ID, g.Players[g.Turn].ID, "higher revealed sum starts (19 > 13)")
	assert.Equal(t, models.TurnChooseAPile, g.TurnStatus)
}

func TestRevealInitialCardRejectsVisibleCell(t *testing.T) {
	g, players := setupLobby(t, 2, models.DefaultSettings())
	require.NoError(t, Start(g, players[0].ID))
	require.NoError(t, RevealInitialCard(g, players[0].ID, 0, 0))
	assert.ErrorIs(t, RevealInitialCard(g, players[0].ID, 0, 0), gameerr.ErrNotAllowed)
}

func TestTurnMachineDrawDiscardTurn(t *testing.T) {
	g, players := setupPlaying(t, 2, models.DefaultSettings())
	a, b := players[0], players[1]

	// Acting out of turn is rejected.
	assert.ErrorIs(t, DrawCard(g, b.ID), gameerr.ErrNotAllowed)

	require.NoError(t, DrawCard(g, a.ID))
	require.NotNil(t, g.SelectedCardValue)
	drawn := *g.SelectedCardValue
	assert.Equal(t, models.TurnThrowOrReplace, g.TurnStatus)

	// Revealing one of your own cards is not allowed until the drawn card
	// was thrown away.
	assert.ErrorIs(t, TurnCard(g, a.ID, 0, 0), gameerr.ErrInvalidTurnState)

	require.NoError(t, DiscardCard(g, a.ID))
	assert.Equal(t, models.TurnTurnACard, g.TurnStatus)
	assert.Equal(t, drawn, g.DiscardPile[len(g.DiscardPile)-1])
	assert.Nil(t, g.SelectedCardValue)

	require.NoError(t, TurnCard(g, a.ID, 1, 0))
	assert.True(t, a.Cards[1][0].IsVisible)
	assert.Equal(t, b.ID, g.Players[g.Turn].ID)
	assert.Equal(t, models.TurnChooseAPile, g.TurnStatus)
	assert.Equal(t, models.TurnTurnACard, g.LastTurnStatus)
}

func TestTurnMachinePickFromDiscardMustReplace(t *testing.T) {
	g, players := setupPlaying(t, 2, models.DefaultSettings())
	a, b := players[0], players[1]

	top := g.DiscardPile[len(g.DiscardPile)-1]
	require.NoError(t, PickFromDiscard(g, a.ID))
	require.NotNil(t, g.SelectedCardValue)
	assert.Equal(t, top, *g.SelectedCardValue)
	assert.Equal(t, models.TurnReplaceACard, g.TurnStatus)

	// A picked discard cannot be thrown back.
	assert.ErrorIs(t, DiscardCard(g, a.ID), gameerr.ErrInvalidTurnState)

	old := a.Cards[2][0].Value
	require.NoError(t, ReplaceCard(g, a.ID, 2, 0))
	assert.True(t, a.Cards[2][0].IsVisible)
	assert.Equal(t, top, a.Cards[2][0].Value)
	assert.Equal(t, old, g.DiscardPile[len(g.DiscardPile)-1])
	assert.Equal(t, b.ID, g.Players[g.Turn].ID)
}

// Scenario: draining the draw pile rebuilds it from the discard pile minus
// its top card.
func TestDrawReshufflesDiscardWhenEmpty(t *testing.T) {
	g, players := setupPlaying(t, 2, models.DefaultSettings())
	a := players[0]

	g.DrawPile = []int{5}
	g.DiscardPile = []int{1, 2, 3, 4, 9}

	require.NoError(t, DrawCard(g, a.ID))
	require.NotNil(t, g.SelectedCardValue)
	assert.Equal(t, 5, *g.SelectedCardValue)
	assert.Empty(t, g.DrawPile)

	// Rewind the turn machine; only the pile state matters here.
	g.TurnStatus = models.TurnChooseAPile
	g.SelectedCardValue = nil

	require.NoError(t, DrawCard(g, a.ID))
	assert.Equal(t, []int{9}, g.DiscardPile, "former top card stays behind")
	assert.Len(t, g.DrawPile, 3, "4 reshuffled minus 1 drawn")
	require.NotNil(t, g.SelectedCardValue)
	assert.Contains(t, []int{1, 2, 3, 4}, *g.SelectedCardValue)
}

func TestPickFromEmptyDiscardIsNoop(t *testing.T) {
	g, players := setupPlaying(t, 2, models.DefaultSettings())
	g.DiscardPile = nil

	require.NoError(t, PickFromDiscard(g, players[0].ID))
	assert.Nil(t, g.SelectedCardValue)
	assert.Equal(t, models.TurnChooseAPile, g.TurnStatus)
}

// Scenario: a completed row of three clears with row-clearing on and
// column-clearing off, and nothing else moves.
func TestRowClearRemovesExactlyThatRow(t *testing.T) {
	settings := models.DefaultSettings()
	settings.CardPerColumn = 3
	settings.CardPerRow = 3
	settings.AllowRowClear = true
	settings.AllowColumnClear = false

	g, players := setupPlaying(t, 2, settings)
	a := players[0]

	// Row 0 holds three sevens, two already revealed.
	values := [3][3]int{{7, 1, 2}, {7, 3, 4}, {7, 5, 6}}
	for ci := 0; ci < 3; ci++ {
		for ri := 0; ri < 3; ri++ {
			a.Cards[ci][ri] = models.NewCard(values[ci][ri])
		}
	}
	a.Cards[0][0].IsVisible = true
	a.Cards[1][0].IsVisible = true

	g.TurnStatus = models.TurnTurnACard
	discardBefore := len(g.DiscardPile)

	require.NoError(t, TurnCard(g, a.ID, 2, 0))

	require.Len(t, a.Cards, 3, "no column was removed")
	for ci := 0; ci < 3; ci++ {
		require.Len(t, a.Cards[ci], 2, "row 0 removed from every column")
		assert.NotEqual(t, 7, a.Cards[ci][0].Value)
	}
	assert.Len(t, g.DiscardPile, discardBefore+3)
}

func TestColumnClearCascades(t *testing.T) {
	settings := models.DefaultSettings()
	settings.CardPerColumn = 2
	settings.CardPerRow = 2
	settings.AllowRowClear = true
	settings.AllowColumnClear = true

	g, players := setupPlaying(t, 2, settings)
	a := players[0]

	// Turning the last card completes column 0 (5,5); removing it leaves a
	// single-column grid whose rows are length 1 and must not clear.
	a.Cards[0][0] = models.NewCard(5)
	a.Cards[0][1] = models.NewCard(5)
	a.Cards[1][0] = models.NewCard(8)
	a.Cards[1][1] = models.NewCard(9)
	a.Cards[0][0].IsVisible = true
	a.Cards[1][0].IsVisible = true
	a.Cards[1][1].IsVisible = true

	g.TurnStatus = models.TurnTurnACard
	require.NoError(t, TurnCard(g, a.ID, 0, 1))

	require.Len(t, a.Cards, 1)
	assert.Equal(t, 8, a.Cards[0][0].Value)
	assert.Equal(t, 9, a.Cards[0][1].Value)
}

func TestSingleCardLineNeverClears(t *testing.T) {
	assert.False(t, lineComplete([]models.Card{{Value: 4, IsVisible: true}}))
	assert.True(t, lineComplete([]models.Card{
		{Value: 4, IsVisible: true}, {Value: 4, IsVisible: true},
	}))
	assert.False(t, lineComplete([]models.Card{
		{Value: 4, IsVisible: true}, {Value: 4, IsVisible: false},
	}))
}

func TestFirstFinisherTriggersLastLap(t *testing.T) {
	g, players := setupPlaying(t, 3, models.DefaultSettings())
	a := players[0]

	for ci := range a.Cards {
		for ri := range a.Cards[ci] {
			a.Cards[ci][ri].IsVisible = true
		}
	}
	// Give distinct values so no line clears interfere.
	v := -2
	for ci := range a.Cards {
		for ri := range a.Cards[ci] {
			a.Cards[ci][ri].Value = v
			v++
		}
	}
	a.Cards[0][0].IsVisible = false

	g.TurnStatus = models.TurnTurnACard
	require.NoError(t, TurnCard(g, a.ID, 0, 0))

	require.NotNil(t, g.FirstToFinishPlayerID)
	assert.Equal(t, a.ID, *g.FirstToFinishPlayerID)
	assert.Equal(t, models.RoundLastLap, g.RoundStatus)
	assert.True(t, a.HasPlayedLastTurn)
	assert.Equal(t, players[1].ID, g.Players[g.Turn].ID)
}

// setupLastLap builds a 2-player game one departure/turn away from round end,
// with deterministic grid sums.
func setupLastLap(t *testing.T, settings models.Settings, sumA, sumB int) (*models.Game, []*models.Player) {
	t.Helper()
	g, players := setupLobby(t, 2, settings)
	require.NoError(t, Start(g, players[0].ID))
	g.RoundStatus = models.RoundLastLap
	id := players[0].ID
	g.FirstToFinishPlayerID = &id
	for i, sum := range []int{sumA, sumB} {
		players[i].Cards = [][]models.Card{{models.NewCard(sum - 1), models.NewCard(1)}}
		players[i].HasPlayedLastTurn = true
	}
	return g, players
}

/// Scenario: the first finisher scored 20 but an opponent scored 15, so every
// other player did strictly better and the x2 penalty applies.
func TestFirstFinisherPenaltyApplies(t *testing.T) {
	g, players := setupLastLap(t, models.DefaultSettings(), 20, 15)

	CheckLastLapComplete(g)

	assert.Equal(t, models.RoundOver, g.RoundStatus)
	require.Len(t, players[0].Scores, 1)
	assert.Equal(t, 40, *players[0].Scores[0])
	assert.Equal(t, 40, players[0].Score)
	assert.Equal(t, 15, *players[1].Scores[0])
}

func TestFirstFinisherPenaltySkippedOnTie(t *testing.T) {
	g, players := setupLastLap(t, models.DefaultSettings(), 20, 20)

	CheckLastLapComplete(g)

	assert.Equal(t, 20, *players[0].Scores[0], "a tie is enough to dodge the penalty")
	assert.Equal(t, 20, *players[1].Scores[0])
}

func TestDisconnectedPlayerGetsNilRoundScore(t *testing.T) {
	g, players := setupLastLap(t, models.DefaultSettings(), 20, 15)
	players[1].ConnectionStatus = models.ConnectionDisconnected

	CheckLastLapComplete(g)

	assert.Equal(t, models.RoundOver, g.RoundStatus)
	assert.Nil(t, players[1].Scores[0])
	assert.Equal(t, 0, players[1].Score)
}

func TestPenaltyVariants(t *testing.T) {
	s := models.DefaultSettings()
	s.FirstPlayerMultiplier = 2
	s.FirstPlayerFlatPenalty = 10

	s.FirstPlayerPenaltyType = models.PenaltyMultiplierOnly
	assert.Equal(t, 40, applyFirstFinisherPenalty(20, s))
	assert.Equal(t, -5, applyFirstFinisherPenalty(-5, s), "negative scores are never multiplied")

	s.FirstPlayerPenaltyType = models.PenaltyFlatOnly
	assert.Equal(t, 30, applyFirstFinisherPenalty(20, s))
	assert.Equal(t, 5, applyFirstFinisherPenalty(-5, s))

	s.FirstPlayerPenaltyType = models.PenaltyFlatThenMultiplier
	assert.Equal(t, 60, applyFirstFinisherPenalty(20, s))
	assert.Equal(t, -10, applyFirstFinisherPenalty(-20, s), "still negative after the flat step")

	s.FirstPlayerPenaltyType = models.PenaltyMultiplierThenFlat
	assert.Equal(t, 50, applyFirstFinisherPenalty(20, s))
	assert.Equal(t, 5, applyFirstFinisherPenalty(-5, s))
}

func TestGameFinishesAtScoreThreshold(t *testing.T) {
	settings := models.DefaultSettings()
	settings.ScoreToEndGame = 30
	g, players := setupLastLap(t, settings, 20, 15)

	CheckLastLapComplete(g)

	assert.Equal(t, 40, players[0].Score)
	assert.Equal(t, models.GameFinished, g.Status)
}

func TestStartNextRoundRedeals(t *testing.T) {
	g, _ := setupLastLap(t, models.DefaultSettings(), 20, 15)
	CheckLastLapComplete(g)
	require.Equal(t, models.GamePlaying, g.Status)

	require.NoError(t, StartNextRound(g))
	assert.Equal(t, 2, g.RoundNumber)
	assert.Equal(t, models.RoundWaitingInitialReveal, g.RoundStatus)
	assert.Nil(t, g.FirstToFinishPlayerID)
	for _, p := range g.Players {
		assert.False(t, p.HasPlayedLastTurn)
		assert.Equal(t, 0, p.VisibleCount())
	}

	assert.ErrorIs(t, StartNextRound(g), gameerr.ErrInvalidTurnState)
}

func TestStartNextRoundStopsWhenTooFewConnected(t *testing.T) {
	g, players := setupLastLap(t, models.DefaultSettings(), 20, 15)
	CheckLastLapComplete(g)
	require.Equal(t, models.RoundOver, g.RoundStatus)

	players[1].ConnectionStatus = models.ConnectionDisconnected

	assert.ErrorIs(t, StartNextRound(g), gameerr.ErrTooFewPlayers)
	assert.Equal(t, models.GameStopped, g.Status)
	assert.Equal(t, 1, g.RoundNumber, "no new round was dealt")
}

func TestReplayVoteResetsToLobbyOnceUnanimous(t *testing.T) {
	settings := models.DefaultSettings()
	settings.ScoreToEndGame = 30
	g, players := setupLastLap(t, settings, 20, 15)
	CheckLastLapComplete(g)
	require.Equal(t, models.GameFinished, g.Status)
	g.StateVersion = 17
	g.Settings.Confirmed = true

	require.NoError(t, VoteReplay(g, players[0].ID))
	assert.Equal(t, models.GameFinished, g.Status, "one vote is not enough")
	assert.True(t, players[0].WantsReplay)

	require.NoError(t, VoteReplay(g, players[1].ID))
	assert.Equal(t, models.GameLobby, g.Status)
	assert.Equal(t, 0, g.StateVersion, "version counter restarts with the new lobby")
	assert.Equal(t, 0, g.RoundNumber)
	assert.False(t, g.Settings.Confirmed)
	for _, p := range g.Players {
		assert.Nil(t, p.Cards)
		assert.Zero(t, p.Score)
		assert.Empty(t, p.Scores)
		assert.False(t, p.WantsReplay)
	}
}

func TestReplayVoteRequiresFinishedGame(t *testing.T) {
	g, players := setupPlaying(t, 2, models.DefaultSettings())
	assert.ErrorIs(t, VoteReplay(g, players[0].ID), gameerr.ErrNotAllowed)
}

func TestRemovePlayerKeepsTurnPointerStable(t *testing.T) {
	g, players := setupPlaying(t, 3, models.DefaultSettings())
	g.Turn = 2

	require.NoError(t, RemovePlayer(g, players[0].ID))
	assert.Equal(t, 1, g.Turn, "turn still points at the same seat")
	assert.Equal(t, players[1].ID, g.AdminID, "admin handed to the next connected player")

	assert.ErrorIs(t, RemovePlayer(g, players[0].ID), gameerr.ErrPlayerNotFound)
}

func TestAdvanceTurnSkipsDisconnectedSeats(t *testing.T) {
	g, players := setupPlaying(t, 3, models.DefaultSettings())
	players[1].ConnectionStatus = models.ConnectionDisconnected

	AdvanceTurnIfCurrent(g, players[0].ID)
	assert.Equal(t, players[2].ID, g.Players[g.Turn].ID)

	// A seat that does not hold the turn does not advance anything.
	AdvanceTurnIfCurrent(g, players[0].ID)
	assert.Equal(t, players[2].ID, g.Players[g.Turn].ID)
}

func TestDeckComposition(t *testing.T) {
	pile := newDrawPile()
	require.Len(t, pile, 150)

	counts := map[int]int{}
	for _, v := range pile {
		counts[v]++
	}
	assert.Equal(t, 5, counts[-2])
	assert.Equal(t, 10, counts[-1])
	assert.Equal(t, 15, counts[0])
	for v := 1; v <= 12; v++ {
		assert.Equal(t, 10, counts[v], "value %d", v)
	}
}
