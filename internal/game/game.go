// internal/game/game.go
//
// The engine is a set of free functions over *models.Game: no I/O, no timers,
// no locking. The orchestration layer serializes calls per game code and owns
// persistence and broadcasting; the connection manager and kick consensus call
// back into this package for fallback mutations.
package game

import (
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/skygrid/skygrid/internal/gameerr"
	"github.com/skygrid/skygrid/internal/models"
)

// NewGame creates a lobby with the given admin already seated.
func NewGame(code string, admin *models.Player, settings models.Settings) *models.Game {
	id, _ := uuid.NewRandom()
	now := time.Now()
	return &models.Game{
		ID:          id,
		Code:        code,
		Status:      models.GameLobby,
		AdminID:     admin.ID,
		Players:     []*models.Player{admin},
		TurnStatus:  models.TurnChooseAPile,
		RoundStatus: models.RoundWaitingInitialReveal,
		Settings:    settings,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// AddPlayer seats a new player in the lobby.
func AddPlayer(g *models.Game, p *models.Player) error {
	if g.Status != models.GameLobby {
		return gameerr.ErrGameAlreadyStarted
	}
	if g.IsFull() {
		return gameerr.ErrGameIsFull
	}
	g.Players = append(g.Players, p)
	return nil
}

// RemovePlayer drops a seat entirely and keeps the turn index pointing at the
// same player where possible.
func RemovePlayer(g *models.Game, playerID uuid.UUID) error {
	idx := g.PlayerIndex(playerID)
	if idx == -1 {
		return gameerr.ErrPlayerNotFound
	}
	g.Players = append(g.Players[:idx], g.Players[idx+1:]...)
	if idx < g.Turn {
		g.Turn--
	}
	if g.Turn >= len(g.Players) {
		g.Turn = 0
	}
	if g.AdminID == playerID {
		ReassignAdmin(g)
	}
	return nil
}

// ReassignAdmin hands the admin role to the first connected player if the
// current admin no longer holds a live session.
func ReassignAdmin(g *models.Game) {
	admin := g.GetPlayer(g.AdminID)
	if admin != nil && admin.IsConnected() {
		return
	}
	for _, p := range g.Players {
		if p.IsConnected() {
			g.AdminID = p.ID
			return
		}
	}
}

// Start launches the first round. Only the admin may start, and only from the
// lobby with enough players seated.
func Start(g *models.Game, playerID uuid.UUID) error {
	if playerID != g.AdminID {
		return gameerr.ErrNotAllowed
	}
	if g.Status != models.GameLobby {
		return gameerr.ErrGameAlreadyStarted
	}
	if len(g.Players) < models.MinPlayers {
		return gameerr.ErrTooFewPlayers
	}
	g.Status = models.GamePlaying
	g.RoundNumber = 1
	dealRound(g)
	return nil
}

// StartNextRound re-deals after a round ended without finishing the game.
// Called by the connection manager's round-restart timer. If departures
// between rounds left fewer than the minimum connected players, the game is
// stopped instead of dealing to the remainder.
func StartNextRound(g *models.Game) error {
	if g.Status != models.GamePlaying || g.RoundStatus != models.RoundOver {
		return gameerr.ErrInvalidTurnState
	}
	if g.ConnectedCount() < models.MinPlayers {
		StopGame(g)
		return gameerr.ErrTooFewPlayers
	}
	g.RoundNumber++
	dealRound(g)
	return nil
}

// StopGame abandons a game mid-round because too few players remain.
func StopGame(g *models.Game) {
	g.Status = models.GameStopped
}

// dealRound shuffles a fresh draw pile, deals every seat a face-down grid and
// flips one card onto the discard pile.
func dealRound(g *models.Game) {
	pile := newDrawPile()
	cols := g.Settings.CardPerColumn
	rows := g.Settings.CardPerRow
	for _, p := range g.Players {
		p.Cards = make([][]models.Card, cols)
		for ci := 0; ci < cols; ci++ {
			p.Cards[ci] = make([]models.Card, rows)
			for ri := 0; ri < rows; ri++ {
				var v int
				v, pile = popPile(pile)
				p.Cards[ci][ri] = models.NewCard(v)
			}
		}
		p.HasPlayedLastTurn = false
	}
	var top int
	top, pile = popPile(pile)
	g.DrawPile = pile
	g.DiscardPile = []int{top}
	g.SelectedCardValue = nil
	g.FirstToFinishPlayerID = nil
	g.RoundStatus = models.RoundWaitingInitialReveal
	g.TurnStatus = models.TurnChooseAPile
	g.LastTurnStatus = models.TurnChooseAPile
}

// startMainRound runs once every connected player revealed their initial
// cards: the starting player is the connected seat with the highest revealed
// sum, ties broken by highest single revealed card, remaining ties uniformly
// at random.
func startMainRound(g *models.Game) {
	best := []int{}
	bestSum, bestHigh := 0, 0
	for i, p := range g.Players {
		if !p.IsConnected() {
			continue
		}
		sum, high := p.RevealedSum(), p.HighestRevealed()
		if len(best) == 0 || sum > bestSum || (sum == bestSum && high > bestHigh) {
			best = []int{i}
			bestSum, bestHigh = sum, high
		} else if sum == bestSum && high == bestHigh {
			best = append(best, i)
		}
	}
	if len(best) == 0 {
		return
	}
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	g.Turn = best[r.Intn(len(best))]
	g.RoundStatus = models.RoundPlaying
	g.TurnStatus = models.TurnChooseAPile
}

// allConnectedRevealedInitial reports whether every connected player has
// turned the configured number of initial cards.
func allConnectedRevealedInitial(g *models.Game) bool {
	any := false
	for _, p := range g.Players {
		if !p.IsConnected() {
			continue
		}
		any = true
		if p.VisibleCount() < g.Settings.InitialTurnedCount {
			return false
		}
	}
	return any
}

// CheckInitialRevealComplete starts the main round if the departure of a slow
// player means everyone remaining has already revealed. Called by the
// connection manager after a grace timer fires.
func CheckInitialRevealComplete(g *models.Game) {
	if g.Status == models.GamePlaying && g.RoundStatus == models.RoundWaitingInitialReveal && allConnectedRevealedInitial(g) {
		startMainRound(g)
	}
}

// AdvanceTurnIfCurrent skips past a departed seat if it held the turn.
func AdvanceTurnIfCurrent(g *models.Game, playerID uuid.UUID) {
	if !g.IsPlaying() || g.RoundStatus == models.RoundWaitingInitialReveal {
		return
	}
	cur := g.CurrentPlayer()
	if cur != nil && cur.ID == playerID {
		g.SelectedCardValue = nil
		advanceTurn(g)
	}
}

// advanceTurn hands the turn to the next connected seat, cyclically.
func advanceTurn(g *models.Game) {
	if len(g.Players) == 0 {
		return
	}
	next := (g.Turn + 1) % len(g.Players)
	for skipped := 0; !g.Players[next].IsConnected(); skipped++ {
		if skipped >= len(g.Players) {
			return
		}
		next = (next + 1) % len(g.Players)
	}
	g.Turn = next
	g.TurnStatus = models.TurnChooseAPile
}
