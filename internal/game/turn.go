// internal/game/turn.go
package game

import (
	"github.com/google/uuid"

	"github.com/skygrid/skygrid/internal/gameerr"
	"github.com/skygrid/skygrid/internal/models"
)

// requireTurn validates that the game is mid-round, the player holds the
// turn and the turn machine sits in one of the expected sub-states.
func requireTurn(g *models.Game, playerID uuid.UUID, states ...models.TurnStatus) (*models.Player, error) {
	p := g.GetPlayer(playerID)
	if p == nil {
		return nil, gameerr.ErrPlayerNotFound
	}
	if g.Status != models.GamePlaying || g.RoundStatus == models.RoundWaitingInitialReveal || g.RoundStatus == models.RoundOver {
		return nil, gameerr.ErrInvalidTurnState
	}
	cur := g.CurrentPlayer()
	if cur == nil || cur.ID != playerID {
		return nil, gameerr.ErrNotAllowed
	}
	for _, s := range states {
		if g.TurnStatus == s {
			return p, nil
		}
	}
	return nil, gameerr.ErrInvalidTurnState
}

// cellAt bounds-checks a grid coordinate.
func cellAt(p *models.Player, col, row int) (*models.Card, error) {
	if col < 0 || col >= len(p.Cards) || row < 0 || row >= len(p.Cards[col]) {
		return nil, gameerr.ErrNotAllowed
	}
	return &p.Cards[col][row], nil
}

// RevealInitialCard turns one face-down card during the initial reveal
// phase. Once every connected player reached the configured count the main
// round begins and the starting player is computed.
func RevealInitialCard(g *models.Game, playerID uuid.UUID, col, row int) error {
	p := g.GetPlayer(playerID)
	if p == nil {
		return gameerr.ErrPlayerNotFound
	}
	if g.Status != models.GamePlaying || g.RoundStatus != models.RoundWaitingInitialReveal {
		return gameerr.ErrInvalidTurnState
	}
	if p.VisibleCount() >= g.Settings.InitialTurnedCount {
		return gameerr.ErrInvalidTurnState
	}
	c, err := cellAt(p, col, row)
	if err != nil {
		return err
	}
	if c.IsVisible {
		return gameerr.ErrNotAllowed
	}
	c.IsVisible = true
	if allConnectedRevealedInitial(g) {
		startMainRound(g)
	}
	return nil
}

// DrawCard pops the top of the draw pile into the player's hand. An empty
// draw pile is first rebuilt from the discard pile minus its top card.
func DrawCard(g *models.Game, playerID uuid.UUID) error {
	_, err := requireTurn(g, playerID, models.TurnChooseAPile)
	if err != nil {
		return err
	}
	if len(g.DrawPile) == 0 {
		reshuffleDiscardIntoDraw(g)
	}
	if len(g.DrawPile) == 0 {
		return gameerr.ErrInvalidTurnState
	}
	var v int
	v, g.DrawPile = popPile(g.DrawPile)
	g.SelectedCardValue = &v
	g.LastTurnStatus = g.TurnStatus
	g.TurnStatus = models.TurnThrowOrReplace
	return nil
}

// reshuffleDiscardIntoDraw rebuilds the draw pile from the discard pile,
// leaving the former top card behind as the new discard pile.
func reshuffleDiscardIntoDraw(g *models.Game) {
	if len(g.DiscardPile) <= 1 {
		return
	}
	top := g.DiscardPile[len(g.DiscardPile)-1]
	rest := make([]int, len(g.DiscardPile)-1)
	copy(rest, g.DiscardPile[:len(g.DiscardPile)-1])
	shuffle(rest)
	g.DrawPile = rest
	g.DiscardPile = []int{top}
}

// PickFromDiscard takes the top discard into the player's hand. Picking from
// an empty pile is a no-op, not an error.
func PickFromDiscard(g *models.Game, playerID uuid.UUID) error {
	_, err := requireTurn(g, playerID, models.TurnChooseAPile)
	if err != nil {
		return err
	}
	if len(g.DiscardPile) == 0 {
		return nil
	}
	var v int
	v, g.DiscardPile = popPile(g.DiscardPile)
	g.SelectedCardValue = &v
	g.LastTurnStatus = g.TurnStatus
	g.TurnStatus = models.TurnReplaceACard
	return nil
}

// DiscardCard throws the drawn card onto the discard pile; the player must
// then reveal one of their own cards instead. Only a card drawn from the
// draw pile may be thrown away.
func DiscardCard(g *models.Game, playerID uuid.UUID) error {
	_, err := requireTurn(g, playerID, models.TurnThrowOrReplace)
	if err != nil {
		return err
	}
	if g.SelectedCardValue == nil {
		return gameerr.ErrInvalidTurnState
	}
	g.DiscardPile = append(g.DiscardPile, *g.SelectedCardValue)
	g.SelectedCardValue = nil
	g.LastTurnStatus = g.TurnStatus
	g.TurnStatus = models.TurnTurnACard
	return nil
}

// ReplaceCard swaps the held card into the grid, discarding the old value,
// and ends the turn.
func ReplaceCard(g *models.Game, playerID uuid.UUID, col, row int) error {
	p, err := requireTurn(g, playerID, models.TurnThrowOrReplace, models.TurnReplaceACard)
	if err != nil {
		return err
	}
	if g.SelectedCardValue == nil {
		return gameerr.ErrInvalidTurnState
	}
	c, err := cellAt(p, col, row)
	if err != nil {
		return err
	}
	old := c.Value
	c.Value = *g.SelectedCardValue
	c.IsVisible = true
	g.DiscardPile = append(g.DiscardPile, old)
	g.SelectedCardValue = nil
	endTurn(g, p)
	return nil
}

// TurnCard reveals a face-down cell after the drawn card was thrown away,
// and ends the turn.
func TurnCard(g *models.Game, playerID uuid.UUID, col, row int) error {
	p, err := requireTurn(g, playerID, models.TurnTurnACard)
	if err != nil {
		return err
	}
	c, err := cellAt(p, col, row)
	if err != nil {
		return err
	}
	if c.IsVisible {
		return gameerr.ErrNotAllowed
	}
	c.IsVisible = true
	endTurn(g, p)
	return nil
}

// endTurn runs the end-of-turn processing for the acting player: line
// clearing to a fixed point, first-finisher detection, last-lap bookkeeping,
// then hands the turn to the next connected seat.
func endTurn(g *models.Game, p *models.Player) {
	g.LastTurnStatus = g.TurnStatus
	clearCompletedLines(g, p)

	if g.RoundStatus == models.RoundPlaying && g.FirstToFinishPlayerID == nil && p.HasRevealedAll() {
		id := p.ID
		g.FirstToFinishPlayerID = &id
		g.RoundStatus = models.RoundLastLap
		p.HasPlayedLastTurn = true
	} else if g.RoundStatus == models.RoundLastLap {
		// The last lap is each player's final turn: whatever is still face
		// down gets revealed for them.
		forceRevealAll(p)
		clearCompletedLines(g, p)
		p.HasPlayedLastTurn = true
	}

	if g.RoundStatus == models.RoundLastLap && allConnectedPlayedLastTurn(g) {
		endRound(g)
		return
	}
	advanceTurn(g)
}

func forceRevealAll(p *models.Player) {
	for ci := range p.Cards {
		for ri := range p.Cards[ci] {
			p.Cards[ci][ri].IsVisible = true
		}
	}
}

func allConnectedPlayedLastTurn(g *models.Game) bool {
	for _, p := range g.Players {
		if p.IsConnected() && !p.HasPlayedLastTurn {
			return false
		}
	}
	return true
}

// CheckLastLapComplete ends the round if the departure of a player means
// every remaining connected seat has played its last turn. Called by the
// connection manager after a grace timer fires.
func CheckLastLapComplete(g *models.Game) {
	if g.Status == models.GamePlaying && g.RoundStatus == models.RoundLastLap && allConnectedPlayedLastTurn(g) {
		endRound(g)
	}
}

// clearCompletedLines discards fully-revealed lines of identical values,
// looping until a pass removes nothing: clearing a column reshapes every row
// and clearing a row reshapes every column, so one pass is not enough. Lines
// of a single card never clear.
func clearCompletedLines(g *models.Game, p *models.Player) {
	for {
		cleared := false
		if g.Settings.AllowColumnClear {
			for ci := 0; ci < len(p.Cards); ci++ {
				if lineComplete(p.Cards[ci]) {
					for _, c := range p.Cards[ci] {
						g.DiscardPile = append(g.DiscardPile, c.Value)
					}
					p.Cards = append(p.Cards[:ci], p.Cards[ci+1:]...)
					cleared = true
					break
				}
			}
		}
		if !cleared && g.Settings.AllowRowClear && len(p.Cards) > 0 {
			rows := len(p.Cards[0])
			for ri := 0; ri < rows; ri++ {
				row := make([]models.Card, 0, len(p.Cards))
				for ci := range p.Cards {
					row = append(row, p.Cards[ci][ri])
				}
				if lineComplete(row) {
					for _, c := range row {
						g.DiscardPile = append(g.DiscardPile, c.Value)
					}
					for ci := range p.Cards {
						p.Cards[ci] = append(p.Cards[ci][:ri], p.Cards[ci][ri+1:]...)
					}
					cleared = true
					break
				}
			}
		}
		if !cleared {
			return
		}
	}
}

// lineComplete reports whether a line of at least two cards is fully revealed
// with one identical value throughout.
func lineComplete(line []models.Card) bool {
	if len(line) < 2 {
		return false
	}
	for _, c := range line {
		if !c.IsVisible || c.Value != line[0].Value {
			return false
		}
	}
	return true
}
