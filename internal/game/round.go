// internal/game/round.go
package game

import (
	"github.com/google/uuid"

	"github.com/skygrid/skygrid/internal/gameerr"
	"github.com/skygrid/skygrid/internal/models"
)

// endRound reveals every grid, records round scores, applies the
// first-finisher penalty where it is due and finishes the game once a
// connected player crossed the score threshold.
func endRound(g *models.Game) {
	g.RoundStatus = models.RoundOver
	for _, p := range g.Players {
		forceRevealAll(p)
	}

	// Round score is the plain grid sum; disconnected seats get the
	// did-not-finish sentinel and are excluded from the penalty comparison.
	roundScores := make(map[uuid.UUID]*int, len(g.Players))
	for _, p := range g.Players {
		if p.CountsForRound() {
			v := p.GridSum()
			roundScores[p.ID] = &v
		} else {
			roundScores[p.ID] = nil
		}
	}

	if g.FirstToFinishPlayerID != nil {
		ffScore := roundScores[*g.FirstToFinishPlayerID]
		if ffScore != nil {
			// Being first only costs you if nobody did worse: the penalty
			// applies iff every other counted score is strictly lower.
			penalized := true
			for id, score := range roundScores {
				if id == *g.FirstToFinishPlayerID || score == nil {
					continue
				}
				if *score >= *ffScore {
					penalized = false
					break
				}
			}
			if penalized {
				*ffScore = applyFirstFinisherPenalty(*ffScore, g.Settings)
			}
		}
	}

	for _, p := range g.Players {
		p.Scores = append(p.Scores, roundScores[p.ID])
		p.Score = totalScore(p)
	}

	for _, p := range g.Players {
		if p.IsConnected() && p.Score >= g.Settings.ScoreToEndGame {
			g.Status = models.GameFinished
			break
		}
	}
}

// applyFirstFinisherPenalty computes the penalized round score. Multiplier
// steps only ever apply to a positive running score; a negative round cannot
// be made worse by doubling it.
func applyFirstFinisherPenalty(score int, s models.Settings) int {
	switch s.FirstPlayerPenaltyType {
	case models.PenaltyMultiplierOnly:
		if score > 0 {
			score *= s.FirstPlayerMultiplier
		}
	case models.PenaltyFlatOnly:
		score += s.FirstPlayerFlatPenalty
	case models.PenaltyFlatThenMultiplier:
		score += s.FirstPlayerFlatPenalty
		if score > 0 {
			score *= s.FirstPlayerMultiplier
		}
	case models.PenaltyMultiplierThenFlat:
		if score > 0 {
			score *= s.FirstPlayerMultiplier
		}
		score += s.FirstPlayerFlatPenalty
	}
	return score
}

// totalScore sums the numeric entries of the per-round history.
func totalScore(p *models.Player) int {
	sum := 0
	for _, s := range p.Scores {
		if s != nil {
			sum += *s
		}
	}
	return sum
}

// VoteReplay records a replay opt-in on a finished game. Once every
// connected player opted in, the game restarts to the lobby.
func VoteReplay(g *models.Game, playerID uuid.UUID) error {
	p := g.GetPlayer(playerID)
	if p == nil {
		return gameerr.ErrPlayerNotFound
	}
	if g.Status != models.GameFinished {
		return gameerr.ErrNotAllowed
	}
	p.WantsReplay = true
	for _, pl := range g.Players {
		if pl.IsConnected() && !pl.WantsReplay {
			return nil
		}
	}
	resetToLobby(g)
	return nil
}

// resetToLobby rewinds a finished game to a fresh lobby: player state, round
// number and the state version all restart from zero and the settings open
// up for editing again. The orchestration layer broadcasts a full snapshot
// after a reset instead of a diff.
func resetToLobby(g *models.Game) {
	g.Status = models.GameLobby
	g.RoundNumber = 0
	g.Turn = 0
	g.TurnStatus = models.TurnChooseAPile
	g.LastTurnStatus = models.TurnChooseAPile
	g.RoundStatus = models.RoundWaitingInitialReveal
	g.DrawPile = nil
	g.DiscardPile = nil
	g.SelectedCardValue = nil
	g.FirstToFinishPlayerID = nil
	g.StateVersion = 0
	g.Settings.Confirmed = false
	for _, p := range g.Players {
		p.Cards = nil
		p.Score = 0
		p.Scores = nil
		p.WantsReplay = false
		p.HasPlayedLastTurn = false
	}
}
