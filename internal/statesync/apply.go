// internal/statesync/apply.go
package statesync

import (
	"fmt"

	"github.com/skygrid/skygrid/internal/gameerr"
	"github.com/skygrid/skygrid/internal/models"
)

// Apply replays an operation on top of a snapshot and returns the resulting
// snapshot, leaving the input untouched. An update or removal naming a player
// the snapshot does not contain indicates version skew between producer and
// consumer and returns ErrUnknownOperation; the consumer must then fetch a
// full snapshot.
func Apply(prev *models.GameSnapshot, op *Operation) (*models.GameSnapshot, error) {
	next := cloneSnapshot(prev)
	if op == nil {
		return next, nil
	}

	if op.Game != nil {
		applyGamePatch(next, op.Game)
	}
	if op.Settings != nil {
		applySettingsPatch(&next.Settings, op.Settings)
	}
	for _, id := range op.RemovePlayers {
		idx := -1
		for i := range next.Players {
			if next.Players[i].ID == id {
				idx = i
				break
			}
		}
		if idx == -1 {
			return nil, fmt.Errorf("%w: remove of unknown player %s", gameerr.ErrUnknownOperation, id)
		}
		next.Players = append(next.Players[:idx], next.Players[idx+1:]...)
	}
	for i := range op.UpdatePlayers {
		patch := &op.UpdatePlayers[i]
		var target *models.PlayerSnapshot
		for j := range next.Players {
			if next.Players[j].ID == patch.ID {
				target = &next.Players[j]
				break
			}
		}
		if target == nil {
			return nil, fmt.Errorf("%w: update of unknown player %s", gameerr.ErrUnknownOperation, patch.ID)
		}
		applyPlayerPatch(target, patch)
	}
	for i := range op.AddPlayers {
		next.Players = append(next.Players, clonePlayer(op.AddPlayers[i]))
	}
	return next, nil
}

func applyGamePatch(s *models.GameSnapshot, gp *GamePatch) {
	s.StateVersion = gp.StateVersion
	if gp.AdminID != nil {
		s.AdminID = *gp.AdminID
	}
	if gp.IsFull != nil {
		s.IsFull = *gp.IsFull
	}
	if gp.Status != nil {
		s.Status = *gp.Status
	}
	if gp.Turn != nil {
		s.Turn = *gp.Turn
	}
	if gp.TurnStatus != nil {
		s.TurnStatus = *gp.TurnStatus
	}
	if gp.LastTurnStatus != nil {
		s.LastTurnStatus = *gp.LastTurnStatus
	}
	if gp.RoundStatus != nil {
		s.RoundStatus = *gp.RoundStatus
	}
	if gp.RoundNumber != nil {
		s.RoundNumber = *gp.RoundNumber
	}
	if gp.DrawPileLen != nil {
		s.DrawPileLen = *gp.DrawPileLen
	}
	if gp.DiscardTop != nil {
		s.DiscardTop = copyIntPtr(gp.DiscardTop.Value)
	}
	if gp.SelectedCardValue != nil {
		s.SelectedCardValue = copyIntPtr(gp.SelectedCardValue.Value)
	}
	if gp.FirstToFinishPlayerID != nil {
		if gp.FirstToFinishPlayerID.Value == nil {
			s.FirstToFinishPlayerID = nil
		} else {
			id := *gp.FirstToFinishPlayerID.Value
			s.FirstToFinishPlayerID = &id
		}
	}
	if gp.UpdatedAt != nil {
		s.UpdatedAt = *gp.UpdatedAt
	}
}

func applySettingsPatch(s *models.SettingsSnapshot, sp *SettingsPatch) {
	if sp.Private != nil {
		s.Private = *sp.Private
	}
	if sp.MaxPlayers != nil {
		s.MaxPlayers = *sp.MaxPlayers
	}
	if sp.AllowColumnClear != nil {
		s.AllowColumnClear = *sp.AllowColumnClear
	}
	if sp.AllowRowClear != nil {
		s.AllowRowClear = *sp.AllowRowClear
	}
	if sp.InitialTurnedCount != nil {
		s.InitialTurnedCount = *sp.InitialTurnedCount
	}
	if sp.CardPerRow != nil {
		s.CardPerRow = *sp.CardPerRow
	}
	if sp.CardPerColumn != nil {
		s.CardPerColumn = *sp.CardPerColumn
	}
	if sp.ScoreToEndGame != nil {
		s.ScoreToEndGame = *sp.ScoreToEndGame
	}
	if sp.FirstPlayerPenaltyType != nil {
		s.FirstPlayerPenaltyType = *sp.FirstPlayerPenaltyType
	}
	if sp.FirstPlayerMultiplier != nil {
		s.FirstPlayerMultiplier = *sp.FirstPlayerMultiplier
	}
	if sp.FirstPlayerFlatPenalty != nil {
		s.FirstPlayerFlatPenalty = *sp.FirstPlayerFlatPenalty
	}
	if sp.Confirmed != nil {
		s.Confirmed = *sp.Confirmed
	}
}

func applyPlayerPatch(p *models.PlayerSnapshot, pp *PlayerPatch) {
	if pp.Name != nil {
		p.Name = *pp.Name
	}
	if pp.Avatar != nil {
		p.Avatar = *pp.Avatar
	}
	if pp.SocketID != nil {
		p.SocketID = *pp.SocketID
	}
	if pp.ConnectionStatus != nil {
		p.ConnectionStatus = *pp.ConnectionStatus
	}
	if pp.Cards != nil {
		p.Cards = cloneCards(*pp.Cards)
	}
	if pp.Score != nil {
		p.Score = *pp.Score
	}
	if pp.Scores != nil {
		p.Scores = cloneScores(*pp.Scores)
	}
	if pp.WantsReplay != nil {
		p.WantsReplay = *pp.WantsReplay
	}
	if pp.HasPlayedLastTurn != nil {
		p.HasPlayedLastTurn = *pp.HasPlayedLastTurn
	}
}

func cloneSnapshot(s *models.GameSnapshot) *models.GameSnapshot {
	next := *s
	next.Players = make([]models.PlayerSnapshot, len(s.Players))
	for i := range s.Players {
		next.Players[i] = clonePlayer(s.Players[i])
	}
	next.DiscardTop = copyIntPtr(s.DiscardTop)
	next.SelectedCardValue = copyIntPtr(s.SelectedCardValue)
	if s.FirstToFinishPlayerID != nil {
		id := *s.FirstToFinishPlayerID
		next.FirstToFinishPlayerID = &id
	}
	return &next
}

func clonePlayer(p models.PlayerSnapshot) models.PlayerSnapshot {
	next := p
	next.Cards = cloneCards(p.Cards)
	next.Scores = cloneScores(p.Scores)
	return next
}

func cloneCards(cards [][]models.CardSnapshot) [][]models.CardSnapshot {
	if cards == nil {
		return nil
	}
	next := make([][]models.CardSnapshot, len(cards))
	for i, col := range cards {
		next[i] = make([]models.CardSnapshot, len(col))
		for j, c := range col {
			next[i][j] = c
			next[i][j].Value = copyIntPtr(c.Value)
		}
	}
	return next
}

func cloneScores(scores []*int) []*int {
	if scores == nil {
		return nil
	}
	next := make([]*int, len(scores))
	for i, s := range scores {
		next[i] = copyIntPtr(s)
	}
	return next
}

func copyIntPtr(v *int) *int {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}
