// internal/statesync/diff.go
package statesync

import (
	"reflect"

	"github.com/google/uuid"

	"github.com/skygrid/skygrid/internal/models"
)

// Diff computes the minimal operation set turning prev into curr. It returns
// nil when nothing observable changed; a non-nil result always carries a game
// patch with StateVersion = prev.StateVersion + 1, which the caller must
// write back to the live game before broadcasting.
//
// Player additions and removals are a true id-based set difference, so one
// diff window may carry both a removal and an addition.
func Diff(prev, curr *models.GameSnapshot) *Operation {
	gp := diffGame(prev, curr)
	sp := diffSettings(&prev.Settings, &curr.Settings)
	add, upd, rem := diffPlayers(prev.Players, curr.Players)

	if gp == nil && sp == nil && len(add) == 0 && len(upd) == 0 && len(rem) == 0 {
		return nil
	}
	if gp == nil {
		gp = &GamePatch{}
	}
	gp.StateVersion = prev.StateVersion + 1
	return &Operation{
		Game:          gp,
		Settings:      sp,
		AddPlayers:    add,
		UpdatePlayers: upd,
		RemovePlayers: rem,
	}
}

func diffGame(prev, curr *models.GameSnapshot) *GamePatch {
	gp := &GamePatch{}
	changed := false

	if prev.AdminID != curr.AdminID {
		v := curr.AdminID
		gp.AdminID = &v
		changed = true
	}
	if prev.IsFull != curr.IsFull {
		v := curr.IsFull
		gp.IsFull = &v
		changed = true
	}
	if prev.Status != curr.Status {
		v := curr.Status
		gp.Status = &v
		changed = true
	}
	if prev.Turn != curr.Turn {
		v := curr.Turn
		gp.Turn = &v
		changed = true
	}
	if prev.TurnStatus != curr.TurnStatus {
		v := curr.TurnStatus
		gp.TurnStatus = &v
		changed = true
	}
	if prev.LastTurnStatus != curr.LastTurnStatus {
		v := curr.LastTurnStatus
		gp.LastTurnStatus = &v
		changed = true
	}
	if prev.RoundStatus != curr.RoundStatus {
		v := curr.RoundStatus
		gp.RoundStatus = &v
		changed = true
	}
	if prev.RoundNumber != curr.RoundNumber {
		v := curr.RoundNumber
		gp.RoundNumber = &v
		changed = true
	}
	if prev.DrawPileLen != curr.DrawPileLen {
		v := curr.DrawPileLen
		gp.DrawPileLen = &v
		changed = true
	}
	if !intPtrEqual(prev.DiscardTop, curr.DiscardTop) {
		gp.DiscardTop = opt(curr.DiscardTop)
		changed = true
	}
	if !intPtrEqual(prev.SelectedCardValue, curr.SelectedCardValue) {
		gp.SelectedCardValue = opt(curr.SelectedCardValue)
		changed = true
	}
	if !uuidPtrEqual(prev.FirstToFinishPlayerID, curr.FirstToFinishPlayerID) {
		gp.FirstToFinishPlayerID = opt(curr.FirstToFinishPlayerID)
		changed = true
	}
	if !prev.UpdatedAt.Equal(curr.UpdatedAt) {
		v := curr.UpdatedAt
		gp.UpdatedAt = &v
		changed = true
	}

	if !changed {
		return nil
	}
	return gp
}

func diffSettings(prev, curr *models.SettingsSnapshot) *SettingsPatch {
	sp := &SettingsPatch{}
	changed := false

	if prev.Private != curr.Private {
		v := curr.Private
		sp.Private = &v
		changed = true
	}
	if prev.MaxPlayers != curr.MaxPlayers {
		v := curr.MaxPlayers
		sp.MaxPlayers = &v
		changed = true
	}
	if prev.AllowColumnClear != curr.AllowColumnClear {
		v := curr.AllowColumnClear
		sp.AllowColumnClear = &v
		changed = true
	}
	if prev.AllowRowClear != curr.AllowRowClear {
		v := curr.AllowRowClear
		sp.AllowRowClear = &v
		changed = true
	}
	if prev.InitialTurnedCount != curr.InitialTurnedCount {
		v := curr.InitialTurnedCount
		sp.InitialTurnedCount = &v
		changed = true
	}
	if prev.CardPerRow != curr.CardPerRow {
		v := curr.CardPerRow
		sp.CardPerRow = &v
		changed = true
	}
	if prev.CardPerColumn != curr.CardPerColumn {
		v := curr.CardPerColumn
		sp.CardPerColumn = &v
		changed = true
	}
	if prev.ScoreToEndGame != curr.ScoreToEndGame {
		v := curr.ScoreToEndGame
		sp.ScoreToEndGame = &v
		changed = true
	}
	if prev.FirstPlayerPenaltyType != curr.FirstPlayerPenaltyType {
		v := curr.FirstPlayerPenaltyType
		sp.FirstPlayerPenaltyType = &v
		changed = true
	}
	if prev.FirstPlayerMultiplier != curr.FirstPlayerMultiplier {
		v := curr.FirstPlayerMultiplier
		sp.FirstPlayerMultiplier = &v
		changed = true
	}
	if prev.FirstPlayerFlatPenalty != curr.FirstPlayerFlatPenalty {
		v := curr.FirstPlayerFlatPenalty
		sp.FirstPlayerFlatPenalty = &v
		changed = true
	}
	if prev.Confirmed != curr.Confirmed {
		v := curr.Confirmed
		sp.Confirmed = &v
		changed = true
	}

	if !changed {
		return nil
	}
	return sp
}

func diffPlayers(prev, curr []models.PlayerSnapshot) (add []models.PlayerSnapshot, upd []PlayerPatch, rem []uuid.UUID) {
	prevByID := make(map[uuid.UUID]*models.PlayerSnapshot, len(prev))
	for i := range prev {
		prevByID[prev[i].ID] = &prev[i]
	}
	currIDs := make(map[uuid.UUID]bool, len(curr))
	for i := range curr {
		currIDs[curr[i].ID] = true
	}

	for i := range prev {
		if !currIDs[prev[i].ID] {
			rem = append(rem, prev[i].ID)
		}
	}
	for i := range curr {
		old, known := prevByID[curr[i].ID]
		if !known {
			add = append(add, clonePlayer(curr[i]))
			continue
		}
		if patch := diffPlayer(old, &curr[i]); patch != nil {
			upd = append(upd, *patch)
		}
	}
	return add, upd, rem
}

func diffPlayer(prev, curr *models.PlayerSnapshot) *PlayerPatch {
	pp := &PlayerPatch{ID: curr.ID}
	changed := false

	if prev.Name != curr.Name {
		v := curr.Name
		pp.Name = &v
		changed = true
	}
	if prev.Avatar != curr.Avatar {
		v := curr.Avatar
		pp.Avatar = &v
		changed = true
	}
	if prev.SocketID != curr.SocketID {
		v := curr.SocketID
		pp.SocketID = &v
		changed = true
	}
	if prev.ConnectionStatus != curr.ConnectionStatus {
		v := curr.ConnectionStatus
		pp.ConnectionStatus = &v
		changed = true
	}
	// Grids and score histories need structural comparison: cards flip in
	// place and whole lines disappear.
	if !reflect.DeepEqual(prev.Cards, curr.Cards) {
		v := cloneCards(curr.Cards)
		pp.Cards = &v
		changed = true
	}
	if prev.Score != curr.Score {
		v := curr.Score
		pp.Score = &v
		changed = true
	}
	if !reflect.DeepEqual(prev.Scores, curr.Scores) {
		v := cloneScores(curr.Scores)
		pp.Scores = &v
		changed = true
	}
	if prev.WantsReplay != curr.WantsReplay {
		v := curr.WantsReplay
		pp.WantsReplay = &v
		changed = true
	}
	if prev.HasPlayedLastTurn != curr.HasPlayedLastTurn {
		v := curr.HasPlayedLastTurn
		pp.HasPlayedLastTurn = &v
		changed = true
	}

	if !changed {
		return nil
	}
	return pp
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func uuidPtrEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
