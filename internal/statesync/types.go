// internal/statesync/types.go
//
// Package statesync computes minimal operation sets between two snapshots of
// a game and replays them on the consumer side. A non-empty operation always
// carries the next state version; clients use the version sequence to detect
// missed or out-of-order updates and fall back to a full snapshot.
package statesync

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/skygrid/skygrid/internal/models"
)

// Optional distinguishes "field unchanged" (nil *Optional in a patch) from
// "field changed to null" (an Optional holding a nil Value). Plain pointer
// fields cannot express the second case.
type Optional[T any] struct {
	Value *T
}

// MarshalJSON emits the wrapped value, or null.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.Value)
}

// UnmarshalJSON reads the wrapped value, or null.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &o.Value)
}

func opt[T any](v *T) *Optional[T] {
	if v == nil {
		return &Optional[T]{}
	}
	cp := *v
	return &Optional[T]{Value: &cp}
}

// GamePatch carries the changed top-level scalar fields of a game snapshot.
// StateVersion is always present on a non-empty operation.
type GamePatch struct {
	StateVersion          int                       `json:"stateVersion"`
	AdminID               *uuid.UUID                `json:"adminId,omitempty"`
	IsFull                *bool                     `json:"isFull,omitempty"`
	Status                *models.GameStatus        `json:"status,omitempty"`
	Turn                  *int                      `json:"turn,omitempty"`
	TurnStatus            *models.TurnStatus        `json:"turnStatus,omitempty"`
	LastTurnStatus        *models.TurnStatus        `json:"lastTurnStatus,omitempty"`
	RoundStatus           *models.RoundStatus       `json:"roundStatus,omitempty"`
	RoundNumber           *int                      `json:"roundNumber,omitempty"`
	DrawPileLen           *int                      `json:"drawPileLen,omitempty"`
	DiscardTop            *Optional[int]            `json:"discardTop,omitempty"`
	SelectedCardValue     *Optional[int]            `json:"selectedCardValue,omitempty"`
	FirstToFinishPlayerID *Optional[uuid.UUID]      `json:"firstToFinishPlayerId,omitempty"`
	UpdatedAt             *time.Time                `json:"updatedAt,omitempty"`
}

// SettingsPatch carries the changed settings fields.
type SettingsPatch struct {
	Private                *bool               `json:"private,omitempty"`
	MaxPlayers             *int                `json:"maxPlayers,omitempty"`
	AllowColumnClear       *bool               `json:"allowColumnClear,omitempty"`
	AllowRowClear          *bool               `json:"allowRowClear,omitempty"`
	InitialTurnedCount     *int                `json:"initialTurnedCount,omitempty"`
	CardPerRow             *int                `json:"cardPerRow,omitempty"`
	CardPerColumn          *int                `json:"cardPerColumn,omitempty"`
	ScoreToEndGame         *int                `json:"scoreToEndGame,omitempty"`
	FirstPlayerPenaltyType *models.PenaltyType `json:"firstPlayerPenaltyType,omitempty"`
	FirstPlayerMultiplier  *int                `json:"firstPlayerMultiplierPenalty,omitempty"`
	FirstPlayerFlatPenalty *int                `json:"firstPlayerFlatPenalty,omitempty"`
	Confirmed              *bool               `json:"isConfirmed,omitempty"`
}

// PlayerPatch carries the changed fields of one player, keyed by id.
type PlayerPatch struct {
	ID                uuid.UUID                `json:"id"`
	Name              *string                  `json:"name,omitempty"`
	Avatar            *string                  `json:"avatar,omitempty"`
	SocketID          *string                  `json:"socketId,omitempty"`
	ConnectionStatus  *models.ConnectionStatus `json:"connectionStatus,omitempty"`
	Cards             *[][]models.CardSnapshot `json:"cards,omitempty"`
	Score             *int                     `json:"score,omitempty"`
	Scores            *[]*int                  `json:"scores,omitempty"`
	WantsReplay       *bool                    `json:"wantsReplay,omitempty"`
	HasPlayedLastTurn *bool                    `json:"hasPlayedLastTurn,omitempty"`
}

// Operation is the wire shape of one incremental update.
type Operation struct {
	Game          *GamePatch              `json:"game,omitempty"`
	Settings      *SettingsPatch          `json:"settings,omitempty"`
	AddPlayers    []models.PlayerSnapshot `json:"addPlayers,omitempty"`
	UpdatePlayers []PlayerPatch           `json:"updatePlayers,omitempty"`
	RemovePlayers []uuid.UUID             `json:"removePlayers,omitempty"`
}
