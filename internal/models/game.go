package models

import (
	"time"

	"github.com/google/uuid"
)

// GameStatus is the coarse lifecycle of a game.
type GameStatus string

const (
	GameLobby    GameStatus = "lobby"
	GamePlaying  GameStatus = "playing"
	GameFinished GameStatus = "finished"
	// GameStopped marks a game abandoned mid-round because too few players
	// stayed connected.
	GameStopped GameStatus = "stopped"
)

// TurnStatus is the sub-state of the acting player's turn.
type TurnStatus string

const (
	TurnChooseAPile TurnStatus = "chooseAPile"
	// TurnThrowOrReplace follows a draw from the draw pile: the player may
	// throw the card away or replace one of their own with it.
	TurnThrowOrReplace TurnStatus = "throwOrReplace"
	// TurnReplaceACard follows a pick from the discard pile: the card must be
	// placed into the grid.
	TurnReplaceACard TurnStatus = "replaceACard"
	// TurnTurnACard follows throwing a drawn card away: the player must
	// reveal one face-down card instead.
	TurnTurnACard TurnStatus = "turnACard"
)

// RoundStatus is the lifecycle of one round.
type RoundStatus string

const (
	RoundWaitingInitialReveal RoundStatus = "waitingPlayersToTurnInitialCards"
	RoundPlaying              RoundStatus = "playing"
	// RoundLastLap runs once a player has revealed their whole grid; everyone
	// else gets exactly one more turn.
	RoundLastLap RoundStatus = "lastLap"
	RoundOver    RoundStatus = "over"
)

// MinPlayers is the minimum seat count required to start a game.
const MinPlayers = 2

// Game is the canonical, server-owned state of one game. It is a plain data
// record; all rule mutations live in the game package as free functions, and
// the orchestration layer guarantees that at most one of them runs per game
// code at a time.
type Game struct {
	ID      uuid.UUID  `json:"id"`
	Code    string     `json:"code"`
	Status  GameStatus `json:"status"`
	AdminID uuid.UUID  `json:"adminId"`

	Players []*Player `json:"players"`

	Turn           int         `json:"turn"`
	TurnStatus     TurnStatus  `json:"turnStatus"`
	LastTurnStatus TurnStatus  `json:"lastTurnStatus"`
	RoundStatus    RoundStatus `json:"roundStatus"`
	RoundNumber    int         `json:"roundNumber"`

	DrawPile    []int `json:"drawPile"`
	DiscardPile []int `json:"discardPile"`

	SelectedCardValue     *int       `json:"selectedCardValue"`
	FirstToFinishPlayerID *uuid.UUID `json:"firstToFinishPlayerId"`

	Settings Settings `json:"settings"`

	// StateVersion increments by exactly one per broadcast state change. It
	// is bumped by the orchestration layer when the synchronizer reports a
	// non-empty diff, never by the engine.
	StateVersion int `json:"stateVersion"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// GetPlayer returns the player with the given id, or nil.
func (g *Game) GetPlayer(id uuid.UUID) *Player {
	for _, p := range g.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// PlayerIndex returns the seat index of the given player, or -1.
func (g *Game) PlayerIndex(id uuid.UUID) int {
	for i, p := range g.Players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// CurrentPlayer returns the seat whose turn it is, or nil if the index is
// out of range (empty game).
func (g *Game) CurrentPlayer() *Player {
	if g.Turn < 0 || g.Turn >= len(g.Players) {
		return nil
	}
	return g.Players[g.Turn]
}

// ConnectedCount returns the number of players holding a live session.
func (g *Game) ConnectedCount() int {
	n := 0
	for _, p := range g.Players {
		if p.IsConnected() {
			n++
		}
	}
	return n
}

// IsFull reports whether the game reached its seat capacity.
func (g *Game) IsFull() bool {
	return len(g.Players) >= g.Settings.MaxPlayers
}

// IsPlaying reports whether a round is actively in progress: seats must be
// retained on disconnect and votes/turn order matter.
func (g *Game) IsPlaying() bool {
	return g.Status == GamePlaying && g.RoundStatus != RoundOver
}

// DiscardTop returns the top discard value, or nil when the pile is empty.
func (g *Game) DiscardTop() *int {
	if len(g.DiscardPile) == 0 {
		return nil
	}
	v := g.DiscardPile[len(g.DiscardPile)-1]
	return &v
}

// GameSnapshot is the full observable state pushed to clients and diffed by
// the synchronizer. Piles are reduced to a length and a top card; everything
// hidden stays hidden via the player/card snapshots.
type GameSnapshot struct {
	Code                  string           `json:"code"`
	AdminID               uuid.UUID        `json:"adminId"`
	IsFull                bool             `json:"isFull"`
	Status                GameStatus       `json:"status"`
	Players               []PlayerSnapshot `json:"players"`
	Turn                  int              `json:"turn"`
	TurnStatus            TurnStatus       `json:"turnStatus"`
	LastTurnStatus        TurnStatus       `json:"lastTurnStatus"`
	RoundStatus           RoundStatus      `json:"roundStatus"`
	RoundNumber           int              `json:"roundNumber"`
	DrawPileLen           int              `json:"drawPileLen"`
	DiscardTop            *int             `json:"discardTop"`
	SelectedCardValue     *int             `json:"selectedCardValue"`
	FirstToFinishPlayerID *uuid.UUID       `json:"firstToFinishPlayerId"`
	Settings              SettingsSnapshot `json:"settings"`
	StateVersion          int              `json:"stateVersion"`
	UpdatedAt             time.Time        `json:"updatedAt"`
}

// ToSnapshot builds the broadcast view of the game.
func (g *Game) ToSnapshot() *GameSnapshot {
	players := make([]PlayerSnapshot, len(g.Players))
	for i, p := range g.Players {
		players[i] = p.ToSnapshot()
	}
	var selected *int
	if g.SelectedCardValue != nil {
		v := *g.SelectedCardValue
		selected = &v
	}
	var firstToFinish *uuid.UUID
	if g.FirstToFinishPlayerID != nil {
		id := *g.FirstToFinishPlayerID
		firstToFinish = &id
	}
	return &GameSnapshot{
		Code:                  g.Code,
		AdminID:               g.AdminID,
		IsFull:                g.IsFull(),
		Status:                g.Status,
		Players:               players,
		Turn:                  g.Turn,
		TurnStatus:            g.TurnStatus,
		LastTurnStatus:        g.LastTurnStatus,
		RoundStatus:           g.RoundStatus,
		RoundNumber:           g.RoundNumber,
		DrawPileLen:           len(g.DrawPile),
		DiscardTop:            g.DiscardTop(),
		SelectedCardValue:     selected,
		FirstToFinishPlayerID: firstToFinish,
		Settings:              g.Settings,
		StateVersion:          g.StateVersion,
		UpdatedAt:             g.UpdatedAt,
	}
}
