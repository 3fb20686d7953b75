package models

import "github.com/google/uuid"

// ConnectionStatus tracks where a player sits in the disconnect/reconnect
// lifecycle. Transitions are owned by the connection manager; the engine only
// reads the status to decide turn order and scoring eligibility.
type ConnectionStatus string

const (
	ConnectionConnected ConnectionStatus = "connected"
	// ConnectionLost means the transport dropped (ping timeout etc.) and a
	// short grace timer is running.
	ConnectionLost ConnectionStatus = "connection-lost"
	// ConnectionLeave means the player left voluntarily; a longer grace timer
	// is running in case they change their mind mid-round.
	ConnectionLeave ConnectionStatus = "leave"
	// ConnectionDisconnected is terminal: the grace period elapsed. The seat
	// is kept while a round is in progress and dropped otherwise.
	ConnectionDisconnected ConnectionStatus = "disconnected"
)

// Player is one seat in a game. Cards is a grid of columns: Cards[col][row],
// with len(Cards) == Settings.CardPerColumn columns of Settings.CardPerRow
// cards each. Columns and rows are removed outright when cleared, so the grid
// shrinks over the course of a round.
//
// Scores is the per-round history; a nil entry is the "did not finish"
// sentinel for rounds the player was disconnected from.
//
// The disconnection grace timer associated with a player is deliberately NOT
// stored here; it lives in the connection manager, keyed by player id.
type Player struct {
	ID                uuid.UUID        `json:"id"`
	Name              string           `json:"name"`
	Avatar            string           `json:"avatar"`
	SocketID          string           `json:"socketId"`
	ConnectionStatus  ConnectionStatus `json:"connectionStatus"`
	Cards             [][]Card         `json:"cards"`
	Score             int              `json:"score"`
	Scores            []*int           `json:"scores"`
	WantsReplay       bool             `json:"wantsReplay"`
	HasPlayedLastTurn bool             `json:"hasPlayedLastTurn"`
}

// NewPlayer builds a connected player with no cards dealt yet.
func NewPlayer(name, avatar, socketID string) *Player {
	id, _ := uuid.NewRandom()
	return &Player{
		ID:               id,
		Name:             name,
		Avatar:           avatar,
		SocketID:         socketID,
		ConnectionStatus: ConnectionConnected,
	}
}

// IsConnected reports whether the player currently holds a live session.
func (p *Player) IsConnected() bool {
	return p.ConnectionStatus == ConnectionConnected
}

// CountsForRound reports whether the player's round result is recorded as a
// number rather than the did-not-finish sentinel.
func (p *Player) CountsForRound() bool {
	return p.ConnectionStatus != ConnectionDisconnected
}

// VisibleCount returns how many of the player's cards are face up.
func (p *Player) VisibleCount() int {
	n := 0
	for _, col := range p.Cards {
		for _, c := range col {
			if c.IsVisible {
				n++
			}
		}
	}
	return n
}

// HasRevealedAll reports whether every remaining cell is face up. An empty
// grid (everything cleared) counts as fully revealed.
func (p *Player) HasRevealedAll() bool {
	for _, col := range p.Cards {
		for _, c := range col {
			if !c.IsVisible {
				return false
			}
		}
	}
	return true
}

// RevealedSum returns the sum of all face-up card values.
func (p *Player) RevealedSum() int {
	sum := 0
	for _, col := range p.Cards {
		for _, c := range col {
			if c.IsVisible {
				sum += c.Value
			}
		}
	}
	return sum
}

// HighestRevealed returns the highest face-up card value, used as the
// tie-breaker when choosing the starting player.
func (p *Player) HighestRevealed() int {
	highest := CardValueMin - 1
	for _, col := range p.Cards {
		for _, c := range col {
			if c.IsVisible && c.Value > highest {
				highest = c.Value
			}
		}
	}
	return highest
}

// GridSum returns the sum of every card value, face up or not. Used for
// end-of-round scoring, when visibility no longer matters.
func (p *Player) GridSum() int {
	sum := 0
	for _, col := range p.Cards {
		for _, c := range col {
			sum += c.Value
		}
	}
	return sum
}

// PlayerSnapshot is the wire shape of a player.
type PlayerSnapshot struct {
	ID                uuid.UUID        `json:"id"`
	Name              string           `json:"name"`
	Avatar            string           `json:"avatar"`
	SocketID          string           `json:"socketId"`
	ConnectionStatus  ConnectionStatus `json:"connectionStatus"`
	Cards             [][]CardSnapshot `json:"cards"`
	Score             int              `json:"score"`
	Scores            []*int           `json:"scores"`
	WantsReplay       bool             `json:"wantsReplay"`
	HasPlayedLastTurn bool             `json:"hasPlayedLastTurn"`
}

// ToSnapshot obfuscates the player's grid for broadcast.
func (p *Player) ToSnapshot() PlayerSnapshot {
	cards := make([][]CardSnapshot, len(p.Cards))
	for i, col := range p.Cards {
		cards[i] = make([]CardSnapshot, len(col))
		for j, c := range col {
			cards[i][j] = c.ToSnapshot()
		}
	}
	scores := make([]*int, len(p.Scores))
	for i, s := range p.Scores {
		if s != nil {
			v := *s
			scores[i] = &v
		}
	}
	return PlayerSnapshot{
		ID:                p.ID,
		Name:              p.Name,
		Avatar:            p.Avatar,
		SocketID:          p.SocketID,
		ConnectionStatus:  p.ConnectionStatus,
		Cards:             cards,
		Score:             p.Score,
		Scores:            scores,
		WantsReplay:       p.WantsReplay,
		HasPlayedLastTurn: p.HasPlayedLastTurn,
	}
}
