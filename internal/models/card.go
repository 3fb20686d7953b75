package models

import "github.com/google/uuid"

// CardValueMin and CardValueMax bound the card values in the deck.
const (
	CardValueMin = -2
	CardValueMax = 12
)

// Card is a single cell of a player's grid. Value stays hidden from other
// clients until IsVisible flips; the server always knows it.
type Card struct {
	ID        uuid.UUID `json:"id"`
	Value     int       `json:"value"`
	IsVisible bool      `json:"isVisible"`
}

// NewCard builds a face-down card with a fresh id.
func NewCard(value int) Card {
	id, _ := uuid.NewRandom()
	return Card{ID: id, Value: value, IsVisible: false}
}

// CardSnapshot is the wire shape of a card. Value is omitted while the card
// is face down so the payload never leaks hidden information.
type CardSnapshot struct {
	ID        uuid.UUID `json:"id"`
	Value     *int      `json:"value,omitempty"`
	IsVisible bool      `json:"isVisible"`
}

// ToSnapshot obfuscates the card for broadcast.
func (c Card) ToSnapshot() CardSnapshot {
	snap := CardSnapshot{ID: c.ID, IsVisible: c.IsVisible}
	if c.IsVisible {
		v := c.Value
		snap.Value = &v
	}
	return snap
}
