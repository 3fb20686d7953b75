package models

import "fmt"

// PenaltyType selects how the first-finisher penalty is computed at the end
// of a round.
type PenaltyType string

const (
	PenaltyMultiplierOnly     PenaltyType = "multiplier-only"
	PenaltyFlatOnly           PenaltyType = "flat-only"
	PenaltyFlatThenMultiplier PenaltyType = "flat-then-multiplier"
	PenaltyMultiplierThenFlat PenaltyType = "multiplier-then-flat"
)

// Settings captures the per-game rule configuration chosen in the lobby.
//
// Grid geometry: CardPerColumn is the number of columns in each player's
// grid and CardPerRow is the number of cards stacked in each column, so a
// grid holds CardPerRow x CardPerColumn cards.
type Settings struct {
	Private                bool        `json:"private"`
	MaxPlayers             int         `json:"maxPlayers"`
	AllowColumnClear       bool        `json:"allowColumnClear"`
	AllowRowClear          bool        `json:"allowRowClear"`
	InitialTurnedCount     int         `json:"initialTurnedCount"`
	CardPerRow             int         `json:"cardPerRow"`
	CardPerColumn          int         `json:"cardPerColumn"`
	ScoreToEndGame         int         `json:"scoreToEndGame"`
	FirstPlayerPenaltyType PenaltyType `json:"firstPlayerPenaltyType"`
	FirstPlayerMultiplier  int         `json:"firstPlayerMultiplierPenalty"`
	FirstPlayerFlatPenalty int         `json:"firstPlayerFlatPenalty"`

	// Confirmed locks a public game's settings once the admin commits them;
	// further edits require resetting first.
	Confirmed bool `json:"isConfirmed"`
}

// DefaultSettings mirrors the physical game: 4 columns of 3 cards, 2 initial
// reveals, game over at 100 points, score doubled for a first finisher that
// nobody beat.
func DefaultSettings() Settings {
	return Settings{
		Private:                false,
		MaxPlayers:             8,
		AllowColumnClear:       true,
		AllowRowClear:          false,
		InitialTurnedCount:     2,
		CardPerRow:             3,
		CardPerColumn:          4,
		ScoreToEndGame:         100,
		FirstPlayerPenaltyType: PenaltyMultiplierOnly,
		FirstPlayerMultiplier:  2,
		FirstPlayerFlatPenalty: 10,
	}
}

// Validate enforces the structural invariants on the settings.
func (s Settings) Validate() error {
	if s.MaxPlayers < 2 {
		return fmt.Errorf("maxPlayers must be at least 2, got %d", s.MaxPlayers)
	}
	if s.CardPerRow < 1 || s.CardPerColumn < 1 {
		return fmt.Errorf("grid dimensions must be positive, got %dx%d", s.CardPerRow, s.CardPerColumn)
	}
	if s.CardPerRow == 1 && s.CardPerColumn == 1 {
		return fmt.Errorf("grid dimensions cannot both be 1")
	}
	if s.InitialTurnedCount < 0 || s.InitialTurnedCount >= s.CardPerRow*s.CardPerColumn {
		return fmt.Errorf("initialTurnedCount %d must be below the grid size %d", s.InitialTurnedCount, s.CardPerRow*s.CardPerColumn)
	}
	if s.ScoreToEndGame <= 0 {
		return fmt.Errorf("scoreToEndGame must be positive, got %d", s.ScoreToEndGame)
	}
	switch s.FirstPlayerPenaltyType {
	case PenaltyMultiplierOnly, PenaltyFlatOnly, PenaltyFlatThenMultiplier, PenaltyMultiplierThenFlat:
	default:
		return fmt.Errorf("unknown penalty type %q", s.FirstPlayerPenaltyType)
	}
	return nil
}

// SettingsSnapshot is the wire shape of the settings; it is identical to the
// in-memory representation, which contains no hidden information.
type SettingsSnapshot = Settings
