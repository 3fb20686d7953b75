// internal/game/settings.go
package game

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/skygrid/skygrid/internal/gameerr"
	"github.com/skygrid/skygrid/internal/models"
)

// canEditSettings gates settings mutations: admin only, lobby only, and not
// after a public game's settings were confirmed.
func canEditSettings(g *models.Game, playerID uuid.UUID) error {
	if g.GetPlayer(playerID) == nil {
		return gameerr.ErrPlayerNotFound
	}
	if playerID != g.AdminID {
		return gameerr.ErrNotAllowed
	}
	if g.Status != models.GameLobby {
		return gameerr.ErrGameAlreadyStarted
	}
	return nil
}

// UpdateSettings replaces the whole settings block in one bulk edit.
func UpdateSettings(g *models.Game, playerID uuid.UUID, s models.Settings) error {
	if err := canEditSettings(g, playerID); err != nil {
		return err
	}
	if g.Settings.Confirmed && !s.Confirmed {
		return gameerr.ErrNotAllowed
	}
	if err := s.Validate(); err != nil {
		return fmt.Errorf("%w: %v", gameerr.ErrNotAllowed, err)
	}
	g.Settings = s
	return nil
}

// UpdateSetting applies a single keyed edit, the way lobby clients send
// individual toggles. Unknown keys and mismatched value types are rejected.
// JSON numbers arrive as float64.
func UpdateSetting(g *models.Game, playerID uuid.UUID, key string, value interface{}) error {
	if err := canEditSettings(g, playerID); err != nil {
		return err
	}
	if g.Settings.Confirmed && key != "isConfirmed" {
		return gameerr.ErrNotAllowed
	}

	next := g.Settings
	assignBool := func(field *bool) error {
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("%w: invalid type for %s", gameerr.ErrNotAllowed, key)
		}
		*field = b
		return nil
	}
	assignInt := func(field *int) error {
		switch v := value.(type) {
		case float64:
			*field = int(v)
		case int:
			*field = v
		default:
			return fmt.Errorf("%w: invalid type for %s", gameerr.ErrNotAllowed, key)
		}
		return nil
	}

	var err error
	switch key {
	case "private":
		err = assignBool(&next.Private)
	case "maxPlayers":
		err = assignInt(&next.MaxPlayers)
	case "allowColumnClear":
		err = assignBool(&next.AllowColumnClear)
	case "allowRowClear":
		err = assignBool(&next.AllowRowClear)
	case "initialTurnedCount":
		err = assignInt(&next.InitialTurnedCount)
	case "cardPerRow":
		err = assignInt(&next.CardPerRow)
	case "cardPerColumn":
		err = assignInt(&next.CardPerColumn)
	case "scoreToEndGame":
		err = assignInt(&next.ScoreToEndGame)
	case "firstPlayerPenaltyType":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: invalid type for %s", gameerr.ErrNotAllowed, key)
		}
		next.FirstPlayerPenaltyType = models.PenaltyType(s)
	case "firstPlayerMultiplierPenalty":
		err = assignInt(&next.FirstPlayerMultiplier)
	case "firstPlayerFlatPenalty":
		err = assignInt(&next.FirstPlayerFlatPenalty)
	case "isConfirmed":
		err = assignBool(&next.Confirmed)
	default:
		return fmt.Errorf("%w: unknown setting %q", gameerr.ErrNotAllowed, key)
	}
	if err != nil {
		return err
	}
	if next.MaxPlayers < len(g.Players) {
		return gameerr.ErrNotAllowed
	}
	if err := next.Validate(); err != nil {
		return fmt.Errorf("%w: %v", gameerr.ErrNotAllowed, err)
	}
	g.Settings = next
	return nil
}

// ResetSettings restores the defaults, keeping the seat capacity so nobody
// already in the lobby gets orphaned.
func ResetSettings(g *models.Game, playerID uuid.UUID) error {
	if err := canEditSettings(g, playerID); err != nil {
		return err
	}
	maxPlayers := g.Settings.MaxPlayers
	g.Settings = models.DefaultSettings()
	g.Settings.MaxPlayers = maxPlayers
	return nil
}
