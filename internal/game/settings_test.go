// internal/game/settings_test.go
package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skygrid/skygrid/internal/gameerr"
	"github.com/skygrid/skygrid/internal/models"
)

func TestUpdateSettingsAdminLobbyOnly(t *testing.T) {
	g, players := setupLobby(t, 2, models.DefaultSettings())

	edited := models.DefaultSettings()
	edited.ScoreToEndGame = 50

	assert.ErrorIs(t, UpdateSettings(g, players[1].ID, edited), gameerr.ErrNotAllowed)
	require.NoError(t, UpdateSettings(g, players[0].ID, edited))
	assert.Equal(t, 50, g.Settings.ScoreToEndGame)

	require.NoError(t, Start(g, players[0].ID))
	assert.ErrorIs(t, UpdateSettings(g, players[0].ID, edited), gameerr.ErrGameAlreadyStarted)
}

func TestUpdateSettingsRejectsInvalid(t *testing.T) {
	g, players := setupLobby(t, 2, models.DefaultSettings())

	bad := models.DefaultSettings()
	bad.InitialTurnedCount = 12 // equals the grid size
	assert.ErrorIs(t, UpdateSettings(g, players[0].ID, bad), gameerr.ErrNotAllowed)
}

func TestUpdateSingleSetting(t *testing.T) {
	g, players := setupLobby(t, 3, models.DefaultSettings())
	admin := players[0].ID

	// JSON numbers arrive as float64.
	require.NoError(t, UpdateSetting(g, admin, "maxPlayers", float64(4)))
	assert.Equal(t, 4, g.Settings.MaxPlayers)

	require.NoError(t, UpdateSetting(g, admin, "allowRowClear", true))
	assert.True(t, g.Settings.AllowRowClear)

	require.NoError(t, UpdateSetting(g, admin, "firstPlayerPenaltyType", "flat-only"))
	assert.Equal(t, models.PenaltyFlatOnly, g.Settings.FirstPlayerPenaltyType)

	assert.ErrorIs(t, UpdateSetting(g, admin, "maxPlayers", float64(2)), gameerr.ErrNotAllowed,
		"cannot shrink below the seats already taken")
	assert.ErrorIs(t, UpdateSetting(g, admin, "maxPlayers", "four"), gameerr.ErrNotAllowed)
	assert.ErrorIs(t, UpdateSetting(g, admin, "unknownKey", 1), gameerr.ErrNotAllowed)
}

func TestConfirmedSettingsAreLocked(t *testing.T) {
	g, players := setupLobby(t, 2, models.DefaultSettings())
	admin := players[0].ID

	require.NoError(t, UpdateSetting(g, admin, "isConfirmed", true))
	assert.True(t, g.Settings.Confirmed)

	assert.ErrorIs(t, UpdateSetting(g, admin, "scoreToEndGame", float64(50)), gameerr.ErrNotAllowed)

	// Unconfirming reopens editing.
	require.NoError(t, UpdateSetting(g, admin, "isConfirmed", false))
	require.NoError(t, UpdateSetting(g, admin, "scoreToEndGame", float64(50)))
	assert.Equal(t, 50, g.Settings.ScoreToEndGame)
}

func TestResetSettingsKeepsCapacity(t *testing.T) {
	settings := models.DefaultSettings()
	settings.MaxPlayers = 4
	settings.ScoreToEndGame = 50
	g, players := setupLobby(t, 2, settings)

	require.NoError(t, ResetSettings(g, players[0].ID))
	assert.Equal(t, 4, g.Settings.MaxPlayers)
	assert.Equal(t, models.DefaultSettings().ScoreToEndGame, g.Settings.ScoreToEndGame)
}
