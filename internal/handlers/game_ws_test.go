// internal/handlers/game_ws_test.go
package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/skygrid/skygrid/internal/gameerr"
	"github.com/skygrid/skygrid/internal/models"
)

func TestCheckStateVersion(t *testing.T) {
	g := &models.Game{StateVersion: 5}

	assert.ErrorIs(t, checkStateVersion(g, nil), gameerr.ErrStateVersionNull)

	behind := 4
	assert.ErrorIs(t, checkStateVersion(g, &behind), gameerr.ErrStateVersionBehind)

	ahead := 6
	assert.ErrorIs(t, checkStateVersion(g, &ahead), gameerr.ErrStateVersionAhead)

	current := 5
	assert.NoError(t, checkStateVersion(g, &current))
}

func TestExtractCookieToken(t *testing.T) {
	assert.Equal(t, "abc123", extractCookieToken("session=abc123", "session"))
	assert.Equal(t, "abc123", extractCookieToken("theme=dark; session=abc123; lang=en", "session"))
	assert.Equal(t, "", extractCookieToken("theme=dark", "session"))
	assert.Equal(t, "", extractCookieToken("", "session"))
	assert.Equal(t, "", extractCookieToken("sessionx=abc123", "session"), "name must match exactly")
}

func TestCellRequiresBothCoordinates(t *testing.T) {
	col, row := 2, 1

	_, _, err := cell(&gameMessage{Column: &col})
	assert.ErrorIs(t, err, gameerr.ErrNotAllowed)

	_, _, err = cell(&gameMessage{Row: &row})
	assert.ErrorIs(t, err, gameerr.ErrNotAllowed)

	c, r, err := cell(&gameMessage{Column: &col, Row: &row})
	assert.NoError(t, err)
	assert.Equal(t, 2, c)
	assert.Equal(t, 1, r)
}
