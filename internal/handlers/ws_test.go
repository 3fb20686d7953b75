// internal/handlers/ws_test.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skygrid/skygrid/internal/models"
)

func newWSServer(t *testing.T, gs *GameServer) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	gs.Routes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func dialWS(t *testing.T, ctx context.Context, srv *httptest.Server, code, token string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/game/ws/" + code + "?token=" + token
	c, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{Subprotocols: []string{"game"}})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close(websocket.StatusNormalClosure, "test over") })
	return c
}

func readEvent(t *testing.T, ctx context.Context, c *websocket.Conn) (string, json.RawMessage) {
	t.Helper()
	_, data, err := c.Read(ctx)
	require.NoError(t, err)
	var ev struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev.Type, ev.Payload
}

// The boot snapshot must carry the committed state version: the attach itself
// is one committed change (socket id), so a client playing from the snapshot
// it was handed must not be one version behind the persisted game.
func TestWSBootSnapshotCarriesCommittedVersion(t *testing.T) {
	gs := newTestServer(t)
	srv := newWSServer(t, gs)
	created := createGame(t, gs, `{"name":"alice"}`)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c := dialWS(t, ctx, srv, created.Code, created.Token)

	typ, payload := readEvent(t, ctx, c)
	require.Equal(t, EventSnapshot, typ)
	var snap models.GameSnapshot
	require.NoError(t, json.Unmarshal(payload, &snap))

	persisted, err := gs.Store.Load(ctx, created.Code)
	require.NoError(t, err)
	assert.Equal(t, persisted.StateVersion, snap.StateVersion)
	assert.Equal(t, 1, snap.StateVersion, "the attach was committed before the snapshot was taken")
}

// Consecutive patches reach a client in version order, so the stateVersion
// sequence never forces a spurious resync.
func TestWSPatchesArriveInVersionOrder(t *testing.T) {
	gs := newTestServer(t)
	srv := newWSServer(t, gs)
	created := createGame(t, gs, `{"name":"alice"}`)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c := dialWS(t, ctx, srv, created.Code, created.Token)

	typ, _ := readEvent(t, ctx, c)
	require.Equal(t, EventSnapshot, typ)

	const edits = 5
	for i := 0; i < edits; i++ {
		require.NoError(t, gs.WithGame(ctx, created.Code, func(g *models.Game) error {
			g.Settings.ScoreToEndGame++
			return nil
		}))
	}

	// The attach committed version 1, so the edits broadcast 2..edits+1.
	for i := 0; i < edits; i++ {
		typ, payload := readEvent(t, ctx, c)
		require.Equal(t, EventPatch, typ)
		var op struct {
			Game struct {
				StateVersion int `json:"stateVersion"`
			} `json:"game"`
		}
		require.NoError(t, json.Unmarshal(payload, &op))
		assert.Equal(t, 2+i, op.Game.StateVersion)
	}
}
