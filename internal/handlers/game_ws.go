// internal/handlers/game_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/skygrid/skygrid/internal/auth"
	"github.com/skygrid/skygrid/internal/game"
	"github.com/skygrid/skygrid/internal/gameerr"
	"github.com/skygrid/skygrid/internal/kick"
	"github.com/skygrid/skygrid/internal/middleware"
	"github.com/skygrid/skygrid/internal/models"
)

// gameMessage is the structure of incoming websocket messages. Play actions
// carry the client's last known stateVersion; grid actions carry a cell.
type gameMessage struct {
	Type         string `json:"type"`
	StateVersion *int   `json:"stateVersion,omitempty"`

	Column *int `json:"column,omitempty"`
	Row    *int `json:"row,omitempty"`

	// Settings updates: either the full settings object or one key/value.
	Settings *models.Settings `json:"settings,omitempty"`
	Key      string           `json:"key,omitempty"`
	Value    interface{}      `json:"value,omitempty"`

	// Kick votes.
	TargetID string `json:"targetId,omitempty"`
	Accept   *bool  `json:"accept,omitempty"`
}

// GameWSHandler upgrades the HTTP connection to a websocket for one game.
// It authenticates the session token, verifies the seat, attaches the
// connection to the room and runs the read loop until the client goes away.
func (gs *GameServer) GameWSHandler(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(strings.TrimPrefix(r.URL.Path, "/game/ws/"))
	if code == "" || strings.Contains(code, "/") {
		http.Error(w, "Missing game code in path (/game/ws/{code})", http.StatusBadRequest)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{"game"},
		OriginPatterns: []string{"*"}, // Adjust for production security.
	})
	if err != nil {
		gs.Logger.Warnf("WebSocket accept error for game %s: %v", code, err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "Internal server error during handler exit.")

	if c.Subprotocol() != "game" {
		gs.Logger.Warnf("Client for game %s connected with invalid subprotocol: %s", code, c.Subprotocol())
		c.Close(websocket.StatusCode(BadSubprotocolError), "Client must use the 'game' subprotocol.")
		return
	}
	middleware.LogWebSocketConnect(gs.Logger, r.RemoteAddr, r.URL.Path)

	playerID, err := gs.authenticateSeat(r, code)
	if err != nil {
		gs.Logger.Warnf("Session authentication failed for game %s: %v", code, err)
		c.Close(websocket.StatusCode(InvalidAuthTokenError), "Authentication failed.")
		return
	}

	// Attach the session to the seat; a fresh socket id supersedes whatever
	// transport session the seat had before.
	socketID := uuid.NewString()
	var attached *models.Game
	err = gs.WithGame(r.Context(), code, func(g *models.Game) error {
		if err := gs.Conn.Reconnect(g, playerID, socketID); err != nil {
			return err
		}
		attached = g
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, gameerr.ErrGameNotFound):
			c.Close(websocket.StatusCode(InvalidGameCodeError), "Game not found.")
		case errors.Is(err, gameerr.ErrCannotReconnect):
			c.Close(websocket.StatusCode(NotAPlayerError), "Seat no longer available.")
		default:
			gs.Logger.Warnf("Failed to attach player %s to game %s: %v", playerID, code, err)
			c.Close(websocket.StatusInternalError, "Could not join game.")
		}
		return
	}

	gs.rooms.register(code, playerID, &session{conn: c, socketID: socketID})
	// attached was committed inside WithGame, so this snapshot carries the
	// post-attach state version the client must play from.
	gs.sendWsMessage(c, snapshotEvent(attached.ToSnapshot()))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	gs.readGameMessages(ctx, c, code, playerID)

	middleware.LogWebSocketDisconnect(gs.Logger, r.RemoteAddr, r.URL.Path, nil)
	gs.rooms.unregister(code, playerID, socketID)

	// The read loop ended without a voluntary leave: treat it as a transport
	// drop, unless this session was already superseded by a reconnect.
	err = gs.WithGame(context.Background(), code, func(g *models.Game) error {
		p := g.GetPlayer(playerID)
		if p == nil || p.SocketID != socketID {
			return nil
		}
		return gs.Conn.MarkConnectionLost(g, playerID)
	})
	if err != nil && !errors.Is(err, gameerr.ErrGameNotFound) {
		gs.Logger.Warnf("Disconnect processing failed for player %s in game %s: %v", playerID, code, err)
	}
}

// authenticateSeat extracts the session token from the query string, the
// Authorization header or the session cookie, and checks it was issued for
// this game.
func (gs *GameServer) authenticateSeat(r *http.Request, code string) (uuid.UUID, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	if token == "" {
		token = extractCookieToken(r.Header.Get("Cookie"), "session")
	}
	if token == "" {
		return uuid.Nil, fmt.Errorf("missing session token")
	}

	playerIDStr, tokenCode, err := auth.AuthenticateSessionToken(token)
	if err != nil {
		return uuid.Nil, err
	}
	if tokenCode != code {
		return uuid.Nil, fmt.Errorf("token was issued for game %s, not %s", tokenCode, code)
	}
	playerID, err := uuid.Parse(playerIDStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("malformed player id in token: %w", err)
	}
	return playerID, nil
}

// readGameMessages continuously reads messages from a client's connection,
// unmarshals them and routes them to the engine through the per-game
// dispatch. It exits on read error, closure or context cancellation.
func (gs *GameServer) readGameMessages(ctx context.Context, c *websocket.Conn, code string, playerID uuid.UUID) {
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				gs.Logger.Infof("WebSocket closed normally for player %s in game %s.", playerID, code)
			} else if strings.Contains(err.Error(), "context canceled") {
				gs.Logger.Infof("WebSocket context canceled for player %s in game %s.", playerID, code)
			} else {
				gs.Logger.Warnf("Error reading from WebSocket for player %s in game %s: %v", playerID, code, err)
			}
			return
		}

		if msgType != websocket.MessageText {
			gs.Logger.Warnf("Received non-text message type %d from player %s in game %s. Ignoring.", msgType, playerID, code)
			continue
		}

		var msg gameMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			gs.Logger.Warnf("Invalid JSON from player %s in game %s: %v. Data: %s", playerID, code, err, string(data))
			gs.sendWsError(c, "Invalid JSON format.")
			continue
		}

		gs.Logger.Debugf("Received action '%s' from player %s in game %s.", msg.Type, playerID, code)

		if msg.Type == MsgPing {
			gs.sendWsMessage(c, wsEvent{Type: EventPong})
			continue
		}
		if msg.Type == MsgLeave {
			gs.handleLeave(code, playerID)
			c.Close(websocket.StatusNormalClosure, "left game")
			return
		}

		gs.handleGameMessage(c, code, playerID, &msg)

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// handleLeave runs the voluntary-leave transition. Leaving a game you are
// not (or no longer) in is idempotent, so GameNotFound is swallowed.
func (gs *GameServer) handleLeave(code string, playerID uuid.UUID) {
	err := gs.WithGame(context.Background(), code, func(g *models.Game) error {
		return gs.Conn.MarkLeave(g, playerID)
	})
	if err != nil && !errors.Is(err, gameerr.ErrGameNotFound) && !errors.Is(err, gameerr.ErrPlayerNotFound) {
		gs.Logger.Warnf("Leave processing failed for player %s in game %s: %v", playerID, code, err)
	}
}

// handleGameMessage routes one message through the engine. Recoverable
// errors (the client racing the authoritative state) answer with an error
// event plus a full snapshot so the client resynchronizes.
func (gs *GameServer) handleGameMessage(c *websocket.Conn, code string, playerID uuid.UUID, msg *gameMessage) {
	var kickSnap kick.Snapshot
	var kickOutcome kick.Outcome
	kickChanged := false

	err := gs.WithGame(context.Background(), code, func(g *models.Game) error {
		switch msg.Type {
		case MsgRevealInitialCard, MsgDrawCard, MsgPickFromDiscard, MsgDiscardCard, MsgReplaceCard, MsgTurnCard:
			if err := checkStateVersion(g, msg.StateVersion); err != nil {
				return err
			}
		}

		switch msg.Type {
		case MsgRevealInitialCard:
			col, row, err := cell(msg)
			if err != nil {
				return err
			}
			return game.RevealInitialCard(g, playerID, col, row)
		case MsgDrawCard:
			return game.DrawCard(g, playerID)
		case MsgPickFromDiscard:
			return game.PickFromDiscard(g, playerID)
		case MsgDiscardCard:
			return game.DiscardCard(g, playerID)
		case MsgReplaceCard:
			col, row, err := cell(msg)
			if err != nil {
				return err
			}
			return game.ReplaceCard(g, playerID, col, row)
		case MsgTurnCard:
			col, row, err := cell(msg)
			if err != nil {
				return err
			}
			return game.TurnCard(g, playerID, col, row)
		case MsgStartGame:
			return game.Start(g, playerID)
		case MsgUpdateSettings:
			if msg.Settings == nil {
				return fmt.Errorf("%w: missing settings", gameerr.ErrNotAllowed)
			}
			return game.UpdateSettings(g, playerID, *msg.Settings)
		case MsgUpdateSetting:
			return game.UpdateSetting(g, playerID, msg.Key, msg.Value)
		case MsgResetSettings:
			return game.ResetSettings(g, playerID)
		case MsgVoteReplay:
			return game.VoteReplay(g, playerID)
		case MsgInitiateKickVote:
			targetID, err := uuid.Parse(msg.TargetID)
			if err != nil {
				return gameerr.ErrPlayerNotFound
			}
			kickSnap, kickOutcome, err = gs.Kick.Initiate(g, playerID, targetID)
			kickChanged = err == nil
			return err
		case MsgCastKickVote:
			if msg.Accept == nil {
				return fmt.Errorf("%w: missing accept", gameerr.ErrNotAllowed)
			}
			var err error
			kickSnap, kickOutcome, err = gs.Kick.CastVote(g, playerID, *msg.Accept)
			kickChanged = err == nil
			return err
		default:
			gs.Logger.Warnf("Unknown action type '%s' from player %s in game %s.", msg.Type, playerID, code)
			return fmt.Errorf("%w: unknown action type %q", gameerr.ErrNotAllowed, msg.Type)
		}
	})

	if kickChanged {
		gs.rooms.broadcast(code, kickEvent(kickSnap, kickOutcome))
		if kickOutcome == kick.OutcomeKicked {
			gs.rooms.sendTo(code, kickSnap.TargetID, wsEvent{Type: EventError, Message: "You have been kicked from the game."})
		}
	}
	if err == nil {
		return
	}

	gs.Logger.Warnf("Action '%s' from player %s in game %s rejected: %v", msg.Type, playerID, code, err)
	gs.sendWsError(c, err.Error())
	if gameerr.IsRecoverable(err) {
		gs.resync(c, code)
	}
}

// resync sends the caller the current full snapshot.
func (gs *GameServer) resync(c *websocket.Conn, code string) {
	g, err := gs.Store.Load(context.Background(), code)
	if err != nil {
		gs.Logger.Warnf("Resync load failed for game %s: %v", code, err)
		return
	}
	gs.sendWsMessage(c, snapshotEvent(g.ToSnapshot()))
}

// checkStateVersion reconciles the client-reported version against the
// authoritative one before a play action is applied.
func checkStateVersion(g *models.Game, v *int) error {
	if v == nil {
		return gameerr.ErrStateVersionNull
	}
	if *v < g.StateVersion {
		return gameerr.ErrStateVersionBehind
	}
	if *v > g.StateVersion {
		return gameerr.ErrStateVersionAhead
	}
	return nil
}

// extractCookieToken pulls one cookie's value out of a raw Cookie header,
// returning "" when the cookie is absent.
func extractCookieToken(header, name string) string {
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		if v, ok := strings.CutPrefix(part, name+"="); ok {
			return v
		}
	}
	return ""
}

// cell extracts the grid coordinates of a card action.
func cell(msg *gameMessage) (int, int, error) {
	if msg.Column == nil || msg.Row == nil {
		return 0, 0, fmt.Errorf("%w: missing card position", gameerr.ErrNotAllowed)
	}
	return *msg.Column, *msg.Row, nil
}

// sendWsMessage marshals a message and sends it to the client with a write
// timeout. Write failures are left to the read loop to surface.
func (gs *GameServer) sendWsMessage(c *websocket.Conn, ev wsEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		gs.Logger.Errorf("Error marshaling WebSocket message: %v", err)
		return
	}
	writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Write(writeCtx, websocket.MessageText, data); err != nil {
		status := websocket.CloseStatus(err)
		if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
			gs.Logger.Warnf("Error writing WebSocket message: %v", err)
		}
	}
}

// sendWsError sends a structured error message to the client.
func (gs *GameServer) sendWsError(c *websocket.Conn, errorMsg string) {
	gs.sendWsMessage(c, wsEvent{Type: EventError, Message: errorMsg})
}
