// internal/handlers/game.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/skygrid/skygrid/internal/auth"
	"github.com/skygrid/skygrid/internal/game"
	"github.com/skygrid/skygrid/internal/gameerr"
	"github.com/skygrid/skygrid/internal/models"
)

// joinRequest is the body of both /game/create and /game/join/{code}.
// Settings are only honored on create.
type joinRequest struct {
	Name     string           `json:"name"`
	Avatar   string           `json:"avatar"`
	Settings *models.Settings `json:"settings,omitempty"`
}

// joinResponse carries everything a client needs to open the websocket.
type joinResponse struct {
	Code     string               `json:"code"`
	PlayerID string               `json:"playerId"`
	Token    string               `json:"token"`
	Game     *models.GameSnapshot `json:"game"`
}

// CreateGameHandler creates a game with the requester as admin and returns
// its join code plus a session token bound to the new seat.
func (gs *GameServer) CreateGameHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	settings := models.DefaultSettings()
	if req.Settings != nil {
		settings = *req.Settings
		if err := settings.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	code, err := gs.newRoomCode(r.Context())
	if err != nil {
		gs.Logger.Errorf("Failed to allocate room code: %v", err)
		http.Error(w, "could not create game", http.StatusInternalServerError)
		return
	}

	admin := models.NewPlayer(req.Name, req.Avatar, "")
	g := game.NewGame(code, admin, settings)

	l := gs.lockGame(code)
	l.Lock()
	err = gs.Store.Save(r.Context(), g)
	l.Unlock()
	if err != nil {
		gs.Logger.Errorf("Failed to save new game %s: %v", code, err)
		http.Error(w, "could not create game", http.StatusInternalServerError)
		return
	}

	gs.Logger.WithField("game", code).Info("game created")
	gs.respondJoin(w, code, admin.ID.String(), g.ToSnapshot())
}

// JoinGameHandler adds a player to an existing lobby: POST /game/join/{code}.
func (gs *GameServer) JoinGameHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	code := strings.ToUpper(strings.TrimPrefix(r.URL.Path, "/game/join/"))
	if code == "" || strings.Contains(code, "/") {
		http.Error(w, "missing game code (/game/join/{code})", http.StatusBadRequest)
		return
	}
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	p := models.NewPlayer(req.Name, req.Avatar, "")
	var joined *models.Game
	err := gs.WithGame(r.Context(), code, func(g *models.Game) error {
		if err := game.AddPlayer(g, p); err != nil {
			return err
		}
		joined = g
		return nil
	})
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, gameerr.ErrGameNotFound):
			status = http.StatusNotFound
		case errors.Is(err, gameerr.ErrGameIsFull), errors.Is(err, gameerr.ErrGameAlreadyStarted):
			status = http.StatusConflict
		}
		http.Error(w, err.Error(), status)
		return
	}

	// joined was committed inside WithGame, so its snapshot carries the
	// post-join state version the client must start from.
	gs.respondJoin(w, code, p.ID.String(), joined.ToSnapshot())
}

// respondJoin writes the join payload: seat identity, session token and the
// snapshot the client boots from.
func (gs *GameServer) respondJoin(w http.ResponseWriter, code, playerID string, snap *models.GameSnapshot) {
	token, err := auth.CreateSessionToken(playerID, code)
	if err != nil {
		gs.Logger.Errorf("Failed to issue session token for game %s: %v", code, err)
		http.Error(w, "could not issue session token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(joinResponse{
		Code:     code,
		PlayerID: playerID,
		Token:    token,
		Game:     snap,
	})
}
