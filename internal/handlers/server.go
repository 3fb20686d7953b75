// internal/handlers/server.go
package handlers

import (
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/skygrid/skygrid/internal/connection"
	"github.com/skygrid/skygrid/internal/database"
	"github.com/skygrid/skygrid/internal/kick"
	"github.com/skygrid/skygrid/internal/models"
	"github.com/skygrid/skygrid/internal/store"
)

// GameServer wires the game engine to its collaborators: the persistence
// port, the per-game dispatch locks, the live websocket rooms, the
// disconnect lifecycle and the kick consensus. Every mutation of a game
// flows through WithGame, which serializes load-mutate-save-broadcast per
// game code.
type GameServer struct {
	Logger *logrus.Logger
	Store  store.GameStore
	Conn   *connection.Manager
	Kick   *kick.Manager

	// Archiver records finished games to Postgres; nil disables archiving.
	Archiver *database.Archiver

	mu    sync.Mutex
	locks map[string]*sync.Mutex
	rooms *roomRegistry
}

// NewGameServer builds a fully wired server. Timer callbacks from the
// connection and kick managers re-enter through the same dispatch path as
// player actions.
func NewGameServer(logger *logrus.Logger, st store.GameStore, archiver *database.Archiver) *GameServer {
	gs := &GameServer{
		Logger:   logger,
		Store:    st,
		Archiver: archiver,
		locks:    make(map[string]*sync.Mutex),
		rooms:    newRoomRegistry(logger),
	}
	gs.Conn = connection.NewManager(logger, gs.mutateAsync)
	gs.Kick = kick.NewManager(logger, gs.mutateAsync, gs.Conn.ForceDisconnect)
	gs.Kick.Notify = func(code string, snap kick.Snapshot, outcome kick.Outcome) {
		gs.rooms.broadcast(code, kickEvent(snap, outcome))
	}
	return gs
}

// Routes registers the HTTP and websocket endpoints on a mux.
func (gs *GameServer) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/game/create", gs.CreateGameHandler)
	mux.HandleFunc("/game/join/", gs.JoinGameHandler)
	mux.HandleFunc("/game/ws/", gs.GameWSHandler)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
}

// Shutdown stops all outstanding timers.
func (gs *GameServer) Shutdown() {
	gs.Conn.Shutdown()
	gs.Kick.Shutdown()
}

// kickEvent builds the wire event for a kick vote state change.
func kickEvent(snap kick.Snapshot, outcome kick.Outcome) wsEvent {
	status := "pending"
	switch outcome {
	case kick.OutcomeKicked:
		status = "kicked"
	case kick.OutcomeRejected:
		status = "rejected"
	case kick.OutcomeExpired:
		status = "expired"
	}
	return wsEvent{Type: EventKickVote, Payload: map[string]interface{}{
		"vote":   snap,
		"status": status,
	}}
}

// snapshotEvent wraps a full snapshot for the wire.
func snapshotEvent(snap *models.GameSnapshot) wsEvent {
	return wsEvent{Type: EventSnapshot, Payload: snap}
}
