// internal/handlers/rooms.go
package handlers

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// wsEvent is the envelope for every server-to-client message.
type wsEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
	Message string      `json:"message,omitempty"`
}

// session is one live websocket attached to a seat. The socket id ties the
// connection to the seat's current transport session; a reconnect mints a
// new id, which lets a stale read loop recognize it has been superseded.
type session struct {
	conn     *websocket.Conn
	socketID string
}

// roomRegistry tracks the live sessions of each game, keyed by game code and
// player id. It is transport bookkeeping only; game state never lives here.
type roomRegistry struct {
	mu     sync.Mutex
	logger *logrus.Logger
	rooms  map[string]map[uuid.UUID]*session
}

func newRoomRegistry(logger *logrus.Logger) *roomRegistry {
	return &roomRegistry{
		logger: logger,
		rooms:  make(map[string]map[uuid.UUID]*session),
	}
}

// register attaches a session to a seat, displacing any previous one.
func (r *roomRegistry) register(code string, playerID uuid.UUID, s *session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[code]
	if !ok {
		room = make(map[uuid.UUID]*session)
		r.rooms[code] = room
	}
	room[playerID] = s
}

// unregister detaches a seat's session, but only if it still belongs to the
// given socket id. A read loop exiting after its player reconnected must not
// tear down the replacement session.
func (r *roomRegistry) unregister(code string, playerID uuid.UUID, socketID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[code]
	if !ok {
		return
	}
	if s, ok := room[playerID]; ok && s.socketID == socketID {
		delete(room, playerID)
		if len(room) == 0 {
			delete(r.rooms, code)
		}
	}
}

// broadcast sends an event to every session in a room. Writes happen on the
// caller's goroutine so consecutive patches reach each client in version
// order; delivery is still best-effort, with failures left to each
// connection's read loop to detect.
func (r *roomRegistry) broadcast(code string, ev wsEvent) {
	r.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(r.rooms[code]))
	for _, s := range r.rooms[code] {
		conns = append(conns, s.conn)
	}
	r.mu.Unlock()
	if len(conns) == 0 {
		return
	}

	data, err := json.Marshal(ev)
	if err != nil {
		r.logger.Errorf("Failed to marshal broadcast event (%s) for game %s: %v", ev.Type, code, err)
		return
	}

	for _, c := range conns {
		writeCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := c.Write(writeCtx, websocket.MessageText, data); err != nil {
			r.logger.Warnf("Failed to write broadcast message in game %s: %v", code, err)
		}
		cancel()
	}
}

// sendTo sends an event to one seat's session, if it has one.
func (r *roomRegistry) sendTo(code string, playerID uuid.UUID, ev wsEvent) {
	r.mu.Lock()
	var conn *websocket.Conn
	if s, ok := r.rooms[code][playerID]; ok {
		conn = s.conn
	}
	r.mu.Unlock()
	if conn == nil {
		return
	}

	data, err := json.Marshal(ev)
	if err != nil {
		r.logger.Errorf("Failed to marshal private event (%s) for player %s in game %s: %v", ev.Type, playerID, code, err)
		return
	}

	writeCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := conn.Write(writeCtx, websocket.MessageText, data); err != nil {
		r.logger.Warnf("Failed to write private message to player %s in game %s: %v", playerID, code, err)
	}
}

// closeRoom drops every session of a removed game.
func (r *roomRegistry) closeRoom(code string) {
	r.mu.Lock()
	room := r.rooms[code]
	delete(r.rooms, code)
	r.mu.Unlock()

	for _, s := range room {
		s.conn.Close(websocket.StatusNormalClosure, "game removed")
	}
}
