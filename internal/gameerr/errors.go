// internal/gameerr/errors.go
package gameerr

import "errors"

// Sentinel errors for every failure the engine and its surrounding services
// can report. Callers branch with errors.Is; the orchestration layer maps
// these onto client-facing error frames and decides which ones warrant a
// full-snapshot resync.
var (
	ErrPlayerNotFound       = errors.New("player not found")
	ErrGameNotFound         = errors.New("game not found")
	ErrGameAlreadyStarted   = errors.New("game already started")
	ErrGameIsFull           = errors.New("game is full")
	ErrNotAllowed           = errors.New("action not allowed")
	ErrInvalidTurnState     = errors.New("invalid turn state")
	ErrTooFewPlayers        = errors.New("too few players")
	ErrCannotReconnect      = errors.New("cannot reconnect")
	ErrKickVoteInProgress   = errors.New("kick vote already in progress")
	ErrNoKickVoteInProgress = errors.New("no kick vote in progress")
	ErrPlayerAlreadyVoted   = errors.New("player already voted")
	ErrStateVersionAhead    = errors.New("client state version ahead of server")
	ErrStateVersionBehind   = errors.New("client state version behind server")
	ErrStateVersionNull     = errors.New("client state version missing")
	ErrUnknownOperation     = errors.New("unknown operation")
)

// IsRecoverable reports whether an error stems from a client racing the
// server's authoritative state. These are answered with a full snapshot and
// logged at warning severity rather than treated as fatal.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrInvalidTurnState) ||
		errors.Is(err, ErrNotAllowed) ||
		errors.Is(err, ErrStateVersionAhead) ||
		errors.Is(err, ErrStateVersionBehind) ||
		errors.Is(err, ErrStateVersionNull)
}
