// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the game handlers. These provide more
// specific reasons for closure than standard codes.
const (
	BadSubprotocolError   = 3000 // Client connected with an unsupported subprotocol.
	InvalidAuthTokenError = 3001 // Provided session token was invalid or expired.
	NotAPlayerError       = 3002 // Token does not match a seat in the target game.
	InvalidGameCodeError  = 3003 // Target game code in the WS URL does not exist.
)

// Server-to-client event types.
const (
	EventSnapshot = "gameSnapshot"   // full authoritative state
	EventPatch    = "gamePatch"      // incremental diff with stateVersion
	EventKickVote = "kickVoteUpdate" // kick vote opened, progressed or resolved
	EventError    = "error"
	EventPong     = "pong"
)

// Client-to-server message types. Play actions additionally carry the
// client's stateVersion for reconciliation.
const (
	MsgRevealInitialCard = "revealInitialCard"
	MsgDrawCard          = "drawCard"
	MsgPickFromDiscard   = "pickFromDiscard"
	MsgDiscardCard       = "discardCard"
	MsgReplaceCard       = "replaceCard"
	MsgTurnCard          = "turnCard"
	MsgStartGame         = "startGame"
	MsgUpdateSettings    = "updateSettings"
	MsgUpdateSetting     = "updateSetting"
	MsgResetSettings     = "resetSettings"
	MsgVoteReplay        = "voteReplay"
	MsgLeave             = "leave"
	MsgInitiateKickVote  = "initiateKickVote"
	MsgCastKickVote      = "castKickVote"
	MsgPing              = "ping"
)
