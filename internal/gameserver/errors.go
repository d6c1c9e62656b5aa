// Package gameserver routes decoded protocol envelopes to the lobby,
// room, game, and system handlers and owns the connection lifecycle:
// registration, reconnect sync, and the disconnect grace policy.
package gameserver

import (
	"errors"

	"github.com/liarsbar/backend/internal/game/engine"
	"github.com/liarsbar/backend/internal/game/room"
	"github.com/liarsbar/backend/internal/protocol"
)

// Handler-level errors with no package of their own.
var (
	errUnknownCmd   = errors.New("unknown command")
	errBadPayload   = errors.New("malformed request payload")
	errTargetAway   = errors.New("target player is not online")
	errNotSameRoom  = errors.New("target player is not in your room")
	errEmptyChat    = errors.New("chat message is empty")
	errNoPresence   = errors.New("no player record for connection")
	errNotRoomOwner = errors.New("only the room owner may do that")
)

// codeFor maps a domain error to an envelope code. Unrecognized errors
// are internal.
func codeFor(err error) int {
	switch {
	case errors.Is(err, errUnknownCmd),
		errors.Is(err, errBadPayload),
		errors.Is(err, errEmptyChat),
		errors.Is(err, room.ErrNameRequired),
		errors.Is(err, room.ErrInvalidMode),
		errors.Is(err, engine.ErrPlayCount):
		return protocol.CodeBadRequest

	case errors.Is(err, errNotRoomOwner),
		errors.Is(err, room.ErrNotOwner),
		errors.Is(err, room.ErrWrongPassword):
		return protocol.CodeForbidden

	case errors.Is(err, room.ErrRoomNotFound),
		errors.Is(err, errTargetAway),
		errors.Is(err, errNoPresence),
		errors.Is(err, room.ErrNotInRoom),
		errors.Is(err, engine.ErrGameNotFound),
		errors.Is(err, engine.ErrPlayerNotInGame):
		return protocol.CodeNotFound

	case errors.Is(err, room.ErrRoomFull),
		errors.Is(err, room.ErrRoomPlaying),
		errors.Is(err, room.ErrAlreadyInRoom),
		errors.Is(err, room.ErrRoomNotReady),
		errors.Is(err, room.ErrRoomTooSparse),
		errors.Is(err, room.ErrRoomNotPlaying),
		errors.Is(err, errNotSameRoom),
		errors.Is(err, engine.ErrGameExists),
		errors.Is(err, engine.ErrNotEnoughPlayers),
		errors.Is(err, engine.ErrGameNotPlaying),
		errors.Is(err, engine.ErrNotYourTurn),
		errors.Is(err, engine.ErrEmptyHand),
		errors.Is(err, engine.ErrMustChallenge),
		errors.Is(err, engine.ErrNothingToChallenge),
		errors.Is(err, engine.ErrSelfChallenge),
		errors.Is(err, engine.ErrCardsNotHeld):
		return protocol.CodeConflict
	}
	return protocol.CodeInternal
}

// clientMessage returns the error text safe to echo to clients.
// Internal errors get a generic message; the detail stays in the log.
func clientMessage(err error) string {
	if codeFor(err) == protocol.CodeInternal {
		return "internal server error"
	}
	return err.Error()
}
