package engine

import "errors"

// Domain rule violations. Handlers map these onto protocol error codes,
// so each distinct precondition failure gets its own sentinel.
var (
	// ErrNotYourTurn is returned when a player acts out of turn.
	ErrNotYourTurn = errors.New("not this player's turn")

	// ErrEmptyHand is returned when the current player has no cards to play.
	ErrEmptyHand = errors.New("player has no cards left")

	// ErrPlayCount is returned when a play is not 1-3 cards.
	ErrPlayCount = errors.New("must play between 1 and 3 cards")

	// ErrMustChallenge is returned in a two-player game when the opponent
	// has no cards left: playing is disallowed, the turn holder must challenge.
	ErrMustChallenge = errors.New("opponent has no cards, must challenge")

	// ErrNothingToChallenge is returned when no play has been made this round.
	ErrNothingToChallenge = errors.New("no play to challenge")

	// ErrSelfChallenge is returned when a player challenges their own play.
	ErrSelfChallenge = errors.New("cannot challenge own play")

	// ErrCardsNotHeld is returned when a play names cards the hand does
	// not contain.
	ErrCardsNotHeld = errors.New("cards not held")

	// ErrPlayerNotInGame is returned for a player id unknown to the game.
	ErrPlayerNotInGame = errors.New("player not in game")

	// ErrGameNotPlaying is returned for actions on a game that is not in
	// the PLAYING state.
	ErrGameNotPlaying = errors.New("game is not in progress")

	// ErrGameNotFound is returned by registry lookups for unknown game ids.
	ErrGameNotFound = errors.New("game not found")

	// ErrGameExists is returned when a room already has an active game.
	ErrGameExists = errors.New("room already has an active game")

	// ErrNotEnoughPlayers is returned when a game would start with fewer
	// than two players.
	ErrNotEnoughPlayers = errors.New("at least two players required")
)
