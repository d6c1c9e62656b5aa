package engine

import (
	"fmt"

	"github.com/liarsbar/backend/internal/game/card"
	"github.com/liarsbar/backend/internal/game/rng"
)

// PlayRecord captures the most recent play of a round: who played and
// what they actually put down. Overwritten on every play.
type PlayRecord struct {
	Player *Player
	Cards  []card.Card
}

// Round is one hand of play. It ends when a challenge occurs, regardless
// of whether the challenge eliminated anyone.
type Round struct {
	Players    []*Player // still-alive players participating this hand
	Number     int
	Target     card.Rank
	LastPlay   *PlayRecord
	Challenger *Player
	Loser      *Player

	turn int
}

// NewRound picks a target rank uniformly from the non-wildcard ranks,
// seats the previous round's loser first (if still present) or a random
// player otherwise, and deals every participant a fresh 5-card hand from
// a freshly shuffled deck. Old hands are discarded, not carried over.
//
// Precondition: players must be non-empty; src must be non-nil.
func NewRound(players []*Player, prevLoser *Player, number int, src rng.Source) *Round {
	r := &Round{
		Players: players,
		Number:  number,
		Target:  card.TargetRanks[src.Intn(len(card.TargetRanks))],
	}

	r.turn = -1
	if prevLoser != nil {
		for i, p := range players {
			if p == prevLoser {
				r.turn = i
				break
			}
		}
	}
	if r.turn < 0 {
		r.turn = src.Intn(len(players))
	}

	deck := card.NewDeck(src)
	for _, p := range players {
		p.SetHand(deck.Deal(card.HandSize))
	}
	return r
}

// CurrentPlayer returns the player whose turn it is.
func (r *Round) CurrentPlayer() *Player {
	return r.Players[r.turn]
}

// PlayCards validates and records a play by p. The turn does not advance
// here; callers advance explicitly after a successful play.
//
// Postcondition: On success, LastPlay records (p, cards) and the cards are
// removed from p's hand.
func (r *Round) PlayCards(p *Player, cards []card.Card) error {
	if p != r.CurrentPlayer() {
		return ErrNotYourTurn
	}
	if p.HasNoCards() {
		return ErrEmptyHand
	}
	if len(cards) < 1 || len(cards) > 3 {
		return ErrPlayCount
	}
	// Two-player endgame: once the opponent is out of cards the only legal
	// move is a challenge.
	if len(r.Players) == 2 {
		for _, other := range r.Players {
			if other != p && other.HasNoCards() {
				return ErrMustChallenge
			}
		}
	}
	// Check holdings before mutating so a rejected play leaves the hand intact.
	if !p.Holds(cards) {
		return fmt.Errorf("%w: hand does not contain the played cards", ErrCardsNotHeld)
	}
	if err := p.RemoveCards(cards); err != nil {
		return err
	}
	r.LastPlay = &PlayRecord{Player: p, Cards: cards}
	return nil
}

// AdvanceTurn moves to the next player, skipping players with empty hands.
// Bounded to one full lap so an all-empty table cannot loop forever.
func (r *Round) AdvanceTurn() {
	for attempts := 0; ; {
		r.turn = (r.turn + 1) % len(r.Players)
		attempts++
		if attempts >= len(r.Players) || !r.Players[r.turn].HasNoCards() {
			return
		}
	}
}

// Challenge resolves a challenge by p against the last play. The play is
// truthful iff every played card matches the round target or is the
// wildcard; the loser is the challenged player if truthful, otherwise the
// challenger. The loser's revolver fires once; a loaded chamber kills.
//
// Postcondition: Challenger and Loser are set; Finished() reports true.
func (r *Round) Challenge(p *Player) error {
	if p != r.CurrentPlayer() {
		return ErrNotYourTurn
	}
	if r.LastPlay == nil {
		return ErrNothingToChallenge
	}
	if p == r.LastPlay.Player {
		return ErrSelfChallenge
	}

	r.Challenger = p

	truthful := true
	for _, c := range r.LastPlay.Cards {
		if !c.Matches(r.Target) {
			truthful = false
			break
		}
	}

	if truthful {
		r.Loser = p
	} else {
		r.Loser = r.LastPlay.Player
	}
	if r.Loser.Shoot() {
		r.Loser.Alive = false
	}
	return nil
}

// Finished reports whether this round has ended. A round is over exactly
// when a challenge has occurred; elimination is not required.
func (r *Round) Finished() bool {
	return r.Challenger != nil
}
