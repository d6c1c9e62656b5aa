package card

import "github.com/liarsbar/backend/internal/game/rng"

// Deck composition: 6 of each ordinary rank plus 2 Jokers = 20 cards.
const (
	perRankCount = 6
	jokerCount   = 2
	DeckSize     = 3*perRankCount + jokerCount
	// HandSize is the number of cards dealt to each player per round.
	HandSize = 5
)

// Deck is a finite, shuffled pile of cards for one round of play.
type Deck struct {
	cards []Card
}

// NewDeck builds the fixed 20-card composition and shuffles it with src.
//
// Precondition: src must be non-nil.
// Postcondition: Remaining() == DeckSize.
func NewDeck(src rng.Source) *Deck {
	cards := make([]Card, 0, DeckSize)
	for _, r := range TargetRanks {
		for i := 0; i < perRankCount; i++ {
			cards = append(cards, Card{Rank: r})
		}
	}
	for i := 0; i < jokerCount; i++ {
		cards = append(cards, Card{Rank: Joker})
	}
	rng.Shuffle(len(cards), src, func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
	return &Deck{cards: cards}
}

// Deal removes and returns up to n cards from the top of the deck.
//
// Postcondition: len(result) == min(n, Remaining() before the call).
func (d *Deck) Deal(n int) []Card {
	if n > len(d.cards) {
		n = len(d.cards)
	}
	if n <= 0 {
		return nil
	}
	hand := make([]Card, n)
	copy(hand, d.cards[:n])
	d.cards = d.cards[n:]
	return hand
}

// Remaining returns the number of undealt cards.
func (d *Deck) Remaining() int {
	return len(d.cards)
}
