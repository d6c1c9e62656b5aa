// Package card provides the immutable card model and the per-round deck
// for the bluffing game: three ordinary ranks plus a wildcard Joker.
package card

import "fmt"

// Rank identifies a card face.
type Rank string

// Card ranks. Joker is the wildcard and matches any target rank.
const (
	Queen Rank = "Q"
	King  Rank = "K"
	Ace   Rank = "A"
	Joker Rank = "JOKER"
)

// TargetRanks are the ranks a round's target may be drawn from.
// The wildcard is never a target.
var TargetRanks = []Rank{Queen, King, Ace}

// Valid reports whether r is one of the four known ranks.
func (r Rank) Valid() bool {
	switch r {
	case Queen, King, Ace, Joker:
		return true
	}
	return false
}

// ParseRank converts a wire string into a Rank.
//
// Postcondition: Returns a valid Rank or a non-nil error naming the input.
func ParseRank(s string) (Rank, error) {
	r := Rank(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown card rank %q", s)
	}
	return r, nil
}

// Card is an immutable card value.
type Card struct {
	Rank Rank `json:"rank"`
}

// Matches reports whether c counts as truthful against the given target rank:
// its rank equals the target, or it is the wildcard.
func (c Card) Matches(target Rank) bool {
	return c.Rank == target || c.Rank == Joker
}

// String returns the rank name.
func (c Card) String() string {
	return string(c.Rank)
}
