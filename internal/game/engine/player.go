// Package engine implements the game state machine: per-game player state,
// the round lifecycle with bluff resolution, the enclosing game, and the
// registry that indexes active games.
package engine

import (
	"fmt"

	"github.com/liarsbar/backend/internal/game/card"
	"github.com/liarsbar/backend/internal/game/rng"
)

// chambers is the revolver cylinder size.
const chambers = 6

// Player is the per-game state for one participant: their hand and the
// six-chamber revolver that resolves lost challenges.
//
// The revolver layout and pointer are never serialized; clients only ever
// see BulletCount.
type Player struct {
	ID    int64       `json:"playerId"`
	Hand  []card.Card `json:"handCards"`
	Alive bool        `json:"alive"`

	revolver [chambers]bool
	slot     int
}

// NewPlayer creates an alive Player with a freshly loaded revolver.
//
// Precondition: src must be non-nil.
func NewPlayer(id int64, src rng.Source) *Player {
	p := &Player{ID: id, Alive: true}
	p.Reload(src)
	return p
}

// Reload places a single bullet in a uniformly random chamber and resets
// the chamber pointer to the start.
//
// Postcondition: exactly one chamber is loaded; BulletCount() == 6.
func (p *Player) Reload(src rng.Source) {
	p.revolver = [chambers]bool{}
	p.revolver[src.Intn(chambers)] = true
	p.slot = 0
}

// Shoot fires the current chamber and advances the pointer, wrapping
// modulo the cylinder size. Returns whether the fired chamber was loaded.
func (p *Player) Shoot() bool {
	hit := p.revolver[p.slot]
	p.slot = (p.slot + 1) % chambers
	return hit
}

// BulletCount reports the chamber count shown to clients: the number of
// chambers not yet fired. It is derived from the pointer position only,
// never from the loaded chamber, so it leaks nothing about the bullet.
func (p *Player) BulletCount() int {
	return chambers - p.slot
}

// HandSize returns the number of cards currently held.
func (p *Player) HandSize() int {
	return len(p.Hand)
}

// HasNoCards reports whether the hand is empty.
func (p *Player) HasNoCards() bool {
	return len(p.Hand) == 0
}

// SetHand replaces the player's hand. Old cards are discarded.
func (p *Player) SetHand(cards []card.Card) {
	p.Hand = cards
}

// RemoveCards removes one matching card from the hand for each requested
// card. Hand order is irrelevant for matching; only multiset membership
// matters.
//
// Postcondition: On success the hand shrinks by len(cards). On error the
// hand may be partially modified; callers validate holdings first or treat
// the error as fatal to the play.
func (p *Player) RemoveCards(cards []card.Card) error {
	for _, want := range cards {
		found := false
		for i, held := range p.Hand {
			if held.Rank == want.Rank {
				p.Hand = append(p.Hand[:i], p.Hand[i+1:]...)
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("hand does not contain a %s", want.Rank)
		}
	}
	return nil
}

// Holds reports whether the hand contains every requested card as a multiset.
func (p *Player) Holds(cards []card.Card) bool {
	need := map[card.Rank]int{}
	for _, c := range cards {
		need[c.Rank]++
	}
	have := map[card.Rank]int{}
	for _, c := range p.Hand {
		have[c.Rank]++
	}
	for r, n := range need {
		if have[r] < n {
			return false
		}
	}
	return true
}

// clear drops hand and revolver state at game teardown.
func (p *Player) clear() {
	p.Hand = nil
	p.Alive = false
	p.revolver = [chambers]bool{}
	p.slot = 0
}
