package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/liarsbar/backend/internal/game/card"
	"github.com/liarsbar/backend/internal/game/engine"
)

// fixedSrc is a deterministic Source returning val for every Intn call,
// clamped into range.
type fixedSrc struct{ val int }

func (f fixedSrc) Intn(n int) int { return f.val % n }

// seqSrc returns scripted values in order, cycling when exhausted.
type seqSrc struct {
	vals []int
	i    int
}

func (s *seqSrc) Intn(n int) int {
	v := s.vals[s.i%len(s.vals)] % n
	s.i++
	return v
}

func TestNewPlayer(t *testing.T) {
	p := engine.NewPlayer(7, fixedSrc{val: 3})
	assert.Equal(t, int64(7), p.ID)
	assert.True(t, p.Alive)
	assert.Equal(t, 6, p.BulletCount())
	assert.True(t, p.HasNoCards())
}

// After exactly 6 pulls the pointer is back at its start position and the
// loaded chamber has fired exactly once, wherever the bullet was placed.
func TestRevolver_FullCycle(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		chamber := rapid.IntRange(0, 5).Draw(t, "chamber")
		p := engine.NewPlayer(1, fixedSrc{val: chamber})

		hits := 0
		for i := 0; i < 6; i++ {
			if p.Shoot() {
				hits++
			}
		}
		if hits != 1 {
			t.Fatalf("expected exactly 1 hit over 6 pulls, got %d", hits)
		}
		if p.BulletCount() != 6 {
			t.Fatalf("pointer did not wrap: bullet count %d", p.BulletCount())
		}
	})
}

func TestRevolver_BulletCountFromPointerOnly(t *testing.T) {
	// Bullet in the last chamber: count must still fall one per pull,
	// independent of where the bullet sits.
	p := engine.NewPlayer(1, fixedSrc{val: 5})
	for i := 0; i < 5; i++ {
		assert.Equal(t, 6-i, p.BulletCount())
		assert.False(t, p.Shoot())
	}
	assert.Equal(t, 1, p.BulletCount())
	assert.True(t, p.Shoot())
}

func TestPlayer_RemoveCards(t *testing.T) {
	p := engine.NewPlayer(1, fixedSrc{val: 0})
	p.SetHand([]card.Card{{Rank: card.Queen}, {Rank: card.Queen}, {Rank: card.Joker}})

	require.NoError(t, p.RemoveCards([]card.Card{{Rank: card.Queen}, {Rank: card.Joker}}))
	assert.Equal(t, 1, p.HandSize())
	assert.Equal(t, card.Queen, p.Hand[0].Rank)

	err := p.RemoveCards([]card.Card{{Rank: card.Ace}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "A")
}

func TestPlayer_Holds(t *testing.T) {
	p := engine.NewPlayer(1, fixedSrc{val: 0})
	p.SetHand([]card.Card{{Rank: card.King}, {Rank: card.King}, {Rank: card.Ace}})

	assert.True(t, p.Holds([]card.Card{{Rank: card.King}, {Rank: card.King}}))
	assert.True(t, p.Holds([]card.Card{{Rank: card.Ace}}))
	assert.False(t, p.Holds([]card.Card{{Rank: card.King}, {Rank: card.King}, {Rank: card.King}}))
	assert.False(t, p.Holds([]card.Card{{Rank: card.Joker}}))
}
