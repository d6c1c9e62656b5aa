package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/liarsbar/backend/internal/game/card"
	"github.com/liarsbar/backend/internal/game/engine"
)

func makePlayers(t *testing.T, n int, src *seqSrc) []*engine.Player {
	t.Helper()
	players := make([]*engine.Player, n)
	for i := range players {
		players[i] = engine.NewPlayer(int64(i+1), src)
	}
	return players
}

func TestNewRound_DealsFreshHands(t *testing.T) {
	src := &seqSrc{vals: []int{0}}
	players := makePlayers(t, 3, src)
	players[0].SetHand([]card.Card{{Rank: card.Joker}}) // leftover from a previous hand

	r := engine.NewRound(players, nil, 1, src)

	for _, p := range players {
		assert.Equal(t, card.HandSize, p.HandSize())
	}
	assert.Contains(t, card.TargetRanks, r.Target)
	assert.False(t, r.Finished())
}

func TestNewRound_StartsAtPreviousLoser(t *testing.T) {
	src := &seqSrc{vals: []int{0}}
	players := makePlayers(t, 3, src)

	r := engine.NewRound(players, players[2], 2, src)
	assert.Same(t, players[2], r.CurrentPlayer())
}

func TestNewRound_RandomStartWhenLoserGone(t *testing.T) {
	src := &seqSrc{vals: []int{1}}
	players := makePlayers(t, 3, src)
	gone := engine.NewPlayer(99, src)

	r := engine.NewRound(players, gone, 2, src)
	assert.Contains(t, players, r.CurrentPlayer())
}

func TestRound_TargetRankDomain(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		vals := rapid.SliceOfN(rapid.IntRange(0, 1<<30), 1, 16).Draw(t, "vals")
		src := &seqSrc{vals: vals}
		players := []*engine.Player{engine.NewPlayer(1, src), engine.NewPlayer(2, src)}

		r := engine.NewRound(players, nil, 1, src)
		if r.Target != card.Queen && r.Target != card.King && r.Target != card.Ace {
			t.Fatalf("target rank %q outside the non-wildcard ranks", r.Target)
		}
	})
}

func TestRound_PlayCards_Validation(t *testing.T) {
	src := &seqSrc{vals: []int{0}}
	players := makePlayers(t, 3, src)
	r := engine.NewRound(players, players[0], 1, src)

	// Out of turn.
	err := r.PlayCards(players[1], players[1].Hand[:1])
	assert.ErrorIs(t, err, engine.ErrNotYourTurn)

	// Bad counts.
	current := r.CurrentPlayer()
	assert.ErrorIs(t, r.PlayCards(current, nil), engine.ErrPlayCount)
	assert.ErrorIs(t, r.PlayCards(current, current.Hand[:4]), engine.ErrPlayCount)

	// Cards not held.
	missing := []card.Card{{Rank: card.Queen}, {Rank: card.Queen}, {Rank: card.Queen}}
	if !current.Holds(missing) {
		assert.ErrorIs(t, r.PlayCards(current, missing), engine.ErrCardsNotHeld)
	}

	// Valid play records and shrinks the hand, but does not advance turn.
	play := []card.Card{current.Hand[0]}
	require.NoError(t, r.PlayCards(current, play))
	assert.Equal(t, 4, current.HandSize())
	require.NotNil(t, r.LastPlay)
	assert.Same(t, current, r.LastPlay.Player)
	assert.Same(t, current, r.CurrentPlayer())
}

func TestRound_TwoPlayerForcedChallenge(t *testing.T) {
	src := &seqSrc{vals: []int{0}}
	players := makePlayers(t, 2, src)
	r := engine.NewRound(players, players[1], 1, src)

	// Drain the opponent's hand.
	players[0].SetHand(nil)

	current := r.CurrentPlayer()
	require.Same(t, players[1], current)
	err := r.PlayCards(current, current.Hand[:1])
	assert.ErrorIs(t, err, engine.ErrMustChallenge)
}

func TestRound_AdvanceTurn_SkipsEmptyHands(t *testing.T) {
	src := &seqSrc{vals: []int{0}}
	players := makePlayers(t, 3, src)
	r := engine.NewRound(players, players[0], 1, src)

	players[1].SetHand(nil)
	r.AdvanceTurn()
	assert.Same(t, players[2], r.CurrentPlayer())
}

func TestRound_AdvanceTurn_BoundedWhenAllEmpty(t *testing.T) {
	src := &seqSrc{vals: []int{0}}
	players := makePlayers(t, 3, src)
	r := engine.NewRound(players, players[0], 1, src)

	for _, p := range players {
		p.SetHand(nil)
	}
	r.AdvanceTurn() // must terminate
	assert.Contains(t, players, r.CurrentPlayer())
}

func TestRound_Challenge_Preconditions(t *testing.T) {
	src := &seqSrc{vals: []int{0}}
	players := makePlayers(t, 2, src)
	r := engine.NewRound(players, players[0], 1, src)

	// Nothing played yet.
	assert.ErrorIs(t, r.Challenge(r.CurrentPlayer()), engine.ErrNothingToChallenge)

	// Out of turn.
	other := players[1]
	if r.CurrentPlayer() == other {
		other = players[0]
	}
	assert.ErrorIs(t, r.Challenge(other), engine.ErrNotYourTurn)

	// Self-challenge: play, keep the turn on the same player by not advancing.
	current := r.CurrentPlayer()
	require.NoError(t, r.PlayCards(current, []card.Card{current.Hand[0]}))
	assert.ErrorIs(t, r.Challenge(current), engine.ErrSelfChallenge)
}

func TestRound_Challenge_TruthfulPlayShootsChallenger(t *testing.T) {
	src := &seqSrc{vals: []int{0}}
	players := makePlayers(t, 2, src)
	r := engine.NewRound(players, players[0], 1, src)

	playedBy := r.CurrentPlayer()
	playedBy.SetHand([]card.Card{{Rank: card.Joker}, {Rank: card.Joker}})
	play := []card.Card{{Rank: card.Joker}, {Rank: card.Joker}}
	require.NoError(t, r.PlayCards(playedBy, play)) // two wildcards: always truthful
	r.AdvanceTurn()

	challenger := r.CurrentPlayer()
	require.NotSame(t, playedBy, challenger)
	require.NoError(t, r.Challenge(challenger))

	assert.True(t, r.Finished())
	assert.Same(t, challenger, r.Loser)
}

func TestRound_Challenge_BluffShootsPlayer(t *testing.T) {
	src := &seqSrc{vals: []int{0}}
	players := makePlayers(t, 2, src)
	r := engine.NewRound(players, players[0], 1, src)

	// Force a bluff: a card that is neither the target nor the wildcard.
	var offRank card.Rank
	for _, rank := range card.TargetRanks {
		if rank != r.Target {
			offRank = rank
			break
		}
	}
	playedBy := r.CurrentPlayer()
	playedBy.SetHand([]card.Card{{Rank: offRank}})
	require.NoError(t, r.PlayCards(playedBy, []card.Card{{Rank: offRank}}))
	r.AdvanceTurn()

	challenger := r.CurrentPlayer()
	require.NoError(t, r.Challenge(challenger))
	assert.Same(t, playedBy, r.Loser)
}

// A play is truthful iff every card matches the target or is the wildcard.
func TestRound_Truthfulness_Property(t *testing.T) {
	ranks := []card.Rank{card.Queen, card.King, card.Ace, card.Joker}

	rapid.Check(t, func(t *rapid.T) {
		vals := rapid.SliceOfN(rapid.IntRange(0, 1<<30), 1, 8).Draw(t, "vals")
		src := &seqSrc{vals: vals}
		players := []*engine.Player{engine.NewPlayer(1, src), engine.NewPlayer(2, src)}
		r := engine.NewRound(players, players[0], 1, src)

		n := rapid.IntRange(1, 3).Draw(t, "n")
		played := make([]card.Card, n)
		truthful := true
		for i := range played {
			played[i] = card.Card{Rank: ranks[rapid.IntRange(0, 3).Draw(t, "rank")]}
			if !played[i].Matches(r.Target) {
				truthful = false
			}
		}

		playedBy := r.CurrentPlayer()
		playedBy.SetHand(append([]card.Card(nil), played...))
		if err := r.PlayCards(playedBy, played); err != nil {
			t.Fatalf("PlayCards: %v", err)
		}
		r.AdvanceTurn()

		challenger := r.CurrentPlayer()
		if err := r.Challenge(challenger); err != nil {
			t.Fatalf("Challenge: %v", err)
		}

		if truthful && r.Loser != challenger {
			t.Fatalf("truthful play must shoot the challenger")
		}
		if !truthful && r.Loser != playedBy {
			t.Fatalf("bluff must shoot the player who bluffed")
		}
	})
}
