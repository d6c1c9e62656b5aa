package engine

import (
	"sync"

	"github.com/liarsbar/backend/internal/game/card"
	"github.com/liarsbar/backend/internal/game/rng"
)

// Status is the game lifecycle state.
type Status string

// Game states. There is no transition out of Finished; a finished game is
// torn down by the registry, not restarted.
const (
	StatusWaiting  Status = "WAITING"
	StatusPlaying  Status = "PLAYING"
	StatusFinished Status = "FINISHED"
)

// Game sequences rounds for a fixed set of players until at most one
// remains alive. All mutating methods are serialized by a per-game mutex;
// actions on different games never contend.
type Game struct {
	mu sync.Mutex

	id        int64
	players   []*Player // seat order, fixed at creation
	byID      map[int64]*Player
	status    Status
	round     *Round
	prevLoser *Player
	winner    *Player
	roundNum  int

	src rng.Source
}

// NewGame creates a Game in the WAITING state with no players.
//
// Precondition: src must be non-nil.
func NewGame(id int64, src rng.Source) *Game {
	return &Game{
		id:       id,
		byID:     make(map[int64]*Player),
		status:   StatusWaiting,
		roundNum: 1,
		src:      src,
	}
}

// ID returns the game id.
func (g *Game) ID() int64 { return g.id }

// AddPlayer seats a player. Only valid before Start.
func (g *Game) AddPlayer(p *Player) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.players = append(g.players, p)
	g.byID[p.ID] = p
}

// Start transitions the game to PLAYING and opens round 1.
//
// Precondition: at least two players have been added.
func (g *Game) Start() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.players) < 2 {
		return ErrNotEnoughPlayers
	}
	g.status = StatusPlaying
	g.startRound()
	return nil
}

// startRound opens a new round over the still-alive players.
// Caller must hold g.mu.
func (g *Game) startRound() {
	alive := make([]*Player, 0, len(g.players))
	for _, p := range g.players {
		if p.Alive {
			alive = append(alive, p)
		}
	}
	g.round = NewRound(alive, g.prevLoser, g.roundNum, g.src)
}

// PlayCards executes a play by the given player and advances the turn.
//
// Postcondition: On success the play is recorded as the round's last play
// and the turn has moved to the next player with cards.
func (g *Game) PlayCards(playerID int64, cards []card.Card) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.status != StatusPlaying {
		return ErrGameNotPlaying
	}
	p, ok := g.byID[playerID]
	if !ok {
		return ErrPlayerNotInGame
	}
	if err := g.round.PlayCards(p, cards); err != nil {
		return err
	}
	// A play never ends the round; only a challenge does.
	g.round.AdvanceTurn()
	return nil
}

// ChallengeOutcome reports what a resolved challenge did, for broadcast.
type ChallengeOutcome struct {
	RoundNumber  int
	LastPlayerID int64
	PlayedCards  []card.Card
	LoserID      int64
	LoserDead    bool
	GameOver     bool
	WinnerID     int64 // meaningful only when GameOver and a survivor exists
}

// Challenge resolves a challenge by the given player, records the loser,
// and either finishes the game (alive count <= 1) or opens the next round.
func (g *Game) Challenge(playerID int64) (ChallengeOutcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.status != StatusPlaying {
		return ChallengeOutcome{}, ErrGameNotPlaying
	}
	p, ok := g.byID[playerID]
	if !ok {
		return ChallengeOutcome{}, ErrPlayerNotInGame
	}

	out := ChallengeOutcome{RoundNumber: g.roundNum}
	if g.round.LastPlay != nil {
		out.LastPlayerID = g.round.LastPlay.Player.ID
		out.PlayedCards = g.round.LastPlay.Cards
	}

	if err := g.round.Challenge(p); err != nil {
		return ChallengeOutcome{}, err
	}

	g.prevLoser = g.round.Loser
	out.LoserID = g.round.Loser.ID
	out.LoserDead = !g.round.Loser.Alive

	g.checkWin()
	if g.status == StatusFinished {
		out.GameOver = true
		if g.winner != nil {
			out.WinnerID = g.winner.ID
		}
		return out, nil
	}

	g.roundNum++
	g.startRound()
	return out, nil
}

// Leave eliminates an alive player who departs mid-game. A dead player
// leaving is a no-op, reported as handled=false. If the game continues,
// the leaver is recorded as the round's loser (seating priority for the
// next round) and a new round opens immediately.
func (g *Game) Leave(playerID int64) (handled bool, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.status != StatusPlaying {
		return false, ErrGameNotPlaying
	}
	p, ok := g.byID[playerID]
	if !ok {
		return false, ErrPlayerNotInGame
	}
	if !p.Alive {
		return false, nil
	}

	p.Alive = false
	g.checkWin()
	if g.status == StatusFinished {
		return true, nil
	}

	g.prevLoser = p
	g.roundNum++
	g.startRound()
	return true, nil
}

// checkWin finishes the game when at most one player remains alive.
// Caller must hold g.mu.
func (g *Game) checkWin() {
	alive := 0
	var last *Player
	for _, p := range g.players {
		if p.Alive {
			alive++
			last = p
		}
	}
	if alive <= 1 {
		g.status = StatusFinished
		g.winner = nil
		if alive == 1 {
			g.winner = last
		}
	}
}

// End clears the game's internal collections. Idempotent; presence resets
// are the registry's responsibility so the engine stays free of back-refs.
func (g *Game) End() {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, p := range g.players {
		p.clear()
	}
	g.players = nil
	g.byID = map[int64]*Player{}
	g.round = nil
	g.prevLoser = nil
	g.roundNum = 1
}

// Status returns the current lifecycle state.
func (g *Game) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

// Winner returns the winning player, or nil before the game finishes or
// when nobody survived.
func (g *Game) Winner() *Player {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.winner
}

// RoundNumber returns the current round counter (1-based).
func (g *Game) RoundNumber() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.roundNum
}

// TargetRank returns the current round's target rank, or "" when no round
// is open.
func (g *Game) TargetRank() card.Rank {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.round == nil {
		return ""
	}
	return g.round.Target
}

// CurrentPlayerID returns the id of the player whose turn it is, or
// (0, false) when no round is open.
func (g *Game) CurrentPlayerID() (int64, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.round == nil || len(g.round.Players) == 0 {
		return 0, false
	}
	return g.round.CurrentPlayer().ID, true
}

// Player returns the seated player for id.
func (g *Game) Player(id int64) (*Player, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.byID[id]
	return p, ok
}

// HasPlayer reports whether id is seated in this game.
func (g *Game) HasPlayer(id int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.byID[id]
	return ok
}

// Players returns the seat-ordered player list as a defensive copy.
func (g *Game) Players() []*Player {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*Player, len(g.players))
	copy(out, g.players)
	return out
}

// SeatOrder returns the seat-ordered player ids.
func (g *Game) SeatOrder() []int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	ids := make([]int64, len(g.players))
	for i, p := range g.players {
		ids[i] = p.ID
	}
	return ids
}

// SeatSnapshot is a point-in-time copy of one seat's state. Hand is a
// copy; mutating it does not touch the live player.
type SeatSnapshot struct {
	PlayerID    int64
	Hand        []card.Card
	BulletCount int
	Alive       bool
}

// HandSize returns the number of cards in the copied hand.
func (s SeatSnapshot) HandSize() int { return len(s.Hand) }

// Snapshot is a consistent point-in-time copy of the game state taken
// under the game lock. Client pushes are built from snapshots so no
// caller reads live player state while a play or challenge mutates it.
type Snapshot struct {
	GameID          int64
	Status          Status
	RoundNumber     int
	Target          card.Rank
	CurrentPlayerID int64          // zero when no round is open
	Seats           []SeatSnapshot // seat order
}

// Seat returns the snapshot entry for the given player id.
func (s Snapshot) Seat(playerID int64) (SeatSnapshot, bool) {
	for _, seat := range s.Seats {
		if seat.PlayerID == playerID {
			return seat, true
		}
	}
	return SeatSnapshot{}, false
}

// Snapshot captures the full game state in one critical section.
func (g *Game) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	snap := Snapshot{
		GameID:      g.id,
		Status:      g.status,
		RoundNumber: g.roundNum,
		Seats:       make([]SeatSnapshot, 0, len(g.players)),
	}
	if g.round != nil {
		snap.Target = g.round.Target
		if len(g.round.Players) > 0 {
			snap.CurrentPlayerID = g.round.CurrentPlayer().ID
		}
	}
	for _, p := range g.players {
		hand := make([]card.Card, len(p.Hand))
		copy(hand, p.Hand)
		snap.Seats = append(snap.Seats, SeatSnapshot{
			PlayerID:    p.ID,
			Hand:        hand,
			BulletCount: p.BulletCount(),
			Alive:       p.Alive,
		})
	}
	return snap
}

// AliveCount returns the number of players still alive.
func (g *Game) AliveCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, p := range g.players {
		if p.Alive {
			n++
		}
	}
	return n
}
