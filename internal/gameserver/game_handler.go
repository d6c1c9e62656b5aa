package gameserver

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/liarsbar/backend/internal/game/card"
	"github.com/liarsbar/backend/internal/game/engine"
	"github.com/liarsbar/backend/internal/game/presence"
	"github.com/liarsbar/backend/internal/game/room"
	"github.com/liarsbar/backend/internal/game/session"
	"github.com/liarsbar/backend/internal/protocol"
)

// GameHandler starts games and runs the play/challenge/leave flow.
type GameHandler struct {
	sessions  *session.Manager
	rooms     *room.Registry
	games     *engine.Registry
	broadcast *Broadcaster
	logger    *zap.Logger
}

// NewGameHandler creates a GameHandler with the given dependencies.
//
// Precondition: all dependencies must be non-nil.
func NewGameHandler(sessions *session.Manager, rooms *room.Registry, games *engine.Registry, broadcast *Broadcaster, logger *zap.Logger) *GameHandler {
	return &GameHandler{
		sessions:  sessions,
		rooms:     rooms,
		games:     games,
		broadcast: broadcast,
		logger:    logger,
	}
}

// Handle routes one game command.
func (h *GameHandler) Handle(env protocol.Envelope, conn *session.Connection) (protocol.Envelope, error) {
	p, ok := h.sessions.Presence(conn.UserID())
	if !ok {
		return protocol.Envelope{}, errNoPresence
	}

	switch env.Cmd {
	case protocol.CmdStartGame:
		return h.start(env, p)
	case protocol.CmdPlayCards:
		return h.play(env, p)
	case protocol.CmdChallenge:
		return h.challenge(env, p)
	case protocol.CmdLeaveGame:
		return h.leave(env, p)
	default:
		return protocol.Envelope{}, errUnknownCmd
	}
}

func (h *GameHandler) start(env protocol.Envelope, p *presence.Presence) (protocol.Envelope, error) {
	var req protocol.StartGameRequest
	if err := env.Bind(&req); err != nil {
		return protocol.Envelope{}, fmt.Errorf("%w: %s", errBadPayload, err)
	}

	r, ok := h.rooms.Room(req.RoomID)
	if !ok {
		return protocol.Envelope{}, room.ErrRoomNotFound
	}
	if _, ok := r.Member(p.UserID()); !ok {
		return protocol.Envelope{}, room.ErrNotInRoom
	}
	if r.OwnerID() != p.UserID() {
		return protocol.Envelope{}, errNotRoomOwner
	}
	if h.games.RoomHasGame(r.ID()) {
		return protocol.Envelope{}, engine.ErrGameExists
	}

	// Only online members are seated.
	var playerIDs []int64
	for _, member := range r.Members() {
		if member.Online() {
			playerIDs = append(playerIDs, member.UserID())
		}
	}

	if _, err := h.rooms.MarkPlaying(p.UserID(), r.ID()); err != nil {
		return protocol.Envelope{}, err
	}
	g, err := h.games.CreateGame(r.ID(), playerIDs)
	if err != nil {
		// Roll the room back so it can start again.
		if _, ferr := h.rooms.MarkFinished(r.ID()); ferr != nil {
			h.logger.Error("room rollback after failed start",
				zap.Int64("roomId", r.ID()),
				zap.Error(ferr))
		}
		return protocol.Envelope{}, err
	}
	if err := g.Start(); err != nil {
		h.games.Cleanup(g.ID())
		if _, ferr := h.rooms.MarkFinished(r.ID()); ferr != nil {
			h.logger.Error("room rollback after failed start",
				zap.Int64("roomId", r.ID()),
				zap.Error(ferr))
		}
		return protocol.Envelope{}, err
	}

	for seat, id := range g.SeatOrder() {
		if member, ok := r.Member(id); ok {
			member.EnterGame(seat)
		}
	}

	h.pushSeats(g)
	h.pushRound(g, protocol.CmdGameStarted)
	h.broadcast.PushRoomState(r)

	h.logger.Info("game started",
		zap.Int64("gameId", g.ID()),
		zap.Int64("roomId", r.ID()),
		zap.Int("players", len(playerIDs)))
	return protocol.Response(env.RequestID, env.Module, env.Cmd, protocol.GameIDRequest{GameID: g.ID()}), nil
}

func (h *GameHandler) play(env protocol.Envelope, p *presence.Presence) (protocol.Envelope, error) {
	var req protocol.PlayCardsRequest
	if err := env.Bind(&req); err != nil {
		return protocol.Envelope{}, fmt.Errorf("%w: %s", errBadPayload, err)
	}

	g, ok := h.games.Game(req.GameID)
	if !ok {
		return protocol.Envelope{}, engine.ErrGameNotFound
	}

	cards := make([]card.Card, 0, len(req.Ranks))
	for _, s := range req.Ranks {
		rank, err := card.ParseRank(s)
		if err != nil {
			return protocol.Envelope{}, fmt.Errorf("%w: %s", errBadPayload, err)
		}
		cards = append(cards, card.Card{Rank: rank})
	}

	if err := g.PlayCards(p.UserID(), cards); err != nil {
		return protocol.Envelope{}, err
	}

	snap := g.Snapshot()
	var remaining int
	if seat, ok := snap.Seat(p.UserID()); ok {
		remaining = seat.HandSize()
	}
	h.broadcast.ToGame(g, protocol.Push(protocol.ModuleGame, protocol.CmdPlayerPlayed, protocol.PlayedPushData{
		GameID:         g.ID(),
		PlayerID:       p.UserID(),
		CardsCount:     len(cards),
		RemainingCards: remaining,
		NextPlayerID:   snap.CurrentPlayerID,
	}))
	return protocol.Response(env.RequestID, env.Module, env.Cmd, nil), nil
}

func (h *GameHandler) challenge(env protocol.Envelope, p *presence.Presence) (protocol.Envelope, error) {
	var req protocol.GameIDRequest
	if err := env.Bind(&req); err != nil {
		return protocol.Envelope{}, fmt.Errorf("%w: %s", errBadPayload, err)
	}

	g, ok := h.games.Game(req.GameID)
	if !ok {
		return protocol.Envelope{}, engine.ErrGameNotFound
	}

	outcome, err := g.Challenge(p.UserID())
	if err != nil {
		return protocol.Envelope{}, err
	}

	played := make([]protocol.GameCard, 0, len(outcome.PlayedCards))
	for _, c := range outcome.PlayedCards {
		played = append(played, protocol.GameCard{Rank: string(c.Rank)})
	}
	h.broadcast.ToGame(g, protocol.Push(protocol.ModuleGame, protocol.CmdChallengeResult, protocol.ChallengeResultData{
		GameID:       g.ID(),
		RoundNumber:  outcome.RoundNumber,
		ChallengerID: p.UserID(),
		LastPlayerID: outcome.LastPlayerID,
		PlayedCards:  played,
		LoserID:      outcome.LoserID,
		LoserDead:    outcome.LoserDead,
	}))

	if outcome.GameOver {
		h.finishGame(g, outcome.WinnerID)
	} else {
		h.pushRound(g, protocol.CmdNewRound)
	}
	return protocol.Response(env.RequestID, env.Module, env.Cmd, nil), nil
}

func (h *GameHandler) leave(env protocol.Envelope, p *presence.Presence) (protocol.Envelope, error) {
	var req protocol.GameIDRequest
	if err := env.Bind(&req); err != nil {
		return protocol.Envelope{}, fmt.Errorf("%w: %s", errBadPayload, err)
	}

	g, ok := h.games.Game(req.GameID)
	if !ok {
		return protocol.Envelope{}, engine.ErrGameNotFound
	}

	if err := h.LeaveGame(g, p); err != nil {
		return protocol.Envelope{}, err
	}
	return protocol.Response(env.RequestID, env.Module, env.Cmd, nil), nil
}

// LeaveGame eliminates a player from a running game and drives the
// follow-up: game-over push or a fresh round. Also called by the
// disconnect grace teardown.
func (h *GameHandler) LeaveGame(g *engine.Game, p *presence.Presence) error {
	handled, err := g.Leave(p.UserID())
	if err != nil {
		return err
	}
	h.games.RemovePlayer(p.UserID())
	p.LeaveGame()
	if !handled {
		// Already eliminated; nothing to announce.
		return nil
	}

	h.broadcast.ToGame(g, protocol.Push(protocol.ModuleGame, protocol.CmdGameLeave, protocol.GameLeaveData{
		GameID:   g.ID(),
		PlayerID: p.UserID(),
	}))

	if g.Status() == engine.StatusFinished {
		var winnerID int64
		if w := g.Winner(); w != nil {
			winnerID = w.ID
		}
		h.finishGame(g, winnerID)
		return nil
	}
	h.pushRound(g, protocol.CmdNewRound)
	return nil
}

// pushSeats broadcasts the seating order at game start.
func (h *GameHandler) pushSeats(g *engine.Game) {
	order := g.SeatOrder()
	seats := make([]protocol.SeatInfo, 0, len(order))
	for seat, id := range order {
		info := protocol.SeatInfo{Seat: seat, UserID: id}
		if p, ok := h.sessions.Presence(id); ok {
			info.Nickname = p.Nickname()
		}
		seats = append(seats, info)
	}
	h.broadcast.ToGame(g, protocol.Push(protocol.ModuleGame, protocol.CmdPlayerSeats, protocol.SeatsPushData{
		GameID: g.ID(),
		Seats:  seats,
	}))
}

// pushRound sends each seated player a personalized round payload: own
// hand in full, everyone else as counts. All reads come from one locked
// snapshot so a concurrent play never tears the payload.
func (h *GameHandler) pushRound(g *engine.Game, cmd protocol.Cmd) {
	snap := g.Snapshot()
	ids, handCounts, bulletCounts := publicCounts(snap)

	for _, seat := range snap.Seats {
		hand := make([]protocol.GameCard, 0, seat.HandSize())
		for _, c := range seat.Hand {
			hand = append(hand, protocol.GameCard{Rank: string(c.Rank)})
		}
		payload := protocol.NewRoundData{
			GameID:        snap.GameID,
			RoundNumber:   snap.RoundNumber,
			TargetRank:    string(snap.Target),
			FirstPlayerID: snap.CurrentPlayerID,
			HandCards:     hand,
			PlayerIDs:     ids,
			HandCounts:    handCounts,
			BulletCounts:  bulletCounts,
		}
		h.broadcast.ToUser(seat.PlayerID, protocol.Push(protocol.ModuleGame, cmd, payload))
	}
}

// finishGame broadcasts the result, updates player records, tears the
// game down, and returns the room to the waiting state.
func (h *GameHandler) finishGame(g *engine.Game, winnerID int64) {
	h.broadcast.ToGame(g, protocol.Push(protocol.ModuleGame, protocol.CmdGameFinished, protocol.GameFinishedData{
		GameID:   g.ID(),
		WinnerID: winnerID,
	}))

	for _, id := range g.SeatOrder() {
		p, ok := h.sessions.Presence(id)
		if !ok {
			continue
		}
		if id == winnerID {
			p.RecordWin()
		} else {
			p.RecordLoss()
		}
		p.LeaveGame()
	}

	roomID, hadRoom := h.games.RoomForGame(g.ID())
	g.End()
	h.games.Cleanup(g.ID())

	if hadRoom {
		if rm, err := h.rooms.MarkFinished(roomID); err == nil {
			h.broadcast.PushRoomState(rm)
		}
	}

	h.logger.Info("game finished",
		zap.Int64("gameId", g.ID()),
		zap.Int64("winnerId", winnerID))
}
