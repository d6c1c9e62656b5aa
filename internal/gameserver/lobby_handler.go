package gameserver

import (
	"github.com/liarsbar/backend/internal/game/engine"
	"github.com/liarsbar/backend/internal/game/presence"
	"github.com/liarsbar/backend/internal/game/room"
	"github.com/liarsbar/backend/internal/game/session"
	"github.com/liarsbar/backend/internal/protocol"
)

// LobbyHandler answers online-list requests and builds the reconnect
// snapshot.
type LobbyHandler struct {
	sessions  *session.Manager
	rooms     *room.Registry
	games     *engine.Registry
	broadcast *Broadcaster
}

// NewLobbyHandler creates a LobbyHandler with the given dependencies.
//
// Precondition: all dependencies must be non-nil.
func NewLobbyHandler(sessions *session.Manager, rooms *room.Registry, games *engine.Registry, broadcast *Broadcaster) *LobbyHandler {
	return &LobbyHandler{
		sessions:  sessions,
		rooms:     rooms,
		games:     games,
		broadcast: broadcast,
	}
}

// Handle routes one lobby command.
func (h *LobbyHandler) Handle(env protocol.Envelope, conn *session.Connection) (protocol.Envelope, error) {
	switch env.Cmd {
	case protocol.CmdOnlineList:
		return protocol.Response(env.RequestID, env.Module, env.Cmd, h.broadcast.onlineList()), nil
	default:
		return protocol.Envelope{}, errUnknownCmd
	}
}

// BuildReconnect assembles the consolidated state snapshot for a user
// who re-registered while still holding a presence: the online list,
// their room if any, and their own view of a running game.
func (h *LobbyHandler) BuildReconnect(p *presence.Presence) protocol.ReconnectData {
	data := protocol.ReconnectData{OnlineList: h.broadcast.onlineList()}

	r, inRoom := h.rooms.RoomByPlayer(p.UserID())
	if inRoom {
		snap := roomSnapshot(r)
		data.Room = &snap
	}

	g, inGame := h.games.GameByPlayer(p.UserID())
	if !inGame {
		return data
	}
	snap := g.Snapshot()
	seat, ok := snap.Seat(p.UserID())
	if !ok {
		return data
	}

	hand := make([]protocol.GameCard, 0, seat.HandSize())
	for _, c := range seat.Hand {
		hand = append(hand, protocol.GameCard{Rank: string(c.Rank)})
	}

	state := &protocol.ReconnectGameState{
		GameID:          snap.GameID,
		RoundNumber:     snap.RoundNumber,
		TargetRank:      string(snap.Target),
		HandCards:       hand,
		Alive:           seat.Alive,
		CurrentPlayerID: snap.CurrentPlayerID,
	}
	state.PlayerIDs, state.HandCounts, state.BulletCounts = publicCounts(snap)
	data.Game = state
	return data
}

// publicCounts returns the seat order with per-seat hand and bullet
// counts. Counts only; other players' cards are never exposed.
func publicCounts(snap engine.Snapshot) (ids []int64, hands []int, bullets []int) {
	for _, seat := range snap.Seats {
		ids = append(ids, seat.PlayerID)
		hands = append(hands, seat.HandSize())
		bullets = append(bullets, seat.BulletCount)
	}
	return ids, hands, bullets
}
