package gameserver

import (
	"go.uber.org/zap"

	"github.com/liarsbar/backend/internal/game/engine"
	"github.com/liarsbar/backend/internal/game/presence"
	"github.com/liarsbar/backend/internal/game/room"
	"github.com/liarsbar/backend/internal/game/session"
	"github.com/liarsbar/backend/internal/protocol"
)

// Broadcaster fans envelopes out to rooms, games, and the whole server.
// All sends are best effort.
type Broadcaster struct {
	sessions *session.Manager
	logger   *zap.Logger
}

// NewBroadcaster creates a Broadcaster.
//
// Precondition: sessions and logger must be non-nil.
func NewBroadcaster(sessions *session.Manager, logger *zap.Logger) *Broadcaster {
	return &Broadcaster{sessions: sessions, logger: logger}
}

func (b *Broadcaster) send(env protocol.Envelope, userIDs []int64) {
	frame, err := env.Encode()
	if err != nil {
		b.logger.Error("encode broadcast frame",
			zap.String("cmd", string(env.Cmd)),
			zap.Error(err))
		return
	}
	for _, userID := range userIDs {
		b.sessions.SendToUser(userID, frame)
	}
}

// ToUser sends an envelope to a single user if online.
func (b *Broadcaster) ToUser(userID int64, env protocol.Envelope) {
	b.send(env, []int64{userID})
}

// ToRoom sends an envelope to every member of a room.
func (b *Broadcaster) ToRoom(r *room.Room, env protocol.Envelope) {
	b.send(env, r.MemberIDs())
}

// ToGame sends an envelope to every seated player of a game, dead or
// alive. Spectating eliminated players keep receiving updates.
func (b *Broadcaster) ToGame(g *engine.Game, env protocol.Envelope) {
	b.send(env, g.SeatOrder())
}

// ToAll sends an envelope to every live connection.
func (b *Broadcaster) ToAll(env protocol.Envelope) {
	frame, err := env.Encode()
	if err != nil {
		b.logger.Error("encode broadcast frame",
			zap.String("cmd", string(env.Cmd)),
			zap.Error(err))
		return
	}
	b.sessions.BroadcastAll(frame)
}

// onlineUser converts a presence record to its wire form.
func onlineUser(p *presence.Presence) protocol.OnlineUser {
	return protocol.OnlineUser{
		UserID:   p.UserID(),
		Username: p.Username(),
		Nickname: p.Nickname(),
		Status:   p.StatusLabel(),
		Location: string(p.Location()),
	}
}

// onlineList builds the current online list payload.
func (b *Broadcaster) onlineList() protocol.OnlineListData {
	online := b.sessions.OnlinePresences()
	users := make([]protocol.OnlineUser, 0, len(online))
	for _, p := range online {
		users = append(users, onlineUser(p))
	}
	return protocol.OnlineListData{OnlineCount: len(users), OnlineUsers: users}
}

// AnnounceOnline pushes a user-online notice to everyone else.
func (b *Broadcaster) AnnounceOnline(p *presence.Presence) {
	env := protocol.Push(protocol.ModuleLobby, protocol.CmdUserOnlinePush, protocol.UserOnlineData{
		UserID:   p.UserID(),
		Nickname: p.Nickname(),
	})
	b.ToAll(env)
}

// AnnounceOffline pushes a user-offline notice to everyone.
func (b *Broadcaster) AnnounceOffline(userID int64) {
	env := protocol.Push(protocol.ModuleLobby, protocol.CmdUserOfflinePush, protocol.UserOfflineData{
		UserID: userID,
	})
	b.ToAll(env)
}

// roomSnapshot converts a room to its wire form, members included.
func roomSnapshot(r *room.Room) protocol.RoomSnapshot {
	members := r.Members()
	wire := make([]protocol.RoomMember, 0, len(members))
	for _, p := range members {
		wire = append(wire, protocol.RoomMember{
			UserID:   p.UserID(),
			Nickname: p.Nickname(),
			Online:   p.Online(),
			Ready:    p.Ready(),
			Owner:    p.UserID() == r.OwnerID(),
		})
	}
	return protocol.RoomSnapshot{
		RoomID:      r.ID(),
		Name:        r.Name(),
		OwnerID:     r.OwnerID(),
		Status:      string(r.Status()),
		Mode:        string(r.Mode()),
		MaxPlayers:  r.MaxPlayers(),
		MemberCount: r.MemberCount(),
		Private:     r.Private(),
		Members:     wire,
	}
}

// PushRoomState pushes the full room snapshot to every member.
func (b *Broadcaster) PushRoomState(r *room.Room) {
	b.ToRoom(r, protocol.Push(protocol.ModuleRoom, protocol.CmdRoomStatePush, roomSnapshot(r)))
}

// PushRoomMembers pushes the member list to every member.
func (b *Broadcaster) PushRoomMembers(r *room.Room) {
	snap := roomSnapshot(r)
	b.ToRoom(r, protocol.Push(protocol.ModuleRoom, protocol.CmdRoomMembersPush, snap))
}
