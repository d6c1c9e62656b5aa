package gameserver

import (
	"fmt"
	"strings"

	"github.com/liarsbar/backend/internal/game/presence"
	"github.com/liarsbar/backend/internal/game/room"
	"github.com/liarsbar/backend/internal/game/session"
	"github.com/liarsbar/backend/internal/protocol"
)

// RoomHandler handles room membership, readiness, chat, and the WebRTC
// signaling relay.
type RoomHandler struct {
	sessions  *session.Manager
	rooms     *room.Registry
	broadcast *Broadcaster
}

// NewRoomHandler creates a RoomHandler with the given dependencies.
//
// Precondition: all dependencies must be non-nil.
func NewRoomHandler(sessions *session.Manager, rooms *room.Registry, broadcast *Broadcaster) *RoomHandler {
	return &RoomHandler{
		sessions:  sessions,
		rooms:     rooms,
		broadcast: broadcast,
	}
}

// Handle routes one room command.
func (h *RoomHandler) Handle(env protocol.Envelope, conn *session.Connection) (protocol.Envelope, error) {
	p, ok := h.sessions.Presence(conn.UserID())
	if !ok {
		return protocol.Envelope{}, errNoPresence
	}

	switch env.Cmd {
	case protocol.CmdRoomCreate:
		return h.create(env, p)
	case protocol.CmdRoomList:
		return h.list(env)
	case protocol.CmdRoomJoin:
		return h.join(env, p)
	case protocol.CmdRoomLeave:
		return h.leave(env, p)
	case protocol.CmdRoomDismiss:
		return h.dismiss(env, p)
	case protocol.CmdPlayerPrepare:
		return h.ready(env, p, true)
	case protocol.CmdPlayerCancelPrep:
		return h.ready(env, p, false)
	case protocol.CmdRoomChat:
		return h.chat(env, p)
	case protocol.CmdWebRTCOffer, protocol.CmdWebRTCAnswer, protocol.CmdWebRTCICECandidate:
		return h.relay(env, p)
	default:
		return protocol.Envelope{}, errUnknownCmd
	}
}

func (h *RoomHandler) create(env protocol.Envelope, p *presence.Presence) (protocol.Envelope, error) {
	var req protocol.CreateRoomRequest
	if err := env.Bind(&req); err != nil {
		return protocol.Envelope{}, fmt.Errorf("%w: %s", errBadPayload, err)
	}
	mode, err := room.ParseMode(req.Mode)
	if err != nil {
		return protocol.Envelope{}, room.ErrInvalidMode
	}

	r, err := h.rooms.CreateRoom(p, req.Name, mode, req.Password)
	if err != nil {
		return protocol.Envelope{}, err
	}
	return protocol.Response(env.RequestID, env.Module, env.Cmd, roomSnapshot(r)), nil
}

func (h *RoomHandler) list(env protocol.Envelope) (protocol.Envelope, error) {
	rooms := h.rooms.JoinableRooms()
	snaps := make([]protocol.RoomSnapshot, 0, len(rooms))
	for _, r := range rooms {
		snap := roomSnapshot(r)
		// Listings are summaries; members ride only on room pushes.
		snap.Members = nil
		snaps = append(snaps, snap)
	}
	return protocol.Response(env.RequestID, env.Module, env.Cmd, protocol.RoomListData{Rooms: snaps}), nil
}

func (h *RoomHandler) join(env protocol.Envelope, p *presence.Presence) (protocol.Envelope, error) {
	var req protocol.JoinRoomRequest
	if err := env.Bind(&req); err != nil {
		return protocol.Envelope{}, fmt.Errorf("%w: %s", errBadPayload, err)
	}

	r, err := h.rooms.JoinRoom(p, req.RoomID, req.Password)
	if err != nil {
		return protocol.Envelope{}, err
	}
	h.broadcast.PushRoomMembers(r)
	return protocol.Response(env.RequestID, env.Module, env.Cmd, roomSnapshot(r)), nil
}

func (h *RoomHandler) leave(env protocol.Envelope, p *presence.Presence) (protocol.Envelope, error) {
	r, err := h.rooms.LeaveRoom(p)
	if err != nil {
		return protocol.Envelope{}, err
	}
	if r.MemberCount() > 0 {
		h.broadcast.PushRoomMembers(r)
	}
	return protocol.Response(env.RequestID, env.Module, env.Cmd, nil), nil
}

func (h *RoomHandler) dismiss(env protocol.Envelope, p *presence.Presence) (protocol.Envelope, error) {
	var req protocol.RoomIDRequest
	if err := env.Bind(&req); err != nil {
		return protocol.Envelope{}, fmt.Errorf("%w: %s", errBadPayload, err)
	}

	evicted, err := h.rooms.DismissRoom(p.UserID(), req.RoomID)
	if err != nil {
		return protocol.Envelope{}, err
	}
	notice := protocol.Push(protocol.ModuleRoom, protocol.CmdRoomStatePush, protocol.RoomSnapshot{
		RoomID: req.RoomID,
		Status: string(room.StatusDismissed),
	})
	for _, member := range evicted {
		h.broadcast.ToUser(member.UserID(), notice)
	}
	return protocol.Response(env.RequestID, env.Module, env.Cmd, nil), nil
}

func (h *RoomHandler) ready(env protocol.Envelope, p *presence.Presence, ready bool) (protocol.Envelope, error) {
	r, err := h.rooms.SetReady(p, ready)
	if err != nil {
		return protocol.Envelope{}, err
	}
	h.broadcast.PushRoomMembers(r)
	h.broadcast.PushRoomState(r)
	return protocol.Response(env.RequestID, env.Module, env.Cmd, nil), nil
}

func (h *RoomHandler) chat(env protocol.Envelope, p *presence.Presence) (protocol.Envelope, error) {
	var req protocol.ChatRequest
	if err := env.Bind(&req); err != nil {
		return protocol.Envelope{}, fmt.Errorf("%w: %s", errBadPayload, err)
	}
	if strings.TrimSpace(req.Content) == "" {
		return protocol.Envelope{}, errEmptyChat
	}

	r, ok := h.rooms.RoomByPlayer(p.UserID())
	if !ok {
		return protocol.Envelope{}, room.ErrNotInRoom
	}

	h.broadcast.ToRoom(r, protocol.Push(protocol.ModuleRoom, protocol.CmdRoomChatPush, protocol.ChatPushData{
		UserID:   p.UserID(),
		Nickname: p.Nickname(),
		Content:  req.Content,
	}))
	return protocol.Response(env.RequestID, env.Module, env.Cmd, nil), nil
}

// relay forwards a WebRTC signaling payload to another member of the
// sender's room. The payload is opaque to the server.
func (h *RoomHandler) relay(env protocol.Envelope, p *presence.Presence) (protocol.Envelope, error) {
	var req protocol.SignalRequest
	if err := env.Bind(&req); err != nil {
		return protocol.Envelope{}, fmt.Errorf("%w: %s", errBadPayload, err)
	}

	r, ok := h.rooms.RoomByPlayer(p.UserID())
	if !ok {
		return protocol.Envelope{}, room.ErrNotInRoom
	}
	if _, ok := r.Member(req.TargetID); !ok {
		return protocol.Envelope{}, errNotSameRoom
	}
	if !h.sessions.IsOnline(req.TargetID) {
		return protocol.Envelope{}, errTargetAway
	}

	h.broadcast.ToUser(req.TargetID, protocol.Push(protocol.ModuleRoom, env.Cmd, protocol.SignalPushData{
		FromID:  p.UserID(),
		Payload: req.Payload,
	}))
	return protocol.Response(env.RequestID, env.Module, env.Cmd, nil), nil
}
