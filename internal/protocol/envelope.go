// Package protocol defines the JSON wire format: the request/response
// envelope, module and command identifiers, and the payload shapes
// exchanged with clients.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Module routes a command to its handler group.
type Module string

// Handler modules.
const (
	ModuleLobby  Module = "LOBBY"
	ModuleRoom   Module = "ROOM"
	ModuleGame   Module = "GAME"
	ModuleSystem Module = "SYSTEM"
)

// Cmd identifies a single request or push within a module.
type Cmd string

// Lobby commands.
const (
	CmdOnlineList      Cmd = "ONLINE_LIST"
	CmdUserOnlinePush  Cmd = "USER_ONLINE_PUSH"
	CmdUserOfflinePush Cmd = "USER_OFFLINE_PUSH"
	CmdReconnect       Cmd = "RECONNECT"
)

// Room commands.
const (
	CmdRoomCreate         Cmd = "ROOM_CREATE"
	CmdRoomList           Cmd = "ROOM_LIST"
	CmdRoomJoin           Cmd = "ROOM_JOIN"
	CmdRoomLeave          Cmd = "ROOM_LEAVE"
	CmdRoomDismiss        Cmd = "ROOM_DISMISS"
	CmdRoomChat           Cmd = "ROOM_CHAT"
	CmdPlayerPrepare      Cmd = "PLAYER_PREPARE"
	CmdPlayerCancelPrep   Cmd = "PLAYER_CANCEL_PREPARE"
	CmdRoomChatPush       Cmd = "ROOM_CHAT_PUSH"
	CmdRoomMembersPush    Cmd = "ROOM_MEMBERS_PUSH"
	CmdRoomStatePush      Cmd = "ROOM_STATE_PUSH"
	CmdWebRTCOffer        Cmd = "WEBRTC_OFFER"
	CmdWebRTCAnswer       Cmd = "WEBRTC_ANSWER"
	CmdWebRTCICECandidate Cmd = "WEBRTC_ICE_CANDIDATE"
)

// Game commands.
const (
	CmdStartGame       Cmd = "START_GAME"
	CmdPlayCards       Cmd = "PLAY_CARDS"
	CmdChallenge       Cmd = "CHALLENGE"
	CmdLeaveGame       Cmd = "LEAVE_GAME"
	CmdGameStarted     Cmd = "GAME_STARTED"
	CmdPlayerSeats     Cmd = "PLAYER_SEATS"
	CmdPlayerPlayed    Cmd = "PLAYER_PLAYED"
	CmdChallengeResult Cmd = "CHALLENGE_RESULT"
	CmdGameLeave       Cmd = "GAME_LEAVE"
	CmdNewRound        Cmd = "NEW_ROUND"
	CmdGameFinished    Cmd = "GAME_FINISHED"
)

// System commands.
const (
	CmdHeartbeat Cmd = "HEARTBEAT"
)

// Response codes.
const (
	CodeOK           = 200
	CodeBadRequest   = 400
	CodeUnauthorized = 401
	CodeForbidden    = 403
	CodeNotFound     = 404
	CodeConflict     = 409
	CodeInternal     = 500
)

// Envelope is the wire frame for every message in both directions.
// RequestID is echoed on responses and absent on pushes.
type Envelope struct {
	RequestID string          `json:"requestId,omitempty"`
	Module    Module          `json:"module"`
	Cmd       Cmd             `json:"cmd"`
	Code      int             `json:"code"`
	Msg       string          `json:"msg"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Decode parses an inbound frame.
//
// Postcondition: Returns an error when the frame is not valid JSON or
// names no module or command.
func Decode(frame []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Envelope{}, fmt.Errorf("protocol: decode frame: %w", err)
	}
	if env.Module == "" || env.Cmd == "" {
		return Envelope{}, fmt.Errorf("protocol: frame missing module or cmd")
	}
	return env, nil
}

// Encode serializes an envelope for the wire.
func (e Envelope) Encode() ([]byte, error) {
	frame, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode frame: %w", err)
	}
	return frame, nil
}

// Bind unmarshals the envelope's data into a request payload.
func (e Envelope) Bind(v any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("protocol: %s/%s request has no data", e.Module, e.Cmd)
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("protocol: bind %s/%s data: %w", e.Module, e.Cmd, err)
	}
	return nil
}

// marshalData panics on failure. Outbound payloads are plain structs of
// JSON-safe fields, so a marshal failure is a programming error; the
// dispatcher's recovery boundary turns it into a 500.
func marshalData(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("protocol: marshal payload: %v", err))
	}
	return data
}

// Response builds a success envelope echoing the request id.
func Response(requestID string, module Module, cmd Cmd, payload any) Envelope {
	return Envelope{
		RequestID: requestID,
		Module:    module,
		Cmd:       cmd,
		Code:      CodeOK,
		Msg:       "success",
		Data:      marshalData(payload),
	}
}

// Push builds a server-initiated envelope with no request id.
func Push(module Module, cmd Cmd, payload any) Envelope {
	return Envelope{
		Module: module,
		Cmd:    cmd,
		Code:   CodeOK,
		Msg:    "success",
		Data:   marshalData(payload),
	}
}

// Error builds a failure envelope echoing the request id.
func Error(requestID string, module Module, cmd Cmd, code int, msg string) Envelope {
	return Envelope{
		RequestID: requestID,
		Module:    module,
		Cmd:       cmd,
		Code:      code,
		Msg:       msg,
	}
}
