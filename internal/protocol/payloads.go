package protocol

import "encoding/json"

// OnlineUser is one entry in the online list.
type OnlineUser struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Nickname string `json:"nickname"`
	Status   string `json:"status"`
	Location string `json:"location"`
}

// OnlineListData answers ONLINE_LIST and rides inside RECONNECT.
type OnlineListData struct {
	OnlineCount int          `json:"onlineCount"`
	OnlineUsers []OnlineUser `json:"onlineUsers"`
}

// UserOnlineData announces a user coming online.
type UserOnlineData struct {
	UserID   int64  `json:"userId"`
	Nickname string `json:"nickname"`
}

// UserOfflineData announces a user going offline.
type UserOfflineData struct {
	UserID int64 `json:"userId"`
}

// CreateRoomRequest asks for a new room.
type CreateRoomRequest struct {
	Name     string `json:"name"`
	Mode     string `json:"mode"`
	Password string `json:"password,omitempty"`
}

// JoinRoomRequest asks to join an existing room.
type JoinRoomRequest struct {
	RoomID   int64  `json:"roomId"`
	Password string `json:"password,omitempty"`
}

// RoomIDRequest carries just a room id (leave, dismiss).
type RoomIDRequest struct {
	RoomID int64 `json:"roomId"`
}

// RoomMember is one member in a room snapshot.
type RoomMember struct {
	UserID   int64  `json:"userId"`
	Nickname string `json:"nickname"`
	Online   bool   `json:"online"`
	Ready    bool   `json:"ready"`
	Owner    bool   `json:"owner"`
}

// RoomSnapshot describes a room for list responses and state pushes.
type RoomSnapshot struct {
	RoomID      int64        `json:"roomId"`
	Name        string       `json:"name"`
	OwnerID     int64        `json:"ownerId"`
	Status      string       `json:"status"`
	Mode        string       `json:"mode"`
	MaxPlayers  int          `json:"maxPlayers"`
	MemberCount int          `json:"memberCount"`
	Private     bool         `json:"private"`
	Members     []RoomMember `json:"members,omitempty"`
}

// RoomListData answers ROOM_LIST.
type RoomListData struct {
	Rooms []RoomSnapshot `json:"rooms"`
}

// ChatRequest carries a room chat message.
type ChatRequest struct {
	Content string `json:"content"`
}

// ChatPushData broadcasts a room chat message.
type ChatPushData struct {
	UserID   int64  `json:"userId"`
	Nickname string `json:"nickname"`
	Content  string `json:"content"`
}

// SignalRequest relays a WebRTC payload to another room member. The
// payload is forwarded verbatim; the server never inspects it.
type SignalRequest struct {
	TargetID int64           `json:"targetId"`
	Payload  json.RawMessage `json:"payload"`
}

// SignalPushData delivers a relayed WebRTC payload.
type SignalPushData struct {
	FromID  int64           `json:"fromId"`
	Payload json.RawMessage `json:"payload"`
}

// StartGameRequest asks the room owner to start a game.
type StartGameRequest struct {
	RoomID int64 `json:"roomId"`
}

// GameCard is a card on the wire.
type GameCard struct {
	Rank string `json:"rank"`
}

// SeatInfo is one seat in the seating order push.
type SeatInfo struct {
	Seat     int    `json:"seat"`
	UserID   int64  `json:"userId"`
	Nickname string `json:"nickname"`
}

// SeatsPushData announces the seating order at game start.
type SeatsPushData struct {
	GameID int64      `json:"gameId"`
	Seats  []SeatInfo `json:"seats"`
}

// GameStartedData is the personalized game-start push: the recipient's
// own hand plus public counts for every seat.
type GameStartedData struct {
	GameID        int64      `json:"gameId"`
	RoundNumber   int        `json:"roundNumber"`
	TargetRank    string     `json:"targetCardType"`
	FirstPlayerID int64      `json:"firstPlayerId"`
	HandCards     []GameCard `json:"handCards"`
	PlayerIDs     []int64    `json:"playerIds"`
	HandCounts    []int      `json:"handCounts"`
	BulletCounts  []int      `json:"bulletCounts"`
}

// PlayCardsRequest plays 1..3 cards by rank.
type PlayCardsRequest struct {
	GameID int64    `json:"gameId"`
	Ranks  []string `json:"cards"`
}

// PlayedPushData broadcasts a play without revealing the cards.
type PlayedPushData struct {
	GameID         int64 `json:"gameId"`
	PlayerID       int64 `json:"playerId"`
	CardsCount     int   `json:"cardsCount"`
	RemainingCards int   `json:"remainingCards"`
	NextPlayerID   int64 `json:"nextPlayerId"`
}

// GameIDRequest carries just a game id (challenge, leave).
type GameIDRequest struct {
	GameID int64 `json:"gameId"`
}

// ChallengeResultData broadcasts a resolved challenge, revealing the
// disputed cards.
type ChallengeResultData struct {
	GameID       int64      `json:"gameId"`
	RoundNumber  int        `json:"roundNumber"`
	ChallengerID int64      `json:"challengerId"`
	LastPlayerID int64      `json:"lastPlayerId"`
	PlayedCards  []GameCard `json:"playedCards"`
	LoserID      int64      `json:"loserId"`
	LoserDead    bool       `json:"loserDead"`
}

// NewRoundData is the personalized new-round push.
type NewRoundData struct {
	GameID        int64      `json:"gameId"`
	RoundNumber   int        `json:"roundNumber"`
	TargetRank    string     `json:"targetCardType"`
	FirstPlayerID int64      `json:"firstPlayerId"`
	HandCards     []GameCard `json:"handCards"`
	PlayerIDs     []int64    `json:"playerIds"`
	HandCounts    []int      `json:"handCounts"`
	BulletCounts  []int      `json:"bulletCounts"`
}

// GameLeaveData broadcasts a player leaving a running game.
type GameLeaveData struct {
	GameID   int64 `json:"gameId"`
	PlayerID int64 `json:"playerId"`
}

// GameFinishedData broadcasts the end of a game. WinnerID is zero when
// nobody survived.
type GameFinishedData struct {
	GameID   int64 `json:"gameId"`
	WinnerID int64 `json:"winnerId"`
}

// ReconnectGameState is the in-game portion of the reconnect snapshot.
// Card contents are the recipient's own only.
type ReconnectGameState struct {
	GameID          int64      `json:"gameId"`
	RoundNumber     int        `json:"roundNumber"`
	TargetRank      string     `json:"targetCardType"`
	CurrentPlayerID int64      `json:"currentPlayerId"`
	HandCards       []GameCard `json:"handCards"`
	Alive           bool       `json:"alive"`
	PlayerIDs       []int64    `json:"playerIds"`
	HandCounts      []int      `json:"handCounts"`
	BulletCounts    []int      `json:"bulletCounts"`
}

// ReconnectData is the consolidated state push sent when a user
// re-registers while still holding a presence.
type ReconnectData struct {
	OnlineList OnlineListData      `json:"onlineList"`
	Room       *RoomSnapshot       `json:"room,omitempty"`
	Game       *ReconnectGameState `json:"game,omitempty"`
}

// HeartbeatData echoes a heartbeat with the server timestamp.
type HeartbeatData struct {
	ServerTime int64 `json:"serverTime"`
}
