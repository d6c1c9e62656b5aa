// Package presence holds the persistent per-user player state that
// survives disconnects: identity, online flag, location, and room/game
// flags. A Presence never stores a room or game id; callers derive those
// by asking the registries, keeping the record free of stale back-refs.
package presence

import (
	"sync"
	"time"
)

// Location identifies where a player currently is.
type Location string

// Player locations.
const (
	Lobby  Location = "LOBBY"
	InRoom Location = "ROOM"
	InGame Location = "GAME"
)

// Presence is one user's persistent player state. Created on first
// successful connection; reset, never destroyed, while the process runs.
// All methods are safe for concurrent use.
type Presence struct {
	mu sync.RWMutex

	userID   int64
	username string
	nickname string

	online   bool
	location Location
	seat     int
	ready    bool
	owner    bool

	score    int
	winCount int
	lossCnt  int

	joinedAt time.Time
}

// New creates a Presence in the lobby, offline, with no seat.
//
// Precondition: userID must be positive; username must be non-empty.
func New(userID int64, username, nickname string) *Presence {
	return &Presence{
		userID:   userID,
		username: username,
		nickname: nickname,
		location: Lobby,
		seat:     -1,
	}
}

// UserID returns the persistent user identity.
func (p *Presence) UserID() int64 { return p.userID }

// Username returns the account username.
func (p *Presence) Username() string { return p.username }

// Nickname returns the display name.
func (p *Presence) Nickname() string { return p.nickname }

// SetNickname updates the display name (refreshed on reconnect).
func (p *Presence) SetNickname(nick string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nickname = nick
}

// Online reports whether the user currently has an open connection.
func (p *Presence) Online() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.online
}

// SetOnline flips the online flag.
func (p *Presence) SetOnline(online bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online = online
}

// Location returns the player's current location.
func (p *Presence) Location() Location {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.location
}

// Seat returns the assigned seat number, or -1 when unseated.
func (p *Presence) Seat() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.seat
}

// Ready reports the room ready flag.
func (p *Presence) Ready() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ready
}

// SetReady sets the room ready flag.
func (p *Presence) SetReady(ready bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ready = ready
}

// Owner reports whether the player owns their current room.
func (p *Presence) Owner() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.owner
}

// SetOwner sets the room-owner flag.
func (p *Presence) SetOwner(owner bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.owner = owner
}

// Prepared reports whether the player counts toward a room's all-ready
// check: ready and currently online.
func (p *Presence) Prepared() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ready && p.online
}

// WinCount returns the number of games won.
func (p *Presence) WinCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.winCount
}

// LossCount returns the number of games lost.
func (p *Presence) LossCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lossCnt
}

// Score returns the accumulated score.
func (p *Presence) Score() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.score
}

// RecordWin increments the win counter and score.
func (p *Presence) RecordWin() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.winCount++
	p.score++
}

// RecordLoss increments the loss counter.
func (p *Presence) RecordLoss() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lossCnt++
}

// EnterLobby resets room and game fields and places the player in the lobby.
func (p *Presence) EnterLobby() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.location = Lobby
	p.ready = false
	p.owner = false
	p.seat = -1
}

// EnterRoom marks the player as in a room, unready.
func (p *Presence) EnterRoom() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.location = InRoom
	p.ready = false
	p.joinedAt = time.Now()
}

// LeaveRoom returns the player to the lobby, clearing room flags.
func (p *Presence) LeaveRoom() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.location = Lobby
	p.ready = false
	p.owner = false
	p.seat = -1
}

// EnterGame marks the player as in a game with the given seat.
func (p *Presence) EnterGame(seat int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.location = InGame
	p.seat = seat
}

// LeaveGame returns the player to their room, clearing game-only fields.
// No-op for players who were not in a game.
func (p *Presence) LeaveGame() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.location != InGame {
		return
	}
	p.location = InRoom
	p.seat = -1
	p.ready = false
}

// StatusLabel is the wire string for the online flag.
func (p *Presence) StatusLabel() string {
	if p.Online() {
		return "ONLINE"
	}
	return "OFFLINE"
}
