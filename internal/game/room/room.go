// Package room manages game rooms: creation, membership, readiness, and
// lifecycle status. Rooms hold presence records by reference; player
// location changes go through the presence record itself.
package room

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/liarsbar/backend/internal/game/presence"
)

// Status is the lifecycle state of a room.
type Status string

// Room lifecycle states.
const (
	StatusWaiting   Status = "WAITING"
	StatusPreparing Status = "PREPARING"
	StatusPlaying   Status = "PLAYING"
	StatusFinished  Status = "FINISHED"
	StatusDismissed Status = "DISMISSED"
)

// Mode selects the room's player capacity preset.
type Mode string

// Room modes.
const (
	ModeClassic Mode = "CLASSIC"
	ModeQuick   Mode = "QUICK"
	ModeCustom  Mode = "CUSTOM"
)

// Capacity returns the player cap for the mode.
func (m Mode) Capacity() int {
	if m == ModeQuick {
		return 3
	}
	return 4
}

// Valid reports whether the mode is a known preset.
func (m Mode) Valid() bool {
	switch m {
	case ModeClassic, ModeQuick, ModeCustom:
		return true
	}
	return false
}

// ParseMode converts a wire string to a Mode, defaulting to CLASSIC for
// the empty string.
func ParseMode(s string) (Mode, error) {
	if s == "" {
		return ModeClassic, nil
	}
	m := Mode(s)
	if !m.Valid() {
		return "", errors.New("room: unknown mode " + s)
	}
	return m, nil
}

// Room is a single game room. Membership, ownership, and status are
// guarded by the room's own mutex so handlers may read a room that has
// escaped the Registry while the Registry mutates it. The id, name,
// mode, capacity, and password never change after creation.
type Room struct {
	id         int64
	name       string
	mode       Mode
	maxPlayers int
	private    bool
	password   string
	createdAt  time.Time

	mu        sync.RWMutex
	ownerID   int64
	status    Status
	members   map[int64]*presence.Presence
	updatedAt time.Time
}

func newRoom(id int64, name string, owner *presence.Presence, mode Mode, password string) *Room {
	r := &Room{
		id:         id,
		name:       name,
		ownerID:    owner.UserID(),
		mode:       mode,
		maxPlayers: mode.Capacity(),
		private:    password != "",
		password:   password,
		status:     StatusWaiting,
		members:    map[int64]*presence.Presence{owner.UserID(): owner},
		createdAt:  time.Now(),
	}
	r.updatedAt = r.createdAt
	owner.EnterRoom()
	owner.SetOwner(true)
	return r
}

// ID returns the room id.
func (r *Room) ID() int64 { return r.id }

// Name returns the room name.
func (r *Room) Name() string { return r.name }

// OwnerID returns the current owner's user id.
func (r *Room) OwnerID() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ownerID
}

// Mode returns the room's mode.
func (r *Room) Mode() Mode { return r.mode }

// MaxPlayers returns the room capacity.
func (r *Room) MaxPlayers() int { return r.maxPlayers }

// Private reports whether joining requires a password.
func (r *Room) Private() bool { return r.private }

// Status returns the room's lifecycle state.
func (r *Room) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// CreatedAt returns the creation timestamp.
func (r *Room) CreatedAt() time.Time { return r.createdAt }

// UpdatedAt returns the time of the last membership or status change.
func (r *Room) UpdatedAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.updatedAt
}

// Joinable reports whether the room can accept another member.
func (r *Room) Joinable() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.joinableLocked()
}

func (r *Room) joinableLocked() bool {
	return (r.status == StatusWaiting || r.status == StatusPreparing) &&
		len(r.members) < r.maxPlayers
}

func (r *Room) touchLocked() {
	r.updatedAt = time.Now()
}

// MemberCount returns the number of players in the room.
func (r *Room) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// Member returns the member with the given user id.
func (r *Room) Member(userID int64) (*presence.Presence, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.members[userID]
	return p, ok
}

// Members returns the members sorted by user id.
func (r *Room) Members() []*presence.Presence {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.membersLocked()
}

func (r *Room) membersLocked() []*presence.Presence {
	out := make([]*presence.Presence, 0, len(r.members))
	for _, p := range r.members {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID() < out[j].UserID() })
	return out
}

// MemberIDs returns the member user ids sorted ascending.
func (r *Room) MemberIDs() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.memberIDsLocked()
}

func (r *Room) memberIDsLocked() []int64 {
	ids := make([]int64, 0, len(r.members))
	for id := range r.members {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// AllPrepared reports whether the room is full enough to start and every
// member other than the owner is ready and online. The owner starts the
// game and does not toggle a ready flag.
func (r *Room) AllPrepared() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.allPreparedLocked()
}

func (r *Room) allPreparedLocked() bool {
	if len(r.members) < 2 {
		return false
	}
	for id, p := range r.members {
		if id == r.ownerID {
			continue
		}
		if !p.Prepared() {
			return false
		}
	}
	return true
}

func (r *Room) refreshStatusLocked() {
	if r.status == StatusPlaying || r.status == StatusDismissed || r.status == StatusFinished {
		return
	}
	if r.allPreparedLocked() {
		r.status = StatusPreparing
	} else {
		r.status = StatusWaiting
	}
}

// admit adds a player after checking status, capacity, and password.
func (r *Room) admit(p *presence.Presence, password string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status == StatusPlaying {
		return ErrRoomPlaying
	}
	if len(r.members) >= r.maxPlayers {
		return ErrRoomFull
	}
	if r.private && r.password != password {
		return ErrWrongPassword
	}

	r.members[p.UserID()] = p
	p.EnterRoom()
	r.refreshStatusLocked()
	r.touchLocked()
	return nil
}

// evict removes a member, transferring ownership if needed. Reports
// whether the room is now empty and, when ownership moved, the new
// owner's id.
func (r *Room) evict(p *presence.Presence) (empty bool, newOwnerID int64, transferred bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.members, p.UserID())
	p.LeaveRoom()

	if len(r.members) == 0 {
		return true, 0, false
	}

	if r.ownerID == p.UserID() {
		r.ownerID = r.pickOwnerLocked()
		if next, ok := r.members[r.ownerID]; ok {
			next.SetOwner(true)
		}
		transferred = true
		newOwnerID = r.ownerID
	}
	r.refreshStatusLocked()
	r.touchLocked()
	return false, newOwnerID, transferred
}

// pickOwnerLocked prefers the lowest-id online member, falling back to
// the lowest-id member.
func (r *Room) pickOwnerLocked() int64 {
	var firstID, onlineID int64 = -1, -1
	for _, id := range r.memberIDsLocked() {
		if firstID == -1 {
			firstID = id
		}
		if onlineID == -1 && r.members[id].Online() {
			onlineID = id
		}
	}
	if onlineID != -1 {
		return onlineID
	}
	return firstID
}

// dismiss empties the room and marks it DISMISSED, returning the
// evicted members. Fails unless the caller owns the room and no game is
// running.
func (r *Room) dismiss(ownerID int64) ([]*presence.Presence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ownerID != ownerID {
		return nil, ErrNotOwner
	}
	if r.status == StatusPlaying {
		return nil, ErrRoomPlaying
	}

	evicted := r.membersLocked()
	for _, p := range evicted {
		delete(r.members, p.UserID())
		p.LeaveRoom()
	}
	r.status = StatusDismissed
	r.touchLocked()
	return evicted, nil
}

// setReady toggles a member's ready flag and refreshes the status.
func (r *Room) setReady(p *presence.Presence, ready bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.SetReady(ready)
	r.refreshStatusLocked()
	r.touchLocked()
}

// markPlaying flips the room to PLAYING.
func (r *Room) markPlaying(ownerID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ownerID != ownerID {
		return ErrNotOwner
	}
	if len(r.members) < 2 {
		return ErrRoomTooSparse
	}
	if !r.allPreparedLocked() {
		return ErrRoomNotReady
	}
	r.status = StatusPlaying
	r.touchLocked()
	return nil
}

// markFinished returns the room from PLAYING to WAITING and clears
// every member's ready flag.
func (r *Room) markFinished() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != StatusPlaying {
		return ErrRoomNotPlaying
	}
	for _, p := range r.members {
		p.SetReady(false)
	}
	r.status = StatusWaiting
	r.touchLocked()
	return nil
}
