package room

import (
	"errors"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/liarsbar/backend/internal/game/presence"
)

// Registry errors.
var (
	ErrRoomNotFound   = errors.New("room: not found")
	ErrRoomFull       = errors.New("room: full")
	ErrRoomPlaying    = errors.New("room: game in progress")
	ErrAlreadyInRoom  = errors.New("room: player already in a room")
	ErrNotInRoom      = errors.New("room: player not in the room")
	ErrNotOwner       = errors.New("room: not the owner")
	ErrWrongPassword  = errors.New("room: wrong password")
	ErrInvalidMode    = errors.New("room: invalid mode")
	ErrNameRequired   = errors.New("room: name required")
	ErrRoomNotReady   = errors.New("room: members not all prepared")
	ErrRoomTooSparse  = errors.New("room: not enough players")
	ErrRoomNotPlaying = errors.New("room: no game in progress")
)

const firstRoomID = 1000

// Registry owns all rooms and the player-to-room index. All methods are
// safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	rooms    map[int64]*Room
	byPlayer map[int64]int64
	nextID   int64
	logger   *zap.Logger
}

// NewRegistry creates an empty room registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		rooms:    make(map[int64]*Room),
		byPlayer: make(map[int64]int64),
		nextID:   firstRoomID,
		logger:   logger,
	}
}

// CreateRoom creates a room owned by the given player and joins them to
// it. A player already in a room cannot create another.
func (m *Registry) CreateRoom(owner *presence.Presence, name string, mode Mode, password string) (*Room, error) {
	if name == "" {
		return nil, ErrNameRequired
	}
	if !mode.Valid() {
		return nil, ErrInvalidMode
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byPlayer[owner.UserID()]; ok {
		return nil, ErrAlreadyInRoom
	}

	r := newRoom(m.nextID, name, owner, mode, password)
	m.nextID++
	m.rooms[r.id] = r
	m.byPlayer[owner.UserID()] = r.id

	m.logger.Info("room created",
		zap.Int64("roomId", r.id),
		zap.Int64("ownerId", owner.UserID()),
		zap.String("mode", string(mode)))
	return r, nil
}

// JoinRoom adds a player to a room. Fails when the room is unknown,
// full, mid-game, password-protected with the wrong password, or the
// player is already in a room.
func (m *Registry) JoinRoom(p *presence.Presence, roomID int64, password string) (*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	if _, ok := m.byPlayer[p.UserID()]; ok {
		return nil, ErrAlreadyInRoom
	}
	if err := r.admit(p, password); err != nil {
		return nil, err
	}
	m.byPlayer[p.UserID()] = r.id

	m.logger.Info("player joined room",
		zap.Int64("roomId", r.id),
		zap.Int64("userId", p.UserID()))
	return r, nil
}

// LeaveRoom removes a player from their room. The last member leaving
// deletes the room; an owner leaving transfers ownership to an online
// member, falling back to any member.
func (m *Registry) LeaveRoom(p *presence.Presence) (*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	roomID, ok := m.byPlayer[p.UserID()]
	if !ok {
		return nil, ErrNotInRoom
	}
	r := m.rooms[roomID]

	delete(m.byPlayer, p.UserID())
	empty, newOwnerID, transferred := r.evict(p)

	if empty {
		delete(m.rooms, roomID)
		m.logger.Info("room deleted", zap.Int64("roomId", roomID))
		return r, nil
	}
	if transferred {
		m.logger.Info("room ownership transferred",
			zap.Int64("roomId", roomID),
			zap.Int64("ownerId", newOwnerID))
	}
	return r, nil
}

// DismissRoom deletes a room. Only the owner may dismiss, and not while
// a game is running. Every member is returned to the lobby.
func (m *Registry) DismissRoom(ownerID, roomID int64) ([]*presence.Presence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	evicted, err := r.dismiss(ownerID)
	if err != nil {
		return nil, err
	}
	for _, p := range evicted {
		delete(m.byPlayer, p.UserID())
	}
	delete(m.rooms, roomID)

	m.logger.Info("room dismissed", zap.Int64("roomId", roomID))
	return evicted, nil
}

// SetReady toggles a member's ready flag and refreshes the room status.
func (m *Registry) SetReady(p *presence.Presence, ready bool) (*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	roomID, ok := m.byPlayer[p.UserID()]
	if !ok {
		return nil, ErrNotInRoom
	}
	r := m.rooms[roomID]
	r.setReady(p, ready)
	return r, nil
}

// MarkPlaying flips a room to PLAYING. Fails unless every non-owner
// member is prepared and the caller owns the room.
func (m *Registry) MarkPlaying(ownerID, roomID int64) (*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	if err := r.markPlaying(ownerID); err != nil {
		return nil, err
	}
	return r, nil
}

// MarkFinished returns a room from PLAYING to WAITING and clears every
// member's ready flag for the next match.
func (m *Registry) MarkFinished(roomID int64) (*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	if err := r.markFinished(); err != nil {
		return nil, err
	}
	return r, nil
}

// Room returns the room with the given id.
func (m *Registry) Room(roomID int64) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[roomID]
	return r, ok
}

// RoomByPlayer returns the room a player is in.
func (m *Registry) RoomByPlayer(userID int64) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	roomID, ok := m.byPlayer[userID]
	if !ok {
		return nil, false
	}
	r, ok := m.rooms[roomID]
	return r, ok
}

// PlayerRoomID returns the id of the room a player is in.
func (m *Registry) PlayerRoomID(userID int64) (int64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	roomID, ok := m.byPlayer[userID]
	return roomID, ok
}

// IsPlayerInRoom reports whether a player is a member of any room.
func (m *Registry) IsPlayerInRoom(userID int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.byPlayer[userID]
	return ok
}

// Rooms returns all rooms sorted by id.
func (m *Registry) Rooms() []*Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// JoinableRooms returns the rooms that can accept another member,
// sorted by id.
func (m *Registry) JoinableRooms() []*Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		if r.Joinable() {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Count returns the number of active rooms.
func (m *Registry) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}
