package engine

import (
	"sync"

	"go.uber.org/zap"

	"github.com/liarsbar/backend/internal/game/rng"
)

// firstGameID seeds the monotonically increasing game id sequence.
const firstGameID = 1001

// Registry creates, indexes, and tears down Game instances. It maps games
// by id, by hosting room, and by every seated player.
// All methods are safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	games    map[int64]*Game // gameId → game
	byPlayer map[int64]int64 // playerId → gameId
	byRoom   map[int64]int64 // roomId → gameId
	nextID   int64

	src    rng.Source
	logger *zap.Logger
}

// NewRegistry creates an empty game Registry.
//
// Precondition: src and logger must be non-nil.
func NewRegistry(src rng.Source, logger *zap.Logger) *Registry {
	return &Registry{
		games:    make(map[int64]*Game),
		byPlayer: make(map[int64]int64),
		byRoom:   make(map[int64]int64),
		nextID:   firstGameID,
		src:      src,
		logger:   logger,
	}
}

// CreateGame builds a Game for the given room from the supplied player ids
// (the room's online members, in seat order) and indexes it. Exactly one
// game may exist per room at a time.
//
// Precondition: playerIDs must contain at least two ids.
// Postcondition: Returns the created game, indexed by room and by every
// player, or ErrGameExists / ErrNotEnoughPlayers.
func (r *Registry) CreateGame(roomID int64, playerIDs []int64) (*Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byRoom[roomID]; exists {
		return nil, ErrGameExists
	}
	if len(playerIDs) < 2 {
		return nil, ErrNotEnoughPlayers
	}

	id := r.nextID
	r.nextID++

	game := NewGame(id, r.src)
	for _, pid := range playerIDs {
		game.AddPlayer(NewPlayer(pid, r.src))
		r.byPlayer[pid] = id
	}
	r.games[id] = game
	r.byRoom[roomID] = id

	r.logger.Info("game created",
		zap.Int64("game_id", id),
		zap.Int64("room_id", roomID),
		zap.Int("players", len(playerIDs)),
	)
	return game, nil
}

// Game returns the game for id.
//
// Postcondition: Returns (game, true) if found, or (nil, false) otherwise.
func (r *Registry) Game(id int64) (*Game, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.games[id]
	return g, ok
}

// GameByRoom returns the game hosted by the given room.
func (r *Registry) GameByRoom(roomID int64) (*Game, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byRoom[roomID]
	if !ok {
		return nil, false
	}
	g, ok := r.games[id]
	return g, ok
}

// GameByPlayer returns the game the given player is seated in.
func (r *Registry) GameByPlayer(playerID int64) (*Game, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byPlayer[playerID]
	if !ok {
		return nil, false
	}
	g, ok := r.games[id]
	return g, ok
}

// IsPlayerInGame reports whether the player is indexed to any game.
func (r *Registry) IsPlayerInGame(playerID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byPlayer[playerID]
	return ok
}

// RoomForGame returns the id of the room hosting the given game.
func (r *Registry) RoomForGame(gameID int64) (int64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for roomID, id := range r.byRoom {
		if id == gameID {
			return roomID, true
		}
	}
	return 0, false
}

// RoomHasGame reports whether the room currently hosts a game.
func (r *Registry) RoomHasGame(roomID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byRoom[roomID]
	return ok
}

// RemovePlayer drops the player→game index entry for a player who left
// mid-game. The game's own seat list is untouched; eliminated seats stay
// visible to the remaining players.
func (r *Registry) RemovePlayer(playerID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byPlayer, playerID)
}

// Cleanup removes a finished game and every index entry pointing at it.
// Idempotent: cleaning an unknown id is a no-op.
func (r *Registry) Cleanup(gameID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.games[gameID]; !ok {
		return
	}
	delete(r.games, gameID)
	for roomID, id := range r.byRoom {
		if id == gameID {
			delete(r.byRoom, roomID)
		}
	}
	for playerID, id := range r.byPlayer {
		if id == gameID {
			delete(r.byPlayer, playerID)
		}
	}
	r.logger.Info("game cleaned up", zap.Int64("game_id", gameID))
}

// ActiveGames returns the ids of all registered games.
func (r *Registry) ActiveGames() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]int64, 0, len(r.games))
	for id := range r.games {
		ids = append(ids, id)
	}
	return ids
}
