package gameserver

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/liarsbar/backend/internal/auth"
	"github.com/liarsbar/backend/internal/game/engine"
	"github.com/liarsbar/backend/internal/game/room"
	"github.com/liarsbar/backend/internal/game/session"
	"github.com/liarsbar/backend/internal/protocol"
)

// Service owns the connection lifecycle: registration with reconnect
// sync, disconnect notification, and the grace-period teardown that
// gives dropped players time to come back before their room and game
// membership is released.
type Service struct {
	sessions  *session.Manager
	rooms     *room.Registry
	games     *engine.Registry
	broadcast *Broadcaster
	lobby     *LobbyHandler
	gameplay  *GameHandler
	logger    *zap.Logger

	grace time.Duration

	mu     sync.Mutex
	timers map[int64]*time.Timer
}

// NewService creates the connection lifecycle service.
//
// Precondition: all dependencies must be non-nil; grace must be >= 0.
func NewService(sessions *session.Manager, rooms *room.Registry, games *engine.Registry, broadcast *Broadcaster, lobby *LobbyHandler, gameplay *GameHandler, grace time.Duration, logger *zap.Logger) *Service {
	return &Service{
		sessions:  sessions,
		rooms:     rooms,
		games:     games,
		broadcast: broadcast,
		lobby:     lobby,
		gameplay:  gameplay,
		logger:    logger,
		grace:     grace,
		timers:    make(map[int64]*time.Timer),
	}
}

// HandleConnect registers an authenticated connection. A returning user
// (one who still holds a presence) gets the consolidated reconnect
// snapshot; a new user gets the online list. Everyone else learns the
// user is online.
func (s *Service) HandleConnect(conn *session.Connection, id auth.Identity) {
	_, returning := s.sessions.Presence(id.UserID)

	p, replaced := s.sessions.Register(conn, id.Username, id.Nickname)
	if replaced != nil {
		_ = replaced.Close()
	}
	s.cancelTeardown(id.UserID)

	if returning {
		env := protocol.Push(protocol.ModuleLobby, protocol.CmdReconnect, s.lobby.BuildReconnect(p))
		if frame, err := env.Encode(); err == nil {
			_ = conn.Send(frame)
		}
	} else {
		env := protocol.Push(protocol.ModuleLobby, protocol.CmdOnlineList, s.broadcast.onlineList())
		if frame, err := env.Encode(); err == nil {
			_ = conn.Send(frame)
		}
	}

	s.broadcast.AnnounceOnline(p)
}

// HandleDisconnect releases a closed connection. The user's room and
// game membership survives for the grace period; only after it expires
// without a reconnect is the teardown run.
func (s *Service) HandleDisconnect(conn *session.Connection) {
	userID, ok := s.sessions.Unregister(conn.ID())
	if !ok {
		// Stale connection; the user already reconnected.
		return
	}
	s.broadcast.AnnounceOffline(userID)
	s.scheduleTeardown(userID)
}

func (s *Service) scheduleTeardown(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[userID]; ok {
		t.Stop()
	}
	s.timers[userID] = time.AfterFunc(s.grace, func() {
		s.teardown(userID)
	})
	s.logger.Debug("teardown scheduled",
		zap.Int64("userId", userID),
		zap.Duration("grace", s.grace))
}

func (s *Service) cancelTeardown(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[userID]; ok {
		t.Stop()
		delete(s.timers, userID)
	}
}

// teardown runs when the grace period expires. The online re-check makes
// stale timers harmless against concurrent reconnects.
func (s *Service) teardown(userID int64) {
	s.mu.Lock()
	delete(s.timers, userID)
	s.mu.Unlock()

	if s.sessions.IsOnline(userID) {
		return
	}
	p, ok := s.sessions.Presence(userID)
	if !ok {
		return
	}

	s.logger.Info("grace expired, releasing player",
		zap.Int64("userId", userID))

	if g, inGame := s.games.GameByPlayer(userID); inGame {
		if err := s.gameplay.LeaveGame(g, p); err != nil {
			s.logger.Warn("teardown leave game",
				zap.Int64("userId", userID),
				zap.Int64("gameId", g.ID()),
				zap.Error(err))
		}
	}

	if r, err := s.rooms.LeaveRoom(p); err == nil {
		if r.MemberCount() > 0 {
			s.broadcast.PushRoomMembers(r)
		}
	}
	p.EnterLobby()
}
