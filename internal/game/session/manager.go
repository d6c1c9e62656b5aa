package session

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/liarsbar/backend/internal/game/presence"
)

// Manager tracks live connections and the presence record for every
// user seen since startup. All methods are safe for concurrent use.
type Manager struct {
	mu        sync.RWMutex
	byConn    map[string]*Connection
	byUser    map[int64]*Connection
	presences map[int64]*presence.Presence
	logger    *zap.Logger
}

// NewManager creates an empty session Manager.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		byConn:    make(map[string]*Connection),
		byUser:    make(map[int64]*Connection),
		presences: make(map[int64]*presence.Presence),
		logger:    logger,
	}
}

// Register binds a connection to its user, creating the presence record
// on first sight and refreshing the nickname otherwise. A second login
// for the same user replaces the first connection; the replaced
// connection is returned so the caller can close it.
//
// Postcondition: The user is online and the connection is tracked.
func (m *Manager) Register(conn *Connection, username, nickname string) (*presence.Presence, *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()

	replaced := m.byUser[conn.UserID()]
	if replaced != nil {
		delete(m.byConn, replaced.ID())
	}

	p, ok := m.presences[conn.UserID()]
	if !ok {
		p = presence.New(conn.UserID(), username, nickname)
		m.presences[conn.UserID()] = p
	} else if nickname != "" {
		p.SetNickname(nickname)
	}
	p.SetOnline(true)

	m.byConn[conn.ID()] = conn
	m.byUser[conn.UserID()] = conn

	m.logger.Info("connection registered",
		zap.String("connId", conn.ID()),
		zap.Int64("userId", conn.UserID()),
		zap.Bool("replaced", replaced != nil))
	return p, replaced
}

// Unregister drops a connection and marks the user offline, unless the
// user has already re-registered on a newer connection.
//
// Postcondition: Returns the user id and true if the connection was the
// user's current one, or false when it was stale or unknown.
func (m *Manager) Unregister(connID string) (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conn, ok := m.byConn[connID]
	if !ok {
		return 0, false
	}
	delete(m.byConn, connID)

	current := m.byUser[conn.UserID()]
	if current == nil || current.ID() != connID {
		return 0, false
	}
	delete(m.byUser, conn.UserID())
	if p, ok := m.presences[conn.UserID()]; ok {
		p.SetOnline(false)
	}

	m.logger.Info("connection unregistered",
		zap.String("connId", connID),
		zap.Int64("userId", conn.UserID()))
	return conn.UserID(), true
}

// IsOnline reports whether the user has a live connection.
func (m *Manager) IsOnline(userID int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.byUser[userID]
	return ok
}

// ConnectionByUser returns the user's current connection.
func (m *Manager) ConnectionByUser(userID int64) (*Connection, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	conn, ok := m.byUser[userID]
	return conn, ok
}

// Connection returns the connection with the given id.
func (m *Manager) Connection(connID string) (*Connection, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	conn, ok := m.byConn[connID]
	return conn, ok
}

// Presence returns the presence record for a user.
func (m *Manager) Presence(userID int64) (*presence.Presence, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.presences[userID]
	return p, ok
}

// OnlinePresences returns the presence records of every online user,
// sorted by user id.
func (m *Manager) OnlinePresences() []*presence.Presence {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*presence.Presence, 0, len(m.byUser))
	for userID := range m.byUser {
		if p, ok := m.presences[userID]; ok {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID() < out[j].UserID() })
	return out
}

// OnlineCount returns the number of live connections.
func (m *Manager) OnlineCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byUser)
}

// SendToUser delivers a frame to a user's connection if one exists.
//
// Postcondition: Returns false when the user is offline.
func (m *Manager) SendToUser(userID int64, data []byte) bool {
	m.mu.RLock()
	conn, ok := m.byUser[userID]
	m.mu.RUnlock()
	if !ok {
		return false
	}
	if err := conn.Send(data); err != nil {
		m.logger.Warn("send failed",
			zap.Int64("userId", userID),
			zap.Error(err))
		return false
	}
	return true
}

// BroadcastAll sends a frame to every live connection, best effort.
// Failed sends are logged and skipped.
//
// Postcondition: Returns the number of successful deliveries.
func (m *Manager) BroadcastAll(data []byte) int {
	m.mu.RLock()
	conns := make([]*Connection, 0, len(m.byUser))
	for _, conn := range m.byUser {
		conns = append(conns, conn)
	}
	m.mu.RUnlock()

	delivered := 0
	for _, conn := range conns {
		if err := conn.Send(data); err != nil {
			m.logger.Warn("broadcast send failed",
				zap.String("connId", conn.ID()),
				zap.Error(err))
			continue
		}
		delivered++
	}
	return delivered
}
