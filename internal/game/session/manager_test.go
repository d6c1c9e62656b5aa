package session_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/liarsbar/backend/internal/game/session"
)

// recorder is an in-memory Sender capturing frames.
type recorder struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
	fail   bool
}

func (r *recorder) Send(data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("transport down")
	}
	r.frames = append(r.frames, data)
	return nil
}

func (r *recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recorder) frameCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

func TestRegisterCreatesPresence(t *testing.T) {
	m := session.NewManager(zap.NewNop())
	conn := session.NewConnection(7, &recorder{})

	p, replaced := m.Register(conn, "alice", "Alice")
	require.NotNil(t, p)
	assert.Nil(t, replaced)
	assert.Equal(t, int64(7), p.UserID())
	assert.True(t, p.Online())
	assert.True(t, m.IsOnline(7))
	assert.Equal(t, 1, m.OnlineCount())
}

func TestRegisterSecondLoginReplacesFirst(t *testing.T) {
	m := session.NewManager(zap.NewNop())
	first := session.NewConnection(7, &recorder{})
	second := session.NewConnection(7, &recorder{})

	_, replaced := m.Register(first, "alice", "Alice")
	require.Nil(t, replaced)
	p, replaced := m.Register(second, "alice", "Alicia")
	require.NotNil(t, replaced)
	assert.Equal(t, first.ID(), replaced.ID())
	assert.Equal(t, "Alicia", p.Nickname())

	got, ok := m.ConnectionByUser(7)
	require.True(t, ok)
	assert.Equal(t, second.ID(), got.ID())
	assert.Equal(t, 1, m.OnlineCount())
}

func TestUnregisterMarksOffline(t *testing.T) {
	m := session.NewManager(zap.NewNop())
	conn := session.NewConnection(7, &recorder{})
	p, _ := m.Register(conn, "alice", "Alice")

	userID, ok := m.Unregister(conn.ID())
	require.True(t, ok)
	assert.Equal(t, int64(7), userID)
	assert.False(t, m.IsOnline(7))
	assert.False(t, p.Online())

	// Presence outlives the connection.
	kept, ok := m.Presence(7)
	require.True(t, ok)
	assert.Equal(t, p, kept)
}

func TestUnregisterStaleConnectionKeepsUserOnline(t *testing.T) {
	m := session.NewManager(zap.NewNop())
	first := session.NewConnection(7, &recorder{})
	second := session.NewConnection(7, &recorder{})
	m.Register(first, "alice", "Alice")
	p, _ := m.Register(second, "alice", "Alice")

	_, ok := m.Unregister(first.ID())
	assert.False(t, ok)
	assert.True(t, m.IsOnline(7))
	assert.True(t, p.Online())
}

func TestUnregisterUnknown(t *testing.T) {
	m := session.NewManager(zap.NewNop())
	_, ok := m.Unregister("no-such-conn")
	assert.False(t, ok)
}

func TestOnlinePresencesSorted(t *testing.T) {
	m := session.NewManager(zap.NewNop())
	for _, id := range []int64{30, 10, 20} {
		m.Register(session.NewConnection(id, &recorder{}), "u", "U")
	}
	m.Unregister(mustConn(t, m, 20).ID())

	online := m.OnlinePresences()
	require.Len(t, online, 2)
	assert.Equal(t, int64(10), online[0].UserID())
	assert.Equal(t, int64(30), online[1].UserID())
}

func mustConn(t *testing.T, m *session.Manager, userID int64) *session.Connection {
	t.Helper()
	conn, ok := m.ConnectionByUser(userID)
	require.True(t, ok)
	return conn
}

func TestSendToUser(t *testing.T) {
	m := session.NewManager(zap.NewNop())
	rec := &recorder{}
	conn := session.NewConnection(7, rec)
	m.Register(conn, "alice", "Alice")

	assert.True(t, m.SendToUser(7, []byte("hi")))
	assert.Equal(t, 1, rec.frameCount())
	assert.Equal(t, int64(1), conn.SentCount())

	assert.False(t, m.SendToUser(8, []byte("hi")))
}

func TestBroadcastAllSkipsFailures(t *testing.T) {
	m := session.NewManager(zap.NewNop())
	good := &recorder{}
	bad := &recorder{fail: true}
	m.Register(session.NewConnection(1, good), "a", "A")
	m.Register(session.NewConnection(2, bad), "b", "B")

	delivered := m.BroadcastAll([]byte("news"))
	assert.Equal(t, 1, delivered)
	assert.Equal(t, 1, good.frameCount())
}

func TestConnectionCloseIsIdempotent(t *testing.T) {
	rec := &recorder{}
	conn := session.NewConnection(7, rec)
	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())
	assert.True(t, conn.IsClosed())

	err := conn.Send([]byte("late"))
	assert.Error(t, err)
	assert.Equal(t, 0, rec.frameCount())
}
