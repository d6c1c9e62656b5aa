package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/liarsbar/backend/internal/auth"
	"github.com/liarsbar/backend/internal/config"
	"github.com/liarsbar/backend/internal/game/engine"
	"github.com/liarsbar/backend/internal/game/room"
	"github.com/liarsbar/backend/internal/game/session"
	"github.com/liarsbar/backend/internal/gameserver"
	"github.com/liarsbar/backend/internal/protocol"
)

type zeroSrc struct{}

func (zeroSrc) Intn(int) int { return 0 }

func newTestAcceptor(t *testing.T) *Acceptor {
	t.Helper()
	logger := zap.NewNop()
	sessions := session.NewManager(logger)
	rooms := room.NewRegistry(logger)
	games := engine.NewRegistry(zeroSrc{}, logger)
	broadcast := gameserver.NewBroadcaster(sessions, logger)
	lobby := gameserver.NewLobbyHandler(sessions, rooms, games, broadcast)
	roomH := gameserver.NewRoomHandler(sessions, rooms, broadcast)
	gameH := gameserver.NewGameHandler(sessions, rooms, games, broadcast, logger)
	system := gameserver.NewSystemHandler()
	dispatcher := gameserver.NewDispatcher(lobby, roomH, gameH, system, logger)
	lifecycle := gameserver.NewService(sessions, rooms, games, broadcast, lobby, gameH, time.Minute, logger)

	cfg := config.WebSocketConfig{
		Path:         "/ws",
		ReadLimit:    65536,
		WriteTimeout: time.Second,
		PongTimeout:  time.Minute,
		PingInterval: 30 * time.Second,
		SendBuffer:   64,
	}
	return NewAcceptor(cfg, auth.NewStaticAuthenticator("secret"), dispatcher, lifecycle, logger)
}

func dial(t *testing.T, srv *httptest.Server, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?token=" + token
	return websocket.DefaultDialer.Dial(url, nil)
}

// readUntil reads frames until one satisfies the predicate.
func readUntil(t *testing.T, conn *websocket.Conn, pred func(protocol.Envelope) bool) protocol.Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, frame, err := conn.ReadMessage()
		require.NoError(t, err)
		var env protocol.Envelope
		require.NoError(t, json.Unmarshal(frame, &env))
		if pred(env) {
			return env
		}
	}
}

func TestUpgradeRejectsMissingAndInvalidTokens(t *testing.T) {
	a := newTestAcceptor(t)
	srv := httptest.NewServer(http.HandlerFunc(a.handleUpgrade))
	defer srv.Close()

	_, resp, err := dial(t, srv, "")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = dial(t, srv, "wrong:1:alice")
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestConnectedClientGetsOnlineListAndHeartbeat(t *testing.T) {
	a := newTestAcceptor(t)
	srv := httptest.NewServer(http.HandlerFunc(a.handleUpgrade))
	defer srv.Close()

	conn, _, err := dial(t, srv, "secret:7:alice:Alice")
	require.NoError(t, err)
	defer conn.Close()

	welcome := readUntil(t, conn, func(env protocol.Envelope) bool {
		return env.Cmd == protocol.CmdOnlineList
	})
	var list protocol.OnlineListData
	require.NoError(t, json.Unmarshal(welcome.Data, &list))
	assert.Equal(t, 1, list.OnlineCount)

	req := protocol.Envelope{RequestID: "hb-1", Module: protocol.ModuleSystem, Cmd: protocol.CmdHeartbeat}
	frame, err := req.Encode()
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))

	resp := readUntil(t, conn, func(env protocol.Envelope) bool {
		return env.RequestID == "hb-1"
	})
	assert.Equal(t, protocol.CodeOK, resp.Code)
}

func TestMalformedFrameGetsErrorEnvelope(t *testing.T) {
	a := newTestAcceptor(t)
	srv := httptest.NewServer(http.HandlerFunc(a.handleUpgrade))
	defer srv.Close()

	conn, _, err := dial(t, srv, "secret:7:alice")
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	resp := readUntil(t, conn, func(env protocol.Envelope) bool {
		return env.Code == protocol.CodeBadRequest
	})
	assert.Equal(t, "malformed frame", resp.Msg)
}

func TestConnSendAfterCloseFails(t *testing.T) {
	a := newTestAcceptor(t)
	srv := httptest.NewServer(http.HandlerFunc(a.handleUpgrade))
	defer srv.Close()

	raw, _, err := dial(t, srv, "secret:9:bob")
	require.NoError(t, err)
	c := NewConn(raw, 1, time.Second)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Error(t, c.Send([]byte("late")))
}
