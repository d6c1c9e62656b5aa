package gameserver_test

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/liarsbar/backend/internal/auth"
	"github.com/liarsbar/backend/internal/game/engine"
	"github.com/liarsbar/backend/internal/game/room"
	"github.com/liarsbar/backend/internal/game/session"
	"github.com/liarsbar/backend/internal/gameserver"
	"github.com/liarsbar/backend/internal/protocol"
)

// zeroSrc is a deterministic randomness source: every draw is 0. The
// revolver bullet lands in chamber zero, so the first shot is always
// fatal, and the target rank is always Queen.
type zeroSrc struct{}

func (zeroSrc) Intn(int) int { return 0 }

// recorder captures outbound frames for one client.
type recorder struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func (r *recorder) Send(data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	r.frames = append(r.frames, cp)
	return nil
}

func (r *recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recorder) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// envelopes decodes every captured frame.
func (r *recorder) envelopes(t *testing.T) []protocol.Envelope {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]protocol.Envelope, 0, len(r.frames))
	for _, frame := range r.frames {
		var env protocol.Envelope
		require.NoError(t, json.Unmarshal(frame, &env))
		out = append(out, env)
	}
	return out
}

// lastByCmd returns the most recent envelope with the given command.
func (r *recorder) lastByCmd(t *testing.T, cmd protocol.Cmd) (protocol.Envelope, bool) {
	t.Helper()
	envs := r.envelopes(t)
	for i := len(envs) - 1; i >= 0; i-- {
		if envs[i].Cmd == cmd {
			return envs[i], true
		}
	}
	return protocol.Envelope{}, false
}

// fixture wires the full handler stack over in-memory transports.
type fixture struct {
	sessions   *session.Manager
	rooms      *room.Registry
	games      *engine.Registry
	dispatcher *gameserver.Dispatcher
	service    *gameserver.Service

	conns     map[int64]*session.Connection
	recorders map[int64]*recorder
}

func newFixture(t *testing.T, grace time.Duration) *fixture {
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

	return &fixture{
		sessions:   sessions,
		rooms:      rooms,
		games:      games,
		dispatcher: gameserver.NewDispatcher(lobby, roomH, gameH, system, logger),
		service: gameserver.NewService(sessions, rooms, games, broadcast, lobby, gameH,
			grace, logger),
		conns:     make(map[int64]*session.Connection),
		recorders: make(map[int64]*recorder),
	}
}

// connect registers a user through the lifecycle service.
func (f *fixture) connect(userID int64) {
	rec := &recorder{}
	conn := session.NewConnection(userID, rec)
	f.conns[userID] = conn
	f.recorders[userID] = rec
	f.service.HandleConnect(conn, auth.Identity{
		UserID:   userID,
		Username: fmt.Sprintf("user%d", userID),
		Nickname: fmt.Sprintf("User %d", userID),
	})
}

// request dispatches one envelope on behalf of a user.
func (f *fixture) request(t *testing.T, userID int64, module protocol.Module, cmd protocol.Cmd, payload any) protocol.Envelope {
	t.Helper()
	env := protocol.Envelope{RequestID: "req", Module: module, Cmd: cmd}
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		env.Data = data
	}
	return f.dispatcher.Dispatch(env, f.conns[userID])
}

// bind unmarshals a response or push payload.
func bind[T any](t *testing.T, env protocol.Envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

// setupTwoPlayerRoom connects users 1 and 2, creates a room owned by 1,
// joins 2, and readies 2.
func setupTwoPlayerRoom(t *testing.T, f *fixture) int64 {
	t.Helper()
	f.connect(1)
	f.connect(2)

	resp := f.request(t, 1, protocol.ModuleRoom, protocol.CmdRoomCreate,
		protocol.CreateRoomRequest{Name: "den", Mode: "CLASSIC"})
	require.Equal(t, protocol.CodeOK, resp.Code, resp.Msg)
	snap := bind[protocol.RoomSnapshot](t, resp)

	resp = f.request(t, 2, protocol.ModuleRoom, protocol.CmdRoomJoin,
		protocol.JoinRoomRequest{RoomID: snap.RoomID})
	require.Equal(t, protocol.CodeOK, resp.Code, resp.Msg)

	resp = f.request(t, 2, protocol.ModuleRoom, protocol.CmdPlayerPrepare, nil)
	require.Equal(t, protocol.CodeOK, resp.Code, resp.Msg)
	return snap.RoomID
}

// startGame starts a game in the given room as user 1 and returns its id.
func startGame(t *testing.T, f *fixture, roomID int64) int64 {
	t.Helper()
	resp := f.request(t, 1, protocol.ModuleGame, protocol.CmdStartGame,
		protocol.StartGameRequest{RoomID: roomID})
	require.Equal(t, protocol.CodeOK, resp.Code, resp.Msg)
	return bind[protocol.GameIDRequest](t, resp).GameID
}
