package ws

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/liarsbar/backend/internal/auth"
	"github.com/liarsbar/backend/internal/config"
	"github.com/liarsbar/backend/internal/game/session"
	"github.com/liarsbar/backend/internal/gameserver"
	"github.com/liarsbar/backend/internal/protocol"
)

// Acceptor serves the websocket upgrade endpoint and runs the
// per-connection read loop against the dispatcher.
type Acceptor struct {
	cfg        config.WebSocketConfig
	authN      auth.Authenticator
	dispatcher *gameserver.Dispatcher
	lifecycle  *gameserver.Service
	logger     *zap.Logger

	upgrader websocket.Upgrader
	server   *http.Server
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
}

// NewAcceptor creates a websocket acceptor.
//
// Precondition: authN, dispatcher, lifecycle, and logger must be non-nil.
func NewAcceptor(cfg config.WebSocketConfig, authN auth.Authenticator, dispatcher *gameserver.Dispatcher, lifecycle *gameserver.Service, logger *zap.Logger) *Acceptor {
	return &Acceptor{
		cfg:        cfg,
		authN:      authN,
		dispatcher: dispatcher,
		lifecycle:  lifecycle,
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Game clients are native apps and local dev pages.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Start begins serving the upgrade endpoint. Blocks until Stop.
//
// Precondition: The acceptor must not already be running.
func (a *Acceptor) Start() error {
	start := time.Now()

	mux := http.NewServeMux()
	mux.HandleFunc(a.cfg.Path, a.handleUpgrade)

	listener, err := net.Listen("tcp", a.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", a.cfg.Addr(), err)
	}

	a.mu.Lock()
	a.server = &http.Server{Handler: mux}
	a.running = true
	a.mu.Unlock()

	a.logger.Info("websocket acceptor listening",
		zap.String("addr", listener.Addr().String()),
		zap.String("path", a.cfg.Path),
		zap.Duration("startup", time.Since(start)),
	)

	if err := a.server.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving websocket endpoint: %w", err)
	}
	return nil
}

// Stop shuts the HTTP server down and waits for connection goroutines.
//
// Postcondition: All read loops have exited.
func (a *Acceptor) Stop() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	a.running = false
	server := a.server
	a.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		server.Close()
	}
	a.wg.Wait()

	a.logger.Info("websocket acceptor stopped")
}

// bearerToken pulls the credential from the Authorization header or the
// token query parameter. Browsers cannot set headers on websocket
// dials, so the query form must stay supported.
func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	if h := r.Header.Get("Authorization"); len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return r.URL.Query().Get("token")
}

func (a *Acceptor) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	identity, err := a.authN.Authenticate(r.Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		a.logger.Error("token verification", zap.Error(err))
		http.Error(w, "authentication unavailable", http.StatusBadGateway)
		return
	}

	ws, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Debug("upgrade failed",
			zap.String("remoteAddr", r.RemoteAddr),
			zap.Error(err))
		return
	}

	a.wg.Add(1)
	go a.serveConn(ws, identity, r.RemoteAddr)
}

// serveConn runs one client connection to completion.
func (a *Acceptor) serveConn(ws *websocket.Conn, identity auth.Identity, remoteAddr string) {
	defer a.wg.Done()
	start := time.Now()

	a.logger.Info("client connected",
		zap.String("remoteAddr", remoteAddr),
		zap.Int64("userId", identity.UserID))

	transport := NewConn(ws, a.cfg.SendBuffer, a.cfg.WriteTimeout)
	conn := session.NewConnection(identity.UserID, transport)

	ws.SetReadLimit(a.cfg.ReadLimit)
	ws.SetReadDeadline(time.Now().Add(a.cfg.PongTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(a.cfg.PongTimeout))
	})

	go transport.writePump(a.cfg.PingInterval)

	a.lifecycle.HandleConnect(conn, identity)
	defer func() {
		a.lifecycle.HandleDisconnect(conn)
		conn.Close()
		a.logger.Info("client disconnected",
			zap.String("remoteAddr", remoteAddr),
			zap.Int64("userId", identity.UserID),
			zap.Duration("duration", time.Since(start)))
	}()

	for {
		_, frame, err := ws.ReadMessage()
		if err != nil {
			return
		}
		env, err := protocol.Decode(frame)
		if err != nil {
			a.logger.Debug("undecodable frame",
				zap.Int64("userId", identity.UserID),
				zap.Error(err))
			bad := protocol.Error("", "", "", protocol.CodeBadRequest, "malformed frame")
			if out, encErr := bad.Encode(); encErr == nil {
				conn.Send(out)
			}
			continue
		}

		resp := a.dispatcher.Dispatch(env, conn)
		if out, err := resp.Encode(); err == nil {
			conn.Send(out)
		}
	}
}
