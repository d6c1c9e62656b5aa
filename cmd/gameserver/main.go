// Package main provides the game server binary: the websocket endpoint
// and the realtime lobby, room, and game backend behind it.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/liarsbar/backend/internal/auth"
	"github.com/liarsbar/backend/internal/config"
	"github.com/liarsbar/backend/internal/frontend/ws"
	"github.com/liarsbar/backend/internal/game/engine"
	"github.com/liarsbar/backend/internal/game/rng"
	"github.com/liarsbar/backend/internal/game/room"
	"github.com/liarsbar/backend/internal/game/session"
	"github.com/liarsbar/backend/internal/gameserver"
	"github.com/liarsbar/backend/internal/observability"
	"github.com/liarsbar/backend/internal/server"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting game server",
		zap.String("ws_addr", cfg.WebSocket.Addr()),
		zap.String("ws_path", cfg.WebSocket.Path),
	)

	src := rng.NewCryptoSource()

	// Registries
	sessions := session.NewManager(logger)
	rooms := room.NewRegistry(logger)
	games := engine.NewRegistry(src, logger)

	// Handlers
	broadcast := gameserver.NewBroadcaster(sessions, logger)
	lobbyHandler := gameserver.NewLobbyHandler(sessions, rooms, games, broadcast)
	roomHandler := gameserver.NewRoomHandler(sessions, rooms, broadcast)
	gameHandler := gameserver.NewGameHandler(sessions, rooms, games, broadcast, logger)
	systemHandler := gameserver.NewSystemHandler()
	dispatcher := gameserver.NewDispatcher(lobbyHandler, roomHandler, gameHandler, systemHandler, logger)
	lifecycleSvc := gameserver.NewService(sessions, rooms, games, broadcast,
		lobbyHandler, gameHandler, cfg.Session.DisconnectGrace, logger)

	// Authentication
	var authN auth.Authenticator
	switch cfg.Auth.Mode {
	case "remote":
		authN = auth.NewRemoteAuthenticator(cfg.Auth.RemoteURL, cfg.Auth.RemoteTimeout)
	default:
		authN = auth.NewStaticAuthenticator(cfg.Auth.StaticSecret)
	}

	acceptor := ws.NewAcceptor(cfg.WebSocket, authN, dispatcher, lifecycleSvc, logger)

	// Wire lifecycle
	lifecycle := server.NewLifecycle(logger)
	lifecycle.Add("websocket", &server.FuncService{
		StartFn: acceptor.Start,
		StopFn:  acceptor.Stop,
	})

	logger.Info("game server initialized",
		zap.Duration("startup", time.Since(start)),
		zap.String("ws_addr", cfg.WebSocket.Addr()),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
