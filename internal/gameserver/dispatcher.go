package gameserver

import (
	"go.uber.org/zap"

	"github.com/liarsbar/backend/internal/game/session"
	"github.com/liarsbar/backend/internal/protocol"
)

// moduleHandler is the per-module request handler contract.
type moduleHandler interface {
	Handle(env protocol.Envelope, conn *session.Connection) (protocol.Envelope, error)
}

// Dispatcher routes decoded envelopes to module handlers. Every request
// yields exactly one response envelope; handler panics are recovered
// and surfaced as internal errors.
type Dispatcher struct {
	handlers map[protocol.Module]moduleHandler
	logger   *zap.Logger
}

// NewDispatcher creates a Dispatcher over the four module handlers.
//
// Precondition: all handlers and logger must be non-nil.
func NewDispatcher(lobby *LobbyHandler, rooms *RoomHandler, games *GameHandler, system *SystemHandler, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		handlers: map[protocol.Module]moduleHandler{
			protocol.ModuleLobby:  lobby,
			protocol.ModuleRoom:   rooms,
			protocol.ModuleGame:   games,
			protocol.ModuleSystem: system,
		},
		logger: logger,
	}
}

// Dispatch handles one inbound envelope and returns the response to
// write back to the requester.
func (d *Dispatcher) Dispatch(env protocol.Envelope, conn *session.Connection) (resp protocol.Envelope) {
	conn.CountReceived()

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("handler panic",
				zap.String("module", string(env.Module)),
				zap.String("cmd", string(env.Cmd)),
				zap.Int64("userId", conn.UserID()),
				zap.Any("panic", r),
				zap.Stack("stack"))
			resp = protocol.Error(env.RequestID, env.Module, env.Cmd,
				protocol.CodeInternal, "internal server error")
		}
	}()

	handler, ok := d.handlers[env.Module]
	if !ok {
		return protocol.Error(env.RequestID, env.Module, env.Cmd,
			protocol.CodeBadRequest, "unknown module")
	}

	out, err := handler.Handle(env, conn)
	if err != nil {
		code := codeFor(err)
		if code == protocol.CodeInternal {
			d.logger.Error("handler error",
				zap.String("module", string(env.Module)),
				zap.String("cmd", string(env.Cmd)),
				zap.Int64("userId", conn.UserID()),
				zap.Error(err))
		} else {
			d.logger.Debug("request rejected",
				zap.String("module", string(env.Module)),
				zap.String("cmd", string(env.Cmd)),
				zap.Int64("userId", conn.UserID()),
				zap.Int("code", code),
				zap.Error(err))
		}
		return protocol.Error(env.RequestID, env.Module, env.Cmd, code, clientMessage(err))
	}
	return out
}
