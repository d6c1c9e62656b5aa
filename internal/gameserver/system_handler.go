package gameserver

import (
	"time"

	"github.com/liarsbar/backend/internal/game/session"
	"github.com/liarsbar/backend/internal/protocol"
)

// SystemHandler answers protocol housekeeping commands.
type SystemHandler struct {
	now func() time.Time
}

// NewSystemHandler creates a SystemHandler using wall-clock time.
func NewSystemHandler() *SystemHandler {
	return &SystemHandler{now: time.Now}
}

// Handle routes one system command.
func (h *SystemHandler) Handle(env protocol.Envelope, conn *session.Connection) (protocol.Envelope, error) {
	switch env.Cmd {
	case protocol.CmdHeartbeat:
		return protocol.Response(env.RequestID, env.Module, env.Cmd, protocol.HeartbeatData{
			ServerTime: h.now().UnixMilli(),
		}), nil
	default:
		return protocol.Envelope{}, errUnknownCmd
	}
}
