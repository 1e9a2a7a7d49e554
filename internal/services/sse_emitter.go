package services

import (
	"context"

	"github.com/yungbote/lexbridge-backend/internal/realtime"
	"github.com/yungbote/lexbridge-backend/internal/realtime/bus"
)

// SSEEmitter abstracts where realtime messages go: straight to the local
// hub in single-instance deployments, or through the shared bus when more
// than one instance serves streams.
type SSEEmitter interface {
	Emit(ctx context.Context, msg realtime.SSEMessage)
}

type HubEmitter struct{ Hub *realtime.SSEHub }

func (e *HubEmitter) Emit(ctx context.Context, msg realtime.SSEMessage) {
	e.Hub.Broadcast(msg)
}

type RedisEmitter struct{ Bus bus.Bus }

func (e *RedisEmitter) Emit(ctx context.Context, msg realtime.SSEMessage) {
	_ = e.Bus.Publish(ctx, msg)
}
