package bus

import (
	"context"

	"github.com/yungbote/lexbridge-backend/internal/realtime"
)

// Bus fans SSE messages across processes. Publish sends a message to every
// subscriber; StartForwarder delivers inbound messages to onMsg until ctx
// ends.
type Bus interface {
	Publish(ctx context.Context, msg realtime.SSEMessage) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error
	Close() error
}
