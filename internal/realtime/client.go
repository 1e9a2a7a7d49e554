package realtime

import (
	"github.com/google/uuid"
)

// SSEClient is one open event-stream connection. A client can watch any
// number of channels; the hub fans messages into Outbound and the HTTP
// handler drains it.
type SSEClient struct {
	ID       uuid.UUID
	Channels map[string]bool
	Outbound chan SSEMessage
	done     chan struct{}
}
