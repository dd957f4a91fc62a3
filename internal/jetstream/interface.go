package jetstream

import (
	"context"

	"github.com/nats-io/nats.go"
)

// ClientInterface abstracts the JetStream operations the reconciler uses,
// allowing test-time substitution.
type ClientInterface interface {
	SetupStream(ctx context.Context, streamConfig *nats.StreamConfig) error
	Publish(subject string, data []byte, headers map[string]string) error
	NatsConn() *nats.Conn
	Close()
}
