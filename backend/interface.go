package backend

import (
	"context"

	"github.com/iulianpascalau/netgazer/core"
)

// Endpoint defines a transport that produces metric batches
type Endpoint interface {
	// Connect establishes the feed; a failure here surfaces to the caller
	// before any ingestion goroutine is started
	Connect(ctx context.Context) error

	// Receive blocks until one whole batch is available, a transport error
	// occurs or the context is cancelled. Malformed individual entries are
	// dropped by the endpoint before delivery.
	Receive(ctx context.Context) (*core.MetricBatch, error)

	// Reconnect tears down and re-establishes the feed after a transport
	// error or an idle timeout
	Reconnect(ctx context.Context) error

	// Close releases the transport resources
	Close() error

	IsInterfaceNil() bool
}
