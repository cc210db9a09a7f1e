// Package transport defines the primitives the dispatch client uses to move
// envelopes across the process boundary.
package transport

import (
	"context"

	"github.com/morezero/runtime-ipc/pkg/envelope"
)

// Transport sends envelopes to the host channel named by a routing id.
type Transport interface {
	// Send delivers env without waiting for a reply. false means the
	// message was not delivered.
	Send(ctx context.Context, routingID int, env *envelope.Envelope) bool

	// SendSync delivers env and blocks until the host replies. On true the
	// reply has been written into env; on false env is unchanged.
	SendSync(ctx context.Context, routingID int, env *envelope.Envelope) bool
}

// DeliverFunc is the inbound entrypoint a transport calls for every message
// the host pushes.
type DeliverFunc func(env *envelope.Envelope)
