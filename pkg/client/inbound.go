package client

import (
	"fmt"
	"log/slog"

	"github.com/morezero/runtime-ipc/pkg/callbacks"
	"github.com/morezero/runtime-ipc/pkg/envelope"
)

const inboundLogPrefix = "client:inbound"

// HandleMessage resolves the pending call named by env's reference id and
// invokes its handler once with env's type and value. The registration is
// removed before the handler runs, so a handler that sends again cannot see
// its own entry.
//
// The returned error is for callers that want the outcome; every failure is
// already logged, and transports drop it (see Deliver).
func (c *Client) HandleMessage(env *envelope.Envelope) error {
	if env == nil {
		slog.Error(fmt.Sprintf("%s - received message is nil", inboundLogPrefix))
		c.stats.repliesDropped.Add(1)
		return ErrNilMessage
	}

	if !env.IsReply() {
		slog.Error(fmt.Sprintf("%s - No reference id of received message: type=%s", inboundLogPrefix, env.Type))
		c.stats.repliesDropped.Add(1)
		return ErrNoReferenceID
	}

	h, ok := c.table.Take(env.ReferenceID)
	if !ok {
		slog.Error(fmt.Sprintf("%s - No registered callback with reference id : %s", inboundLogPrefix, env.ReferenceID))
		c.stats.repliesDropped.Add(1)
		return fmt.Errorf("%w: %s", ErrUnknownReference, env.ReferenceID)
	}

	c.stats.repliesDelivered.Add(1)
	if err := invoke(h, env.Type, env.Value); err != nil {
		c.stats.handlerFaults.Add(1)
		slog.Error(fmt.Sprintf("%s - Exception when running reply callback for %s: %v", inboundLogPrefix, env.ReferenceID, err))
		return fmt.Errorf("%w: %s: %v", ErrHandlerFault, env.ReferenceID, err)
	}
	return nil
}

// Deliver is the transport.DeliverFunc form of HandleMessage.
func (c *Client) Deliver(env *envelope.Envelope) {
	_ = c.HandleMessage(env)
}

// invoke runs h and turns a panic into an error.
func invoke(h callbacks.ReplyHandler, msgType, value string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h.OnReply(msgType, value)
}
