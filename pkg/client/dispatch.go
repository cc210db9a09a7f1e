package client

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/morezero/runtime-ipc/pkg/callbacks"
	"github.com/morezero/runtime-ipc/pkg/envelope"
	"github.com/morezero/runtime-ipc/pkg/routing"
)

const dispatchLogPrefix = "client:dispatch"

// SendOption sets an optional envelope field on Send and SendSync.
type SendOption func(env *envelope.Envelope)

// WithID sets the envelope's own id.
func WithID(id string) SendOption {
	return func(env *envelope.Envelope) { env.ID = id }
}

// WithReferenceID sets the id of the call this message answers.
func WithReferenceID(refID string) SendOption {
	return func(env *envelope.Envelope) { env.ReferenceID = refID }
}

func build(msgType, value string, opts []SendOption) *envelope.Envelope {
	env := envelope.New(msgType, "", "", value)
	for _, opt := range opts {
		opt(env)
	}
	return env
}

// routingID resolves the routing id of ec, or returns 0 and logs when it
// cannot be used.
func (c *Client) routingID(ec routing.Context) int {
	if c.closed.Load() {
		slog.Error(fmt.Sprintf("%s - %v", dispatchLogPrefix, ErrClosed))
		return 0
	}
	id := routing.GetRoutingID(ec)
	if id < 1 {
		c.stats.routingRejected.Add(1)
		slog.Error(fmt.Sprintf("%s - Invalid routing handle for IPC: %d", dispatchLogPrefix, id))
		return 0
	}
	return id
}

// Send delivers a fire-and-forget message. Failures are logged and not
// retried.
func (c *Client) Send(ctx context.Context, ec routing.Context, msgType, value string, opts ...SendOption) {
	routingID := c.routingID(ec)
	if routingID < 1 {
		return
	}

	env := build(msgType, value, opts)
	if !c.transport.Send(ctx, routingID, env) {
		c.stats.sendFailed.Add(1)
		slog.Error(fmt.Sprintf("%s - Failed to send message to runtime: %s", dispatchLogPrefix, env))
		return
	}
	c.stats.sent.Add(1)
	slog.Debug(fmt.Sprintf("%s - Sent %s to routing=%d", dispatchLogPrefix, env, routingID))
}

// SendSync delivers a message and blocks until the host replies, returning
// the reply value. It returns "" when the routing id is invalid or the
// transport fails.
//
// Only the calling goroutine blocks. Replies to earlier SendAsync calls keep
// arriving on the transport's delivery goroutine during the wait.
func (c *Client) SendSync(ctx context.Context, ec routing.Context, msgType, value string, opts ...SendOption) string {
	routingID := c.routingID(ec)
	if routingID < 1 {
		return ""
	}

	env := build(msgType, value, opts)
	if !c.transport.SendSync(ctx, routingID, env) {
		c.stats.sendFailed.Add(1)
		slog.Error(fmt.Sprintf("%s - Failed to send sync message to runtime: type=%s", dispatchLogPrefix, msgType))
		return ""
	}
	c.stats.syncSent.Add(1)
	return env.Value
}

// SendAsync delivers a message tagged with a fresh call id and registers h
// to receive the reply. It returns the call id, or "" when nothing was
// registered, in which case h is never invoked.
//
// The call is registered before the transport is invoked and rolled back if
// the send fails, because the transport may deliver the reply on another
// goroutine before Send returns.
func (c *Client) SendAsync(ctx context.Context, ec routing.Context, msgType, value string, h callbacks.ReplyHandler) string {
	routingID := c.routingID(ec)
	if routingID < 1 {
		return ""
	}

	callID := c.newCallID()
	if err := c.table.Register(callID, h); err != nil {
		slog.Error(fmt.Sprintf("%s - Failed to register callback: %v", dispatchLogPrefix, err))
		return ""
	}
	// Close sets closed before it discards, so a registration that raced
	// past the routing check is caught here.
	if c.closed.Load() {
		c.table.Remove(callID)
		slog.Error(fmt.Sprintf("%s - %v, dropping %s call", dispatchLogPrefix, ErrClosed, msgType))
		return ""
	}

	env := envelope.New(msgType, callID, "", value)
	if !c.transport.Send(ctx, routingID, env) {
		c.table.Remove(callID)
		c.stats.sendFailed.Add(1)
		slog.Error(fmt.Sprintf("%s - Failed to send async message to runtime: %s", dispatchLogPrefix, env))
		return ""
	}
	c.stats.asyncSent.Add(1)
	slog.Debug(fmt.Sprintf("%s - Sent %s to routing=%d", dispatchLogPrefix, env, routingID))
	return callID
}

// SendAsyncFunc is SendAsync with a function handler.
func (c *Client) SendAsyncFunc(ctx context.Context, ec routing.Context, msgType, value string, fn func(msgType, value string) error) string {
	return c.SendAsync(ctx, ec, msgType, value, callbacks.ReplyHandlerFunc(fn))
}
