// Package client is the script-side dispatch client. It sends envelopes to
// the host in three shapes (fire-and-forget, blocking request/reply and
// asynchronous request/reply) and matches asynchronous replies to the
// handler that asked for them.
package client

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/morezero/runtime-ipc/pkg/callbacks"
	"github.com/morezero/runtime-ipc/pkg/transport"
)

const logPrefix = "client:client"

var (
	// ErrInvalidRouting means the execution context has no usable routing id.
	ErrInvalidRouting = errors.New("client: invalid routing handle")
	// ErrSendFailed means the transport reported a delivery failure.
	ErrSendFailed = errors.New("client: transport send failed")
	// ErrNilMessage means the transport delivered a nil envelope.
	ErrNilMessage = errors.New("client: received message is nil")
	// ErrNoReferenceID means an inbound envelope cannot be correlated.
	ErrNoReferenceID = errors.New("client: no reference id of received message")
	// ErrUnknownReference means no pending call matches the reference id.
	ErrUnknownReference = errors.New("client: no registered callback with reference id")
	// ErrHandlerFault means a reply handler returned an error or panicked.
	ErrHandlerFault = errors.New("client: reply handler failed")
	// ErrClosed means the client has been closed.
	ErrClosed = errors.New("client: closed")
)

// NewParams holds the collaborators of a Client.
type NewParams struct {
	// Transport carries envelopes to the host. Required.
	Transport transport.Transport
	// Table holds pending asynchronous calls. A fresh table is used if nil.
	// Call ids are process-wide, so clients sharing a transport inbox must
	// share a table.
	Table *callbacks.Table
	// NewCallID generates call identifiers. Defaults to random UUIDs.
	NewCallID func() string
}

// Client is the dispatch client. One Client is owned by whatever composes
// the execution contexts; it is safe for concurrent use.
type Client struct {
	transport transport.Transport
	table     *callbacks.Table
	newCallID func() string
	closed    atomic.Bool
	stats     counters
}

// New creates a Client.
func New(params NewParams) (*Client, error) {
	if params.Transport == nil {
		return nil, fmt.Errorf("%s - transport is required", logPrefix)
	}
	table := params.Table
	if table == nil {
		table = callbacks.NewTable()
	}
	newCallID := params.NewCallID
	if newCallID == nil {
		newCallID = uuid.NewString
	}
	return &Client{
		transport: params.Transport,
		table:     table,
		newCallID: newCallID,
	}, nil
}

// Pending returns the number of asynchronous calls awaiting a reply.
func (c *Client) Pending() int {
	return c.table.Len()
}

// IsPending reports whether callID still awaits a reply.
func (c *Client) IsPending(callID string) bool {
	return c.table.Has(callID)
}

// Close discards all pending calls without invoking their handlers. Later
// sends are rejected. It returns the number of discarded calls.
func (c *Client) Close() int {
	if !c.closed.CompareAndSwap(false, true) {
		return 0
	}
	n := c.table.Discard()
	slog.Info(fmt.Sprintf("%s - Client closed, %d pending calls discarded", logPrefix, n))
	return n
}

type counters struct {
	sent             atomic.Int64
	syncSent         atomic.Int64
	asyncSent        atomic.Int64
	sendFailed       atomic.Int64
	routingRejected  atomic.Int64
	repliesDelivered atomic.Int64
	repliesDropped   atomic.Int64
	handlerFaults    atomic.Int64
}

// Stats is a snapshot of client counters.
type Stats struct {
	Sent             int64 `json:"sent"`
	SyncSent         int64 `json:"syncSent"`
	AsyncSent        int64 `json:"asyncSent"`
	SendFailed       int64 `json:"sendFailed"`
	RoutingRejected  int64 `json:"routingRejected"`
	RepliesDelivered int64 `json:"repliesDelivered"`
	RepliesDropped   int64 `json:"repliesDropped"`
	HandlerFaults    int64 `json:"handlerFaults"`
	Pending          int   `json:"pending"`
	// OldestPending is how long the oldest unanswered call has waited.
	OldestPending time.Duration `json:"oldestPending"`
}

// Stats returns current counters.
func (c *Client) Stats() Stats {
	return Stats{
		Sent:             c.stats.sent.Load(),
		SyncSent:         c.stats.syncSent.Load(),
		AsyncSent:        c.stats.asyncSent.Load(),
		SendFailed:       c.stats.sendFailed.Load(),
		RoutingRejected:  c.stats.routingRejected.Load(),
		RepliesDelivered: c.stats.repliesDelivered.Load(),
		RepliesDropped:   c.stats.repliesDropped.Load(),
		HandlerFaults:    c.stats.handlerFaults.Load(),
		Pending:          c.table.Len(),
		OldestPending:    c.table.Oldest(),
	}
}

// String returns a string representation of the stats.
func (s Stats) String() string {
	return fmt.Sprintf("Stats{Sent: %d, Sync: %d, Async: %d, Failed: %d, Rejected: %d, Delivered: %d, Dropped: %d, Faults: %d, Pending: %d, Oldest: %s}",
		s.Sent, s.SyncSent, s.AsyncSent, s.SendFailed, s.RoutingRejected,
		s.RepliesDelivered, s.RepliesDropped, s.HandlerFaults, s.Pending, s.OldestPending)
}
