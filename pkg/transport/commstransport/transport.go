// Package commstransport implements transport.Transport over COMMS (NATS).
//
// Outbound envelopes go to the host subject of their routing id. Fire-and-
// forget and asynchronous sends are plain publishes carrying this process's
// inbox as the reply subject; the host pushes asynchronous replies there.
// Synchronous sends use request/reply.
package commstransport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/runtime-ipc/pkg/commsutil"
	"github.com/morezero/runtime-ipc/pkg/envelope"
	"github.com/morezero/runtime-ipc/pkg/transport"
)

const logPrefix = "transport:comms"

const defaultSyncTimeout = 5 * time.Second

// ErrAlreadyListening is returned by a second call to Listen.
var ErrAlreadyListening = errors.New("transport: already listening")

// Config configures a Transport. Zero values use defaults.
type Config struct {
	// Prefix is the subject root (default commsutil.DefaultSubjectPrefix).
	Prefix string
	// Process names this process's inbox. Required.
	Process string
	// SyncTimeout bounds a SendSync when the caller's context has no
	// earlier deadline (default 5s).
	SyncTimeout time.Duration
}

// Transport sends envelopes over a COMMS connection.
type Transport struct {
	nc          *comms.Conn
	prefix      string
	inbox       string
	syncTimeout time.Duration

	mu  sync.Mutex
	sub *comms.Subscription
}

var _ transport.Transport = (*Transport)(nil)

// New creates a Transport on an established connection.
func New(nc *comms.Conn, cfg Config) (*Transport, error) {
	if nc == nil {
		return nil, fmt.Errorf("%s - connection is required", logPrefix)
	}
	if cfg.Process == "" {
		return nil, fmt.Errorf("%s - process name is required", logPrefix)
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = commsutil.DefaultSubjectPrefix
	}
	syncTimeout := cfg.SyncTimeout
	if syncTimeout <= 0 {
		syncTimeout = defaultSyncTimeout
	}
	return &Transport{
		nc:          nc,
		prefix:      prefix,
		inbox:       commsutil.BuildInboxSubject(prefix, cfg.Process),
		syncTimeout: syncTimeout,
	}, nil
}

// Inbox returns the subject inbound messages arrive on.
func (t *Transport) Inbox() string {
	return t.inbox
}

// Send publishes env to the host of routingID.
func (t *Transport) Send(_ context.Context, routingID int, env *envelope.Envelope) bool {
	data, err := commsutil.EncodeEnvelope(env)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - failed to encode envelope: %v", logPrefix, err))
		return false
	}

	msg := &comms.Msg{
		Subject: commsutil.BuildHostSubject(t.prefix, routingID),
		Reply:   t.inbox,
		Data:    data,
	}
	if err := t.nc.PublishMsg(msg); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to publish to %s: %v", logPrefix, msg.Subject, err))
		return false
	}
	return true
}

// SendSync sends env as a request and writes the reply's type and value
// into env. env is untouched on failure.
func (t *Transport) SendSync(ctx context.Context, routingID int, env *envelope.Envelope) bool {
	data, err := commsutil.EncodeEnvelope(env)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - failed to encode envelope: %v", logPrefix, err))
		return false
	}

	reqCtx, cancel := context.WithTimeout(ctx, t.syncTimeout)
	defer cancel()

	subject := commsutil.BuildHostSubject(t.prefix, routingID)
	req := comms.NewMsg(subject)
	req.Header.Set(commsutil.HeaderMode, commsutil.ModeSync)
	req.Data = data
	resp, err := t.nc.RequestMsgWithContext(reqCtx, req)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - sync request to %s failed: %v", logPrefix, subject, err))
		return false
	}

	reply, err := commsutil.DecodeReply(resp.Data)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - invalid sync reply from %s: %v", logPrefix, subject, err))
		return false
	}
	env.SetReply(reply.Type, reply.Value)
	return true
}

// Listen subscribes to the inbox and calls deliver for every decoded
// envelope. Messages are delivered one at a time, in arrival order, on the
// subscription's goroutine. Listen may be called once.
func (t *Transport) Listen(deliver transport.DeliverFunc) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.sub != nil {
		return ErrAlreadyListening
	}

	sub, err := t.nc.Subscribe(t.inbox, func(msg *comms.Msg) {
		env, err := commsutil.DecodeReply(msg.Data)
		if err != nil {
			slog.Error(fmt.Sprintf("%s - dropping undecodable message on %s: %v", logPrefix, msg.Subject, err))
			return
		}
		deliver(env)
	})
	if err != nil {
		return fmt.Errorf("%s - failed to subscribe to %s: %w", logPrefix, t.inbox, err)
	}
	t.sub = sub
	slog.Info(fmt.Sprintf("%s - Listening on %s", logPrefix, t.inbox))
	return nil
}

// Close stops inbound delivery.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.sub == nil {
		return nil
	}
	err := t.sub.Unsubscribe()
	t.sub = nil
	return err
}
