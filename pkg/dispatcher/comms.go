package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/runtime-ipc/pkg/commsutil"
	"github.com/morezero/runtime-ipc/pkg/envelope"
	"github.com/morezero/runtime-ipc/pkg/events"
)

const commsLogPrefix = "dispatcher:comms"

// DefaultRequestTimeout bounds a handler when no timeout is configured.
const DefaultRequestTimeout = 25 * time.Second

// CommsHandlerParams configures NewCommsHandler.
type CommsHandlerParams struct {
	Conn *comms.Conn
	// Prefix is the subject root the host subscribes under.
	Prefix string
	// Timeout bounds each handler invocation.
	Timeout time.Duration
	// Context is the parent of every per-message context.
	Context context.Context
}

// NewCommsHandler returns a COMMS message handler that decodes host-bound
// envelopes, dispatches them and sends the replies. Sync requests are
// answered on the request's reply subject; async requests get a reply
// envelope published to the sender's inbox.
func NewCommsHandler(d *Dispatcher, params CommsHandlerParams) comms.MsgHandler {
	parent := params.Context
	if parent == nil {
		parent = context.Background()
	}
	prefix := params.Prefix
	if prefix == "" {
		prefix = commsutil.DefaultSubjectPrefix
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	return func(msg *comms.Msg) {
		routingID := commsutil.ParseHostSubject(prefix, msg.Subject)
		if routingID < 1 {
			slog.Error(fmt.Sprintf("%s - invalid routing id in subject %s", commsLogPrefix, msg.Subject))
			return
		}

		env, err := commsutil.DecodeEnvelope(msg.Data)
		if err != nil {
			slog.Error(fmt.Sprintf("%s - failed to decode request: %v", commsLogPrefix, err))
			return
		}

		mode := events.ModeSend
		switch {
		case msg.Header.Get(commsutil.HeaderMode) == commsutil.ModeSync:
			mode = events.ModeSync
		case env.ExpectsReply() && msg.Reply != "":
			mode = events.ModeAsync
		}

		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()

		reply, event := d.Route(ctx, &Request{RoutingID: routingID, Mode: mode, Env: env})
		if reply != nil {
			sendReply(params.Conn, msg, mode, reply)
		}
		// Journal only once the reply is out.
		d.Record(ctx, event)
	}
}

func sendReply(nc *comms.Conn, msg *comms.Msg, mode string, reply *envelope.Envelope) {
	data, err := commsutil.EncodeEnvelope(reply)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - failed to encode reply: %v", commsLogPrefix, err))
		return
	}

	if mode == events.ModeSync {
		err = msg.Respond(data)
	} else {
		err = nc.Publish(msg.Reply, data)
	}
	if err != nil {
		slog.Error(fmt.Sprintf("%s - failed to send reply for %s: %v", commsLogPrefix, reply, err))
	}
}
