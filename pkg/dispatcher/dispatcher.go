// Package dispatcher routes envelopes arriving at the host to handlers by
// message type and builds the replies.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/morezero/runtime-ipc/pkg/commsutil"
	"github.com/morezero/runtime-ipc/pkg/envelope"
	"github.com/morezero/runtime-ipc/pkg/events"
)

const logPrefix = "dispatcher:dispatch"

// Error codes carried in envelope.TypeError replies.
const (
	CodeUnknownType         = "UNKNOWN_TYPE"
	CodeInvalidArgument     = "INVALID_ARGUMENT"
	CodeIncompatibleVersion = "INCOMPATIBLE_VERSION"
	CodeInternal            = "INTERNAL_ERROR"
)

// Request is one envelope received by the host.
type Request struct {
	RoutingID int
	Mode      string // events.ModeSend, ModeSync or ModeAsync
	Env       *envelope.Envelope
}

// Handler handles one message type.
type Handler interface {
	// Handle returns the reply type and value. A *HandlerError return is
	// sent back as a structured error reply.
	Handle(ctx context.Context, req *Request) (replyType, replyValue string, err error)
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc func(ctx context.Context, req *Request) (string, string, error)

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, req *Request) (string, string, error) {
	return f(ctx, req)
}

// HandlerError is a structured handler failure.
type HandlerError struct {
	Code      string
	Message   string
	Retryable bool
}

func (e *HandlerError) Error() string {
	return e.Code + ": " + e.Message
}

// NewHandlerError creates a HandlerError.
func NewHandlerError(code, message string) *HandlerError {
	return &HandlerError{Code: code, Message: message}
}

// NewDispatcherParams holds the collaborators of a Dispatcher.
type NewDispatcherParams struct {
	// Recorder receives a journal event per handled message. Optional.
	Recorder events.Recorder
	// ProtocolRange is the client protocol range accepted by ipc.hello.
	ProtocolRange string
}

// Dispatcher routes host-bound envelopes to handlers.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	recorder events.Recorder
	now      func() time.Time

	sends, syncs, asyncs, failed atomic.Int64
}

// Stats counts dispatched messages by mode. Failed counts error replies.
type Stats struct {
	Send   int64 `json:"send"`
	Sync   int64 `json:"sync"`
	Async  int64 `json:"async"`
	Failed int64 `json:"failed"`
}

// Stats returns a snapshot of the dispatch counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Send:   d.sends.Load(),
		Sync:   d.syncs.Load(),
		Async:  d.asyncs.Load(),
		Failed: d.failed.Load(),
	}
}

// NewDispatcher creates a Dispatcher with the built-in ipc.echo and
// ipc.hello handlers registered.
func NewDispatcher(params NewDispatcherParams) *Dispatcher {
	rec := params.Recorder
	if rec == nil {
		rec = &events.NoOpRecorder{}
	}
	d := &Dispatcher{
		handlers: make(map[string]Handler),
		recorder: rec,
		now:      time.Now,
	}
	d.handlers[envelope.TypeEcho] = HandlerFunc(handleEcho)
	d.handlers[envelope.TypeHello] = helloHandler(params.ProtocolRange)
	return d
}

// Register adds or replaces the handler for msgType.
func (d *Dispatcher) Register(msgType string, h Handler) error {
	if msgType == "" {
		return fmt.Errorf("%s - message type cannot be empty", logPrefix)
	}
	if h == nil {
		return fmt.Errorf("%s - handler cannot be nil", logPrefix)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[msgType] = h
	slog.Debug(fmt.Sprintf("%s - Handler registered for %s", logPrefix, msgType))
	return nil
}

// Types returns the registered message types, sorted.
func (d *Dispatcher) Types() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.handlers))
	for t := range d.handlers {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Dispatch runs the handler for req, records the exchange and returns the
// reply envelope. For ModeAsync the reply carries the request id as its
// reference id. For ModeSend the handler still runs but the result is nil:
// nobody waits for it.
//
// Transports that can answer before journaling should use Route and Record.
func (d *Dispatcher) Dispatch(ctx context.Context, req *Request) *envelope.Envelope {
	reply, event := d.Route(ctx, req)
	d.Record(ctx, event)
	return reply
}

// Route runs the handler for req and returns the reply envelope together
// with the journal event describing the exchange. Nothing is recorded; the
// caller passes the event to Record once the reply is on its way.
func (d *Dispatcher) Route(ctx context.Context, req *Request) (*envelope.Envelope, *events.MessageRecorded) {
	if req == nil || req.Env == nil {
		slog.Error(fmt.Sprintf("%s - nil request", logPrefix))
		return nil, nil
	}
	start := d.now()
	slog.Debug(fmt.Sprintf("%s - routing=%d mode=%s %s", logPrefix, req.RoutingID, req.Mode, req.Env))

	d.mu.RLock()
	h, ok := d.handlers[req.Env.Type]
	d.mu.RUnlock()

	var replyType, replyValue string
	var err error
	if !ok {
		err = NewHandlerError(CodeUnknownType, fmt.Sprintf("Unknown message type: %s", req.Env.Type))
	} else {
		replyType, replyValue, err = safeHandle(ctx, h, req)
	}

	var errCode string
	if err != nil {
		d.failed.Add(1)
		errCode, replyType, replyValue = errorReply(err)
		slog.Warn(fmt.Sprintf("%s - handler for %s failed: %v", logPrefix, req.Env.Type, err))
	}

	event := &events.MessageRecorded{
		RoutingID:   req.RoutingID,
		Mode:        req.Mode,
		Type:        req.Env.Type,
		ID:          req.Env.ID,
		ReferenceID: req.Env.ReferenceID,
		Value:       req.Env.Value,
		ReplyType:   replyType,
		ErrorCode:   errCode,
		DurationMs:  d.now().Sub(start).Milliseconds(),
		Timestamp:   d.now().UTC().Format(time.RFC3339Nano),
	}

	switch req.Mode {
	case events.ModeSync:
		d.syncs.Add(1)
		return envelope.New(replyType, "", "", replyValue), event
	case events.ModeAsync:
		d.asyncs.Add(1)
		return envelope.NewReply(replyType, req.Env.ID, replyValue), event
	default:
		d.sends.Add(1)
		return nil, event
	}
}

// Record hands event to the journal. A nil event is ignored and recorder
// failures are only logged.
func (d *Dispatcher) Record(ctx context.Context, event *events.MessageRecorded) {
	if event == nil {
		return
	}
	if err := d.recorder.Record(ctx, event); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to record message: %v", logPrefix, err))
	}
}

// safeHandle runs h and turns a panic into an internal error.
func safeHandle(ctx context.Context, h Handler, req *Request) (replyType, replyValue string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewHandlerError(CodeInternal, fmt.Sprintf("handler panic: %v", r))
		}
	}()
	return h.Handle(ctx, req)
}

func errorReply(err error) (code, replyType, replyValue string) {
	detail := envelope.ErrorDetail{Code: CodeInternal, Message: err.Error(), Retryable: true}
	var herr *HandlerError
	if errors.As(err, &herr) {
		detail = envelope.ErrorDetail{Code: herr.Code, Message: herr.Message, Retryable: herr.Retryable}
	}
	data, encErr := commsutil.EncodePayload(detail)
	if encErr != nil {
		return detail.Code, envelope.TypeError, detail.Message
	}
	return detail.Code, envelope.TypeError, string(data)
}
