package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morezero/runtime-ipc/pkg/envelope"
	"github.com/morezero/runtime-ipc/pkg/events"
	"github.com/morezero/runtime-ipc/pkg/semver"
)

type journal struct {
	mu     sync.Mutex
	events []*events.MessageRecorded
}

func (j *journal) recorder() events.Recorder {
	return events.NewCallbackRecorder(func(_ context.Context, e *events.MessageRecorded) error {
		j.mu.Lock()
		defer j.mu.Unlock()
		j.events = append(j.events, e)
		return nil
	})
}

func (j *journal) all() []*events.MessageRecorded {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]*events.MessageRecorded(nil), j.events...)
}

func decodeDetail(t *testing.T, reply *envelope.Envelope) envelope.ErrorDetail {
	t.Helper()
	require.Equal(t, envelope.TypeError, reply.Type)
	var detail envelope.ErrorDetail
	require.NoError(t, json.Unmarshal([]byte(reply.Value), &detail))
	return detail
}

func TestDispatch_SyncEcho(t *testing.T) {
	d := NewDispatcher(NewDispatcherParams{})

	reply := d.Dispatch(context.Background(), &Request{
		RoutingID: 3,
		Mode:      events.ModeSync,
		Env:       envelope.New(envelope.TypeEcho, "", "", "ping"),
	})

	require.NotNil(t, reply)
	assert.Equal(t, envelope.TypeEcho, reply.Type)
	assert.Equal(t, "ping", reply.Value)
	assert.Empty(t, reply.ReferenceID)
}

func TestDispatch_AsyncReplyCarriesRequestID(t *testing.T) {
	d := NewDispatcher(NewDispatcherParams{})

	reply := d.Dispatch(context.Background(), &Request{
		RoutingID: 3,
		Mode:      events.ModeAsync,
		Env:       envelope.New(envelope.TypeEcho, "call-7", "", "pong"),
	})

	require.NotNil(t, reply)
	assert.Equal(t, "call-7", reply.ReferenceID)
	assert.Empty(t, reply.ID)
	assert.Equal(t, "pong", reply.Value)
}

func TestDispatch_FireAndForgetHasNoReply(t *testing.T) {
	called := false
	d := NewDispatcher(NewDispatcherParams{})
	require.NoError(t, d.Register("log.line", HandlerFunc(func(_ context.Context, req *Request) (string, string, error) {
		called = true
		return "", "", nil
	})))

	reply := d.Dispatch(context.Background(), &Request{
		RoutingID: 1,
		Mode:      events.ModeSend,
		Env:       envelope.New("log.line", "", "", "hello"),
	})

	assert.Nil(t, reply)
	assert.True(t, called)
}

func TestDispatch_UnknownType(t *testing.T) {
	d := NewDispatcher(NewDispatcherParams{})

	reply := d.Dispatch(context.Background(), &Request{
		RoutingID: 1,
		Mode:      events.ModeSync,
		Env:       envelope.New("no.such.type", "", "", "x"),
	})

	detail := decodeDetail(t, reply)
	assert.Equal(t, CodeUnknownType, detail.Code)
	assert.Contains(t, detail.Message, "no.such.type")
}

func TestDispatch_HandlerErrors(t *testing.T) {
	d := NewDispatcher(NewDispatcherParams{})
	require.NoError(t, d.Register("typed", HandlerFunc(func(context.Context, *Request) (string, string, error) {
		return "", "", &HandlerError{Code: "NOT_FOUND", Message: "missing", Retryable: false}
	})))
	require.NoError(t, d.Register("plain", HandlerFunc(func(context.Context, *Request) (string, string, error) {
		return "", "", errors.New("boom")
	})))
	require.NoError(t, d.Register("panics", HandlerFunc(func(context.Context, *Request) (string, string, error) {
		panic("kaboom")
	})))

	tests := []struct {
		msgType   string
		code      string
		retryable bool
	}{
		{"typed", "NOT_FOUND", false},
		{"plain", CodeInternal, true},
		{"panics", CodeInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.msgType, func(t *testing.T) {
			reply := d.Dispatch(context.Background(), &Request{
				RoutingID: 1,
				Mode:      events.ModeSync,
				Env:       envelope.New(tt.msgType, "", "", ""),
			})
			detail := decodeDetail(t, reply)
			assert.Equal(t, tt.code, detail.Code)
			assert.Equal(t, tt.retryable, detail.Retryable)
		})
	}
}

func TestDispatch_RecordsJournalEvent(t *testing.T) {
	j := &journal{}
	d := NewDispatcher(NewDispatcherParams{Recorder: j.recorder()})

	d.Dispatch(context.Background(), &Request{
		RoutingID: 9,
		Mode:      events.ModeAsync,
		Env:       envelope.New(envelope.TypeEcho, "c1", "", "v"),
	})
	d.Dispatch(context.Background(), &Request{
		RoutingID: 9,
		Mode:      events.ModeSync,
		Env:       envelope.New("unknown", "", "", "v"),
	})

	got := j.all()
	require.Len(t, got, 2)
	assert.Equal(t, 9, got[0].RoutingID)
	assert.Equal(t, events.ModeAsync, got[0].Mode)
	assert.Equal(t, "c1", got[0].ID)
	assert.Equal(t, envelope.TypeEcho, got[0].ReplyType)
	assert.Empty(t, got[0].ErrorCode)
	assert.NotEmpty(t, got[0].Timestamp)

	assert.Equal(t, envelope.TypeError, got[1].ReplyType)
	assert.Equal(t, CodeUnknownType, got[1].ErrorCode)
}

func TestRoute_LeavesRecordingToCaller(t *testing.T) {
	j := &journal{}
	d := NewDispatcher(NewDispatcherParams{Recorder: j.recorder()})
	require.NoError(t, d.Register("app.get", HandlerFunc(func(context.Context, *Request) (string, string, error) {
		return "", "payload", nil
	})))

	reply, event := d.Route(context.Background(), &Request{
		RoutingID: 2,
		Mode:      events.ModeAsync,
		Env:       envelope.New("app.get", "c9", "", "k"),
	})
	require.NotNil(t, reply)
	assert.Equal(t, "", reply.Type)
	assert.Equal(t, "c9", reply.ReferenceID)
	assert.Equal(t, "payload", reply.Value)
	assert.Empty(t, j.all())

	require.NotNil(t, event)
	d.Record(context.Background(), event)
	d.Record(context.Background(), nil)
	got := j.all()
	require.Len(t, got, 1)
	assert.Equal(t, "app.get", got[0].Type)
	assert.Equal(t, "", got[0].ReplyType)
}

func TestDispatch_RecorderFailureDoesNotBlockReply(t *testing.T) {
	rec := events.NewCallbackRecorder(func(context.Context, *events.MessageRecorded) error {
		return errors.New("journal down")
	})
	d := NewDispatcher(NewDispatcherParams{Recorder: rec})

	reply := d.Dispatch(context.Background(), &Request{
		RoutingID: 1,
		Mode:      events.ModeSync,
		Env:       envelope.New(envelope.TypeEcho, "", "", "still here"),
	})
	require.NotNil(t, reply)
	assert.Equal(t, "still here", reply.Value)
}

func TestRegister_Validation(t *testing.T) {
	d := NewDispatcher(NewDispatcherParams{})
	h := HandlerFunc(func(context.Context, *Request) (string, string, error) { return "", "", nil })

	assert.Error(t, d.Register("", h))
	assert.Error(t, d.Register("x", nil))
	require.NoError(t, d.Register("x", h))
	assert.Equal(t, []string{envelope.TypeEcho, envelope.TypeHello, "x"}, d.Types())
}

func TestHello(t *testing.T) {
	tests := []struct {
		name     string
		rng      string
		version  string
		wantCode string
	}{
		{"default range accepts current", "", semver.ProtocolVersion, ""},
		{"major-only range", "1", "1.4.0", ""},
		{"rejects newer major", "^1.0.0", "2.0.0", CodeIncompatibleVersion},
		{"rejects garbage version", "^1.0.0", "latest", CodeIncompatibleVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDispatcher(NewDispatcherParams{ProtocolRange: tt.rng})
			body, _ := json.Marshal(envelope.HelloRequest{ProtocolVersion: tt.version, Client: "test"})

			reply := d.Dispatch(context.Background(), &Request{
				RoutingID: 4,
				Mode:      events.ModeSync,
				Env:       envelope.New(envelope.TypeHello, "", "", string(body)),
			})

			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeDetail(t, reply).Code)
				return
			}
			require.Equal(t, envelope.TypeHello, reply.Type)
			var hr envelope.HelloReply
			require.NoError(t, json.Unmarshal([]byte(reply.Value), &hr))
			assert.Equal(t, semver.ProtocolVersion, hr.ProtocolVersion)
			assert.Equal(t, 4, hr.RoutingID)
		})
	}
}

func TestHello_MalformedRequest(t *testing.T) {
	d := NewDispatcher(NewDispatcherParams{})

	reply := d.Dispatch(context.Background(), &Request{
		RoutingID: 1,
		Mode:      events.ModeSync,
		Env:       envelope.New(envelope.TypeHello, "", "", "{not json"),
	})
	assert.Equal(t, CodeInvalidArgument, decodeDetail(t, reply).Code)
}

func TestStats(t *testing.T) {
	d := NewDispatcher(NewDispatcherParams{})
	ctx := context.Background()

	d.Dispatch(ctx, &Request{RoutingID: 1, Mode: events.ModeSend, Env: envelope.New(envelope.TypeEcho, "", "", "")})
	d.Dispatch(ctx, &Request{RoutingID: 1, Mode: events.ModeSync, Env: envelope.New(envelope.TypeEcho, "", "", "")})
	d.Dispatch(ctx, &Request{RoutingID: 1, Mode: events.ModeSync, Env: envelope.New("nope", "", "", "")})
	d.Dispatch(ctx, &Request{RoutingID: 1, Mode: events.ModeAsync, Env: envelope.New(envelope.TypeEcho, "c", "", "")})

	assert.Equal(t, Stats{Send: 1, Sync: 2, Async: 1, Failed: 1}, d.Stats())
}

func TestDispatch_NilRequest(t *testing.T) {
	d := NewDispatcher(NewDispatcherParams{})
	assert.Nil(t, d.Dispatch(context.Background(), nil))
	assert.Nil(t, d.Dispatch(context.Background(), &Request{RoutingID: 1, Mode: events.ModeSync}))
	assert.Equal(t, Stats{}, d.Stats())
}
