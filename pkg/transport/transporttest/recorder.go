// Package transporttest provides a recording transport for tests.
package transporttest

import (
	"context"
	"sync"

	"github.com/morezero/runtime-ipc/pkg/envelope"
)

// Call records one invocation of a send primitive. Env is a copy taken
// before any reply was written.
type Call struct {
	Sync      bool
	RoutingID int
	Env       envelope.Envelope
}

// Recorder is a transport.Transport that records calls and returns
// programmable results.
type Recorder struct {
	mu    sync.Mutex
	calls []Call

	// SendResult is returned by Send. Defaults to true via New.
	SendResult bool
	// SyncResult is returned by SendSync. Defaults to true via New.
	SyncResult bool
	// Reply, when set, produces the reply written into the envelope of a
	// successful SendSync. It runs on the caller's goroutine.
	Reply func(routingID int, req envelope.Envelope) (msgType, value string)
	// OnSend, when set, runs inside Send before it returns.
	OnSend func(routingID int, env envelope.Envelope)
}

// New creates a Recorder whose primitives succeed.
func New() *Recorder {
	return &Recorder{SendResult: true, SyncResult: true}
}

// Send implements transport.Transport.
func (r *Recorder) Send(_ context.Context, routingID int, env *envelope.Envelope) bool {
	r.record(Call{RoutingID: routingID, Env: *env})
	if r.OnSend != nil {
		r.OnSend(routingID, *env)
	}
	return r.SendResult
}

// SendSync implements transport.Transport.
func (r *Recorder) SendSync(_ context.Context, routingID int, env *envelope.Envelope) bool {
	r.record(Call{Sync: true, RoutingID: routingID, Env: *env})
	if !r.SyncResult {
		return false
	}
	if r.Reply != nil {
		env.SetReply(r.Reply(routingID, *env))
	}
	return true
}

func (r *Recorder) record(c Call) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
}

// Calls returns a copy of the recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// Count returns the number of recorded calls.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// Last returns the most recent call. ok is false when nothing was recorded.
func (r *Recorder) Last() (c Call, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		return Call{}, false
	}
	return r.calls[len(r.calls)-1], true
}
