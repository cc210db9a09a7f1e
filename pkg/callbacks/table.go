// Package callbacks holds the pending asynchronous calls of a dispatch
// client, keyed by call identifier.
package callbacks

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const logPrefix = "callbacks:table"

var (
	// ErrNilHandler is returned when registering a nil handler.
	ErrNilHandler = errors.New("callbacks: nil reply handler")
	// ErrDuplicateCallID is returned when a call id already has a live registration.
	ErrDuplicateCallID = errors.New("callbacks: duplicate call id")
	// ErrEmptyCallID is returned when registering an empty call id.
	ErrEmptyCallID = errors.New("callbacks: empty call id")
)

// ReplyHandler receives the reply to an asynchronous call.
type ReplyHandler interface {
	// OnReply is called at most once with the reply's type and value.
	OnReply(msgType, value string) error
}

// ReplyHandlerFunc is a function adapter for ReplyHandler.
type ReplyHandlerFunc func(msgType, value string) error

// OnReply implements ReplyHandler.
func (f ReplyHandlerFunc) OnReply(msgType, value string) error {
	return f(msgType, value)
}

type registration struct {
	handler    ReplyHandler
	registered time.Time
}

// Table maps call identifiers to reply handlers. Each registration is
// removed exactly once, by Take or Remove. It is safe for concurrent use.
type Table struct {
	mu      sync.Mutex
	entries map[string]registration
}

// NewTable creates an empty Table.
func NewTable() *Table {
	return &Table{entries: make(map[string]registration)}
}

// Register adds a pending call. At most one live registration may exist per
// call id.
func (t *Table) Register(callID string, h ReplyHandler) error {
	if callID == "" {
		return ErrEmptyCallID
	}
	if h == nil {
		return ErrNilHandler
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.entries[callID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateCallID, callID)
	}
	t.entries[callID] = registration{handler: h, registered: time.Now()}
	return nil
}

// Take removes the registration for callID and returns its handler. The
// second result is false when no registration exists. Lookup and removal
// happen under one lock, so concurrent Takes of the same id cannot both
// succeed.
func (t *Table) Take(callID string) (ReplyHandler, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	reg, ok := t.entries[callID]
	if !ok {
		return nil, false
	}
	delete(t.entries, callID)
	return reg.handler, true
}

// Remove drops the registration for callID without invoking it. It reports
// whether a registration existed.
func (t *Table) Remove(callID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.entries[callID]; !ok {
		return false
	}
	delete(t.entries, callID)
	return true
}

// Has reports whether callID has a live registration.
func (t *Table) Has(callID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.entries[callID]
	return ok
}

// Len returns the number of pending calls.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Oldest returns the age of the longest-pending call, or 0 if none.
func (t *Table) Oldest() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	var oldest time.Time
	for _, reg := range t.entries {
		if oldest.IsZero() || reg.registered.Before(oldest) {
			oldest = reg.registered
		}
	}
	if oldest.IsZero() {
		return 0
	}
	return time.Since(oldest)
}

// Discard drops every pending call without invoking any handler and returns
// how many were dropped. Used when the owning execution context goes away.
func (t *Table) Discard() int {
	t.mu.Lock()
	n := len(t.entries)
	t.entries = make(map[string]registration)
	t.mu.Unlock()

	if n > 0 {
		slog.Warn(fmt.Sprintf("%s - Discarded %d unanswered calls", logPrefix, n))
	}
	return n
}
