// Package events defines the message journal event and the recorders it is
// written to.
package events

import "time"

// Delivery modes of a handled message.
const (
	ModeSend  = "send"
	ModeSync  = "sync"
	ModeAsync = "async"
)

// MessageRecorded is emitted for every envelope the host handles.
type MessageRecorded struct {
	RoutingID   int    `json:"routingId"`
	Mode        string `json:"mode"`
	Type        string `json:"type"`
	ID          string `json:"id,omitempty"`
	ReferenceID string `json:"referenceId,omitempty"`
	Value       string `json:"value"`
	ReplyType   string `json:"replyType,omitempty"`
	ErrorCode   string `json:"errorCode,omitempty"`
	DurationMs  int64  `json:"durationMs"`
	Timestamp   string `json:"timestamp"`
}

// Time parses Timestamp. It returns the zero time when Timestamp is not RFC 3339.
func (e *MessageRecorded) Time() time.Time {
	t, err := time.Parse(time.RFC3339Nano, e.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}
