package db

import "time"

// Message is a row in the ipc_messages table.
type Message struct {
	ID          int64     `json:"id"`
	RoutingID   int       `json:"routing_id"`
	Mode        string    `json:"mode"`
	Type        string    `json:"type"`
	CallID      *string   `json:"call_id,omitempty"`
	ReferenceID *string   `json:"reference_id,omitempty"`
	Value       string    `json:"value"`
	ReplyType   *string   `json:"reply_type,omitempty"`
	ErrorCode   *string   `json:"error_code,omitempty"`
	DurationMs  int64     `json:"duration_ms"`
	Recorded    time.Time `json:"recorded"`
}
