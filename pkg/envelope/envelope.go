// Package envelope defines the four-field message unit exchanged between a
// script execution context and the host process.
package envelope

import "fmt"

// Envelope is one IPC message. Senders build it once, hand it to the
// transport and then drop it. A synchronous send may overwrite Type and
// Value in place with the host's reply.
type Envelope struct {
	Type        string `json:"type"`
	ID          string `json:"id,omitempty"`
	ReferenceID string `json:"referenceId,omitempty"`
	Value       string `json:"value"`
}

// New creates an envelope from its four fields.
func New(msgType, id, referenceID, value string) *Envelope {
	return &Envelope{
		Type:        msgType,
		ID:          id,
		ReferenceID: referenceID,
		Value:       value,
	}
}

// NewReply creates an envelope answering the call identified by callID.
func NewReply(msgType, callID, value string) *Envelope {
	return New(msgType, "", callID, value)
}

// SetReply overwrites the payload fields with a reply. Only transports call
// this, and only for a successful synchronous send.
func (e *Envelope) SetReply(msgType, value string) {
	e.Type = msgType
	e.Value = value
}

// IsReply reports whether the envelope answers an earlier call.
func (e *Envelope) IsReply() bool {
	return e.ReferenceID != ""
}

// ExpectsReply reports whether the sender registered a reply handler for it.
func (e *Envelope) ExpectsReply() bool {
	return e.ID != ""
}

// String returns a short description for logs. Value is left out since it
// can be large.
func (e *Envelope) String() string {
	if e == nil {
		return "Envelope{<nil>}"
	}
	return fmt.Sprintf("Envelope{type=%s id=%s ref=%s len=%d}", e.Type, e.ID, e.ReferenceID, len(e.Value))
}
