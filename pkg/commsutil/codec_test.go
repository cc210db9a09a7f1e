package commsutil

import (
	"testing"

	"github.com/morezero/runtime-ipc/pkg/envelope"
)

func TestEncodePayload(t *testing.T) {
	tests := []struct {
		name    string
		input   interface{}
		want    string
		wantErr bool
	}{
		{name: "simple map", input: map[string]string{"key": "value"}, want: `{"key":"value"}`},
		{name: "nil", input: nil, want: "null"},
		{name: "channel is not serializable", input: make(chan int), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodePayload(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("EncodePayload = %s, want %s", data, tt.want)
			}
		})
	}
}

func TestDecodeEnvelope(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"type":"ping","id":"c1","value":"42"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := envelope.Envelope{Type: "ping", ID: "c1", Value: "42"}
	if *env != want {
		t.Errorf("DecodeEnvelope = %+v, want %+v", *env, want)
	}
}

func TestDecodeEnvelope_Errors(t *testing.T) {
	for _, raw := range []string{`not json`, `{"value":"x"}`, `[]`} {
		if _, err := DecodeEnvelope([]byte(raw)); err == nil {
			t.Errorf("DecodeEnvelope(%s) expected error", raw)
		}
	}
}

func TestEncodeEnvelope_Nil(t *testing.T) {
	if _, err := EncodeEnvelope(nil); err == nil {
		t.Error("expected error for nil envelope")
	}
}

func TestEncodeDecodeEnvelope(t *testing.T) {
	in := envelope.New("reply", "", "c1", `{"ok":true}`)
	data, err := EncodeEnvelope(in)
	if err != nil {
		t.Fatalf("EncodeEnvelope: %v", err)
	}
	out, err := DecodeEnvelope(data)
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}
	if *out != *in {
		t.Errorf("got %+v, want %+v", *out, *in)
	}
}

func TestDecodeReply_AcceptsEmptyType(t *testing.T) {
	env, err := DecodeReply([]byte(`{"type":"","referenceId":"c1","value":"payload"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := envelope.Envelope{ReferenceID: "c1", Value: "payload"}
	if *env != want {
		t.Errorf("DecodeReply = %+v, want %+v", *env, want)
	}

	if _, err := DecodeReply([]byte(`not json`)); err == nil {
		t.Error("DecodeReply(not json) expected error")
	}
}
