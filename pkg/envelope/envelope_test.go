package envelope

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	env := New("tizen://ping", "call-1", "", `{"n":42}`)

	assert.Equal(t, "tizen://ping", env.Type)
	assert.Equal(t, "call-1", env.ID)
	assert.Empty(t, env.ReferenceID)
	assert.Equal(t, `{"n":42}`, env.Value)
	assert.True(t, env.ExpectsReply())
	assert.False(t, env.IsReply())
}

func TestNewReply(t *testing.T) {
	env := NewReply("ping", "call-1", "42")

	assert.Empty(t, env.ID)
	assert.Equal(t, "call-1", env.ReferenceID)
	assert.True(t, env.IsReply())
	assert.False(t, env.ExpectsReply())
}

func TestSetReply_OverwritesPayloadOnly(t *testing.T) {
	env := New("request", "id-1", "ref-1", "question")
	env.SetReply("response", "answer")

	assert.Equal(t, "response", env.Type)
	assert.Equal(t, "answer", env.Value)
	assert.Equal(t, "id-1", env.ID)
	assert.Equal(t, "ref-1", env.ReferenceID)
}

func TestEnvelope_JSONFieldNames(t *testing.T) {
	data, err := json.Marshal(New("t", "i", "r", "v"))
	require.NoError(t, err)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, map[string]string{"type": "t", "id": "i", "referenceId": "r", "value": "v"}, decoded)
}

func TestEnvelope_JSONOmitsEmptyIDs(t *testing.T) {
	data, err := json.Marshal(New("t", "", "", ""))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"t","value":""}`, string(data))
}

func TestEnvelope_String(t *testing.T) {
	var nilEnv *Envelope
	assert.Equal(t, "Envelope{<nil>}", nilEnv.String())
	assert.Equal(t, "Envelope{type=a id=b ref=c len=3}", New("a", "b", "c", "xyz").String())
}
