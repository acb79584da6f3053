package dto_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slumio/Bro-code/internal/dto"
)

func TestNodeRef_UnmarshalJSON_Number(t *testing.T) {
	var ref dto.NodeRef
	require.NoError(t, json.Unmarshal([]byte(`42`), &ref))

	assert.Equal(t, uint(42), ref.Durable)
	assert.Empty(t, ref.Transient)
	assert.Equal(t, "42", ref.Raw)
}

func TestNodeRef_UnmarshalJSON_String(t *testing.T) {
	var ref dto.NodeRef
	require.NoError(t, json.Unmarshal([]byte(`"tmp-abc"`), &ref))

	assert.Zero(t, ref.Durable)
	assert.Equal(t, "tmp-abc", ref.Transient)
	assert.Equal(t, "tmp-abc", ref.Raw)
}

// A digits-only string keeps both forms so the durable lookup runs first.
func TestNodeRef_UnmarshalJSON_DigitString(t *testing.T) {
	var ref dto.NodeRef
	require.NoError(t, json.Unmarshal([]byte(`"42"`), &ref))

	assert.Equal(t, uint(42), ref.Durable)
	assert.Equal(t, "42", ref.Transient)
	assert.Equal(t, "42", ref.Raw)
}

func TestNodeRef_UnmarshalJSON_NullAndEmpty(t *testing.T) {
	var ref dto.NodeRef
	require.NoError(t, json.Unmarshal([]byte(`null`), &ref))
	assert.True(t, ref.IsZero())

	require.NoError(t, json.Unmarshal([]byte(`""`), &ref))
	assert.True(t, ref.IsZero())
}

func TestNodeRef_UnmarshalJSON_Invalid(t *testing.T) {
	var ref dto.NodeRef
	assert.Error(t, json.Unmarshal([]byte(`{"nested":true}`), &ref))
	assert.Error(t, json.Unmarshal([]byte(`-1`), &ref))
}

func TestNodeRef_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(dto.DurableRef(7))
	require.NoError(t, err)
	assert.Equal(t, `7`, string(b))

	b, err = json.Marshal(dto.TransientRef("tmp-x"))
	require.NoError(t, err)
	assert.Equal(t, `"tmp-x"`, string(b))

	b, err = json.Marshal(dto.NodeRef{})
	require.NoError(t, err)
	assert.Equal(t, `null`, string(b))
}

// The ref survives a payload round trip inside an envelope.
func TestNodeRef_InsideEnvelopePayload(t *testing.T) {
	raw := []byte(`{"event":"file-deleted","payload":{"fileId":"tmp-9"}}`)

	var env dto.Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, dto.EventFileDeleted, env.Event)

	var p dto.FileDeleted
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, "tmp-9", p.FileID.Transient)
}
