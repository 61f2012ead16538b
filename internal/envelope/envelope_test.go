// SPDX-License-Identifier: MIT
package envelope

import (
	stderrors "errors"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCopiesMapPayload(t *testing.T) {
	data := map[string]any{"user": "ada", "n": 3}

	env := Build(Record{Kind: KindLog, Message: "hello", Data: data}, "client-1")

	assert.Equal(t, KindLog, env.Type)
	assert.Equal(t, "hello", env.Message)
	assert.Equal(t, map[string]any{"user": "ada", "n": 3, "id": "client-1"}, env.Data)
	assert.NotContains(t, data, "id", "caller payload must not be mutated")
}

func TestBuildWithoutClientID(t *testing.T) {
	env := Build(Record{Kind: KindInfo, Message: "early", Data: map[string]any{"id": "spoofed"}}, "")

	assert.NotContains(t, env.Data, KeyID)
}

type fields map[string]any

type label string

func TestBuildSpreadsTypedMaps(t *testing.T) {
	tests := []struct {
		name string
		data any
		want map[string]any
	}{
		{"string values", map[string]string{"user": "x"}, map[string]any{"user": "x", "id": "X"}},
		{"int values", map[string]int{"n": 3}, map[string]any{"n": 3, "id": "X"}},
		{"named map", fields{"a": true}, map[string]any{"a": true, "id": "X"}},
		{"named key type", map[label]float64{"ratio": 0.5}, map[string]any{"ratio": 0.5, "id": "X"}},
		{"nil typed map", map[string]string(nil), map[string]any{"id": "X"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := Build(Record{Kind: KindLog, Message: "m", Data: tt.data}, "X")
			assert.Equal(t, tt.want, env.Data)
		})
	}

	raw, err := Marshal(Build(Record{Kind: KindLog, Message: "m", Data: map[string]string{"user": "x"}}, "X"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"log","message":"m","data":{"id":"X","user":"x"}}`, string(raw))
}

func TestBuildNonMapPayloads(t *testing.T) {
	tests := []struct {
		name string
		data any
		want map[string]any
	}{
		{"nil", nil, map[string]any{}},
		{"number", 42, map[string]any{"value": 42}},
		{"slice", []any{1, "a"}, map[string]any{"value": []any{1, "a"}}},
		{"int-keyed map", map[int]string{1: "a"}, map[string]any{"value": map[int]string{1: "a"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := Build(Record{Kind: KindDebug, Message: "m", Data: tt.data}, "")
			assert.Equal(t, tt.want, env.Data)
		})
	}
}

func TestBuildProjectsErrors(t *testing.T) {
	boom := errors.New("boom")
	data := map[string]any{KeyError: boom}

	env := Build(Record{Kind: KindError, Message: boom.Error(), Data: data}, "X")

	detail, ok := env.Data[KeyError].(ErrorDetail)
	require.True(t, ok, "error must be projected, got %T", env.Data[KeyError])
	assert.Equal(t, "boom", detail.Message)
	assert.Equal(t, "*errors.fundamental: boom", detail.ErrorString)
	assert.Contains(t, detail.Stack, "TestBuildProjectsErrors")
	assert.Same(t, boom, data[KeyError], "caller payload must keep the raw error")
}

func TestBuildLeavesErrorsAloneForLogKinds(t *testing.T) {
	boom := stderrors.New("boom")

	env := Build(Record{Kind: KindLog, Message: "m", Data: map[string]any{KeyError: boom}}, "")

	assert.Equal(t, boom, env.Data[KeyError])
}

func TestNewErrorDetail(t *testing.T) {
	t.Run("plain error has no stack", func(t *testing.T) {
		d := NewErrorDetail(stderrors.New("plain"), false)
		assert.Equal(t, "plain", d.Message)
		assert.Equal(t, "*errors.errorString: plain", d.ErrorString)
		assert.Empty(t, d.Stack)
	})

	t.Run("trace captures caller stack", func(t *testing.T) {
		d := NewErrorDetail(stderrors.New("plain"), true)
		assert.NotEmpty(t, d.Stack)
	})

	t.Run("wrapped pkg error keeps origin stack", func(t *testing.T) {
		d := NewErrorDetail(errors.Wrap(errors.New("disk"), "save"), false)
		assert.Equal(t, "save: disk", d.Message)
		assert.Contains(t, d.Stack, "envelope.TestNewErrorDetail")
	})
}

func TestMarshalRoundTripShape(t *testing.T) {
	raw, err := Marshal(Init())
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"init","data":{"relation":"client"}}`, string(raw))

	env := Build(Record{Kind: KindError, Message: "boom", Data: map[string]any{
		KeyError: ErrorDetail{ErrorString: "E: boom", Message: "boom"},
	}}, "abc")
	raw, err = Marshal(env)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"error","message":"boom","data":{"id":"abc","error":{"errorString":"E: boom","message":"boom"}}}`, string(raw))
}

func TestMarshalRejectsUnencodable(t *testing.T) {
	_, err := Marshal(Envelope{Type: KindLog, Data: map[string]any{"f": func() {}}})
	assert.Error(t, err)
}

func TestParseInbound(t *testing.T) {
	in, err := ParseInbound([]byte(`{"type":"init","data":{"id":"X"}}`))
	require.NoError(t, err)
	id, ok := in.ID()
	assert.True(t, ok)
	assert.Equal(t, "X", id)

	in, err = ParseInbound([]byte(`{"type":"notice","data":{"id":7}}`))
	require.NoError(t, err)
	_, ok = in.ID()
	assert.False(t, ok)

	_, err = ParseInbound([]byte(`not json`))
	assert.Error(t, err)

	_, err = ParseInbound([]byte(`{"data":{}}`))
	assert.Error(t, err)
}

func TestParseEnvelope(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"type":"log","message":"hi","data":{"a":1}}`))
	require.NoError(t, err)
	assert.Equal(t, KindLog, env.Type)
	assert.Equal(t, "hi", env.Message)
	assert.EqualValues(t, 1, env.Data["a"])
}
