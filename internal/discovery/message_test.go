package discovery

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	env := &Envelope{
		Type: TypeBroadcast,
		From: "caller-supplied",
		Node: &Identity{
			ID:               "node-a",
			Role:             "printer",
			Name:             "office",
			Port:             3024,
			BroadcastAddress: "255.255.255.255",
		},
		Filter:  []string{"printer", "scanner"},
		Data:    json.RawMessage(`{"hello":"world"}`),
		Port:    3024,
		Address: "255.255.255.255",
	}

	payload, err := Encode(env, "node-a")
	require.NoError(t, err)

	got, err := Decode(payload)
	require.NoError(t, err)

	want := *env
	want.From = "node-a"
	assert.Equal(t, &want, got)
	assert.Equal(t, "caller-supplied", env.From, "Encode must not modify its input")
}

func TestEncodeOmitsAbsentFields(t *testing.T) {
	payload, err := Encode(&Envelope{Type: "chat", Port: 3024, Address: "10.0.0.2"}, "node-a")
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(payload, &fields))
	assert.ElementsMatch(t, []string{"type", "from", "port", "address"}, keys(fields))
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestEncodeRejectsInvalidRawData(t *testing.T) {
	_, err := Encode(&Envelope{Type: "chat", Data: json.RawMessage(`{broken`)}, "node-a")
	assert.Error(t, err)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "not json", payload: "hello"},
		{name: "truncated", payload: `{"type":"ping"`},
		{name: "wrong shape", payload: `["ping"]`},
		{name: "missing type", payload: `{"from":"x","port":1,"address":"a"}`},
		{name: "ping without node", payload: `{"type":"ping","from":"x"}`},
		{name: "pong without node id", payload: `{"type":"pong","from":"x","node":{}}`},
		{name: "broadcast without node", payload: `{"type":"broadcast","from":"x"}`},
		{name: "wrong field type", payload: `{"type":"chat","port":"3024"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := Decode([]byte(tt.payload))
			assert.Nil(t, env)

			var decodeErr *DecodeError
			require.True(t, errors.As(err, &decodeErr), "expected *DecodeError, got %v", err)
			assert.NotEmpty(t, decodeErr.Error())
		})
	}
}

func TestDecodeCustomTypeWithoutNode(t *testing.T) {
	env, err := Decode([]byte(`{"type":"chat","from":"x","data":[1,2],"port":3024,"address":"10.0.0.1"}`))
	require.NoError(t, err)
	assert.Equal(t, "chat", env.Type)
	assert.Nil(t, env.Node)
	assert.JSONEq(t, `[1,2]`, string(env.Data))
}

func TestDecodeData(t *testing.T) {
	env := &Envelope{Type: "chat", Data: json.RawMessage(`{"text":"hi"}`)}

	var body struct {
		Text string `json:"text"`
	}
	require.NoError(t, env.DecodeData(&body))
	assert.Equal(t, "hi", body.Text)

	empty := &Envelope{Type: "chat"}
	assert.ErrorIs(t, empty.DecodeData(&body), ErrInvalidArgument)
}

func TestMarshalData(t *testing.T) {
	data, err := marshalData(nil)
	require.NoError(t, err)
	assert.Nil(t, data)

	data, err = marshalData(map[string]int{"n": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":1}`, string(data))

	data, err = marshalData(json.RawMessage(`"raw"`))
	require.NoError(t, err)
	assert.Equal(t, `"raw"`, string(data))

	_, err = marshalData(json.RawMessage(`nope`))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = marshalData(make(chan int))
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestCloneIsDeep(t *testing.T) {
	env := &Envelope{
		Type:   TypeBroadcast,
		Node:   &Identity{ID: "a"},
		Filter: []string{"r1"},
		Data:   json.RawMessage(`1`),
	}
	dup := env.clone()
	dup.Node.ID = "b"
	dup.Filter[0] = "r2"
	dup.Data[0] = '2'

	assert.Equal(t, "a", env.Node.ID)
	assert.Equal(t, "r1", env.Filter[0])
	assert.Equal(t, "1", string(env.Data))
}
