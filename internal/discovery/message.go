package discovery

import (
	"encoding/json"
	"fmt"
)

// Built-in message types. Any other type string is an application event.
const (
	TypePing      = "ping"
	TypePong      = "pong"
	TypeBroadcast = "broadcast"
)

// IsBuiltin reports whether t is one of the protocol's own message types.
func IsBuiltin(t string) bool {
	switch t {
	case TypePing, TypePong, TypeBroadcast:
		return true
	}
	return false
}

// Envelope is one datagram on the wire (JSON encoded).
type Envelope struct {
	Type    string          `json:"type"`
	From    string          `json:"from"`
	Node    *Identity       `json:"node,omitempty"`
	Filter  []string        `json:"filter,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Port    int             `json:"port"`
	Address string          `json:"address"`
}

// DecodeData unmarshals the application payload into v.
func (e *Envelope) DecodeData(v any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("%w: message has no data", ErrInvalidArgument)
	}
	return json.Unmarshal(e.Data, v)
}

// clone returns a copy that shares nothing mutable with e.
func (e *Envelope) clone() *Envelope {
	dup := *e
	if e.Node != nil {
		node := *e.Node
		dup.Node = &node
	}
	if e.Filter != nil {
		dup.Filter = append([]string(nil), e.Filter...)
	}
	if e.Data != nil {
		dup.Data = append(json.RawMessage(nil), e.Data...)
	}
	return &dup
}

// Encode serializes env with from stamped as the sender id. env itself is
// left untouched.
func Encode(env *Envelope, from string) ([]byte, error) {
	out := *env
	out.From = from
	data, err := json.Marshal(&out)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %q message: %w", env.Type, err)
	}
	return data, nil
}

// Decode parses a datagram. Malformed input yields a *DecodeError, never a
// panic.
func Decode(payload []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, &DecodeError{Reason: "invalid json", Err: err}
	}
	if env.Type == "" {
		return nil, &DecodeError{Reason: "missing type"}
	}
	if IsBuiltin(env.Type) && (env.Node == nil || env.Node.ID == "") {
		return nil, &DecodeError{Reason: fmt.Sprintf("%s without node identity", env.Type)}
	}
	return &env, nil
}

// marshalData turns a caller payload into raw JSON. A json.RawMessage passes
// through as-is.
func marshalData(v any) (json.RawMessage, error) {
	switch d := v.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		if !json.Valid(d) {
			return nil, fmt.Errorf("%w: data is not valid json", ErrInvalidArgument)
		}
		return d, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return data, nil
}
