// Package protocol defines the JSON wire contract between casl and external
// command processes.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Payload is the request sent to an external command process.
type Payload struct {
	Text string `json:"text"`
}

// EncodePayload renders one newline-terminated payload message.
func EncodePayload(p Payload) ([]byte, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return append(b, '\n'), nil
}

// Response is the reply from an external command process. A non-nil Error
// short-circuits action execution.
type Response struct {
	Error  *string
	Action Action
}

type responseWire struct {
	Error  *string         `json:"error"`
	Action json.RawMessage `json:"action"`
}

// UnmarshalJSON decodes the response and its tagged action.
func (r *Response) UnmarshalJSON(data []byte) error {
	var wire responseWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if len(wire.Action) == 0 || string(wire.Action) == "null" {
		return errors.New("response action is missing")
	}
	action, err := DecodeAction(wire.Action)
	if err != nil {
		return err
	}
	r.Error = wire.Error
	r.Action = action
	return nil
}

// MarshalJSON encodes the response with its tagged action.
func (r Response) MarshalJSON() ([]byte, error) {
	action, err := EncodeAction(r.Action)
	if err != nil {
		return nil, err
	}
	return json.Marshal(responseWire{Error: r.Error, Action: action})
}

// DecodeResponse parses one wire response message.
func DecodeResponse(data []byte) (Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}

// ErrorMessage returns the response error text, or "" when the response succeeded.
func (r Response) ErrorMessage() string {
	if r.Error == nil {
		return ""
	}
	return strings.TrimSpace(*r.Error)
}
