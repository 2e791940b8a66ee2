package websocket

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/joeyportfolio/portfolio/types"
)

// Message types exchanged with the browser.
const (
	MessageTypeUpdateForm = "update_form"
	MessageTypeSubmit     = "submit"
	MessageTypePing       = "ping"
	MessageTypePong       = "pong"
	MessageTypeState      = "state"
	MessageTypeError      = "error"
)

// ClientMessage represents a message from the client.
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ServerMessage represents a message to the client.
type ServerMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// decodePatch reads an optional form patch. A missing or null payload
// yields nil.
func decodePatch(raw json.RawMessage) (*types.FeedbackFormPatch, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	var patch types.FeedbackFormPatch
	if err := json.Unmarshal(trimmed, &patch); err != nil {
		return nil, fmt.Errorf("invalid form payload: %w", err)
	}
	return &patch, nil
}
