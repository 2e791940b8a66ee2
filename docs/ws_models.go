package docs

// This file documents the live feedback session messages. They travel over
// the WebSocket and are not part of the generated REST paths.

// RawMessage is a placeholder for json.RawMessage to help Swagger
type RawMessage []byte

// WSClientMessage is sent by the browser.
// @Description Client to server message on /v1/feedback/ws
type WSClientMessage struct {
	// One of update_form, submit, ping
	Type string `json:"type" example:"update_form"`

	// Partial form fields for update_form and submit
	Payload RawMessage `json:"payload,omitempty" swaggertype:"object"`
}

// WSServerMessage is sent by the server.
// @Description Server to client message on /v1/feedback/ws
type WSServerMessage struct {
	// One of state, pong, error
	Type string `json:"type" example:"state"`

	// The full view state when type is state
	Payload RawMessage `json:"payload,omitempty" swaggertype:"object"`

	// Set when type is error
	Error string `json:"error,omitempty" example:"Malformed message"`
}
