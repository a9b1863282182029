package types

import "encoding/json"

type SuccessEnvelope struct {
	Data any `json:"data"`
}

// ErrorEnvelope keeps the human-readable message under "error" so clients can
// surface it directly; the code and details are for programmatic handling.
type ErrorEnvelope struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// RPCRequest is the body shape accepted by the callable surface.
type RPCRequest struct {
	Data json.RawMessage `json:"data"`
}

// RPCResult wraps a successful callable response.
type RPCResult struct {
	Result any `json:"result"`
}

type RPCError struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// RPCErrorEnvelope wraps a failed callable response.
type RPCErrorEnvelope struct {
	Error RPCError `json:"error"`
}
