package types

// Every endpoint answers with one of two envelopes: data on success, a
// coded error otherwise. Clients switch on the top-level key.

// SuccessEnvelope wraps a successful response body.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// ErrorEnvelope wraps a failed response body.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// APIError is the machine-readable error surfaced to clients. Code is a
// stable identifier (VALIDATION_ERROR, UNAUTHORIZED, ...); Message is for
// humans and may change.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}
