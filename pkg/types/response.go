package types

// SuccessEnvelope wraps every 2xx cart API body.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public shape of a rejected request. RequestID echoes the
// X-Request-Id header so clients can quote it when reporting a lost change.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
