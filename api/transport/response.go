package transport

import "encoding/json"

// Envelope is the response wrapper shared with the browser UI and the remote API:
// every reply carries success, a numeric code, a message and optional data.
type Envelope struct {
	Success bool        `json:"success"`
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// NewSuccess returns a success envelope.
func NewSuccess(status int, message string, data interface{}) Envelope {
	return Envelope{
		Success: true,
		Code:    status,
		Message: message,
		Data:    data,
	}
}

// NewError returns an error envelope with optional data (e.g. field errors).
func NewError(status int, message string, data interface{}) Envelope {
	return Envelope{
		Success: false,
		Code:    status,
		Message: message,
		Data:    data,
	}
}

// String returns the JSON representation (best-effort) for logging purposes.
func (e Envelope) String() string {
	out, err := json.Marshal(e)
	if err != nil {
		return "{}"
	}
	return string(out)
}
