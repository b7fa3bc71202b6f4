package transport

import "time"

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	UCode    string `json:"ucode"`
}

type UpdateUsernameRequest struct {
	NewUsername string `json:"new_username"`
}

type ChatRequest struct {
	Prompt string `json:"prompt"`
}

type ContactRequest struct {
	Email   string `json:"email"`
	Message string `json:"message"`
}

// SessionView is what the UI learns about the current session. The password
// never leaves the server.
type SessionView struct {
	Authenticated bool       `json:"authenticated"`
	Username      string     `json:"username,omitempty"`
	UCode         string     `json:"ucode,omitempty"`
	Expires       *time.Time `json:"expires,omitempty"`
}

type APIKeyResponse struct {
	Key string `json:"key"`
}
