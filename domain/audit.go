package domain

import (
	"encoding/json"
	"time"
)

// AuditKind names an auditable account or session action.
type AuditKind string

const (
	AuditSessionEstablished AuditKind = "session.established"
	AuditSessionDestroyed   AuditKind = "session.destroyed"
	AuditAccountCreated     AuditKind = "account.created"
	AuditUsernameUpdated    AuditKind = "username.updated"
	AuditAPIKeyIssued       AuditKind = "apikey.issued"
	AuditContactSubmitted   AuditKind = "contact.submitted"
)

// AuditEvent is a single entry in the account activity trail.
type AuditEvent struct {
	ID         string            `json:"id"`
	Kind       AuditKind         `json:"kind"`
	Username   string            `json:"username,omitempty"`
	RemoteAddr string            `json:"remote_addr,omitempty"`
	UserAgent  string            `json:"user_agent,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// APIResult is the uniform reply envelope of the remote API.
type APIResult struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// OK reports a successful remote reply.
func (r *APIResult) OK() bool {
	return r != nil && r.Success && r.Code == 200
}
