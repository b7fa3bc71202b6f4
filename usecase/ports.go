package usecase

import (
	"context"

	"github.com/fastygo/mudai/domain"
)

// AccountAPI is the account half of the remote API.
type AccountAPI interface {
	CreateAccount(ctx context.Context, identity domain.Identity) (*domain.APIResult, error)
	Login(ctx context.Context, username, password string) (*domain.APIResult, error)
	UpdateUsername(ctx context.Context, username, newUsername string) (*domain.APIResult, error)
	UpdateAPIKey(ctx context.Context, username, key string) (*domain.APIResult, error)
}

// ChatAPI persists and replays chat turns.
type ChatAPI interface {
	SendChat(ctx context.Context, username, prompt string) (*domain.APIResult, error)
	ChatHistory(ctx context.Context, username string) (*domain.APIResult, error)
}

// ContactAPI forwards contact-form submissions.
type ContactAPI interface {
	Connect(ctx context.Context, email, message string) (*domain.APIResult, error)
}

// AuditSink records activity. Implementations absorb their own failures so
// recording never fails a user-facing request.
type AuditSink interface {
	Record(ctx context.Context, event domain.AuditEvent)
}

// NopAuditSink discards every event.
type NopAuditSink struct{}

func (NopAuditSink) Record(context.Context, domain.AuditEvent) {}

// RemoteFailure turns a non-OK remote reply into a domain error carrying the
// remote message, so the UI can show it as a notification.
func RemoteFailure(result *domain.APIResult, fallback string) error {
	message := fallback
	if result != nil && result.Message != "" {
		message = result.Message
	}
	code := domain.ErrCodeUnavailable
	if result != nil {
		switch result.Code {
		case 400, 422:
			code = domain.ErrCodeInvalid
		case 401:
			code = domain.ErrCodeUnauthorized
		case 403:
			code = domain.ErrCodeForbidden
		case 404:
			code = domain.ErrCodeNotFound
		case 409:
			code = domain.ErrCodeConflict
		case 429:
			code = domain.ErrCodeTooManyRequests
		}
	}
	return domain.NewError(code, message)
}
