package contact

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/fastygo/mudai/domain"
	appLogger "github.com/fastygo/mudai/pkg/logger"
	"github.com/fastygo/mudai/usecase"
)

// MaxWords bounds the contact message length.
const MaxWords = 150

var gmailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@gmail\.com$`)

type UseCase struct {
	contact usecase.ContactAPI
	audit   usecase.AuditSink
	logger  *zap.Logger
}

func New(contact usecase.ContactAPI, audit usecase.AuditSink, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if audit == nil {
		audit = usecase.NopAuditSink{}
	}
	return &UseCase{contact: contact, audit: audit, logger: logger}
}

// Submit validates and forwards a contact-form message. Nothing reaches the
// remote API unless validation passes.
func (uc *UseCase) Submit(ctx context.Context, email, message string) (string, error) {
	email = strings.TrimSpace(email)
	message = strings.TrimSpace(message)
	if err := Validate(email, message); err != nil {
		return "", err
	}

	result, err := uc.contact.Connect(ctx, email, message)
	if err != nil {
		return "", err
	}
	if !result.OK() {
		appLogger.FromContext(ctx, uc.logger).Info("contact rejected", zap.Int("remote_code", result.Code))
		return "", usecase.RemoteFailure(result, "could not send your message")
	}

	uc.audit.Record(ctx, domain.AuditEvent{
		Kind:     domain.AuditContactSubmitted,
		Metadata: map[string]string{"email": email},
	})
	return result.Message, nil
}

// Validate checks the contact form fields.
func Validate(email, message string) error {
	if !gmailPattern.MatchString(email) {
		return domain.NewError(domain.ErrCodeInvalid, "please enter a valid gmail address")
	}
	words := len(strings.Fields(message))
	if words == 0 {
		return domain.NewError(domain.ErrCodeInvalid, "message is required")
	}
	if words > MaxWords {
		return domain.NewError(domain.ErrCodeInvalid, "message must be 150 words or fewer")
	}
	return nil
}
