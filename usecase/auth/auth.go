package auth

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/fastygo/mudai/domain"
	appLogger "github.com/fastygo/mudai/pkg/logger"
	"github.com/fastygo/mudai/usecase"
)

// Outcome tells the caller whether login created a new account.
type Outcome struct {
	Identity domain.Identity
	Created  bool
	Message  string
}

type UseCase struct {
	accounts usecase.AccountAPI
	audit    usecase.AuditSink
	logger   *zap.Logger
}

func New(accounts usecase.AccountAPI, audit usecase.AuditSink, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if audit == nil {
		audit = usecase.NopAuditSink{}
	}
	return &UseCase{
		accounts: accounts,
		audit:    audit,
		logger:   logger,
	}
}

// Login signs the user up, or logs them in when the account already exists.
// The returned identity never carries the password. The session itself is
// audited by SessionEstablished once the caller has issued it.
func (uc *UseCase) Login(ctx context.Context, identity domain.Identity) (*Outcome, error) {
	identity.Username = strings.TrimSpace(identity.Username)
	identity.UCode = strings.TrimSpace(identity.UCode)
	if identity.Username == "" || identity.Password == "" {
		return nil, domain.NewError(domain.ErrCodeInvalid, "username and password are required")
	}
	log := appLogger.FromContext(ctx, uc.logger).With(zap.String("username", identity.Username))

	created, err := uc.accounts.CreateAccount(ctx, identity)
	if err != nil {
		return nil, err
	}
	if created.OK() {
		log.Info("account created")
		uc.audit.Record(ctx, domain.AuditEvent{Kind: domain.AuditAccountCreated, Username: identity.Username})
		return outcome(identity, true, created.Message), nil
	}
	if created.Code != 409 {
		return nil, usecase.RemoteFailure(created, "could not create account")
	}

	existing, err := uc.accounts.Login(ctx, identity.Username, identity.Password)
	if err != nil {
		return nil, err
	}
	if !existing.OK() {
		log.Info("login rejected", zap.Int("remote_code", existing.Code))
		return nil, usecase.RemoteFailure(existing, "login failed")
	}
	return outcome(identity, false, existing.Message), nil
}

// Logout records the end of a session. The caller clears the cookie.
func (uc *UseCase) Logout(ctx context.Context, username string) {
	if username == "" {
		return
	}
	uc.audit.Record(ctx, domain.AuditEvent{Kind: domain.AuditSessionDestroyed, Username: username})
}

// SessionEstablished records that a session cookie was issued for identity.
func (uc *UseCase) SessionEstablished(ctx context.Context, identity domain.Identity) {
	if identity.Username == "" {
		return
	}
	uc.audit.Record(ctx, domain.AuditEvent{
		Kind:     domain.AuditSessionEstablished,
		Username: identity.Username,
		Metadata: map[string]string{"ucode": identity.UCode},
	})
}

func outcome(identity domain.Identity, created bool, message string) *Outcome {
	return &Outcome{Identity: identity.Public(), Created: created, Message: message}
}
