package account

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/mudai/domain"
	appLogger "github.com/fastygo/mudai/pkg/logger"
	"github.com/fastygo/mudai/repository"
	"github.com/fastygo/mudai/usecase"
)

const (
	defaultCooldown      = time.Minute
	defaultActivityLimit = 20
	cooldownKeyPrefix    = "apikey:"
)

// KeyGenerator mints API keys.
type KeyGenerator interface {
	Generate() (string, error)
}

type UseCase struct {
	accounts  usecase.AccountAPI
	cooldowns repository.CooldownRepository
	activity  repository.AuditRepository
	keys      KeyGenerator
	audit     usecase.AuditSink
	cooldown  time.Duration
	logger    *zap.Logger
}

// Deps groups the collaborators of the account use case.
type Deps struct {
	Accounts  usecase.AccountAPI
	Cooldowns repository.CooldownRepository
	Activity  repository.AuditRepository
	Keys      KeyGenerator
	Audit     usecase.AuditSink
}

func New(deps Deps, cooldown time.Duration, logger *zap.Logger) *UseCase {
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Audit == nil {
		deps.Audit = usecase.NopAuditSink{}
	}
	return &UseCase{
		accounts:  deps.Accounts,
		cooldowns: deps.Cooldowns,
		activity:  deps.Activity,
		keys:      deps.Keys,
		audit:     deps.Audit,
		cooldown:  cooldown,
		logger:    logger,
	}
}

// UpdateUsername renames the account. The caller re-issues the session with the
// returned name.
func (uc *UseCase) UpdateUsername(ctx context.Context, current, next string) (string, error) {
	next = strings.TrimSpace(next)
	if next == "" {
		return "", domain.NewError(domain.ErrCodeInvalid, "new username is required")
	}
	if next == current {
		return "", domain.NewError(domain.ErrCodeInvalid, "new username must differ from the current one")
	}

	result, err := uc.accounts.UpdateUsername(ctx, current, next)
	if err != nil {
		return "", err
	}
	if !result.OK() {
		return "", usecase.RemoteFailure(result, "could not update username")
	}

	uc.audit.Record(ctx, domain.AuditEvent{
		Kind:     domain.AuditUsernameUpdated,
		Username: next,
		Metadata: map[string]string{"previous": current},
	})
	return next, nil
}

// IssueAPIKey mints and registers a key, at most once per cooldown window.
// A cooldown store outage does not block issuance.
func (uc *UseCase) IssueAPIKey(ctx context.Context, username string) (string, error) {
	if username == "" {
		return "", domain.ErrNoSession
	}
	log := appLogger.FromContext(ctx, uc.logger)
	cooldownKey := cooldownKeyPrefix + username

	held := false
	if uc.cooldowns != nil {
		acquired, err := uc.cooldowns.Acquire(ctx, cooldownKey, uc.cooldown)
		switch {
		case err != nil:
			log.Warn("cooldown check failed, issuing anyway", zap.Error(err))
		case !acquired:
			return "", uc.cooldownError(ctx, cooldownKey)
		default:
			held = true
		}
	}

	key, err := uc.keys.Generate()
	if err != nil {
		uc.release(ctx, held, cooldownKey)
		return "", domain.WrapError(domain.ErrCodeInternal, "failed to generate api key", err)
	}

	result, err := uc.accounts.UpdateAPIKey(ctx, username, key)
	if err == nil && !result.OK() {
		err = usecase.RemoteFailure(result, "could not store api key")
	}
	if err != nil {
		uc.release(ctx, held, cooldownKey)
		return "", err
	}

	uc.audit.Record(ctx, domain.AuditEvent{Kind: domain.AuditAPIKeyIssued, Username: username})
	return key, nil
}

// Activity lists the most recent audit events of the user.
func (uc *UseCase) Activity(ctx context.Context, username string, limit int) ([]domain.AuditEvent, error) {
	if username == "" {
		return nil, domain.ErrNoSession
	}
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	if uc.activity == nil {
		return []domain.AuditEvent{}, nil
	}
	events, err := uc.activity.ListByUsername(ctx, username, limit)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeUnavailable, "activity is temporarily unavailable", err)
	}
	return events, nil
}

func (uc *UseCase) cooldownError(ctx context.Context, key string) error {
	remaining, err := uc.cooldowns.Remaining(ctx, key)
	if err != nil || remaining <= 0 {
		return domain.ErrAPIKeyCooldown
	}
	seconds := int(remaining.Round(time.Second) / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	return domain.WrapError(domain.ErrCodeTooManyRequests, domain.ErrAPIKeyCooldown.Message,
		&retryAfter{seconds: seconds})
}

func (uc *UseCase) release(ctx context.Context, held bool, key string) {
	if !held {
		return
	}
	if err := uc.cooldowns.Release(ctx, key); err != nil {
		appLogger.FromContext(ctx, uc.logger).Warn("failed to release api key cooldown", zap.Error(err))
	}
}

// retryAfter carries the remaining cooldown so transports can expose it.
type retryAfter struct {
	seconds int
}

func (r *retryAfter) Error() string {
	return "retry after " + strconv.Itoa(r.seconds) + "s"
}

// RetryAfterSeconds returns the remaining wait carried by a cooldown error, or 0.
func RetryAfterSeconds(err error) int {
	var r *retryAfter
	if errors.As(err, &r) {
		return r.seconds
	}
	return 0
}
