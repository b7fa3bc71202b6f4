package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fastygo/mudai/domain"
	"github.com/fastygo/mudai/internal/infrastructure/buffer"
	"github.com/fastygo/mudai/pkg/httpcontext"
	appLogger "github.com/fastygo/mudai/pkg/logger"
	"github.com/fastygo/mudai/repository"
	"github.com/fastygo/mudai/usecase"
)

const auditWriteTimeout = 2 * time.Second

// AuditBridge writes audit events straight to Postgres when it is online and
// falls back to the BoltDB buffer otherwise.
type AuditBridge struct {
	audit   repository.AuditRepository
	store   *buffer.Store
	monitor ConnectionHealth
	logger  *zap.Logger
}

func NewAuditBridge(audit repository.AuditRepository, store *buffer.Store, monitor ConnectionHealth, logger *zap.Logger) *AuditBridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditBridge{
		audit:   audit,
		store:   store,
		monitor: monitor,
		logger:  logger,
	}
}

// Record never returns an error; failures are logged.
func (b *AuditBridge) Record(ctx context.Context, event domain.AuditEvent) {
	if ctx == nil {
		ctx = context.Background()
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if event.RemoteAddr == "" {
		event.RemoteAddr = httpcontext.RemoteAddr(ctx)
	}
	if event.UserAgent == "" {
		event.UserAgent = httpcontext.UserAgent(ctx)
	}
	log := appLogger.FromContext(ctx, b.logger).With(zap.String("audit_kind", string(event.Kind)))

	if b.audit != nil && (b.monitor == nil || b.monitor.IsOnline()) {
		// detached from the request deadline so a slow handler does not drop the write
		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditWriteTimeout)
		err := b.audit.Append(writeCtx, &event)
		cancel()
		if err == nil {
			return
		}
		log.Warn("audit write failed, buffering", zap.Error(err))
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error("failed to encode audit event", zap.Error(err))
		return
	}
	if err := b.store.Enqueue(buffer.Item{ID: event.ID, Entity: buffer.EntityAudit, Data: payload}); err != nil {
		log.Error("failed to buffer audit event", zap.Error(err))
	}
}

var _ usecase.AuditSink = (*AuditBridge)(nil)
