package repository

import (
	"context"

	"github.com/fastygo/mudai/domain"
)

type AuditRepository interface {
	Append(ctx context.Context, event *domain.AuditEvent) error
	ListByUsername(ctx context.Context, username string, limit int) ([]domain.AuditEvent, error)
}
