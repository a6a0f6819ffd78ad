package repository

import (
	"context"
	"time"

	"grocery/internal/domain/model"
)

// ゼロ値の項目は絞り込みに使わない
type AuditLogQuery struct {
	Page         int
	Limit        int
	ActorUserID  int64
	Action       model.AuditAction
	ResourceType model.AuditResourceType
	ResourceID   int64
	From         *time.Time
	To           *time.Time
}

type AuditLogRepository interface {
	// 管理者操作と同じトランザクションで書く
	Create(ctx context.Context, entry model.AuditLog) error

	// 新しい順。total は絞り込み後の件数
	Search(ctx context.Context, q AuditLogQuery) ([]model.AuditLog, int64, error)
}
