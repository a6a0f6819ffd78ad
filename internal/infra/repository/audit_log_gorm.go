package repository

import (
	"context"

	"grocery/internal/domain/model"
	repo "grocery/internal/repository"

	"gorm.io/gorm"
)

type AuditLogGormRepository struct {
	db *gorm.DB
}

func NewAuditLogGormRepository(db *gorm.DB) *AuditLogGormRepository {
	return &AuditLogGormRepository{db: db}
}

func (r *AuditLogGormRepository) Create(ctx context.Context, entry model.AuditLog) error {
	return translateError(r.db.WithContext(ctx).Create(&entry).Error)
}

func (r *AuditLogGormRepository) Search(ctx context.Context, q repo.AuditLogQuery) ([]model.AuditLog, int64, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 || q.Limit > 200 {
		q.Limit = 50
	}

	tx := r.db.WithContext(ctx).Model(&model.AuditLog{})
	if q.ActorUserID > 0 {
		tx = tx.Where("actor_user_id = ?", q.ActorUserID)
	}
	if q.Action != "" {
		tx = tx.Where("action = ?", q.Action)
	}
	if q.ResourceType != "" {
		tx = tx.Where("resource_type = ?", q.ResourceType)
	}
	if q.ResourceID > 0 {
		tx = tx.Where("resource_id = ?", q.ResourceID)
	}
	if q.From != nil {
		tx = tx.Where("created_at >= ?", *q.From)
	}
	if q.To != nil {
		tx = tx.Where("created_at <= ?", *q.To)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return []model.AuditLog{}, 0, err
	}

	logs := []model.AuditLog{}
	err := tx.Order("id desc").Limit(q.Limit).Offset(pageOffset(q.Page, q.Limit)).Find(&logs).Error
	if err != nil {
		return []model.AuditLog{}, 0, err
	}
	return logs, total, nil
}
