package repository

import (
	"context"
	"time"

	"grocery/internal/domain/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderSequenceGormRepository struct {
	db *gorm.DB
}

func NewOrderSequenceGormRepository(db *gorm.DB) *OrderSequenceGormRepository {
	return &OrderSequenceGormRepository{db: db}
}

func (r *OrderSequenceGormRepository) Exists(ctx context.Context, seqDate string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.OrderSequence{}).
		Where("seq_date = ?", seqDate).
		Count(&n).Error
	return n > 0, err
}

// upsertで+1する（行ロックは同じトランザクションのcommitまで保持される）
func (r *OrderSequenceGormRepository) Increment(ctx context.Context, seqDate string, seed int64) (int64, error) {
	now := time.Now()
	row := model.OrderSequence{SeqDate: seqDate, LastValue: seed + 1, UpdatedAt: now}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "seq_date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"last_value": gorm.Expr("order_sequences.last_value + 1"),
			"updated_at": now,
		}),
	}).Create(&row).Error
	if err != nil {
		return 0, err
	}

	var cur model.OrderSequence
	if err := r.db.WithContext(ctx).Where("seq_date = ?", seqDate).First(&cur).Error; err != nil {
		return 0, translateError(err)
	}
	return cur.LastValue, nil
}
