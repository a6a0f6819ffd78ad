package repository

import (
	"context"
	"time"

	"grocery/internal/domain/model"
	repo "grocery/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type profileGormRepository struct {
	db *gorm.DB
}

func NewProfileGormRepository(db *gorm.DB) repo.ProfileRepository {
	return &profileGormRepository{db: db}
}

func (r *profileGormRepository) FindByUserID(ctx context.Context, userID int64) (model.Profile, error) {
	var p model.Profile
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error
	if err != nil {
		return model.Profile{}, translateError(err)
	}
	return p, nil
}

// user_idで上書き保存
func (r *profileGormRepository) Save(ctx context.Context, p model.Profile) (model.Profile, error) {
	now := time.Now()
	//競合判定は user_id で行うのでIDは付けない
	p.ID = 0
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"full_name", "dob", "gender", "mobile", "address", "updated_at"}),
	}).Create(&p).Error
	if err != nil {
		return model.Profile{}, translateError(err)
	}
	return r.FindByUserID(ctx, p.UserID)
}
