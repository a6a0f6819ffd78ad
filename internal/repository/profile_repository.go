package repository

import (
	"context"

	"grocery/internal/domain/model"
)

// プロフィールを保存・取得する窓口
type ProfileRepository interface {
	//ユーザーのプロフィールを返す（無ければErrNotFound）
	FindByUserID(ctx context.Context, userID int64) (model.Profile, error)

	//作成または更新
	Save(ctx context.Context, profile model.Profile) (model.Profile, error)
}
