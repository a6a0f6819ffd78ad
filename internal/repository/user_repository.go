package repository

import (
	"context"
	"errors"

	"grocery/internal/domain/model"
)

// ユーザーが見つかりませんを統一
var ErrUserNotFound = errors.New("user not found")

// 保存・取得を約束
type UserRepository interface {
	//新規ユーザー作成
	Create(ctx context.Context, user *model.User) error
	// IDからユーザーを1件取得する。
	FindByID(ctx context.Context, userID int64) (*model.User, error)
	//メールからユーザーを一件取得する（大文字小文字は区別しない）。
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	//ユーザー名から一件取得する（大文字小文字は区別しない）。
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	//ユーザー名またはメールで一件取得する（ログイン用）
	FindByIdentifier(ctx context.Context, identifier string) (*model.User, error)
	// ユーザー情報の更新
	Update(ctx context.Context, user *model.User) error
	//トークンのバージョンを＋１
	IncrementTokenVersion(ctx context.Context, userID int64) error
	//管理者用の一覧
	List(ctx context.Context, page int, limit int) ([]model.User, int64, error)
}
