package repository

import (
	"context"
	"errors"
	"time"

	"grocery/internal/domain/model"
)

var ErrRefreshTokenNotFound = errors.New("refresh token not found")

// トークン本体は持たず SHA-256 ハッシュで引く
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *model.RefreshToken) error
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	// ローテーション済みの印。二度目の利用は再利用として扱う
	MarkUsed(ctx context.Context, tokenID string, usedAt time.Time) error
	Revoke(ctx context.Context, tokenID string, revokedAt time.Time) error
	DeleteAllByUserID(ctx context.Context, userID int64) error
}
