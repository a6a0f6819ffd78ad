package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"grocery/internal/repository"
)

type RefreshInput struct {
	PlainRefreshToken string
	UserAgent         string
}

type RefreshOutput struct {
	Token JwtAccessToken `json:"token"`
}

// refresh token のローテーションとログアウト
type RefreshTokenUsecase struct {
	userRepo   repository.UserRepository
	rtRepo     repository.RefreshTokenRepository
	issuer     AccessTokenIssuer
	idGen      IDGenerator
	clock      Clock
	refreshTTL time.Duration
}

func NewRefreshTokenUsecase(
	userRepo repository.UserRepository,
	rtRepo repository.RefreshTokenRepository,
	issuer AccessTokenIssuer,
	idGen IDGenerator,
	clock Clock,
	refreshTTL time.Duration,
) *RefreshTokenUsecase {
	return &RefreshTokenUsecase{
		userRepo:   userRepo,
		rtRepo:     rtRepo,
		issuer:     issuer,
		idGen:      idGen,
		clock:      clock,
		refreshTTL: refreshTTL,
	}
}

// 古いトークンを使用済みにして新しいペアを返す。
// 使用済みトークンが来たらそのユーザーのトークンを全部消す
func (u *RefreshTokenUsecase) Refresh(ctx context.Context, in RefreshInput) (RefreshOutput, LoginSideEffect, error) {
	var out RefreshOutput
	var side LoginSideEffect

	plain := strings.TrimSpace(in.PlainRefreshToken)
	if plain == "" {
		return out, side, ErrInvalidRefresh
	}

	rt, err := u.rtRepo.FindByTokenHash(ctx, hashToken(plain))
	if errors.Is(err, repository.ErrRefreshTokenNotFound) {
		return out, side, ErrInvalidRefresh
	}
	if err != nil {
		return out, side, err
	}

	now := u.clock.Now()

	//used済みが来たら replay → 全削除
	if rt.UsedAt != nil {
		if err := u.rtRepo.DeleteAllByUserID(ctx, rt.UserID); err != nil {
			return out, side, err
		}
		return out, side, ErrRefreshReused
	}
	if !rt.Usable(now) {
		return out, side, ErrInvalidRefresh
	}

	user, err := u.userRepo.FindByID(ctx, rt.UserID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return out, side, ErrInvalidRefresh
	}
	if err != nil {
		return out, side, err
	}
	if !user.IsActive {
		return out, side, ErrUserInactive
	}

	//旧tokenをusedにする（同時に使われたら片方だけが通る）
	if err := u.rtRepo.MarkUsed(ctx, rt.ID, now); err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			_ = u.rtRepo.DeleteAllByUserID(ctx, rt.UserID)
			return out, side, ErrRefreshReused
		}
		return out, side, err
	}

	userAgent := in.UserAgent
	if userAgent == "" {
		userAgent = rt.UserAgent
	}
	token, plainRefresh, refreshExp, err := issueTokenPair(ctx, u.rtRepo, u.issuer, u.idGen, user, userAgent, now, u.refreshTTL)
	if err != nil {
		return out, side, err
	}

	out.Token = token
	side.PlainRefreshToken = plainRefresh
	side.RefreshExpiresAt = refreshExp
	return out, side, nil
}

// 提示されたトークンを失効させる（知らないトークンでも成功扱い）
func (u *RefreshTokenUsecase) Logout(ctx context.Context, plainRefreshToken string) error {
	plain := strings.TrimSpace(plainRefreshToken)
	if plain == "" {
		return nil
	}

	rt, err := u.rtRepo.FindByTokenHash(ctx, hashToken(plain))
	if errors.Is(err, repository.ErrRefreshTokenNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if rt.RevokedAt != nil {
		return nil
	}

	err = u.rtRepo.Revoke(ctx, rt.ID, u.clock.Now())
	if err != nil && !errors.Is(err, repository.ErrRefreshTokenNotFound) {
		return err
	}
	return nil
}
