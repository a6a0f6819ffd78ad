package auth

import (
	"context"
	"encoding/json"
	"errors"

	"grocery/internal/domain/model"
	"grocery/internal/repository"
)

type ForceLogoutOutput struct {
	UserID          int64 `json:"user_id"`
	NewTokenVersion int   `json:"new_token_version"`
}

type UserListOutput struct {
	Items []UserDTO `json:"items"`
	Total int64     `json:"total"`
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
}

// 管理者向けのユーザー操作
type AdminUserUsecase struct {
	tx    repository.TransactionManager
	users repository.UserRepository
	clock Clock
}

func NewAdminUserUsecase(tx repository.TransactionManager, users repository.UserRepository, clock Clock) *AdminUserUsecase {
	return &AdminUserUsecase{tx: tx, users: users, clock: clock}
}

type tokenVersionJSON struct {
	TokenVersion int `json:"token_version"`
}

// token_versionを上げて、refresh tokenも全部消す
func (u *AdminUserUsecase) ForceLogout(ctx context.Context, actorUserID int64, targetUserID int64) (ForceLogoutOutput, error) {
	var out ForceLogoutOutput
	if actorUserID <= 0 || targetUserID <= 0 {
		return out, ErrInvalidInput
	}

	err := u.tx.WithinTx(ctx, func(r repository.TxRepos) error {
		before, err := r.Users().FindByID(ctx, targetUserID)
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}

		if err := r.Users().IncrementTokenVersion(ctx, targetUserID); err != nil {
			return err
		}
		if err := r.RefreshTokens().DeleteAllByUserID(ctx, targetUserID); err != nil {
			return err
		}

		after, err := r.Users().FindByID(ctx, targetUserID)
		if err != nil {
			return err
		}

		beforeJSON, _ := json.Marshal(tokenVersionJSON{TokenVersion: before.TokenVersion})
		afterJSON, _ := json.Marshal(tokenVersionJSON{TokenVersion: after.TokenVersion})
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actorUserID,
			Action:       model.AuditActionForceLogout,
			ResourceType: model.AuditResourceUser,
			ResourceID:   targetUserID,
			BeforeJSON:   string(beforeJSON),
			AfterJSON:    string(afterJSON),
			CreatedAt:    u.clock.Now(),
		}); err != nil {
			return err
		}

		out = ForceLogoutOutput{UserID: after.ID, NewTokenVersion: after.TokenVersion}
		return nil
	})
	if err != nil {
		return ForceLogoutOutput{}, err
	}
	return out, nil
}

func (u *AdminUserUsecase) ListUsers(ctx context.Context, page int, limit int) (UserListOutput, error) {
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = 20
	}
	if page < 1 || limit < 1 || limit > 100 {
		return UserListOutput{}, ErrInvalidInput
	}

	users, total, err := u.users.List(ctx, page, limit)
	if err != nil {
		return UserListOutput{}, err
	}

	items := make([]UserDTO, 0, len(users))
	for i := range users {
		items = append(items, toUserDTO(&users[i]))
	}
	return UserListOutput{Items: items, Total: total, Page: page, Limit: limit}, nil
}
