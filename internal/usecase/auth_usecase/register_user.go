package auth

import (
	"context"
	"errors"
	"strings"

	"grocery/internal/domain/model"
	"grocery/internal/repository"
)

// 会員登録の入力
type RegisterUserInput struct {
	Username string
	Email    string
	Password string
}

type RegisterUserOutput struct {
	User UserDTO `json:"user"`
}

// 形式チェックは validator に任せる
type RegisterValidator interface {
	ValidateRegister(username string, email string, password string) error
}

// RegisterUserUsecaseは会員登録の処理。
type RegisterUserUsecase struct {
	tx        repository.TransactionManager
	users     repository.UserRepository
	validator RegisterValidator
	hasher    PasswordHasher
	clock     Clock
}

// DI
func NewRegisterUserUsecase(
	tx repository.TransactionManager,
	users repository.UserRepository,
	validator RegisterValidator,
	hasher PasswordHasher,
	clock Clock,
) *RegisterUserUsecase {
	return &RegisterUserUsecase{
		tx:        tx,
		users:     users,
		validator: validator,
		hasher:    hasher,
		clock:     clock,
	}
}

// 会員登録実行（ユーザーと空のプロフィールを同時に作る）
func (u *RegisterUserUsecase) Execute(ctx context.Context, in RegisterUserInput) (RegisterUserOutput, error) {
	var out RegisterUserOutput

	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if err := u.validator.ValidateRegister(username, email, in.Password); err != nil {
		return out, err
	}

	// 重複チェック（大文字小文字は区別しない）
	if _, err := u.users.FindByUsername(ctx, username); err == nil {
		return out, ErrUsernameAlreadyExists
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return out, err
	}
	if _, err := u.users.FindByEmail(ctx, email); err == nil {
		return out, ErrEmailAlreadyExists
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return out, err
	}

	// パスワードをハッシュ化
	hashed, err := u.hasher.Hash(in.Password)
	if err != nil {
		return out, err
	}

	now := u.clock.Now()
	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hashed,
		Role:         model.RoleUser,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = u.tx.WithinTx(ctx, func(r repository.TxRepos) error {
		if err := r.Users().Create(ctx, user); err != nil {
			return err
		}
		_, err := r.Profiles().Save(ctx, model.Profile{
			UserID:    user.ID,
			CreatedAt: now,
			UpdatedAt: now,
		})
		return err
	})
	if errors.Is(err, repository.ErrDuplicate) {
		// 同時登録で先を越された
		return out, ErrUsernameAlreadyExists
	}
	if err != nil {
		return out, err
	}

	out.User = toUserDTO(user)
	return out, nil
}
