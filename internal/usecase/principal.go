package usecase

import (
	"time"

	"grocery/internal/domain/model"
)

// 認証済みの呼び出し元
type Principal struct {
	UserID int64
	Role   model.Role
}

// 管理者は全件を見られる
func (p Principal) IsStaff() bool {
	return p.Role == model.RoleAdmin
}

type Clock interface {
	Now() time.Time
}

// 関数をClockとして使う
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

var systemClock Clock = ClockFunc(time.Now)
