package middleware

import (
	"net/http"

	"grocery/internal/repository"

	"github.com/labstack/echo/v4"
)

// AuthJWT の後ろに置く。DB の token_version と is_active を毎リクエスト見る
func TokenVersionGuard(users repository.UserRepository) echo.MiddlewareFunc {
	unauthorized := func(c echo.Context) error {
		return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, _ := c.Get(CtxUserIDKey).(int64)
			tv, hasTV := c.Get(CtxTokenVersionKey).(int)
			if userID <= 0 || !hasTV {
				return unauthorized(c)
			}

			user, err := users.FindByID(c.Request().Context(), userID)
			if err != nil || user == nil {
				return unauthorized(c)
			}
			// force-logout 済みのトークン
			if user.TokenVersion != tv {
				return unauthorized(c)
			}
			if !user.IsActive {
				return c.JSON(http.StatusForbidden, errorJSON("user is inactive"))
			}

			c.Set(CtxUserRoleKey, string(user.Role))
			return next(c)
		}
	}
}
