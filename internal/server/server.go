package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"grocery/internal/handler"
	"grocery/internal/middleware"
	"grocery/internal/repository"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// Handlers はルーティングに載せるハンドラ一式
type Handlers struct {
	Auth       *handler.AuthHandler
	AdminUser  *handler.AdminUserHandler
	Profile    *handler.ProfileHandler
	Product    *handler.ProductHandler
	Cart       *handler.CartHandler
	Order      *handler.OrderHandler
	AdminOrder *handler.AdminOrderHandler
	AuditLog   *handler.AuditLogHandler
}

type Options struct {
	JWTSecret string
	FEURL     string // 空ならCORSなし
	Users     repository.UserRepository
	Logger    *slog.Logger
}

// New は共通ミドルウェアとルートを載せた echo を返す
func New(opts Options, h Handlers) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(opts.Logger))
	if opts.FEURL != "" {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins:     []string{opts.FEURL},
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
			AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType},
			AllowCredentials: true,
		}))
	}

	RegisterRoutes(e, opts, h)
	return e
}

func RegisterRoutes(e *echo.Echo, opts Options, h Handlers) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// ログイン済み（JWT + token_version）
	authed := e.Group("",
		middleware.AuthJWT(opts.JWTSecret),
		middleware.TokenVersionGuard(opts.Users),
	)
	// ADMINのみ
	admin := e.Group("/admin",
		middleware.AuthJWT(opts.JWTSecret),
		middleware.TokenVersionGuard(opts.Users),
		middleware.AdminRoleGuard(),
	)

	h.Auth.RegisterRoutes(e)
	h.AdminUser.RegisterRoutes(admin)
	h.Profile.RegisterRoutes(authed)
	h.Product.RegisterRoutes(e, admin)
	h.Cart.RegisterRoutes(authed)
	h.Order.RegisterRoutes(authed)
	h.AdminOrder.RegisterRoutes(admin)
	h.AuditLog.RegisterRoutes(admin)
}

// Start は ctx が終わるまで待って graceful に止める
func Start(ctx context.Context, e *echo.Echo, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
