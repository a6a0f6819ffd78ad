package server_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"grocery/internal/domain/model"
	"grocery/internal/handler"
	"grocery/internal/infra/db/dbtest"
	infraRepo "grocery/internal/infra/repository"
	"grocery/internal/server"
	"grocery/internal/usecase"
	auth "grocery/internal/usecase/auth_usecase"
	"grocery/internal/validator"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const secret = "server-test-secret-server-test-secret"

type testApp struct {
	e  *echo.Echo
	db *gorm.DB
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gdb := dbtest.Open(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	txm := infraRepo.NewTxManagerGorm(gdb)
	users := infraRepo.NewUserGormRepository(gdb)
	tokens := infraRepo.NewRefreshTokenRepository(gdb)
	products := infraRepo.NewProductGormRepository(gdb)
	orders := infraRepo.NewOrderGormRepository(gdb)

	issuer, err := auth.NewJWTIssuer(secret, 15*time.Minute)
	require.NoError(t, err)
	clock := auth.SystemClock{}

	registerUC := auth.NewRegisterUserUsecase(txm, users, validator.NewAuthValidator(), auth.NewBcryptPasswordHasher(4), clock)
	loginUC := auth.NewLoginUsecase(users, tokens, auth.NewBcryptPasswordVerifier(), issuer, auth.UUIDGenerator{}, clock, time.Hour)
	refreshUC := auth.NewRefreshTokenUsecase(users, tokens, issuer, auth.UUIDGenerator{}, clock, time.Hour)

	e := server.New(server.Options{
		JWTSecret: secret,
		Users:     users,
		Logger:    logger,
	}, server.Handlers{
		Auth:       handler.NewAuthHandler(registerUC, loginUC, refreshUC, false),
		AdminUser:  handler.NewAdminUserHandler(auth.NewAdminUserUsecase(txm, users, clock)),
		Profile:    handler.NewProfileHandler(usecase.NewProfileUsecase(infraRepo.NewProfileGormRepository(gdb))),
		Product:    handler.NewProductHandler(usecase.NewProductUsecase(txm, products, infraRepo.NewCategoryGormRepository(gdb), infraRepo.NewSubCategoryGormRepository(gdb))),
		Cart:       handler.NewCartHandler(usecase.NewCartUsecase(infraRepo.NewCartGormRepository(gdb), infraRepo.NewWishlistGormRepository(gdb), products)),
		Order:      handler.NewOrderHandler(usecase.NewOrderUsecase(txm, orders, usecase.WithLogger(logger))),
		AdminOrder: handler.NewAdminOrderHandler(usecase.NewAdminOrderUsecase(txm, orders, nil)),
		AuditLog:   handler.NewAuditLogHandler(usecase.NewAuditLogUsecase(infraRepo.NewAuditLogGormRepository(gdb))),
	})
	return &testApp{e: e, db: gdb}
}

func (a *testApp) do(t *testing.T, method, path, token string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// 会員登録してログインし、アクセストークンとrefresh cookieを返す
func (a *testApp) signUpAndLogin(t *testing.T, username string) (string, *http.Cookie) {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": username, "email": username + "@example.com", "password": "correct-horse-9",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return a.login(t, username)
}

func (a *testApp) login(t *testing.T, username string) (string, *http.Cookie) {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"identifier": username, "password": "correct-horse-9",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode[auth.LoginOutput](t, rec)

	var refresh *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "refresh" {
			refresh = c
		}
	}
	require.NotNil(t, refresh)
	assert.True(t, refresh.HttpOnly)
	return out.Token.AccessToken, refresh
}

func (a *testApp) promote(t *testing.T, username string) {
	t.Helper()
	require.NoError(t, a.db.Model(&model.User{}).Where("username = ?", username).Update("role", model.RoleAdmin).Error)
}

func (a *testApp) seedProduct(t *testing.T, name, price string, status model.StockStatus) model.Product {
	t.Helper()
	p := model.Product{Name: name, SellingPrice: decimal.RequireFromString(price), StockStatus: status}
	require.NoError(t, a.db.Create(&p).Error)
	return p
}

func TestHealthz(t *testing.T) {
	app := newTestApp(t)
	rec := app.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth_RegisterConflictAndValidation(t *testing.T) {
	app := newTestApp(t)
	app.signUpAndLogin(t, "alice")

	rec := app.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": "alice", "email": "x@example.com", "password": "correct-horse-9",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = app.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": "bob", "email": "not-an-email", "password": "correct-horse-9",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"identifier": "alice", "password": "nope-nope-nope",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_RefreshAndLogout(t *testing.T) {
	app := newTestApp(t)
	_, refresh := app.signUpAndLogin(t, "alice")

	rec := app.do(t, http.MethodPost, "/auth/refresh", "", nil, refresh)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var rotated *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "refresh" {
			rotated = c
		}
	}
	require.NotNil(t, rotated)
	assert.NotEqual(t, refresh.Value, rotated.Value)

	// 古いcookieの再利用は401
	rec = app.do(t, http.MethodPost, "/auth/refresh", "", nil, refresh)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = app.do(t, http.MethodPost, "/auth/logout", "", nil, rotated)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = app.do(t, http.MethodPost, "/auth/refresh", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRoutes_RequireAuth(t *testing.T) {
	app := newTestApp(t)
	userToken, _ := app.signUpAndLogin(t, "alice")

	assert.Equal(t, http.StatusUnauthorized, app.do(t, http.MethodGet, "/cart", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, app.do(t, http.MethodPost, "/orders", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, app.do(t, http.MethodGet, "/admin/orders", userToken, nil).Code)
	assert.Equal(t, http.StatusOK, app.do(t, http.MethodGet, "/products", "", nil).Code)
}

func TestOrderFlow(t *testing.T) {
	app := newTestApp(t)
	aliceToken, _ := app.signUpAndLogin(t, "alice")
	app.signUpAndLogin(t, "staff")
	app.promote(t, "staff")
	// ロール変更後に取り直す
	staffToken, _ := app.login(t, "staff")

	milk := app.seedProduct(t, "milk", "10.00", model.StockStatusInStock)
	bread := app.seedProduct(t, "bread", "5.00", model.StockStatusInStock)
	eggs := app.seedProduct(t, "eggs", "4.00", model.StockStatusOutOfStock)

	for _, line := range []struct {
		id  int64
		qty int64
	}{{milk.ID, 3}, {bread.ID, 1}, {eggs.ID, 2}} {
		rec := app.do(t, http.MethodPost, "/cart", aliceToken, map[string]int64{"product_id": line.id, "quantity": line.qty})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	cart := decode[usecase.CartResponse](t, app.do(t, http.MethodGet, "/cart", aliceToken, nil))
	assert.Equal(t, "35.00", cart.Total)
	assert.Equal(t, 1, cart.OutOfStockCount)

	rec := app.do(t, http.MethodPost, "/orders", aliceToken, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	placed := decode[usecase.PlaceOrderOutput](t, rec)
	assert.True(t, placed.Partial)
	assert.Equal(t, "35.00", placed.Order.TotalPrice)
	assert.Regexp(t, `^ORD-\d{8}-AL[A-Z0-9]{2}-0001$`, placed.Order.OrderNumber)
	require.Len(t, placed.ExcludedItems, 1)
	assert.Equal(t, eggs.ID, placed.ExcludedItems[0].ProductID)

	cart = decode[usecase.CartResponse](t, app.do(t, http.MethodGet, "/cart", aliceToken, nil))
	assert.Len(t, cart.Items, 1)

	list := decode[usecase.OrderListOutput](t, app.do(t, http.MethodGet, "/orders", aliceToken, nil))
	assert.Equal(t, int64(1), list.Total)

	orderPath := "/admin/orders/" + itoa(placed.Order.ID) + "/status"
	rec = app.do(t, http.MethodPut, orderPath, staffToken, map[string]string{"status": "ready"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = app.do(t, http.MethodPut, orderPath, staffToken, map[string]string{"status": "preparing"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "preparing", decode[usecase.OrderOutput](t, rec).Status)

	got := decode[usecase.OrderOutput](t, app.do(t, http.MethodGet, "/orders/"+itoa(placed.Order.ID), aliceToken, nil))
	assert.Equal(t, "preparing", got.Status)

	adminList := decode[usecase.OrderListOutput](t, app.do(t, http.MethodGet, "/admin/orders?status=preparing", staffToken, nil))
	assert.Equal(t, int64(1), adminList.Total)

	assert.Equal(t, http.StatusBadRequest, app.do(t, http.MethodGet, "/orders?page=abc", aliceToken, nil).Code)
}

func TestForceLogout_InvalidatesAccessToken(t *testing.T) {
	app := newTestApp(t)
	aliceToken, _ := app.signUpAndLogin(t, "alice")
	app.signUpAndLogin(t, "staff")
	app.promote(t, "staff")
	staffToken, _ := app.login(t, "staff")

	var alice model.User
	require.NoError(t, app.db.Where("username = ?", "alice").First(&alice).Error)

	require.Equal(t, http.StatusOK, app.do(t, http.MethodGet, "/account/profile", aliceToken, nil).Code)

	rec := app.do(t, http.MethodPost, "/admin/users/"+itoa(alice.ID)+"/force-logout", staffToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, http.StatusUnauthorized, app.do(t, http.MethodGet, "/account/profile", aliceToken, nil).Code)

	rec = app.do(t, http.MethodGet, "/admin/audit-logs?action=FORCE_LOGOUT&resource_id="+itoa(alice.ID), staffToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	logs := decode[usecase.AuditLogListOutput](t, rec)
	require.Equal(t, int64(1), logs.Total)
	assert.Equal(t, model.AuditResourceUser, logs.Items[0].ResourceType)

	assert.Equal(t, http.StatusBadRequest, app.do(t, http.MethodGet, "/admin/audit-logs?resource_id=x", staffToken, nil).Code)
}

func TestProfile_Update(t *testing.T) {
	app := newTestApp(t)
	token, _ := app.signUpAndLogin(t, "alice")

	rec := app.do(t, http.MethodPut, "/account/profile", token, map[string]string{
		"full_name": "Alice Liddell", "dob": "1990-05-01", "gender": "female", "mobile": "+81 90-1234-5678",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decode[usecase.ProfileDTO](t, app.do(t, http.MethodGet, "/account/profile", token, nil))
	assert.Equal(t, "Alice Liddell", got.FullName)
	assert.Equal(t, "1990-05-01", got.DOB)

	rec = app.do(t, http.MethodPut, "/account/profile", token, map[string]string{"gender": "robot"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func TestCatalogAdmin_CategoriesAndSubCategories(t *testing.T) {
	app := newTestApp(t)
	app.signUpAndLogin(t, "staff")
	app.promote(t, "staff")
	token, _ := app.login(t, "staff")

	rec := app.do(t, http.MethodPost, "/admin/subcategories", token, map[string]string{"name": "Organic"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	organic := decode[model.SubCategory](t, rec)

	rec = app.do(t, http.MethodPost, "/admin/categories", token, map[string]string{"name": "Dairy", "slug": "dairy"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	dairy := decode[model.Category](t, rec)

	rec = app.do(t, http.MethodPost, "/admin/products", token, map[string]any{
		"name": "Milk", "selling_price": "2.50", "category_id": dairy.ID, "subcategory_ids": []int64{organic.ID},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = app.do(t, http.MethodGet, "/products?subcategory="+itoa(organic.ID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[usecase.ProductListOutput](t, rec)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "Organic", list.Items[0].SubCategories[0].Name)

	rec = app.do(t, http.MethodPut, "/admin/categories/"+itoa(dairy.ID), token, map[string]string{"name": "Milk & Eggs", "slug": "milk-eggs"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, http.StatusNoContent, app.do(t, http.MethodDelete, "/admin/categories/"+itoa(dairy.ID), token, nil).Code)
	assert.Equal(t, http.StatusNotFound, app.do(t, http.MethodDelete, "/admin/categories/"+itoa(dairy.ID), token, nil).Code)

	assert.Equal(t, http.StatusOK, app.do(t, http.MethodGet, "/subcategories", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, app.do(t, http.MethodGet, "/products?subcategory=x", "", nil).Code)
}
