package usecase_test

import (
	"errors"
	"testing"
	"time"

	"grocery/internal/domain/model"
	"grocery/internal/infra/db/dbtest"
	"grocery/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// テスト用の固定時刻（2024-03-15 UTC）
var fixedNow = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

func fixedClock() usecase.Clock {
	return usecase.ClockFunc(func() time.Time { return fixedNow })
}

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	return dbtest.Open(t)
}

func seedUser(t *testing.T, gdb *gorm.DB, username string, role model.Role) model.User {
	t.Helper()
	u := model.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, gdb.Create(&u).Error)
	return u
}

func seedProduct(t *testing.T, gdb *gorm.DB, name string, price string, status model.StockStatus) model.Product {
	t.Helper()
	p := model.Product{
		Name:         name,
		ImageURL:     "https://img.example.com/" + name + ".png",
		SellingPrice: decimal.RequireFromString(price),
		StockStatus:  status,
	}
	require.NoError(t, gdb.Create(&p).Error)
	return p
}

func seedCartItem(t *testing.T, gdb *gorm.DB, userID int64, productID int64, qty int64) model.CartItem {
	t.Helper()
	ci := model.CartItem{UserID: userID, ProductID: productID, Quantity: qty}
	require.NoError(t, gdb.Create(&ci).Error)
	return ci
}

func cartOf(t *testing.T, gdb *gorm.DB, userID int64) []model.CartItem {
	t.Helper()
	var items []model.CartItem
	require.NoError(t, gdb.Where("user_id = ?", userID).Order("id asc").Find(&items).Error)
	return items
}

func countRows(t *testing.T, gdb *gorm.DB, m interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, gdb.Model(m).Count(&n).Error)
	return n
}

// HTTPError のステータスとメッセージを確認する
func requireHTTPError(t *testing.T, err error, status int, msg string) {
	t.Helper()
	require.Error(t, err)
	he, ok := usecase.AsHTTPError(err)
	require.True(t, ok, "not an HTTPError: %v", err)
	require.Equal(t, status, he.Status)
	if msg != "" {
		require.Equal(t, msg, he.Message)
	}
}

var errBoom = errors.New("boom")
