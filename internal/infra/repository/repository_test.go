package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"grocery/internal/domain/model"
	"grocery/internal/infra/db/dbtest"
	repo "grocery/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestTranslateError(t *testing.T) {
	assert.Nil(t, translateError(nil))
	assert.ErrorIs(t, translateError(gorm.ErrRecordNotFound), repo.ErrNotFound)
	assert.ErrorIs(t, translateError(gorm.ErrDuplicatedKey), repo.ErrDuplicate)
	assert.ErrorIs(t, translateError(&pgconn.PgError{Code: "23505", ConstraintName: "idx_orders_order_number"}), repo.ErrDuplicate)

	other := errors.New("boom")
	assert.Equal(t, other, translateError(other))
}

func TestPageOffset(t *testing.T) {
	assert.Equal(t, 0, pageOffset(0, 20))
	assert.Equal(t, 0, pageOffset(1, 20))
	assert.Equal(t, 40, pageOffset(3, 20))
}

func TestOrderSequence_Increment(t *testing.T) {
	gdb := dbtest.Open(t)
	seqs := NewOrderSequenceGormRepository(gdb)
	ctx := context.Background()

	ok, err := seqs.Exists(ctx, "20240315")
	require.NoError(t, err)
	assert.False(t, ok)

	// 初回は seed+1
	v, err := seqs.Increment(ctx, "20240315", 6)
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)

	// 2回目以降は seed を無視して+1
	v, err = seqs.Increment(ctx, "20240315", 100)
	require.NoError(t, err)
	assert.Equal(t, int64(8), v)

	v, err = seqs.Increment(ctx, "20240316", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}

func TestOrder_CreateDuplicateNumber(t *testing.T) {
	gdb := dbtest.Open(t)
	orders := NewOrderGormRepository(gdb)
	ctx := context.Background()
	now := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	u := model.User{Username: "alice", Email: "alice@example.com", PasswordHash: "x", Role: model.RoleUser, IsActive: true}
	require.NoError(t, gdb.Create(&u).Error)

	newOrder := func() *model.Order {
		return &model.Order{
			OrderNumber: "ORD-20240315-ALAB-0001",
			UserID:      u.ID,
			Status:      model.OrderStatusPending,
			TotalPrice:  decimal.RequireFromString("1.00"),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}
	require.NoError(t, orders.Create(ctx, newOrder()))
	assert.ErrorIs(t, orders.Create(ctx, newOrder()), repo.ErrDuplicate)

	numbers, err := orders.ListOrderNumbersByPrefix(ctx, "ORD-20240315")
	require.NoError(t, err)
	assert.Equal(t, []string{"ORD-20240315-ALAB-0001"}, numbers)

	numbers, err = orders.ListOrderNumbersByPrefix(ctx, "ORD-20240316")
	require.NoError(t, err)
	assert.Empty(t, numbers)
}

func TestCart_UpsertAndScopedDelete(t *testing.T) {
	gdb := dbtest.Open(t)
	carts := NewCartGormRepository(gdb)
	ctx := context.Background()

	p := model.Product{Name: "milk", SellingPrice: decimal.RequireFromString("2.00"), StockStatus: model.StockStatusInStock}
	require.NoError(t, gdb.Create(&p).Error)

	require.NoError(t, carts.UpsertByUserAndProduct(ctx, 1, p.ID, 2))
	require.NoError(t, carts.UpsertByUserAndProduct(ctx, 1, p.ID, 3))

	items, err := carts.ListByUserID(ctx, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(5), items[0].Quantity)
	require.NotNil(t, items[0].Product)
	assert.Equal(t, "milk", items[0].Product.Name)

	// 他人のIDでは消えない
	n, err := carts.DeleteByIDs(ctx, 2, []int64{items[0].ID})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
	assert.ErrorIs(t, carts.DeleteByID(ctx, 2, items[0].ID), repo.ErrNotFound)

	n, err = carts.DeleteByIDs(ctx, 1, []int64{items[0].ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestForeignKeysEnabled(t *testing.T) {
	gdb := dbtest.Open(t)

	var on int
	require.NoError(t, gdb.Raw("PRAGMA foreign_keys").Scan(&on).Error)
	assert.Equal(t, 1, on)
}

func TestOrder_DeleteCascadesToItems(t *testing.T) {
	gdb := dbtest.Open(t)
	orders := NewOrderGormRepository(gdb)
	items := NewOrderItemGormRepository(gdb)
	ctx := context.Background()
	now := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	u := model.User{Username: "alice", Email: "alice@example.com", PasswordHash: "x", Role: model.RoleUser, IsActive: true}
	require.NoError(t, gdb.Create(&u).Error)

	place := func(number string) int64 {
		o := &model.Order{
			OrderNumber: number,
			UserID:      u.ID,
			Status:      model.OrderStatusPending,
			TotalPrice:  decimal.RequireFromString("25.00"),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		require.NoError(t, orders.Create(ctx, o))
		require.NoError(t, items.CreateBulk(ctx, o.ID, []model.OrderItem{
			{ProductID: 1, ProductNameSnapshot: "milk", Quantity: 2, Price: decimal.RequireFromString("10.00"), CreatedAt: now},
			{ProductID: 2, ProductNameSnapshot: "bread", Quantity: 1, Price: decimal.RequireFromString("5.00"), CreatedAt: now},
		}))
		return o.ID
	}
	first := place("ORD-20240315-ALAB-0001")
	second := place("ORD-20240315-ALCD-0002")

	count := func(orderID int64) int64 {
		var n int64
		require.NoError(t, gdb.Model(&model.OrderItem{}).Where("order_id = ?", orderID).Count(&n).Error)
		return n
	}
	require.Equal(t, int64(2), count(first))

	require.NoError(t, gdb.Delete(&model.Order{}, first).Error)
	assert.Zero(t, count(first))
	assert.Equal(t, int64(2), count(second))

	// ユーザー削除で注文と明細も消える
	require.NoError(t, gdb.Delete(&model.User{}, u.ID).Error)
	var left int64
	require.NoError(t, gdb.Model(&model.Order{}).Count(&left).Error)
	assert.Zero(t, left)
	assert.Zero(t, count(second))
}
