package usecase_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"grocery/internal/domain/model"
	infraRepo "grocery/internal/infra/repository"
	"grocery/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedOrder(t *testing.T, gdb *gorm.DB, userID int64, number string, status model.OrderStatus, at time.Time) model.Order {
	t.Helper()
	o := model.Order{
		OrderNumber: number,
		UserID:      userID,
		Status:      status,
		TotalPrice:  decimal.RequireFromString("12.00"),
		CreatedAt:   at,
		UpdatedAt:   at,
	}
	require.NoError(t, gdb.Create(&o).Error)
	return o
}

func newAdminOrderUsecase(gdb *gorm.DB, pub usecase.OrderEventPublisher) *usecase.AdminOrderUsecase {
	return usecase.NewAdminOrderUsecase(infraRepo.NewTxManagerGorm(gdb), infraRepo.NewOrderGormRepository(gdb), pub)
}

func TestAdminUpdateStatus_ForwardTransition(t *testing.T) {
	gdb := openDB(t)
	admin := seedUser(t, gdb, "admin", model.RoleAdmin)
	alice := seedUser(t, gdb, "alice", model.RoleUser)
	o := seedOrder(t, gdb, alice.ID, "ORD-20240315-ALAB-0001", model.OrderStatusPending, fixedNow)

	pub := &recordingPublisher{}
	uc := newAdminOrderUsecase(gdb, pub)

	out, err := uc.UpdateStatus(context.Background(), admin.ID, o.ID, usecase.AdminUpdateOrderStatusInput{Status: "preparing"})
	require.NoError(t, err)
	assert.Equal(t, "preparing", out.Status)

	var logs []model.AuditLog
	require.NoError(t, gdb.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, model.AuditActionUpdateOrderStatus, logs[0].Action)
	assert.Equal(t, admin.ID, logs[0].ActorUserID)
	assert.Equal(t, o.ID, logs[0].ResourceID)
	assert.JSONEq(t, `{"status":"pending"}`, logs[0].BeforeJSON)
	assert.JSONEq(t, `{"status":"preparing"}`, logs[0].AfterJSON)

	require.Len(t, pub.changed, 1)
	assert.Equal(t, model.OrderStatusPending, pub.from[0])
	assert.Equal(t, model.OrderStatusPreparing, pub.changed[0].Status)
}

func TestAdminUpdateStatus_SameStatusIsNoop(t *testing.T) {
	gdb := openDB(t)
	admin := seedUser(t, gdb, "admin", model.RoleAdmin)
	alice := seedUser(t, gdb, "alice", model.RoleUser)
	o := seedOrder(t, gdb, alice.ID, "ORD-20240315-ALAB-0001", model.OrderStatusReady, fixedNow)

	pub := &recordingPublisher{}
	out, err := newAdminOrderUsecase(gdb, pub).UpdateStatus(context.Background(), admin.ID, o.ID, usecase.AdminUpdateOrderStatusInput{Status: "ready"})
	require.NoError(t, err)
	assert.Equal(t, "ready", out.Status)
	assert.Equal(t, int64(0), countRows(t, gdb, &model.AuditLog{}))
	assert.Empty(t, pub.changed)
}

func TestAdminUpdateStatus_Rejected(t *testing.T) {
	cases := []struct {
		name   string
		from   model.OrderStatus
		to     string
		status int
	}{
		{"skip a step", model.OrderStatusPending, "ready", http.StatusConflict},
		{"backwards", model.OrderStatusReady, "preparing", http.StatusConflict},
		{"completed is final", model.OrderStatusCompleted, "cancelled", http.StatusConflict},
		{"cancelled is final", model.OrderStatusCancelled, "pending", http.StatusConflict},
		{"unknown status", model.OrderStatusPending, "shipped", http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gdb := openDB(t)
			admin := seedUser(t, gdb, "admin", model.RoleAdmin)
			alice := seedUser(t, gdb, "alice", model.RoleUser)
			o := seedOrder(t, gdb, alice.ID, "ORD-20240315-ALAB-0001", tc.from, fixedNow)

			_, err := newAdminOrderUsecase(gdb, nil).UpdateStatus(context.Background(), admin.ID, o.ID, usecase.AdminUpdateOrderStatusInput{Status: tc.to})
			requireHTTPError(t, err, tc.status, "")

			var got model.Order
			require.NoError(t, gdb.First(&got, o.ID).Error)
			assert.Equal(t, tc.from, got.Status)
			assert.Equal(t, int64(0), countRows(t, gdb, &model.AuditLog{}))
		})
	}
}

func TestAdminUpdateStatus_CancelFromAnyOpenState(t *testing.T) {
	for _, from := range []model.OrderStatus{model.OrderStatusPending, model.OrderStatusPreparing, model.OrderStatusReady} {
		gdb := openDB(t)
		admin := seedUser(t, gdb, "admin", model.RoleAdmin)
		alice := seedUser(t, gdb, "alice", model.RoleUser)
		o := seedOrder(t, gdb, alice.ID, "ORD-20240315-ALAB-0001", from, fixedNow)

		out, err := newAdminOrderUsecase(gdb, nil).UpdateStatus(context.Background(), admin.ID, o.ID, usecase.AdminUpdateOrderStatusInput{Status: "cancelled"})
		require.NoError(t, err, "from %s", from)
		assert.Equal(t, "cancelled", out.Status)
	}
}

func TestAdminUpdateStatus_NotFound(t *testing.T) {
	gdb := openDB(t)
	admin := seedUser(t, gdb, "admin", model.RoleAdmin)

	_, err := newAdminOrderUsecase(gdb, nil).UpdateStatus(context.Background(), admin.ID, 42, usecase.AdminUpdateOrderStatusInput{Status: "preparing"})
	requireHTTPError(t, err, http.StatusNotFound, "not found")
}

func TestAdminListOrders_Filters(t *testing.T) {
	gdb := openDB(t)
	alice := seedUser(t, gdb, "alice", model.RoleUser)
	bob := seedUser(t, gdb, "bob", model.RoleUser)
	day1 := time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	seedOrder(t, gdb, alice.ID, "ORD-20240314-ALAB-0001", model.OrderStatusPending, day1)
	seedOrder(t, gdb, bob.ID, "ORD-20240315-BOAB-0001", model.OrderStatusPending, day2)
	seedOrder(t, gdb, alice.ID, "ORD-20240315-ALCD-0002", model.OrderStatusCompleted, day2)
	uc := newAdminOrderUsecase(gdb, nil)

	all, err := uc.List(context.Background(), usecase.AdminListOrdersInput{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Total)
	assert.Equal(t, "ORD-20240315-ALCD-0002", all.Items[0].OrderNumber)

	byUser, err := uc.List(context.Background(), usecase.AdminListOrdersInput{UserID: &alice.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), byUser.Total)

	pending, err := uc.List(context.Background(), usecase.AdminListOrdersInput{Status: "pending"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), pending.Total)

	since, err := uc.List(context.Background(), usecase.AdminListOrdersInput{From: "2024-03-15"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), since.Total)
}

func TestAdminListOrders_InvalidInput(t *testing.T) {
	gdb := openDB(t)
	uc := newAdminOrderUsecase(gdb, nil)

	_, err := uc.List(context.Background(), usecase.AdminListOrdersInput{Page: -1})
	requireHTTPError(t, err, http.StatusBadRequest, "invalid page")

	_, err = uc.List(context.Background(), usecase.AdminListOrdersInput{From: "yesterday"})
	requireHTTPError(t, err, http.StatusBadRequest, "")

	_, err = uc.List(context.Background(), usecase.AdminListOrdersInput{Status: "shipped"})
	requireHTTPError(t, err, http.StatusBadRequest, "")
}
