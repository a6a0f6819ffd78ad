package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"grocery/internal/domain/model"
	repo "grocery/internal/repository"
)

type AdminOrderUsecase struct {
	tx     repo.TransactionManager
	orders repo.OrderRepository
	events OrderEventPublisher
	clock  Clock
	log    *slog.Logger
}

func NewAdminOrderUsecase(tx repo.TransactionManager, orders repo.OrderRepository, events OrderEventPublisher) *AdminOrderUsecase {
	if events == nil {
		events = noopPublisher{}
	}
	return &AdminOrderUsecase{
		tx:     tx,
		orders: orders,
		events: events,
		clock:  systemClock,
		log:    slog.Default(),
	}
}

type AdminListOrdersInput struct {
	Page   int
	Limit  int
	Status string
	UserID *int64
	From   string // RFC3339
	To     string // RFC3339
}

type AdminUpdateOrderStatusInput struct {
	Status string
}

// 注文一覧（絞り込み付き）
func (u *AdminOrderUsecase) List(ctx context.Context, in AdminListOrdersInput) (OrderListOutput, error) {
	// page/limitの最低限チェック
	if in.Page == 0 {
		in.Page = 1
	}
	if in.Limit == 0 {
		in.Limit = 20
	}
	if in.Page < 1 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	status := model.OrderStatus(strings.TrimSpace(in.Status))
	if status != "" && !status.Valid() {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	f := repo.OrderListFilter{
		Page:   in.Page,
		Limit:  in.Limit,
		Status: status,
		UserID: in.UserID,
		Sort:   repo.DefaultOrderSort,
	}
	var ok bool
	if in.From != "" {
		if f.From, ok = parseDateTimeRFC3339(in.From); !ok {
			return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid from")
		}
	}
	if in.To != "" {
		if f.To, ok = parseDateTimeRFC3339(in.To); !ok {
			return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid to")
		}
	}

	orders, total, err := u.orders.List(ctx, f)
	if err != nil {
		return OrderListOutput{}, dbError(err)
	}
	return OrderListOutput{
		Items: toOrderOutputs(orders),
		Total: total,
		Page:  in.Page,
		Limit: in.Limit,
	}, nil
}

type statusJSON struct {
	Status model.OrderStatus `json:"status"`
}

// ステータス更新（同じなら何もしない、遷移できなければ409）
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, actorAdminUserID int64, orderID int64, in AdminUpdateOrderStatusInput) (OrderOutput, error) {
	if actorAdminUserID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	newStatus := model.OrderStatus(strings.ToLower(strings.TrimSpace(in.Status)))
	if !newStatus.Valid() {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	var (
		updated model.Order
		before  model.OrderStatus
		changed bool
	)
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err != nil {
			return notFoundOrDBError(err)
		}
		before = o.Status

		// すでに同じなら何もしない（200）
		if o.Status == newStatus {
			updated = o
			return nil
		}
		if !o.Status.CanTransitionTo(newStatus) {
			return NewHTTPError(http.StatusConflict, "cannot change status from "+string(o.Status)+" to "+string(newStatus))
		}

		if err := r.Orders().UpdateStatus(ctx, orderID, newStatus); err != nil {
			return notFoundOrDBError(err)
		}

		//監査ログ（UPDATE_ORDER_STATUS）
		beforeJSON, _ := json.Marshal(statusJSON{Status: o.Status})
		afterJSON, _ := json.Marshal(statusJSON{Status: newStatus})
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actorAdminUserID,
			Action:       model.AuditActionUpdateOrderStatus,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   string(beforeJSON),
			AfterJSON:    string(afterJSON),
			CreatedAt:    u.clock.Now(),
		}); err != nil {
			return dbError(err)
		}

		updated, err = r.Orders().FindByID(ctx, orderID)
		if err != nil {
			return dbError(err)
		}
		changed = true
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}

	if changed {
		u.log.InfoContext(ctx, "order status changed",
			"order_number", updated.OrderNumber,
			"from", before,
			"to", updated.Status,
			"actor_user_id", actorAdminUserID,
		)
		u.events.OrderStatusChanged(ctx, updated, before, actorAdminUserID)
	}
	return toOrderOutput(updated), nil
}

// 期間パラメータはRFC3339（日付だけも可）
func parseDateTimeRFC3339(s string) (*time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		d, err2 := time.Parse("2006-01-02", s)
		if err2 != nil {
			return nil, false
		}
		t = d
	}
	return &t, true
}
