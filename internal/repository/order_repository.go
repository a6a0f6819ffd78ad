package repository

import (
	"context"
	"time"

	"grocery/internal/domain/model"
)

// 並び順は呼び出し側で明示する
type OrderSort struct {
	Field string // created_at / id / total_price
	Desc  bool
}

// 新しい順（同時刻は id の大きい順）
var DefaultOrderSort = OrderSort{Field: "created_at", Desc: true}

type OrderListFilter struct {
	Page   int
	Limit  int
	Status model.OrderStatus
	UserID *int64
	From   *time.Time
	To     *time.Time
	Sort   OrderSort
}

type OrderRepository interface {
	// 明細とユーザーをPreloadして返す
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	List(ctx context.Context, f OrderListFilter) ([]model.Order, int64, error)

	// 明細は含めずに注文だけ作る（IDが埋まる）。番号重複は ErrDuplicate
	Create(ctx context.Context, order *model.Order) error
	UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error

	//指定prefixで始まる注文番号一覧
	ListOrderNumbersByPrefix(ctx context.Context, prefix string) ([]string, error)
}

type OrderItemRepository interface {
	CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error)
}

// 日ごとの連番
type OrderSequenceRepository interface {
	Exists(ctx context.Context, seqDate string) (bool, error)
	// 行が無ければ seed+1 で作り、あれば +1 する。更新後の値を返す
	Increment(ctx context.Context, seqDate string, seed int64) (int64, error)
}
