package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"grocery/internal/domain/model"
	"grocery/internal/domain/ordernumber"
	repo "grocery/internal/repository"

	"github.com/shopspring/decimal"
)

// 同じユーザーの二重送信を防ぐ。取れなかったら ok=false
type PlacementGuard interface {
	Acquire(ctx context.Context, userID int64) (release func(context.Context) error, ok bool, err error)
}

// コミット後に注文イベントを流す
type OrderEventPublisher interface {
	OrderPlaced(ctx context.Context, order model.Order)
	OrderStatusChanged(ctx context.Context, order model.Order, from model.OrderStatus, actorUserID int64)
}

type noopPublisher struct{}

func (noopPublisher) OrderPlaced(context.Context, model.Order) {}
func (noopPublisher) OrderStatusChanged(context.Context, model.Order, model.OrderStatus, int64) {
}

// 番号重複のときのやり直し回数
const placeOrderAttempts = 2

type OrderUsecase struct {
	tx     repo.TransactionManager
	orders repo.OrderRepository
	guard  PlacementGuard
	events OrderEventPublisher
	clock  Clock
	log    *slog.Logger
}

type OrderOption func(*OrderUsecase)

func WithClock(c Clock) OrderOption {
	return func(u *OrderUsecase) { u.clock = c }
}

// nilなら二重送信チェックをしない
func WithPlacementGuard(g PlacementGuard) OrderOption {
	return func(u *OrderUsecase) { u.guard = g }
}

func WithEventPublisher(p OrderEventPublisher) OrderOption {
	return func(u *OrderUsecase) {
		if p != nil {
			u.events = p
		}
	}
}

func WithLogger(l *slog.Logger) OrderOption {
	return func(u *OrderUsecase) {
		if l != nil {
			u.log = l
		}
	}
}

func NewOrderUsecase(tx repo.TransactionManager, orders repo.OrderRepository, opts ...OrderOption) *OrderUsecase {
	u := &OrderUsecase{
		tx:     tx,
		orders: orders,
		events: noopPublisher{},
		clock:  systemClock,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

type OrderItemOutput struct {
	ID          int64  `json:"id"`
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	ImageURL    string `json:"image_url"`
	Quantity    int64  `json:"quantity"`
	Price       string `json:"price"`
	LineTotal   string `json:"line_total"`
}

type OrderOutput struct {
	ID          int64             `json:"id"`
	OrderNumber string            `json:"order_number"`
	UserID      int64             `json:"user_id"`
	Username    string            `json:"username,omitempty"`
	Status      string            `json:"status"`
	TotalPrice  string            `json:"total_price"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	Items       []OrderItemOutput `json:"items"`
}

// 在庫切れで注文に入らなかったカート明細
type ExcludedItemOutput struct {
	CartItemID int64  `json:"cart_item_id"`
	ProductID  int64  `json:"product_id"`
	Name       string `json:"name"`
	Quantity   int64  `json:"quantity"`
}

// 注文確定の結果。Partial は在庫切れを除いて注文したとき true
type PlaceOrderOutput struct {
	Order         OrderOutput          `json:"order"`
	ExcludedItems []ExcludedItemOutput `json:"excluded_items"`
	Partial       bool                 `json:"partial"`
}

type ListOrdersInput struct {
	Page   int
	Limit  int
	Status string
}

type OrderListOutput struct {
	Items []OrderOutput `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

// カートの在庫ありの明細から注文を作る
func (u *OrderUsecase) PlaceOrder(ctx context.Context, p Principal) (PlaceOrderOutput, error) {
	if p.UserID <= 0 {
		return PlaceOrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	//二重送信ガード（Redisが落ちていても注文は止めない）
	if u.guard != nil {
		release, ok, err := u.guard.Acquire(ctx, p.UserID)
		switch {
		case err != nil:
			u.log.WarnContext(ctx, "placement guard unavailable", "user_id", p.UserID, "err", err)
		case !ok:
			return PlaceOrderOutput{}, NewHTTPError(http.StatusConflict, "order placement in progress")
		default:
			defer func() {
				if err := release(context.WithoutCancel(ctx)); err != nil {
					u.log.WarnContext(ctx, "placement guard release failed", "user_id", p.UserID, "err", err)
				}
			}()
		}
	}

	var (
		out   PlaceOrderOutput
		order model.Order
		err   error
	)
	for attempt := 1; attempt <= placeOrderAttempts; attempt++ {
		order, out, err = u.placeOnce(ctx, p.UserID)
		if !errors.Is(err, repo.ErrDuplicate) {
			break
		}
		u.log.WarnContext(ctx, "order number collision", "user_id", p.UserID, "attempt", attempt, "err", err)
	}
	if errors.Is(err, repo.ErrDuplicate) {
		return PlaceOrderOutput{}, &HTTPError{
			Status:  http.StatusConflict,
			Message: "order number conflict",
			Kind:    ErrConflict,
			Cause:   err,
		}
	}
	if err != nil {
		return PlaceOrderOutput{}, err
	}

	u.log.InfoContext(ctx, "order placed",
		"order_number", order.OrderNumber,
		"user_id", p.UserID,
		"items", len(order.Items),
		"excluded", len(out.ExcludedItems),
		"total", order.TotalPrice.StringFixed(2),
	)
	u.events.OrderPlaced(ctx, order)

	return out, nil
}

// 1回分のトランザクション。番号重複は repo.ErrDuplicate のまま返す
func (u *OrderUsecase) placeOnce(ctx context.Context, userID int64) (model.Order, PlaceOrderOutput, error) {
	var (
		order    model.Order
		excluded []ExcludedItemOutput
	)

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		user, err := r.Users().FindByID(ctx, userID)
		if errors.Is(err, repo.ErrUserNotFound) {
			return NewHTTPError(http.StatusUnauthorized, "unauthorized")
		}
		if err != nil {
			return dbError(err)
		}

		cartItems, err := r.CartItems().ListByUserID(ctx, userID)
		if err != nil {
			return dbError(err)
		}
		if len(cartItems) == 0 {
			return NewHTTPError(http.StatusBadRequest, "cart is empty")
		}

		//在庫あり/なしに分ける
		inStock := make([]model.CartItem, 0, len(cartItems))
		excluded = make([]ExcludedItemOutput, 0)
		for _, ci := range cartItems {
			if ci.Product == nil {
				//商品が削除済み
				return NewHTTPError(http.StatusNotFound, "product not found")
			}
			if ci.Product.InStock() {
				inStock = append(inStock, ci)
				continue
			}
			excluded = append(excluded, ExcludedItemOutput{
				CartItemID: ci.ID,
				ProductID:  ci.ProductID,
				Name:       ci.Product.Name,
				Quantity:   ci.Quantity,
			})
		}
		if len(inStock) == 0 {
			return NewHTTPError(http.StatusBadRequest, "no in-stock items to order")
		}

		now := u.clock.Now()
		number, err := u.nextOrderNumber(ctx, r, user.Username, now)
		if err != nil {
			return dbError(err)
		}

		//価格はこの時点の販売価格をコピー
		items := make([]model.OrderItem, 0, len(inStock))
		total := decimal.Zero
		ids := make([]int64, 0, len(inStock))
		for _, ci := range inStock {
			it := model.OrderItem{
				ProductID:           ci.ProductID,
				ProductNameSnapshot: ci.Product.Name,
				ImageURLSnapshot:    ci.Product.ImageURL,
				Quantity:            ci.Quantity,
				Price:               ci.Product.SellingPrice,
				CreatedAt:           now,
			}
			total = total.Add(it.LineTotal())
			items = append(items, it)
			ids = append(ids, ci.ID)
		}

		order = model.Order{
			OrderNumber: number,
			UserID:      userID,
			User:        user,
			Status:      model.OrderStatusPending,
			TotalPrice:  total,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := r.Orders().Create(ctx, &order); err != nil {
			if errors.Is(err, repo.ErrDuplicate) {
				return err
			}
			return dbError(err)
		}

		if err := r.OrderItems().CreateBulk(ctx, order.ID, items); err != nil {
			return dbError(err)
		}
		order.Items = items

		//注文した明細だけカートから消す
		deleted, err := r.CartItems().DeleteByIDs(ctx, userID, ids)
		if err != nil {
			return dbError(err)
		}
		if deleted != int64(len(ids)) {
			return NewHTTPError(http.StatusNotFound, "cart item not found")
		}
		return nil
	})
	if err != nil {
		return model.Order{}, PlaceOrderOutput{}, err
	}

	return order, PlaceOrderOutput{
		Order:         toOrderOutput(order),
		ExcludedItems: excluded,
		Partial:       len(excluded) > 0,
	}, nil
}

// 日ごとのカウンタを+1して番号を組み立てる。
// その日の行がまだ無いときは既存の番号から最大の連番を拾って種にする
func (u *OrderUsecase) nextOrderNumber(ctx context.Context, r repo.TxRepos, username string, now time.Time) (string, error) {
	day := ordernumber.DayKey(now)

	exists, err := r.OrderSequences().Exists(ctx, day)
	if err != nil {
		return "", err
	}

	var seed int64
	if !exists {
		numbers, err := r.Orders().ListOrderNumbersByPrefix(ctx, ordernumber.DayPrefix(day))
		if err != nil {
			return "", err
		}
		seed = ordernumber.MaxSequence(numbers)
	}

	seq, err := r.OrderSequences().Increment(ctx, day, seed)
	if err != nil {
		return "", err
	}

	suffix, err := ordernumber.RandomSuffix(2)
	if err != nil {
		return "", err
	}
	return ordernumber.Format(day, ordernumber.Initials(username), suffix, seq), nil
}

// 自分の注文一覧（管理者は全件）。新しい順
func (u *OrderUsecase) ListOrders(ctx context.Context, p Principal, in ListOrdersInput) (OrderListOutput, error) {
	if p.UserID <= 0 {
		return OrderListOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
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
	status := model.OrderStatus(in.Status)
	if status != "" && !status.Valid() {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	f := repo.OrderListFilter{
		Page:   in.Page,
		Limit:  in.Limit,
		Status: status,
		Sort:   repo.DefaultOrderSort,
	}
	if !p.IsStaff() {
		uid := p.UserID
		f.UserID = &uid
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

func (u *OrderUsecase) GetOrder(ctx context.Context, p Principal, orderID int64) (OrderOutput, error) {
	if p.UserID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	o, err := u.orders.FindByID(ctx, orderID)
	if err != nil {
		return OrderOutput{}, notFoundOrDBError(err)
	}
	//他人の注文は「存在しない扱い」にする
	if !p.IsStaff() && o.UserID != p.UserID {
		return OrderOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	return toOrderOutput(o), nil
}

func toOrderOutput(o model.Order) OrderOutput {
	items := make([]OrderItemOutput, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemOutput{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductNameSnapshot,
			ImageURL:    it.ImageURLSnapshot,
			Quantity:    it.Quantity,
			Price:       it.Price.StringFixed(2),
			LineTotal:   it.LineTotal().StringFixed(2),
		})
	}

	out := OrderOutput{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		UserID:      o.UserID,
		Status:      string(o.Status),
		TotalPrice:  o.TotalPrice.StringFixed(2),
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
		Items:       items,
	}
	if o.User != nil {
		out.Username = o.User.Username
	}
	return out
}

func toOrderOutputs(orders []model.Order) []OrderOutput {
	outs := make([]OrderOutput, 0, len(orders))
	for _, o := range orders {
		outs = append(outs, toOrderOutput(o))
	}
	return outs
}
