package repository

import (
	"context"

	"grocery/internal/domain/model"
)

// カート明細（ユーザー単位）
type CartItemRepository interface {
	// 商品をPreloadして id 昇順で返す（削除済み商品は Product が nil）
	ListByUserID(ctx context.Context, userID int64) ([]model.CartItem, error)
	// 同一商品はプラス
	UpsertByUserAndProduct(ctx context.Context, userID int64, productID int64, addQty int64) error
	UpdateQuantity(ctx context.Context, userID int64, cartItemID int64, qty int64) error
	DeleteByID(ctx context.Context, userID int64, cartItemID int64) error
	// 指定IDをまとめて削除し、削除件数を返す
	DeleteByIDs(ctx context.Context, userID int64, cartItemIDs []int64) (int64, error)
}

type WishlistRepository interface {
	ListByUserID(ctx context.Context, userID int64) ([]model.WishlistItem, error)
	// 既にあればそれを返す
	Add(ctx context.Context, userID int64, productID int64) (model.WishlistItem, error)
	Delete(ctx context.Context, userID int64, itemID int64) error
}
