package usecase

import (
	"context"
	"errors"
	"net/http"

	"grocery/internal/domain/model"
	repo "grocery/internal/repository"

	"github.com/shopspring/decimal"
)

// /cart と /wishlist の業務ロジック
type CartUsecase struct {
	cartItems repo.CartItemRepository
	wishlist  repo.WishlistRepository
	products  repo.ProductRepository
}

func NewCartUsecase(
	cartItems repo.CartItemRepository,
	wishlist repo.WishlistRepository,
	products repo.ProductRepository,
) *CartUsecase {
	return &CartUsecase{
		cartItems: cartItems,
		wishlist:  wishlist,
		products:  products,
	}
}

// 価格は現在の販売価格（注文時にスナップショットする）
type CartItemResponse struct {
	ID          int64  `json:"id"`
	ProductID   int64  `json:"product_id"`
	Name        string `json:"name"`
	ImageURL    string `json:"image_url"`
	Price       string `json:"price"`
	StockStatus string `json:"stock_status"`
	Quantity    int64  `json:"quantity"`
	LineTotal   string `json:"line_total"`
}

// total は在庫ありの明細だけの合計
type CartResponse struct {
	Items           []CartItemResponse `json:"items"`
	Total           string             `json:"total"`
	OutOfStockCount int                `json:"out_of_stock_count"`
}

type AddCartInput struct {
	ProductID int64
	Quantity  int64
}

type UpdateCartItemInput struct {
	Quantity int64
}

type WishlistItemResponse struct {
	ID          int64  `json:"id"`
	ProductID   int64  `json:"product_id"`
	Name        string `json:"name"`
	Price       string `json:"price"`
	StockStatus string `json:"stock_status"`
}

func (u *CartUsecase) GetCart(ctx context.Context, userID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return u.buildCartResponse(ctx, userID)
}

// カートに追加（同一商品は数量加算）
func (u *CartUsecase) AddToCart(ctx context.Context, userID int64, in AddCartInput) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.ProductID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}
	if in.Quantity < 1 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid quantity")
	}

	// 削除済み商品は追加できない
	if _, err := u.products.FindByID(ctx, in.ProductID); err != nil {
		return CartResponse{}, notFoundOrDBError(err)
	}

	if err := u.cartItems.UpsertByUserAndProduct(ctx, userID, in.ProductID, in.Quantity); err != nil {
		return CartResponse{}, dbError(err)
	}
	return u.buildCartResponse(ctx, userID)
}

// 数量変更（他人の明細は404）
func (u *CartUsecase) UpdateCartItem(ctx context.Context, userID int64, cartItemID int64, in UpdateCartItemInput) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if cartItemID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if in.Quantity < 1 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid quantity")
	}

	if err := u.cartItems.UpdateQuantity(ctx, userID, cartItemID, in.Quantity); err != nil {
		return CartResponse{}, notFoundOrDBError(err)
	}
	return u.buildCartResponse(ctx, userID)
}

// 明細削除
func (u *CartUsecase) DeleteCartItem(ctx context.Context, userID int64, cartItemID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if cartItemID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	if err := u.cartItems.DeleteByID(ctx, userID, cartItemID); err != nil {
		return CartResponse{}, notFoundOrDBError(err)
	}
	return u.buildCartResponse(ctx, userID)
}

func (u *CartUsecase) buildCartResponse(ctx context.Context, userID int64) (CartResponse, error) {
	items, err := u.cartItems.ListByUserID(ctx, userID)
	if err != nil {
		return CartResponse{}, dbError(err)
	}

	resp := CartResponse{Items: make([]CartItemResponse, 0, len(items))}
	total := decimal.Zero

	for _, it := range items {
		row := CartItemResponse{
			ID:          it.ID,
			ProductID:   it.ProductID,
			Quantity:    it.Quantity,
			StockStatus: string(model.StockStatusOutOfStock),
			Price:       "0.00",
			LineTotal:   "0.00",
		}
		//削除済みの商品は在庫なし扱いで見せる
		if it.Product != nil {
			line := it.Product.SellingPrice.Mul(decimal.NewFromInt(it.Quantity))
			row.Name = it.Product.Name
			row.ImageURL = it.Product.ImageURL
			row.Price = it.Product.SellingPrice.StringFixed(2)
			row.StockStatus = string(it.Product.StockStatus)
			row.LineTotal = line.StringFixed(2)
			if it.Product.InStock() {
				total = total.Add(line)
			}
		}
		if row.StockStatus != string(model.StockStatusInStock) {
			resp.OutOfStockCount++
		}
		resp.Items = append(resp.Items, row)
	}

	resp.Total = total.StringFixed(2)
	return resp, nil
}

func (u *CartUsecase) ListWishlist(ctx context.Context, userID int64) ([]WishlistItemResponse, error) {
	if userID <= 0 {
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	items, err := u.wishlist.ListByUserID(ctx, userID)
	if err != nil {
		return nil, dbError(err)
	}

	out := make([]WishlistItemResponse, 0, len(items))
	for _, it := range items {
		if it.Product == nil {
			continue
		}
		out = append(out, toWishlistItemResponse(it, *it.Product))
	}
	return out, nil
}

// 同じ商品を何度追加しても1件
func (u *CartUsecase) AddToWishlist(ctx context.Context, userID int64, productID int64) (WishlistItemResponse, error) {
	if userID <= 0 {
		return WishlistItemResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return WishlistItemResponse{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}

	p, err := u.products.FindByID(ctx, productID)
	if err != nil {
		return WishlistItemResponse{}, notFoundOrDBError(err)
	}

	item, err := u.wishlist.Add(ctx, userID, productID)
	if err != nil {
		return WishlistItemResponse{}, dbError(err)
	}
	return toWishlistItemResponse(item, p), nil
}

func (u *CartUsecase) RemoveFromWishlist(ctx context.Context, userID int64, itemID int64) error {
	if userID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if itemID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	err := u.wishlist.Delete(ctx, userID, itemID)
	if errors.Is(err, repo.ErrNotFound) {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return dbError(err)
	}
	return nil
}

func toWishlistItemResponse(it model.WishlistItem, p model.Product) WishlistItemResponse {
	return WishlistItemResponse{
		ID:          it.ID,
		ProductID:   p.ID,
		Name:        p.Name,
		Price:       p.SellingPrice.StringFixed(2),
		StockStatus: string(p.StockStatus),
	}
}
