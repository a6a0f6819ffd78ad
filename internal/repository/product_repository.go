package repository

import (
	"context"

	"grocery/internal/domain/model"

	"github.com/shopspring/decimal"
)

// 一覧検索
type ProductListQuery struct {
	Page         int
	Limit        int
	Q            string
	CategorySlug string
	SubCategory  int64
	StockStatus  model.StockStatus
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
	Sort         string
}

// 商品の永続化（保存・取得）だけを約束。
type ProductRepository interface {
	List(ctx context.Context, q ProductListQuery) ([]model.Product, int64, error)
	FindByID(ctx context.Context, id int64) (model.Product, error)

	// SubCategories は ID だけ見て中間テーブルに書く
	Create(ctx context.Context, p model.Product) (model.Product, error)
	// SubCategories も渡した内容で置き換える
	Update(ctx context.Context, p model.Product) error
	SoftDelete(ctx context.Context, id int64) error

	// 在庫フラグだけを更新
	UpdateStockStatus(ctx context.Context, id int64, status model.StockStatus) error
}

type CategoryRepository interface {
	List(ctx context.Context) ([]model.Category, error)
	FindByID(ctx context.Context, id int64) (model.Category, error)
	Create(ctx context.Context, c model.Category) (model.Category, error)
	Update(ctx context.Context, c model.Category) error
	// 紐づく商品の category_id は NULL になる
	Delete(ctx context.Context, id int64) error
}

type SubCategoryRepository interface {
	List(ctx context.Context) ([]model.SubCategory, error)
	// 見つかった分だけ返す
	FindByIDs(ctx context.Context, ids []int64) ([]model.SubCategory, error)
	Create(ctx context.Context, s model.SubCategory) (model.SubCategory, error)
}
