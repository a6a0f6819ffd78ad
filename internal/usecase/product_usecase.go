package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"grocery/internal/domain/model"
	repo "grocery/internal/repository"

	"github.com/shopspring/decimal"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// 1商品に付けられるサブカテゴリの上限
const maxSubCategoriesPerProduct = 20

type ProductUsecase struct {
	tx            repo.TransactionManager
	products      repo.ProductRepository
	categories    repo.CategoryRepository
	subcategories repo.SubCategoryRepository
	clock         Clock
}

// DI
func NewProductUsecase(
	tx repo.TransactionManager,
	products repo.ProductRepository,
	categories repo.CategoryRepository,
	subcategories repo.SubCategoryRepository,
) *ProductUsecase {
	return &ProductUsecase{
		tx:            tx,
		products:      products,
		categories:    categories,
		subcategories: subcategories,
		clock:         systemClock,
	}
}

// GET /productsの入力DTO（価格は文字列で受ける）
type ListProductsInput struct {
	Page        int
	Limit       int
	Q           string
	Category    string
	SubCategory int64
	StockStatus string
	MinPrice    string
	MaxPrice    string
	Sort        string
}

type ProductListOutput struct {
	Items []model.Product `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

func (u *ProductUsecase) ListProducts(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	if in.Page == 0 {
		in.Page = 1
	}
	if in.Limit == 0 {
		in.Limit = 20
	}
	if in.Page < 1 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if len(in.Q) > 100 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "q too long")
	}
	status := model.StockStatus(in.StockStatus)
	if status != "" && !status.Valid() {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid stock_status")
	}
	minPrice, err := parseOptionalPrice(in.MinPrice)
	if err != nil {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid min_price")
	}
	maxPrice, err := parseOptionalPrice(in.MaxPrice)
	if err != nil {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid max_price")
	}
	if minPrice != nil && maxPrice != nil && minPrice.GreaterThan(*maxPrice) {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "min_price must be <= max_price")
	}
	if in.SubCategory < 0 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid subcategory")
	}
	switch in.Sort {
	case "", "new", "price_asc", "price_desc":
	default:
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid sort")
	}

	items, total, err := u.products.List(ctx, repo.ProductListQuery{
		Page:         in.Page,
		Limit:        in.Limit,
		Q:            strings.TrimSpace(in.Q),
		CategorySlug: strings.TrimSpace(in.Category),
		SubCategory:  in.SubCategory,
		StockStatus:  status,
		MinPrice:     minPrice,
		MaxPrice:     maxPrice,
		Sort:         in.Sort,
	})
	if err != nil {
		return ProductListOutput{}, dbError(err)
	}

	return ProductListOutput{
		Items: items,
		Total: total,
		Page:  in.Page,
		Limit: in.Limit,
	}, nil
}

func (u *ProductUsecase) GetProduct(ctx context.Context, productID int64) (model.Product, error) {
	if productID <= 0 {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	p, err := u.products.FindByID(ctx, productID)
	if err != nil {
		return model.Product{}, notFoundOrDBError(err)
	}
	return p, nil
}

func (u *ProductUsecase) ListCategories(ctx context.Context) ([]model.Category, error) {
	cs, err := u.categories.List(ctx)
	if err != nil {
		return nil, dbError(err)
	}
	return cs, nil
}

type CreateCategoryInput struct {
	Name string
	Slug string
}

func (in CreateCategoryInput) normalize() (model.Category, error) {
	name := strings.TrimSpace(in.Name)
	slug := strings.ToLower(strings.TrimSpace(in.Slug))
	if name == "" || len(name) > 100 {
		return model.Category{}, NewHTTPError(http.StatusBadRequest, "invalid name")
	}
	if !slugPattern.MatchString(slug) || len(slug) > 100 {
		return model.Category{}, NewHTTPError(http.StatusBadRequest, "invalid slug")
	}
	return model.Category{Name: name, Slug: slug}, nil
}

func (u *ProductUsecase) AdminCreateCategory(ctx context.Context, in CreateCategoryInput) (model.Category, error) {
	c, err := in.normalize()
	if err != nil {
		return model.Category{}, err
	}

	c, err = u.categories.Create(ctx, c)
	if errors.Is(err, repo.ErrDuplicate) {
		return model.Category{}, NewHTTPError(http.StatusConflict, "category already exists")
	}
	if err != nil {
		return model.Category{}, dbError(err)
	}
	return c, nil
}

func (u *ProductUsecase) AdminUpdateCategory(ctx context.Context, categoryID int64, in CreateCategoryInput) (model.Category, error) {
	if categoryID <= 0 {
		return model.Category{}, NewHTTPError(http.StatusBadRequest, "invalid category id")
	}
	c, err := in.normalize()
	if err != nil {
		return model.Category{}, err
	}
	c.ID = categoryID

	err = u.categories.Update(ctx, c)
	if errors.Is(err, repo.ErrDuplicate) {
		return model.Category{}, NewHTTPError(http.StatusConflict, "category already exists")
	}
	if err != nil {
		return model.Category{}, notFoundOrDBError(err)
	}
	return c, nil
}

// 商品は残り、カテゴリ無しになる
func (u *ProductUsecase) AdminDeleteCategory(ctx context.Context, categoryID int64) error {
	if categoryID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid category id")
	}
	if err := u.categories.Delete(ctx, categoryID); err != nil {
		return notFoundOrDBError(err)
	}
	return nil
}

func (u *ProductUsecase) ListSubCategories(ctx context.Context) ([]model.SubCategory, error) {
	subs, err := u.subcategories.List(ctx)
	if err != nil {
		return nil, dbError(err)
	}
	return subs, nil
}

func (u *ProductUsecase) AdminCreateSubCategory(ctx context.Context, name string) (model.SubCategory, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 100 {
		return model.SubCategory{}, NewHTTPError(http.StatusBadRequest, "invalid name")
	}

	s, err := u.subcategories.Create(ctx, model.SubCategory{Name: name})
	if errors.Is(err, repo.ErrDuplicate) {
		return model.SubCategory{}, NewHTTPError(http.StatusConflict, "subcategory already exists")
	}
	if err != nil {
		return model.SubCategory{}, dbError(err)
	}
	return s, nil
}

// 作成・更新の入力（価格は "12.50" の形）
type ProductInput struct {
	Name           string
	ImageURL       string
	QuantityLabel  string
	CostPrice      string
	RetailPrice    string
	SellingPrice   string
	StockStatus    string
	CategoryID     *int64
	SubCategoryIDs []int64
	Description    string
	Brand          string
	Manufacturer   string
}

func (u *ProductUsecase) toProduct(ctx context.Context, in ProductInput) (model.Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || len(name) > 200 {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "name required")
	}

	selling, err := parsePrice(in.SellingPrice)
	if err != nil {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "invalid selling_price")
	}
	cost, err := parseNullPrice(in.CostPrice)
	if err != nil {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "invalid cost_price")
	}
	retail, err := parseNullPrice(in.RetailPrice)
	if err != nil {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "invalid retail_price")
	}

	status := model.StockStatus(in.StockStatus)
	if status == "" {
		status = model.StockStatusInStock
	}
	if !status.Valid() {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "invalid stock_status")
	}

	//カテゴリは存在チェック
	if in.CategoryID != nil {
		if _, err := u.categories.FindByID(ctx, *in.CategoryID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return model.Product{}, NewHTTPError(http.StatusBadRequest, "invalid category_id")
			}
			return model.Product{}, dbError(err)
		}
	}

	subs, err := u.resolveSubCategories(ctx, in.SubCategoryIDs)
	if err != nil {
		return model.Product{}, err
	}

	return model.Product{
		Name:          name,
		ImageURL:      strings.TrimSpace(in.ImageURL),
		QuantityLabel: strings.TrimSpace(in.QuantityLabel),
		CostPrice:     cost,
		RetailPrice:   retail,
		SellingPrice:  selling,
		StockStatus:   status,
		CategoryID:    in.CategoryID,
		SubCategories: subs,
		Description:   in.Description,
		Brand:         strings.TrimSpace(in.Brand),
		Manufacturer:  strings.TrimSpace(in.Manufacturer),
	}, nil
}

// 重複は1つにまとめ、存在しないIDがあれば400
func (u *ProductUsecase) resolveSubCategories(ctx context.Context, ids []int64) ([]model.SubCategory, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	seen := make(map[int64]struct{}, len(ids))
	uniq := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return nil, NewHTTPError(http.StatusBadRequest, "invalid subcategory_ids")
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		uniq = append(uniq, id)
	}
	if len(uniq) > maxSubCategoriesPerProduct {
		return nil, NewHTTPError(http.StatusBadRequest, "too many subcategory_ids")
	}

	subs, err := u.subcategories.FindByIDs(ctx, uniq)
	if err != nil {
		return nil, dbError(err)
	}
	if len(subs) != len(uniq) {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid subcategory_ids")
	}
	return subs, nil
}

func (u *ProductUsecase) AdminCreateProduct(ctx context.Context, in ProductInput) (model.Product, error) {
	p, err := u.toProduct(ctx, in)
	if err != nil {
		return model.Product{}, err
	}

	created, err := u.products.Create(ctx, p)
	if err != nil {
		return model.Product{}, dbError(err)
	}
	return created, nil
}

func (u *ProductUsecase) AdminUpdateProduct(ctx context.Context, productID int64, in ProductInput) (model.Product, error) {
	if productID <= 0 {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}
	p, err := u.toProduct(ctx, in)
	if err != nil {
		return model.Product{}, err
	}
	p.ID = productID

	if err := u.products.Update(ctx, p); err != nil {
		return model.Product{}, notFoundOrDBError(err)
	}
	return u.GetProduct(ctx, productID)
}

func (u *ProductUsecase) AdminDeleteProduct(ctx context.Context, productID int64) error {
	if productID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid product id")
	}
	if err := u.products.SoftDelete(ctx, productID); err != nil {
		return notFoundOrDBError(err)
	}
	return nil
}

type stockStatusJSON struct {
	StockStatus model.StockStatus `json:"stock_status"`
	Reason      string            `json:"reason,omitempty"`
}

// 在庫フラグを更新して監査ログを残す（同じトランザクション）
func (u *ProductUsecase) AdminUpdateStockStatus(ctx context.Context, adminUserID int64, productID int64, status string, reason string) (model.Product, error) {
	if adminUserID <= 0 {
		return model.Product{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}
	next := model.StockStatus(strings.TrimSpace(status))
	if !next.Valid() {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "invalid stock_status")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "reason required")
	}

	var updated model.Product
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//変更前（before）
		p, err := r.Products().FindByID(ctx, productID)
		if err != nil {
			return notFoundOrDBError(err)
		}

		if err := r.Products().UpdateStockStatus(ctx, productID, next); err != nil {
			return notFoundOrDBError(err)
		}

		beforeJSON, _ := json.Marshal(stockStatusJSON{StockStatus: p.StockStatus})
		afterJSON, _ := json.Marshal(stockStatusJSON{StockStatus: next, Reason: reason})
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  adminUserID,
			Action:       model.AuditActionUpdateStockStatus,
			ResourceType: model.AuditResourceProduct,
			ResourceID:   productID,
			BeforeJSON:   string(beforeJSON),
			AfterJSON:    string(afterJSON),
			CreatedAt:    u.clock.Now(),
		}); err != nil {
			return dbError(err)
		}

		p.StockStatus = next
		updated = p
		return nil
	})
	if err != nil {
		return model.Product{}, err
	}
	return updated, nil
}

// 0以上・小数2桁まで
func parsePrice(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() || d.Exponent() < -2 && !d.Equal(d.Round(2)) {
		return decimal.Zero, errors.New("invalid price")
	}
	return d.Round(2), nil
}

func parseOptionalPrice(s string) (*decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	d, err := parsePrice(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func parseNullPrice(s string) (decimal.NullDecimal, error) {
	d, err := parseOptionalPrice(s)
	if err != nil || d == nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(*d), nil
}
