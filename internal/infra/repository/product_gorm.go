package repository

import (
	"context"
	"errors"
	"strings"

	"grocery/internal/domain/model"
	repo "grocery/internal/repository"

	"gorm.io/gorm"
)

type ProductGormRepository struct {
	db *gorm.DB
}

// DI
func NewProductGormRepository(db *gorm.DB) *ProductGormRepository {
	return &ProductGormRepository{db: db}
}

// 検索/カテゴリ/在庫/価格帯/ソート/ページング付きで返す。
func (r *ProductGormRepository) List(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	tx := r.db.WithContext(ctx).Model(&model.Product{})

	// q は name/brand を対象
	if s := strings.TrimSpace(q.Q); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		tx = tx.Where("LOWER(products.name) LIKE ? OR LOWER(products.brand) LIKE ?", like, like)
	}

	if q.CategorySlug != "" {
		tx = tx.Joins("JOIN categories ON categories.id = products.category_id").
			Where("categories.slug = ?", q.CategorySlug)
	}

	if q.SubCategory > 0 {
		tx = tx.Where("products.id IN (?)",
			r.db.Table("product_subcategories").Select("product_id").Where("sub_category_id = ?", q.SubCategory))
	}

	if q.StockStatus != "" {
		tx = tx.Where("products.stock_status = ?", q.StockStatus)
	}

	//価格帯
	if q.MinPrice != nil {
		tx = tx.Where("products.selling_price >= ?", *q.MinPrice)
	}
	if q.MaxPrice != nil {
		tx = tx.Where("products.selling_price <= ?", *q.MaxPrice)
	}

	if err := tx.Count(&total).Error; err != nil {
		return []model.Product{}, 0, err
	}

	switch q.Sort {
	case "price_asc":
		tx = tx.Order("products.selling_price asc").Order("products.id asc")
	case "price_desc":
		tx = tx.Order("products.selling_price desc").Order("products.id desc")
	default:
		tx = tx.Order("products.created_at desc").Order("products.id desc")
	}

	if err := tx.Preload("SubCategories").Offset(pageOffset(q.Page, q.Limit)).Limit(q.Limit).Find(&products).Error; err != nil {
		return []model.Product{}, 0, err
	}

	return products, total, nil
}

// IDで商品を取得
func (r *ProductGormRepository) FindByID(ctx context.Context, id int64) (model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).Preload("SubCategories").First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Product{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Product{}, err
	}
	return p, nil
}

// 商品の作成
func (r *ProductGormRepository) Create(ctx context.Context, p model.Product) (model.Product, error) {
	if err := r.db.WithContext(ctx).Omit("SubCategories.*").Create(&p).Error; err != nil {
		return model.Product{}, translateError(err)
	}
	return p, nil
}

// 商品の更新（サブカテゴリの付け替えも同じトランザクション）
func (r *ProductGormRepository) Update(ctx context.Context, p model.Product) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := updateProductColumns(tx, p); err != nil {
			return err
		}
		assoc := tx.Model(&model.Product{ID: p.ID}).Omit("SubCategories.*").Association("SubCategories")
		if len(p.SubCategories) == 0 {
			return assoc.Clear()
		}
		return assoc.Replace(p.SubCategories)
	})
}

func updateProductColumns(tx *gorm.DB, p model.Product) error {
	res := tx.Model(&model.Product{}).Where("id = ?", p.ID).Updates(map[string]interface{}{
		"name":          p.Name,
		"image_url":     p.ImageURL,
		"quantity":      p.QuantityLabel,
		"cost_price":    p.CostPrice,
		"retail_price":  p.RetailPrice,
		"selling_price": p.SellingPrice,
		"stock_status":  p.StockStatus,
		"category_id":   p.CategoryID,
		"description":   p.Description,
		"brand":         p.Brand,
		"manufacturer":  p.Manufacturer,
	})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 商品削除（論理削除）
func (r *ProductGormRepository) SoftDelete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&model.Product{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 在庫フラグを更新
func (r *ProductGormRepository) UpdateStockStatus(ctx context.Context, id int64, status model.StockStatus) error {
	res := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ?", id).
		Update("stock_status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

type CategoryGormRepository struct {
	db *gorm.DB
}

func NewCategoryGormRepository(db *gorm.DB) *CategoryGormRepository {
	return &CategoryGormRepository{db: db}
}

func (r *CategoryGormRepository) List(ctx context.Context) ([]model.Category, error) {
	var cs []model.Category
	if err := r.db.WithContext(ctx).Order("name asc").Find(&cs).Error; err != nil {
		return []model.Category{}, err
	}
	return cs, nil
}

func (r *CategoryGormRepository) FindByID(ctx context.Context, id int64) (model.Category, error) {
	var c model.Category
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return model.Category{}, translateError(err)
	}
	return c, nil
}

func (r *CategoryGormRepository) Create(ctx context.Context, c model.Category) (model.Category, error) {
	if err := r.db.WithContext(ctx).Create(&c).Error; err != nil {
		return model.Category{}, translateError(err)
	}
	return c, nil
}

func (r *CategoryGormRepository) Update(ctx context.Context, c model.Category) error {
	res := r.db.WithContext(ctx).Model(&model.Category{}).Where("id = ?", c.ID).Updates(map[string]interface{}{
		"name": c.Name,
		"slug": c.Slug,
	})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *CategoryGormRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&model.Category{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

type SubCategoryGormRepository struct {
	db *gorm.DB
}

func NewSubCategoryGormRepository(db *gorm.DB) *SubCategoryGormRepository {
	return &SubCategoryGormRepository{db: db}
}

func (r *SubCategoryGormRepository) List(ctx context.Context) ([]model.SubCategory, error) {
	subs := []model.SubCategory{}
	if err := r.db.WithContext(ctx).Order("name asc").Find(&subs).Error; err != nil {
		return []model.SubCategory{}, err
	}
	return subs, nil
}

func (r *SubCategoryGormRepository) FindByIDs(ctx context.Context, ids []int64) ([]model.SubCategory, error) {
	subs := []model.SubCategory{}
	if len(ids) == 0 {
		return subs, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id asc").Find(&subs).Error; err != nil {
		return []model.SubCategory{}, err
	}
	return subs, nil
}

func (r *SubCategoryGormRepository) Create(ctx context.Context, s model.SubCategory) (model.SubCategory, error) {
	if err := r.db.WithContext(ctx).Create(&s).Error; err != nil {
		return model.SubCategory{}, translateError(err)
	}
	return s, nil
}
