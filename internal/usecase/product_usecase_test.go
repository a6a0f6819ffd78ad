package usecase_test

import (
	"context"
	"net/http"
	"testing"

	"grocery/internal/domain/model"
	infraRepo "grocery/internal/infra/repository"
	"grocery/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newProductUsecase(gdb *gorm.DB) *usecase.ProductUsecase {
	return usecase.NewProductUsecase(
		infraRepo.NewTxManagerGorm(gdb),
		infraRepo.NewProductGormRepository(gdb),
		infraRepo.NewCategoryGormRepository(gdb),
		infraRepo.NewSubCategoryGormRepository(gdb),
	)
}

func TestProduct_CreateAndList(t *testing.T) {
	gdb := openDB(t)
	uc := newProductUsecase(gdb)
	ctx := context.Background()

	dairy, err := uc.AdminCreateCategory(ctx, usecase.CreateCategoryInput{Name: "Dairy", Slug: "dairy"})
	require.NoError(t, err)

	_, err = uc.AdminCreateProduct(ctx, usecase.ProductInput{Name: "Milk", SellingPrice: "2.50", CategoryID: &dairy.ID})
	require.NoError(t, err)
	_, err = uc.AdminCreateProduct(ctx, usecase.ProductInput{Name: "Butter", SellingPrice: "6.00", CategoryID: &dairy.ID})
	require.NoError(t, err)
	_, err = uc.AdminCreateProduct(ctx, usecase.ProductInput{Name: "Rice", SellingPrice: "12.00", StockStatus: "out_of_stock"})
	require.NoError(t, err)

	out, err := uc.ListProducts(ctx, usecase.ListProductsInput{Category: "dairy", Sort: "price_desc"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), out.Total)
	require.Len(t, out.Items, 2)
	assert.Equal(t, "Butter", out.Items[0].Name)

	out, err = uc.ListProducts(ctx, usecase.ListProductsInput{StockStatus: "in_stock", MaxPrice: "3"})
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.Equal(t, "Milk", out.Items[0].Name)

	out, err = uc.ListProducts(ctx, usecase.ListProductsInput{Q: "RIC"})
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.Equal(t, "Rice", out.Items[0].Name)
}

func TestProduct_ListValidation(t *testing.T) {
	uc := newProductUsecase(openDB(t))
	ctx := context.Background()

	_, err := uc.ListProducts(ctx, usecase.ListProductsInput{Sort: "popular"})
	requireHTTPError(t, err, http.StatusBadRequest, "invalid sort")

	_, err = uc.ListProducts(ctx, usecase.ListProductsInput{MinPrice: "10", MaxPrice: "1"})
	requireHTTPError(t, err, http.StatusBadRequest, "min_price must be <= max_price")

	_, err = uc.ListProducts(ctx, usecase.ListProductsInput{StockStatus: "few"})
	requireHTTPError(t, err, http.StatusBadRequest, "invalid stock_status")
}

func TestProduct_CreateValidation(t *testing.T) {
	uc := newProductUsecase(openDB(t))
	ctx := context.Background()

	_, err := uc.AdminCreateProduct(ctx, usecase.ProductInput{Name: "", SellingPrice: "1.00"})
	requireHTTPError(t, err, http.StatusBadRequest, "name required")

	_, err = uc.AdminCreateProduct(ctx, usecase.ProductInput{Name: "Milk", SellingPrice: "-1"})
	requireHTTPError(t, err, http.StatusBadRequest, "invalid selling_price")

	missing := int64(404)
	_, err = uc.AdminCreateProduct(ctx, usecase.ProductInput{Name: "Milk", SellingPrice: "1.00", CategoryID: &missing})
	requireHTTPError(t, err, http.StatusBadRequest, "invalid category_id")
}

func TestProduct_DuplicateCategory(t *testing.T) {
	uc := newProductUsecase(openDB(t))
	ctx := context.Background()

	_, err := uc.AdminCreateCategory(ctx, usecase.CreateCategoryInput{Name: "Dairy", Slug: "dairy"})
	require.NoError(t, err)
	_, err = uc.AdminCreateCategory(ctx, usecase.CreateCategoryInput{Name: "Dairy", Slug: "dairy-2"})
	requireHTTPError(t, err, http.StatusConflict, "category already exists")

	_, err = uc.AdminCreateCategory(ctx, usecase.CreateCategoryInput{Name: "Bad", Slug: "bad slug"})
	requireHTTPError(t, err, http.StatusBadRequest, "invalid slug")
}

func TestProduct_DeleteHidesProduct(t *testing.T) {
	gdb := openDB(t)
	uc := newProductUsecase(gdb)
	ctx := context.Background()
	milk := seedProduct(t, gdb, "milk", "10.00", model.StockStatusInStock)

	require.NoError(t, uc.AdminDeleteProduct(ctx, milk.ID))

	_, err := uc.GetProduct(ctx, milk.ID)
	requireHTTPError(t, err, http.StatusNotFound, "not found")

	err = uc.AdminDeleteProduct(ctx, milk.ID)
	requireHTTPError(t, err, http.StatusNotFound, "not found")
}

func TestProduct_UpdateStockStatusWritesAudit(t *testing.T) {
	gdb := openDB(t)
	admin := seedUser(t, gdb, "admin", model.RoleAdmin)
	milk := seedProduct(t, gdb, "milk", "10.00", model.StockStatusInStock)
	uc := newProductUsecase(gdb)

	p, err := uc.AdminUpdateStockStatus(context.Background(), admin.ID, milk.ID, "out_of_stock", "supplier delay")
	require.NoError(t, err)
	assert.Equal(t, model.StockStatusOutOfStock, p.StockStatus)

	var logs []model.AuditLog
	require.NoError(t, gdb.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, model.AuditActionUpdateStockStatus, logs[0].Action)
	assert.JSONEq(t, `{"stock_status":"in_stock"}`, logs[0].BeforeJSON)
	assert.JSONEq(t, `{"stock_status":"out_of_stock","reason":"supplier delay"}`, logs[0].AfterJSON)

	_, err = uc.AdminUpdateStockStatus(context.Background(), admin.ID, milk.ID, "out_of_stock", "")
	requireHTTPError(t, err, http.StatusBadRequest, "reason required")
}

func TestProduct_SubCategories(t *testing.T) {
	gdb := openDB(t)
	uc := newProductUsecase(gdb)
	ctx := context.Background()

	organic, err := uc.AdminCreateSubCategory(ctx, "Organic")
	require.NoError(t, err)
	local, err := uc.AdminCreateSubCategory(ctx, " Local ")
	require.NoError(t, err)
	assert.Equal(t, "Local", local.Name)

	_, err = uc.AdminCreateSubCategory(ctx, "Organic")
	requireHTTPError(t, err, http.StatusConflict, "subcategory already exists")
	_, err = uc.AdminCreateSubCategory(ctx, "  ")
	requireHTTPError(t, err, http.StatusBadRequest, "invalid name")

	subs, err := uc.ListSubCategories(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "Local", subs[0].Name)

	milk, err := uc.AdminCreateProduct(ctx, usecase.ProductInput{
		Name: "Milk", SellingPrice: "2.50",
		SubCategoryIDs: []int64{organic.ID, local.ID, organic.ID},
	})
	require.NoError(t, err)
	assert.Len(t, milk.SubCategories, 2)
	_, err = uc.AdminCreateProduct(ctx, usecase.ProductInput{Name: "Rice", SellingPrice: "12.00", SubCategoryIDs: []int64{local.ID}})
	require.NoError(t, err)

	out, err := uc.ListProducts(ctx, usecase.ListProductsInput{SubCategory: organic.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), out.Total)
	require.Len(t, out.Items, 1)
	assert.Equal(t, "Milk", out.Items[0].Name)
	assert.Len(t, out.Items[0].SubCategories, 2)

	out, err = uc.ListProducts(ctx, usecase.ListProductsInput{SubCategory: local.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), out.Total)

	// 更新は付け替え
	updated, err := uc.AdminUpdateProduct(ctx, milk.ID, usecase.ProductInput{
		Name: "Milk", SellingPrice: "2.50", SubCategoryIDs: []int64{local.ID},
	})
	require.NoError(t, err)
	require.Len(t, updated.SubCategories, 1)
	assert.Equal(t, local.ID, updated.SubCategories[0].ID)

	out, err = uc.ListProducts(ctx, usecase.ListProductsInput{SubCategory: organic.ID})
	require.NoError(t, err)
	assert.Zero(t, out.Total)

	cleared, err := uc.AdminUpdateProduct(ctx, milk.ID, usecase.ProductInput{Name: "Milk", SellingPrice: "2.50"})
	require.NoError(t, err)
	assert.Empty(t, cleared.SubCategories)

	_, err = uc.AdminCreateProduct(ctx, usecase.ProductInput{Name: "Tea", SellingPrice: "3.00", SubCategoryIDs: []int64{organic.ID, 9999}})
	requireHTTPError(t, err, http.StatusBadRequest, "invalid subcategory_ids")

	_, err = uc.ListProducts(ctx, usecase.ListProductsInput{SubCategory: -1})
	requireHTTPError(t, err, http.StatusBadRequest, "invalid subcategory")
}

func TestProduct_UpdateAndDeleteCategory(t *testing.T) {
	gdb := openDB(t)
	uc := newProductUsecase(gdb)
	ctx := context.Background()

	dairy, err := uc.AdminCreateCategory(ctx, usecase.CreateCategoryInput{Name: "Dairy", Slug: "dairy"})
	require.NoError(t, err)
	_, err = uc.AdminCreateCategory(ctx, usecase.CreateCategoryInput{Name: "Bakery", Slug: "bakery"})
	require.NoError(t, err)
	milk, err := uc.AdminCreateProduct(ctx, usecase.ProductInput{Name: "Milk", SellingPrice: "2.50", CategoryID: &dairy.ID})
	require.NoError(t, err)

	renamed, err := uc.AdminUpdateCategory(ctx, dairy.ID, usecase.CreateCategoryInput{Name: "Dairy & Eggs", Slug: "Dairy-Eggs"})
	require.NoError(t, err)
	assert.Equal(t, "dairy-eggs", renamed.Slug)

	out, err := uc.ListProducts(ctx, usecase.ListProductsInput{Category: "dairy-eggs"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), out.Total)

	_, err = uc.AdminUpdateCategory(ctx, dairy.ID, usecase.CreateCategoryInput{Name: "Bakery", Slug: "bakery"})
	requireHTTPError(t, err, http.StatusConflict, "category already exists")
	_, err = uc.AdminUpdateCategory(ctx, 9999, usecase.CreateCategoryInput{Name: "X", Slug: "x"})
	requireHTTPError(t, err, http.StatusNotFound, "")

	// 削除しても商品は残り、カテゴリ無しになる
	require.NoError(t, uc.AdminDeleteCategory(ctx, dairy.ID))
	p, err := uc.GetProduct(ctx, milk.ID)
	require.NoError(t, err)
	assert.Nil(t, p.CategoryID)

	requireHTTPError(t, uc.AdminDeleteCategory(ctx, dairy.ID), http.StatusNotFound, "")
	requireHTTPError(t, uc.AdminDeleteCategory(ctx, 0), http.StatusBadRequest, "invalid category id")
}
