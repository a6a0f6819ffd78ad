package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type StockStatus string

const (
	StockStatusInStock    StockStatus = "in_stock"
	StockStatusOutOfStock StockStatus = "out_of_stock"
)

func (s StockStatus) Valid() bool {
	return s == StockStatusInStock || s == StockStatusOutOfStock
}

type Product struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name     string `gorm:"type:varchar(200);not null" json:"name"`
	ImageURL string `gorm:"type:text" json:"image_url"`

	//内容量の表示（"500g" など）
	QuantityLabel string `gorm:"column:quantity;type:varchar(50)" json:"quantity"`

	CostPrice    decimal.NullDecimal `gorm:"type:numeric(10,2)" json:"cost_price"`
	RetailPrice  decimal.NullDecimal `gorm:"type:numeric(10,2)" json:"retail_price"`
	SellingPrice decimal.Decimal     `gorm:"type:numeric(10,2);not null" json:"selling_price"`

	//在庫フラグ（数量ではなく在庫あり/なし）
	StockStatus StockStatus `gorm:"type:varchar(20);not null;default:'in_stock';index" json:"stock_status"`

	CategoryID *int64    `gorm:"index" json:"category_id"`
	Category   *Category `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL" json:"-"`

	SubCategories []SubCategory `gorm:"many2many:product_subcategories;constraint:OnDelete:CASCADE" json:"subcategories"`

	Description  string `gorm:"type:text" json:"description"`
	Brand        string `gorm:"type:varchar(100)" json:"brand"`
	Manufacturer string `gorm:"type:varchar(150)" json:"manufacturer"`

	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (p Product) InStock() bool {
	return p.StockStatus == StockStatusInStock
}
