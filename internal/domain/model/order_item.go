package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 注文時点のスナップショット（商品の価格が後で変わっても変えない）
type OrderItem struct {
	ID                  int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID             int64           `gorm:"not null;index" json:"order_id"`
	ProductID           int64           `gorm:"not null;index" json:"product_id"`
	ProductNameSnapshot string          `gorm:"type:varchar(200);not null" json:"product_name_snapshot"`
	ImageURLSnapshot    string          `gorm:"type:text" json:"image_url_snapshot"`
	Quantity            int64           `gorm:"not null" json:"quantity"`
	Price               decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	CreatedAt           time.Time       `gorm:"not null" json:"created_at"`
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(i.Quantity))
}
