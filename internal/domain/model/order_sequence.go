package model

import "time"

// 日ごとの注文連番カウンタ
type OrderSequence struct {
	SeqDate   string    `gorm:"primaryKey;type:varchar(8);column:seq_date" json:"seq_date"`
	LastValue int64     `gorm:"not null" json:"last_value"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}
