package model

import "time"

type Gender string

const (
	GenderNone   Gender = ""
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderNone, GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// ユーザーのプロフィール（1ユーザー1件）
type Profile struct {
	ID     int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID int64 `gorm:"not null;uniqueIndex" json:"user_id"`

	//氏名
	FullName string `gorm:"type:varchar(150)" json:"full_name"`

	//生年月日
	DOB *time.Time `gorm:"type:date" json:"dob"`

	Gender Gender `gorm:"type:varchar(10)" json:"gender"`

	//電話番号
	Mobile string `gorm:"type:varchar(20)" json:"mobile"`

	//住所（受け取り用）
	Address string `gorm:"type:text" json:"address"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}
