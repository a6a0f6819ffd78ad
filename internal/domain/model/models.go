package model

// AutoMigrate対象（依存順）
func All() []interface{} {
	return []interface{}{
		&User{},
		&RefreshToken{},
		&Profile{},
		&Category{},
		&SubCategory{},
		&Product{},
		&CartItem{},
		&WishlistItem{},
		&Order{},
		&OrderItem{},
		&OrderSequence{},
		&AuditLog{},
	}
}
