package repository

import (
	"context"

	repo "grocery/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	users          repo.UserRepository
	profiles       repo.ProfileRepository
	refreshTokens  repo.RefreshTokenRepository
	orders         repo.OrderRepository
	orderItems     repo.OrderItemRepository
	orderSequences repo.OrderSequenceRepository
	cartItems      repo.CartItemRepository
	products       repo.ProductRepository
	auditLogs      repo.AuditLogRepository
}

func (r *txReposGorm) Users() repo.UserRepository                   { return r.users }
func (r *txReposGorm) Profiles() repo.ProfileRepository             { return r.profiles }
func (r *txReposGorm) RefreshTokens() repo.RefreshTokenRepository   { return r.refreshTokens }
func (r *txReposGorm) Orders() repo.OrderRepository                 { return r.orders }
func (r *txReposGorm) OrderItems() repo.OrderItemRepository         { return r.orderItems }
func (r *txReposGorm) OrderSequences() repo.OrderSequenceRepository { return r.orderSequences }
func (r *txReposGorm) CartItems() repo.CartItemRepository           { return r.cartItems }
func (r *txReposGorm) Products() repo.ProductRepository             { return r.products }
func (r *txReposGorm) AuditLogs() repo.AuditLogRepository           { return r.auditLogs }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		r := &txReposGorm{
			users:          NewUserGormRepository(tx),
			profiles:       NewProfileGormRepository(tx),
			refreshTokens:  NewRefreshTokenRepository(tx),
			orders:         NewOrderGormRepository(tx),
			orderItems:     NewOrderItemGormRepository(tx),
			orderSequences: NewOrderSequenceGormRepository(tx),
			cartItems:      NewCartGormRepository(tx),
			products:       NewProductGormRepository(tx),
			auditLogs:      NewAuditLogGormRepository(tx),
		}
		return fn(r)
	})
}
