package repository

import "context"

// 同じトランザクションに束ねたリポジトリ
type TxRepos interface {
	Users() UserRepository
	Profiles() ProfileRepository
	RefreshTokens() RefreshTokenRepository
	Orders() OrderRepository
	OrderItems() OrderItemRepository
	OrderSequences() OrderSequenceRepository
	CartItems() CartItemRepository
	Products() ProductRepository
	AuditLogs() AuditLogRepository
}

// fn がエラーを返せば全部ロールバックする
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error
}
