package cache

import "time"

const (
	// 注文確定中のユーザー: grocery:order:place:{user_id} -> token
	KeyOrderPlacement = "grocery:order:place:%d"
)

// 既定の保持時間（処理が落ちても解放されるように）
var TTLOrderPlacement = 10 * time.Second
