package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// 自分が置いた値のときだけ消す
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ユーザーごとに注文確定を1つに絞る（SET NX + TTL）
type PlacementGuard struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

func NewPlacementGuard(rdb redis.UniversalClient, ttl time.Duration) *PlacementGuard {
	if ttl <= 0 {
		ttl = TTLOrderPlacement
	}
	return &PlacementGuard{rdb: rdb, ttl: ttl}
}

// 取れたら ok=true と解放関数を返す
func (g *PlacementGuard) Acquire(ctx context.Context, userID int64) (func(context.Context) error, bool, error) {
	key := fmt.Sprintf(KeyOrderPlacement, userID)
	token := uuid.NewString()

	ok, err := g.rdb.SetNX(ctx, key, token, g.ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	release := func(ctx context.Context) error {
		return releaseScript.Run(ctx, g.rdb, []string{key}, token).Err()
	}
	return release, true, nil
}
