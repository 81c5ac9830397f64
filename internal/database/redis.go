package database

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// OpenRedis はセッションストア用のRedisクライアントを生成し、疎通確認を行う。
func OpenRedis(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return rdb, nil
}

// RedisPinger はgo-redisクライアントをヘルスチェックのPingインターフェースに適合させる。
type RedisPinger struct {
	rdb *redis.Client
}

// NewRedisPinger はRedisPingerを生成する。
func NewRedisPinger(rdb *redis.Client) *RedisPinger {
	return &RedisPinger{rdb: rdb}
}

// Ping はRedisの疎通を確認する。
func (p *RedisPinger) Ping(ctx context.Context) error {
	return p.rdb.Ping(ctx).Err()
}
