package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Songmu/retry"
	"github.com/pyama86/YAIR/domain/entity"
	"github.com/redis/go-redis/v9"
)

const correlationKeyPrefix = "correlation:"

// RedisRepository は対応表をRedisに置く永続バックエンド。
type RedisRepository struct {
	rdb *redis.Client
}

func NewRedisRepository(cfg *StoreConfig) (*RedisRepository, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})

	// 起動直後はRedisが立ち上がりきっていないことがある
	err := retry.Retry(3, 3*time.Second, func() error {
		return rdb.Ping(context.Background()).Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis %s: %w", cfg.RedisAddr, err)
	}

	return &RedisRepository{rdb: rdb}, nil
}

func (r *RedisRepository) FindCorrelation(ctx context.Context, monitorID string) (*entity.Correlation, error) {
	data, err := r.rdb.Get(ctx, correlationKeyPrefix+monitorID).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	correlation := &entity.Correlation{}
	if err := json.Unmarshal([]byte(data), correlation); err != nil {
		return nil, fmt.Errorf("failed to decode correlation for %s: %w", monitorID, err)
	}
	return correlation, nil
}

func (r *RedisRepository) SaveCorrelation(ctx context.Context, c *entity.Correlation) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode correlation for %s: %w", c.MonitorID, err)
	}
	return r.rdb.Set(ctx, correlationKeyPrefix+c.MonitorID, data, 0).Err()
}

func (r *RedisRepository) DeleteCorrelation(ctx context.Context, monitorID string) error {
	return r.rdb.Del(ctx, correlationKeyPrefix+monitorID).Err()
}
