package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sanosuguru/go-river-raft-reservation/internal/domain/raft"
)

var (
	ErrCacheMiss = errors.New("キャッシュが見つかりません")
)

// AvailabilityCache は日付ごとの空き状況スナップショットのキャッシュを管理する
type AvailabilityCache struct {
	client *redis.Client
}

// NewAvailabilityCache は新しいAvailabilityCacheインスタンスを作成する
func NewAvailabilityCache(client *redis.Client) *AvailabilityCache {
	return &AvailabilityCache{client: client}
}

// GetDaySchedule は指定日のスナップショットをキャッシュから取得する
func (c *AvailabilityCache) GetDaySchedule(ctx context.Context, slotDate string) (raft.DaySchedule, error) {
	key := c.dayScheduleKey(slotDate)
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("キャッシュ取得に失敗: %w", err)
	}
	var schedule raft.DaySchedule
	if err := json.Unmarshal(data, &schedule); err != nil {
		return nil, fmt.Errorf("キャッシュのデコードに失敗: %w", err)
	}
	return schedule, nil
}

// SetDaySchedule は指定日のスナップショットをキャッシュに保存する
func (c *AvailabilityCache) SetDaySchedule(ctx context.Context, slotDate string, schedule raft.DaySchedule, ttl time.Duration) error {
	data, err := json.Marshal(schedule)
	if err != nil {
		return fmt.Errorf("キャッシュのエンコードに失敗: %w", err)
	}
	key := c.dayScheduleKey(slotDate)
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("キャッシュ保存に失敗: %w", err)
	}
	return nil
}

// Invalidate は指定日のキャッシュを無効化する（コミット成功後に呼ぶ）
func (c *AvailabilityCache) Invalidate(ctx context.Context, slotDate string) error {
	key := c.dayScheduleKey(slotDate)
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("キャッシュ無効化に失敗: %w", err)
	}
	return nil
}

func (c *AvailabilityCache) dayScheduleKey(slotDate string) string {
	return fmt.Sprintf("availability:%s", slotDate)
}
