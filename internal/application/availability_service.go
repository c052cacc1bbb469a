package application

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-river-raft-reservation/internal/domain/raft"
	redisinfra "github.com/sanosuguru/go-river-raft-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/go-river-raft-reservation/internal/pkg/logger"
)

const (
	slotDateFormat       = "2006-01-02"
	availabilityCacheTTL = 10 * time.Second
)

// AvailabilityService は日付ごとの空き状況スナップショットを提供する
// 返すスナップショットは呼び出し時点で一貫しているが、並行するコミットに
// 対しては古くなり得る。呼び出し側はこれを参考値としてのみ扱うこと
type AvailabilityService struct {
	raftRepo raft.Repository
	cache    *redisinfra.AvailabilityCache
}

func NewAvailabilityService(raftRepo raft.Repository, cache *redisinfra.AvailabilityCache) *AvailabilityService {
	return &AvailabilityService{raftRepo: raftRepo, cache: cache}
}

// ListSlots は指定日の時間帯ごとの空き状況を取得する
// 新しい日の初回アクセス時に満席の在庫状態を作成する（日次リセット）
func (s *AvailabilityService) ListSlots(ctx context.Context, slotDate string) (raft.DaySchedule, error) {
	if _, err := time.Parse(slotDateFormat, slotDate); err != nil {
		return nil, raft.ErrInvalidDate
	}

	// キャッシュから取得を試みる
	if s.cache != nil {
		schedule, err := s.cache.GetDaySchedule(ctx, slotDate)
		if err == nil {
			logger.Debug("キャッシュヒット", zap.String("slot_date", slotDate))
			return schedule, nil
		}
		if !errors.Is(err, redisinfra.ErrCacheMiss) {
			logger.Warn("キャッシュ取得エラー", zap.Error(err))
		}
	}

	if err := s.raftRepo.EnsureDay(ctx, slotDate); err != nil {
		return nil, err
	}

	states, err := s.raftRepo.ListByDate(ctx, slotDate)
	if err != nil {
		return nil, err
	}
	schedule := raft.NewDaySchedule(states)

	if s.cache != nil {
		if cacheErr := s.cache.SetDaySchedule(ctx, slotDate, schedule, availabilityCacheTTL); cacheErr != nil {
			logger.Warn("キャッシュ保存エラー", zap.Error(cacheErr))
		}
	}

	return schedule, nil
}
