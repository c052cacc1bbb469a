package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-river-raft-reservation/internal/pkg/logger"
)

// PaymentExpirer は放置された決済待ち予約を失効させるインターフェース
type PaymentExpirer interface {
	ExpireStalePayments(ctx context.Context, olderThan time.Duration) (int, error)
}

// PendingPaymentExpirer は決済待ちのまま放置された予約を定期的に失効させるワーカー
// 失効した予約は拒否状態になるが、在庫には触れない（座席はコミットされていない）
type PendingPaymentExpirer struct {
	reservationService PaymentExpirer
	interval           time.Duration
	olderThan          time.Duration
	stopCh             chan struct{}
	doneCh             chan struct{}
}

// NewPendingPaymentExpirer は新しいワーカーを作成
func NewPendingPaymentExpirer(
	rs PaymentExpirer,
	interval time.Duration,
	olderThan time.Duration,
) *PendingPaymentExpirer {
	return &PendingPaymentExpirer{
		reservationService: rs,
		interval:           interval,
		olderThan:          olderThan,
		stopCh:             make(chan struct{}),
		doneCh:             make(chan struct{}),
	}
}

// Start はワーカーを開始
func (w *PendingPaymentExpirer) Start(ctx context.Context) {
	logger.Info("決済待ち失効ワーカー開始",
		zap.Duration("interval", w.interval),
		zap.Duration("older_than", w.olderThan),
	)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	defer close(w.doneCh)

	for {
		select {
		case <-ctx.Done():
			logger.Info("決済待ち失効ワーカー停止（コンテキストキャンセル）")
			return
		case <-w.stopCh:
			logger.Info("決済待ち失効ワーカー停止（シグナル受信）")
			return
		case <-ticker.C:
			w.expire(ctx)
		}
	}
}

// Stop はワーカーを停止
func (w *PendingPaymentExpirer) Stop() {
	close(w.stopCh)
	<-w.doneCh
}

// expire は放置された決済待ち予約を拒否状態にする
func (w *PendingPaymentExpirer) expire(ctx context.Context) {
	log := logger.Get()
	log.Debug("決済待ち予約の失効処理開始")

	count, err := w.reservationService.ExpireStalePayments(ctx, w.olderThan)
	if err != nil {
		log.Error("決済待ち予約の失効処理失敗", zap.Error(err))
		return
	}

	if count > 0 {
		log.Info("放置された決済待ち予約を失効", zap.Int("count", count))
	} else {
		log.Debug("失効対象の予約なし")
	}
}
