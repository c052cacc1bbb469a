package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-river-raft-reservation/internal/config"
	"github.com/sanosuguru/go-river-raft-reservation/internal/domain/booking"
	"github.com/sanosuguru/go-river-raft-reservation/internal/domain/payment"
	"github.com/sanosuguru/go-river-raft-reservation/internal/domain/policy"
	"github.com/sanosuguru/go-river-raft-reservation/internal/domain/raft"
	"github.com/sanosuguru/go-river-raft-reservation/internal/domain/transaction"
	redisinfra "github.com/sanosuguru/go-river-raft-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/go-river-raft-reservation/internal/pkg/logger"
	"github.com/sanosuguru/go-river-raft-reservation/internal/pkg/metrics"
)

const (
	raftLockTTL        = 10 * time.Second
	raftLockMaxRetries = 3
	raftLockRetryDelay = 100 * time.Millisecond
)

// ReservationService は予約の状態機械を駆動するコーディネーター
// 事前チェック → 決済オーダー作成 → （外部の非同期決済）→ 在庫コミット の
// 二相の流れを管理し、コミットだけを在庫の正とする
type ReservationService struct {
	txManager   transaction.Manager
	bookingRepo booking.Repository
	raftRepo    raft.Repository
	policyStore policy.Store
	adapter     payment.Adapter
	lockManager *redisinfra.LockManager
	cache       *redisinfra.AvailabilityCache
	metrics     *metrics.Metrics
	paymentCfg  *config.PaymentConfig
}

func NewReservationService(
	txManager transaction.Manager,
	br booking.Repository,
	rr raft.Repository,
	ps policy.Store,
	adapter payment.Adapter,
	lm *redisinfra.LockManager,
	cache *redisinfra.AvailabilityCache,
	m *metrics.Metrics,
	paymentCfg *config.PaymentConfig,
) *ReservationService {
	return &ReservationService{
		txManager:   txManager,
		bookingRepo: br,
		raftRepo:    rr,
		policyStore: ps,
		adapter:     adapter,
		lockManager: lm,
		cache:       cache,
		metrics:     m,
		paymentCfg:  paymentCfg,
	}
}

type CreateBookingInput struct {
	Name     string
	Phone    string
	Email    string
	SlotDate string
	SlotTime string
	RaftID   int
	People   int
}

// CreateBookingOutput はチェックアウトに必要な予約と決済オーダーの組
type CreateBookingOutput struct {
	Booking *booking.Booking
	Order   *payment.Order
}

// CreateBooking はドラフト予約を作成し、決済オーダーを発行して決済待ちにする
// ここでの空席チェックはコミットと同じ述語を使うが、あくまで参考値であり、
// 座席が確保されるのは決済成功後のコミット時のみ
func (s *ReservationService) CreateBooking(ctx context.Context, input CreateBookingInput) (*CreateBookingOutput, error) {
	// 受付停止フラグは呼び出し時点の観測値でよい（進行中の予約とは同期しない）
	disabled, err := s.policyStore.Disabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("受付停止フラグの確認に失敗: %w", err)
	}
	if disabled {
		return nil, booking.ErrBookingsDisabled
	}

	if _, err := time.Parse(slotDateFormat, input.SlotDate); err != nil {
		return nil, raft.ErrInvalidDate
	}

	amount := s.paymentCfg.AmountFor(input.People)
	b := booking.NewBooking(input.Name, input.Phone, input.Email, input.SlotDate, input.SlotTime, input.RaftID, input.People, amount)
	if err := b.Validate(); err != nil {
		return nil, err
	}

	// 日次リセット: 新しい日の在庫状態を満席で用意する
	if err := s.raftRepo.EnsureDay(ctx, input.SlotDate); err != nil {
		return nil, err
	}

	state, err := s.raftRepo.GetState(ctx, input.RaftID, input.SlotDate)
	if err != nil {
		return nil, err
	}
	if state.SlotTime != input.SlotTime {
		return nil, raft.ErrSlotMismatch
	}

	// 事前チェック（参考値）。コミットと同じ述語を使い、集計値との食い違いを作らない
	if !raft.CanBook(state.Remaining, input.People) {
		return nil, raft.ErrIneligibleCount
	}

	if err := s.bookingRepo.Create(ctx, b); err != nil {
		return nil, err
	}

	order, err := s.adapter.CreateOrder(ctx, amount, b.ID, map[string]string{
		"booking_id": b.ID,
		"slot_date":  b.SlotDate,
		"slot_time":  b.SlotTime,
	})
	if err != nil {
		// オーダーが作れなければ決済は始まらないので安全に拒否できる
		if rejectErr := b.Reject("決済オーダーの作成に失敗しました"); rejectErr == nil {
			if updateErr := s.bookingRepo.Update(ctx, nil, b); updateErr != nil {
				logger.Error("予約拒否の記録に失敗", zap.String("booking_id", b.ID), zap.Error(updateErr))
			}
		}
		return nil, err
	}

	if err := b.BeginPayment(order.ID); err != nil {
		return nil, err
	}
	if err := s.bookingRepo.Update(ctx, nil, b); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.PendingPayments.Inc()
	}
	logger.Info("決済待ち予約を作成",
		zap.String("booking_id", b.ID),
		zap.String("order_id", order.ID),
		zap.String("slot_date", b.SlotDate),
		zap.String("slot_time", b.SlotTime),
		zap.Int("raft_id", b.RaftID),
		zap.Int("people", b.People),
	)

	return &CreateBookingOutput{Booking: b, Order: order}, nil
}

type ConfirmPaymentInput struct {
	OrderID   string
	PaymentID string
	Signature string
}

// ConfirmPayment は決済成功コールバックを処理し、在庫コミットで予約を確定する
// 同じ決済IDの再送は保存済みの結果を返すだけで、在庫を二重に減らさない
// コミットに敗れた場合は failed_after_payment として記録し、決済参照を保持する
// （返金は外部の照合作業に委ねる）
func (s *ReservationService) ConfirmPayment(ctx context.Context, input ConfirmPaymentInput) (*booking.Booking, error) {
	// 冪等性チェック: 適用済みの決済IDなら保存済みの結果を返す
	existing, err := s.bookingRepo.GetByPaymentID(ctx, input.PaymentID)
	if err == nil {
		logger.Info("決済コールバックの再送を検出", zap.String("payment_id", input.PaymentID))
		return existing, nil
	}
	if !errors.Is(err, booking.ErrBookingNotFound) {
		return nil, fmt.Errorf("冪等性チェックに失敗: %w", err)
	}

	b, err := s.bookingRepo.GetByPaymentOrderID(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if b.Status != booking.StatusPendingPayment {
		return nil, booking.ErrBookingNotPending
	}

	if err := s.adapter.VerifySignature(input.OrderID, input.PaymentID, input.Signature); err != nil {
		return nil, err
	}

	// ラフト単位の分散ロックで同一ラフトへのコミットを直列化する
	if s.lockManager != nil {
		lockKey := redisinfra.RaftLockKey(b.RaftID, b.SlotDate)
		lockStart := time.Now()
		lock, err := s.lockManager.AcquireLockWithRetry(ctx, lockKey, raftLockTTL, raftLockMaxRetries, raftLockRetryDelay)
		if err != nil {
			s.observeLock("acquire", "failed", lockStart)
			if errors.Is(err, redisinfra.ErrLockNotAcquired) {
				return nil, fmt.Errorf("このラフトは他の予約を処理中です: %w", err)
			}
			return nil, fmt.Errorf("ロック取得に失敗: %w", err)
		}
		s.observeLock("acquire", "success", lockStart)
		defer func() {
			releaseStart := time.Now()
			if releaseErr := lock.Release(ctx); releaseErr != nil {
				s.observeLock("release", "failed", releaseStart)
				logger.Warn("ロック解放に失敗", zap.Error(releaseErr))
				return
			}
			s.observeLock("release", "success", releaseStart)
		}()
	}

	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	remaining, commitErr := s.raftRepo.Commit(ctx, tx, b.RaftID, b.SlotDate, b.People)
	if commitErr != nil {
		if !errors.Is(commitErr, raft.ErrIneligibleCount) && !errors.Is(commitErr, raft.ErrStateNotFound) {
			s.countCommit("error")
			return nil, commitErr
		}
		// 決済は成功したのに座席が取れなかった: 並行する勝者に先を越された
		// 金額は回収済みのため終端状態として記録し、管理者の照合対象にする
		s.countCommit("ineligible")
		if err := b.FailAfterPayment(input.PaymentID); err != nil {
			return nil, err
		}
		if err := s.bookingRepo.UpdateIfStatus(ctx, tx, b, booking.StatusPendingPayment); err != nil {
			if errors.Is(err, booking.ErrStatusConflict) {
				return s.resolveCallbackRace(ctx, input)
			}
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("コミットに失敗: %w", err)
		}
		s.finishPending("failed_after_payment")
		logger.Error("決済後の在庫コミットに失敗",
			zap.String("booking_id", b.ID),
			zap.String("payment_id", input.PaymentID),
			zap.Int("raft_id", b.RaftID),
			zap.Error(commitErr),
		)
		s.invalidateCache(ctx, b.SlotDate)
		return b, booking.ErrAvailabilityRace
	}
	s.countCommit("ok")

	if err := b.Confirm(input.PaymentID); err != nil {
		return nil, err
	}
	if err := s.bookingRepo.UpdateIfStatus(ctx, tx, b, booking.StatusPendingPayment); err != nil {
		if errors.Is(err, booking.ErrStatusConflict) {
			return s.resolveCallbackRace(ctx, input)
		}
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("コミットに失敗: %w", err)
	}

	s.finishPending("confirmed")
	s.invalidateCache(ctx, b.SlotDate)
	logger.Info("予約を確定",
		zap.String("booking_id", b.ID),
		zap.String("payment_id", input.PaymentID),
		zap.Int("raft_id", b.RaftID),
		zap.Int("remaining", remaining),
	)
	return b, nil
}

// resolveCallbackRace は状態チェック通過後に並行するコールバックが先に
// 終端状態へ遷移させた場合の後処理。進行中のトランザクションは呼び出し元の
// defer で破棄されるため在庫を二重に減らすことはなく、保存済みの結果を
// 再送と同じ扱いで返す
func (s *ReservationService) resolveCallbackRace(ctx context.Context, input ConfirmPaymentInput) (*booking.Booking, error) {
	stored, err := s.bookingRepo.GetByPaymentOrderID(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	logger.Info("並行する決済コールバックを検出",
		zap.String("booking_id", stored.ID),
		zap.String("order_id", input.OrderID),
		zap.String("payment_id", input.PaymentID),
	)
	if stored.Status == booking.StatusFailedAfterPayment {
		return stored, booking.ErrAvailabilityRace
	}
	return stored, nil
}

// CancelPayment は決済キャンセル（モーダル破棄）コールバックを処理する
// 在庫には一切触れない
func (s *ReservationService) CancelPayment(ctx context.Context, orderID string) (*booking.Booking, error) {
	b, err := s.bookingRepo.GetByPaymentOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if b.Status == booking.StatusRejected {
		return b, nil
	}
	prev := b.Status
	if err := b.Reject("決済がキャンセルされました"); err != nil {
		return nil, err
	}
	if err := s.bookingRepo.UpdateIfStatus(ctx, nil, b, prev); err != nil {
		if errors.Is(err, booking.ErrStatusConflict) {
			// 成功コールバックが先に終端状態へ遷移させた
			stored, getErr := s.bookingRepo.GetByPaymentOrderID(ctx, orderID)
			if getErr != nil {
				return nil, getErr
			}
			if stored.Status == booking.StatusRejected {
				return stored, nil
			}
			return nil, booking.ErrBookingNotPending
		}
		return nil, err
	}
	s.finishPending("rejected")
	logger.Info("決済キャンセルにより予約を拒否", zap.String("booking_id", b.ID), zap.String("order_id", orderID))
	return b, nil
}

// GetBooking はIDから予約を取得する
func (s *ReservationService) GetBooking(ctx context.Context, id string) (*booking.Booking, error) {
	return s.bookingRepo.GetByID(ctx, id)
}

// ExpireStalePayments は決済待ちのまま放置された予約を拒否状態にする
func (s *ReservationService) ExpireStalePayments(ctx context.Context, olderThan time.Duration) (int, error) {
	count, err := s.bookingRepo.MarkExpired(ctx, olderThan)
	if err != nil {
		return 0, err
	}
	if s.metrics != nil && count > 0 {
		s.metrics.PendingPayments.Sub(float64(count))
		s.metrics.BookingsTotal.WithLabelValues("rejected").Add(float64(count))
	}
	return count, nil
}

func (s *ReservationService) invalidateCache(ctx context.Context, slotDate string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, slotDate); err != nil {
		logger.Warn("キャッシュ無効化エラー", zap.Error(err))
	}
}

func (s *ReservationService) countCommit(result string) {
	if s.metrics != nil {
		s.metrics.InventoryCommitsTotal.WithLabelValues(result).Inc()
	}
}

func (s *ReservationService) finishPending(status string) {
	if s.metrics != nil {
		s.metrics.PendingPayments.Dec()
		s.metrics.BookingsTotal.WithLabelValues(status).Inc()
	}
}

func (s *ReservationService) observeLock(operation, status string, start time.Time) {
	if s.metrics != nil {
		s.metrics.DistributedLockDuration.WithLabelValues(operation, status).Observe(time.Since(start).Seconds())
	}
}
