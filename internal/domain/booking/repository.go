package booking

import (
	"context"
	"time"

	"github.com/sanosuguru/go-river-raft-reservation/internal/domain/transaction"
)

// Repository は予約リポジトリのインターフェース
type Repository interface {
	// Create は新しい予約を作成する
	Create(ctx context.Context, b *Booking) error

	// GetByID はIDから予約を取得する
	GetByID(ctx context.Context, id string) (*Booking, error)

	// GetByPaymentOrderID は決済オーダーIDから予約を取得する
	GetByPaymentOrderID(ctx context.Context, orderID string) (*Booking, error)

	// GetByPaymentID は決済IDから予約を取得する（コールバック再送の冪等性チェック用）
	GetByPaymentID(ctx context.Context, paymentID string) (*Booking, error)

	// Update は予約を更新する（tx が nil の場合は単独実行）
	// ドラフト段階の単一ライター更新にのみ使う
	Update(ctx context.Context, tx transaction.Tx, b *Booking) error

	// UpdateIfStatus は現在の状態が from である場合に限り更新する遷移ガード付き更新
	// 並行する遷移に敗れた場合は ErrStatusConflict を返し、行は変更されない
	UpdateIfStatus(ctx context.Context, tx transaction.Tx, b *Booking, from Status) error

	// ListByDate は指定日の予約一覧を取得する
	ListByDate(ctx context.Context, slotDate string) ([]*Booking, error)

	// ListAll は予約一覧を新しい順に取得する
	ListAll(ctx context.Context, limit, offset int) ([]*Booking, error)

	// ListByStatus は指定状態の予約一覧を取得する
	ListByStatus(ctx context.Context, status Status) ([]*Booking, error)

	// MarkExpired は決済待ちのまま放置された予約を拒否状態にし、件数を返す
	// 状態遷移は SQL 側でガードし、コールバック済みの予約には触れない
	MarkExpired(ctx context.Context, olderThan time.Duration) (int, error)
}
