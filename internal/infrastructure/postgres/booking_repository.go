package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sanosuguru/go-river-raft-reservation/internal/domain/booking"
	"github.com/sanosuguru/go-river-raft-reservation/internal/domain/transaction"
)

type bookingRow struct {
	ID             string     `db:"id"`
	Name           string     `db:"name"`
	Phone          string     `db:"phone"`
	Email          string     `db:"email"`
	SlotDate       time.Time  `db:"slot_date"`
	SlotTime       string     `db:"slot_time"`
	RaftID         int        `db:"raft_id"`
	People         int        `db:"people"`
	Amount         int64      `db:"amount"`
	PaymentOrderID string     `db:"payment_order_id"`
	PaymentID      *string    `db:"payment_id"`
	RejectReason   string     `db:"reject_reason"`
	Status         string     `db:"status"`
	ConfirmedAt    *time.Time `db:"confirmed_at"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
}

func (r *bookingRow) toEntity() *booking.Booking {
	return &booking.Booking{
		ID: r.ID, Name: r.Name, Phone: r.Phone, Email: r.Email,
		SlotDate: r.SlotDate.Format(slotDateFormat), SlotTime: r.SlotTime,
		RaftID: r.RaftID, People: r.People, Amount: r.Amount,
		PaymentOrderID: r.PaymentOrderID, PaymentID: r.PaymentID,
		RejectReason: r.RejectReason, Status: booking.Status(r.Status),
		ConfirmedAt: r.ConfirmedAt, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

const bookingColumns = `id, name, phone, email, slot_date, slot_time, raft_id, people, amount,
	payment_order_id, payment_id, reject_reason, status, confirmed_at, created_at, updated_at`

// BookingRepository は予約のPostgreSQL実装
type BookingRepository struct{ db *sqlx.DB }

func NewBookingRepository(db *sqlx.DB) *BookingRepository { return &BookingRepository{db: db} }

// ext は tx があればトランザクション上で、なければ単独で実行するための実行基盤を返す
func (r *BookingRepository) ext(tx transaction.Tx) sqlx.ExtContext {
	if sqlxTx := UnwrapTx(tx); sqlxTx != nil {
		return sqlxTx
	}
	return r.db
}

func (r *BookingRepository) Create(ctx context.Context, b *booking.Booking) error {
	query := `INSERT INTO bookings (name, phone, email, slot_date, slot_time, raft_id, people, amount,
			payment_order_id, reject_reason, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4::date, $5, $6, $7, $8, $9, $10, $11, $12, $13) RETURNING id`
	err := r.db.QueryRowContext(ctx, query,
		b.Name, b.Phone, b.Email, b.SlotDate, b.SlotTime, b.RaftID, b.People, b.Amount,
		b.PaymentOrderID, b.RejectReason, string(b.Status), b.CreatedAt, b.UpdatedAt).Scan(&b.ID)
	if err != nil {
		return fmt.Errorf("予約作成に失敗: %w", err)
	}
	return nil
}

func (r *BookingRepository) GetByID(ctx context.Context, id string) (*booking.Booking, error) {
	return r.getWhere(ctx, `id = $1`, id)
}

func (r *BookingRepository) GetByPaymentOrderID(ctx context.Context, orderID string) (*booking.Booking, error) {
	return r.getWhere(ctx, `payment_order_id = $1`, orderID)
}

func (r *BookingRepository) GetByPaymentID(ctx context.Context, paymentID string) (*booking.Booking, error) {
	return r.getWhere(ctx, `payment_id = $1`, paymentID)
}

func (r *BookingRepository) getWhere(ctx context.Context, where string, arg interface{}) (*booking.Booking, error) {
	var row bookingRow
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE ` + where
	if err := r.db.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrBookingNotFound
		}
		return nil, fmt.Errorf("予約取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *BookingRepository) Update(ctx context.Context, tx transaction.Tx, b *booking.Booking) error {
	query := `UPDATE bookings
		SET payment_order_id = $1, payment_id = $2, reject_reason = $3, status = $4,
			confirmed_at = $5, updated_at = $6
		WHERE id = $7`
	result, err := r.ext(tx).ExecContext(ctx, query,
		b.PaymentOrderID, b.PaymentID, b.RejectReason, string(b.Status),
		b.ConfirmedAt, b.UpdatedAt, b.ID)
	if err != nil {
		if pgErr, ok := err.(*pq.Error); ok && pgErr.Code == "23505" {
			return booking.ErrDuplicatePayment
		}
		return fmt.Errorf("予約更新に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return booking.ErrBookingNotFound
	}
	return nil
}

// UpdateIfStatus は WHERE 句に現在状態を含めた遷移ガード付き更新
// 0件更新は並行する遷移に敗れたことを意味し、呼び出し元は保存済みの結果を読み直す
func (r *BookingRepository) UpdateIfStatus(ctx context.Context, tx transaction.Tx, b *booking.Booking, from booking.Status) error {
	query := `UPDATE bookings
		SET payment_order_id = $1, payment_id = $2, reject_reason = $3, status = $4,
			confirmed_at = $5, updated_at = $6
		WHERE id = $7 AND status = $8`
	result, err := r.ext(tx).ExecContext(ctx, query,
		b.PaymentOrderID, b.PaymentID, b.RejectReason, string(b.Status),
		b.ConfirmedAt, b.UpdatedAt, b.ID, string(from))
	if err != nil {
		if pgErr, ok := err.(*pq.Error); ok && pgErr.Code == "23505" {
			return booking.ErrDuplicatePayment
		}
		return fmt.Errorf("予約更新に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return booking.ErrStatusConflict
	}
	return nil
}

func (r *BookingRepository) ListByDate(ctx context.Context, slotDate string) ([]*booking.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE slot_date = $1::date ORDER BY slot_time, created_at`
	return r.listQuery(ctx, query, slotDate)
}

func (r *BookingRepository) ListAll(ctx context.Context, limit, offset int) ([]*booking.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	return r.listQuery(ctx, query, limit, offset)
}

func (r *BookingRepository) ListByStatus(ctx context.Context, status booking.Status) ([]*booking.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE status = $1 ORDER BY created_at DESC`
	return r.listQuery(ctx, query, string(status))
}

func (r *BookingRepository) listQuery(ctx context.Context, query string, args ...interface{}) ([]*booking.Booking, error) {
	var rows []bookingRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("予約一覧取得に失敗: %w", err)
	}
	bookings := make([]*booking.Booking, len(rows))
	for i, row := range rows {
		bookings[i] = row.toEntity()
	}
	return bookings, nil
}

// MarkExpired は決済待ちのまま放置された予約を拒否状態にする
// status のガードをSQLに置くことで、遅れて届いたコールバックで確定済みの予約を上書きしない
func (r *BookingRepository) MarkExpired(ctx context.Context, olderThan time.Duration) (int, error) {
	query := `UPDATE bookings
		SET status = $1, reject_reason = $2, updated_at = NOW()
		WHERE status = $3 AND updated_at < NOW() - $4 * INTERVAL '1 second'`
	result, err := r.db.ExecContext(ctx, query,
		string(booking.StatusRejected), "決済がタイムアウトしました",
		string(booking.StatusPendingPayment), olderThan.Seconds())
	if err != nil {
		return 0, fmt.Errorf("期限切れ予約の更新に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	return int(rows), nil
}

var _ booking.Repository = (*BookingRepository)(nil)
