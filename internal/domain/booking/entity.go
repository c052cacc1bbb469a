package booking

import "time"

// Status は予約の状態を表す
type Status string

const (
	// StatusDraft は仮チェック通過直後、決済開始前の状態
	StatusDraft Status = "draft"
	// StatusPendingPayment は決済ゲートウェイの非同期応答待ちの状態
	StatusPendingPayment Status = "pending_payment"
	// StatusConfirmed は決済成功かつ在庫コミット成功の終端状態
	StatusConfirmed Status = "confirmed"
	// StatusFailedAfterPayment は決済成功後に在庫コミットへ敗れた終端状態
	// 代金は回収済みで座席は確保されていないため、外部での返金照合が必要
	StatusFailedAfterPayment Status = "failed_after_payment"
	// StatusRejected は決済前の拒否または決済キャンセルの終端状態
	StatusRejected Status = "rejected"
)

// Booking は予約エンティティを表す
// 監査証跡のため一度作成された予約は削除されない
type Booking struct {
	ID             string
	Name           string
	Phone          string
	Email          string
	SlotDate       string // "2006-01-02" 形式
	SlotTime       string // "15:04" 形式
	RaftID         int
	People         int
	Amount         int64 // paise 単位
	PaymentOrderID string
	PaymentID      *string
	RejectReason   string
	Status         Status
	ConfirmedAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewBooking はドラフト状態の新しい予約を作成する
func NewBooking(name, phone, email, slotDate, slotTime string, raftID, people int, amount int64) *Booking {
	now := time.Now()
	return &Booking{
		Name:      name,
		Phone:     phone,
		Email:     email,
		SlotDate:  slotDate,
		SlotTime:  slotTime,
		RaftID:    raftID,
		People:    people,
		Amount:    amount,
		Status:    StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsTerminal は予約が終端状態かを返す
func (b *Booking) IsTerminal() bool {
	switch b.Status {
	case StatusConfirmed, StatusFailedAfterPayment, StatusRejected:
		return true
	}
	return false
}

// BeginPayment は決済オーダーを紐付けて決済待ち状態へ遷移する
func (b *Booking) BeginPayment(orderID string) error {
	if b.Status != StatusDraft {
		return ErrBookingNotDraft
	}
	if orderID == "" {
		return ErrPaymentOrderIDRequired
	}
	b.Status = StatusPendingPayment
	b.PaymentOrderID = orderID
	b.UpdatedAt = time.Now()
	return nil
}

// Confirm は決済参照を保持して予約を確定する
func (b *Booking) Confirm(paymentID string) error {
	if b.Status != StatusPendingPayment {
		return ErrBookingNotPending
	}
	if paymentID == "" {
		return ErrPaymentIDRequired
	}
	now := time.Now()
	b.Status = StatusConfirmed
	b.PaymentID = &paymentID
	b.ConfirmedAt = &now
	b.UpdatedAt = now
	return nil
}

// FailAfterPayment は決済成功後の在庫コミット失敗を記録する
// 返金照合のため決済参照は保持したままにする
func (b *Booking) FailAfterPayment(paymentID string) error {
	if b.Status != StatusPendingPayment {
		return ErrBookingNotPending
	}
	if paymentID == "" {
		return ErrPaymentIDRequired
	}
	b.Status = StatusFailedAfterPayment
	b.PaymentID = &paymentID
	b.UpdatedAt = time.Now()
	return nil
}

// Reject は予約を拒否する（在庫への影響はない）
func (b *Booking) Reject(reason string) error {
	if b.IsTerminal() {
		return ErrBookingTerminal
	}
	b.Status = StatusRejected
	b.RejectReason = reason
	b.UpdatedAt = time.Now()
	return nil
}

// Validate は予約の検証を行う
func (b *Booking) Validate() error {
	if b.Name == "" {
		return ErrNameRequired
	}
	if b.Phone == "" {
		return ErrPhoneRequired
	}
	if b.Email == "" {
		return ErrEmailRequired
	}
	if b.SlotDate == "" {
		return ErrDateRequired
	}
	if b.SlotTime == "" {
		return ErrTimeRequired
	}
	if b.People < 1 || b.People > 6 {
		return ErrInvalidPeopleCount
	}
	if b.Amount < 0 {
		return ErrInvalidAmount
	}
	return nil
}
