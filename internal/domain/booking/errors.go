package booking

import "errors"

// Booking ドメインのエラー定義
var (
	ErrBookingNotFound        = errors.New("予約が見つかりません")
	ErrBookingNotDraft        = errors.New("予約はドラフト状態ではありません")
	ErrBookingNotPending      = errors.New("予約は決済待ちではありません")
	ErrBookingTerminal        = errors.New("予約は既に終端状態です")
	ErrBookingsDisabled       = errors.New("現在新規予約の受付を停止しています")
	ErrAvailabilityRace       = errors.New("決済後に座席が確保できませんでした")
	ErrStatusConflict         = errors.New("予約は並行する処理によって既に遷移しています")
	ErrDuplicatePayment       = errors.New("同じ決済参照の予約が既に処理されています")
	ErrNameRequired           = errors.New("氏名は必須です")
	ErrPhoneRequired          = errors.New("電話番号は必須です")
	ErrEmailRequired          = errors.New("メールアドレスは必須です")
	ErrDateRequired           = errors.New("日付は必須です")
	ErrTimeRequired           = errors.New("時間帯は必須です")
	ErrInvalidPeopleCount     = errors.New("人数は1〜6である必要があります")
	ErrInvalidAmount          = errors.New("金額は0以上である必要があります")
	ErrPaymentOrderIDRequired = errors.New("決済オーダーIDは必須です")
	ErrPaymentIDRequired      = errors.New("決済IDは必須です")
)
