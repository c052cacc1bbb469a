package payment

import (
	"context"
	"errors"
)

// Payment ドメインのエラー定義
var (
	ErrSignatureMismatch = errors.New("決済シグネチャが一致しません")
	ErrOrderCreateFailed = errors.New("決済オーダーの作成に失敗しました")
)

// Order は決済ゲートウェイに作成したオーダーを表す
type Order struct {
	ID       string
	Amount   int64 // paise 単位
	Currency string
	Receipt  string
}

// Adapter は外部決済ゲートウェイのインターフェース
// 決済は非同期の外部イベントであり、コーディネーターはこの境界の内側を制御しない
// オーダー作成は在庫コミットより厳密に前に行い、コミット中に決済を待たない
type Adapter interface {
	// CreateOrder は決済オーダーを作成する
	CreateOrder(ctx context.Context, amount int64, receipt string, notes map[string]string) (*Order, error)

	// VerifySignature は成功コールバックのシグネチャを検証する
	VerifySignature(orderID, paymentID, signature string) error
}
