package razorpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"

	"github.com/sanosuguru/go-river-raft-reservation/internal/config"
	"github.com/sanosuguru/go-river-raft-reservation/internal/domain/payment"
)

// Adapter は Razorpay を使った決済アダプター
// オーダー作成までが同期で、決済自体はゲートウェイ側の非同期イベントとして届く
type Adapter struct {
	client    *razorpay.Client
	keySecret string
	currency  string
}

// NewAdapter は新しいAdapterインスタンスを作成する
func NewAdapter(cfg *config.PaymentConfig) *Adapter {
	return &Adapter{
		client:    razorpay.NewClient(cfg.KeyID, cfg.KeySecret),
		keySecret: cfg.KeySecret,
		currency:  cfg.Currency,
	}
}

// CreateOrder は決済オーダーを作成する
func (a *Adapter) CreateOrder(ctx context.Context, amount int64, receipt string, notes map[string]string) (*payment.Order, error) {
	data := map[string]interface{}{
		"amount":   amount,
		"currency": a.currency,
		"receipt":  receipt,
	}
	if len(notes) > 0 {
		data["notes"] = notes
	}

	body, err := a.client.Order.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrOrderCreateFailed, err)
	}

	orderID, ok := body["id"].(string)
	if !ok || orderID == "" {
		return nil, payment.ErrOrderCreateFailed
	}

	return &payment.Order{
		ID:       orderID,
		Amount:   amount,
		Currency: a.currency,
		Receipt:  receipt,
	}, nil
}

// VerifySignature は成功コールバックのシグネチャを検証する
// Razorpay の署名は "orderID|paymentID" をキーシークレットで HMAC-SHA256 したもの
func (a *Adapter) VerifySignature(orderID, paymentID, signature string) error {
	mac := hmac.New(sha256.New, []byte(a.keySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return payment.ErrSignatureMismatch
	}
	return nil
}

var _ payment.Adapter = (*Adapter)(nil)
