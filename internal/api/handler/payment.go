package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-river-raft-reservation/internal/application"
)

// PaymentHandler は決済ゲートウェイからのコールバック処理ハンドラー
type PaymentHandler struct {
	service ReservationServiceInterface
}

func NewPaymentHandler(s ReservationServiceInterface) *PaymentHandler {
	return &PaymentHandler{service: s}
}

type ConfirmPaymentRequest struct {
	OrderID   string `json:"order_id" validate:"required"`
	PaymentID string `json:"payment_id" validate:"required"`
	Signature string `json:"signature" validate:"required"`
}

// RaftUsage は確定した予約が占有した座席数
type RaftUsage struct {
	RaftID int `json:"raftId"`
	Booked int `json:"booked"`
}

type ConfirmPaymentResponse struct {
	Status    string          `json:"status"`
	Booking   BookingResponse `json:"booking"`
	RaftsUsed []RaftUsage     `json:"raftsUsed"`
}

// Confirm は決済成功コールバックを処理し、在庫をコミットする
// POST /api/v1/payments/confirm
func (h *PaymentHandler) Confirm(c echo.Context) error {
	var req ConfirmPaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	b, err := h.service.ConfirmPayment(c.Request().Context(), application.ConfirmPaymentInput{
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ConfirmPaymentResponse{
		Status:  string(b.Status),
		Booking: toBookingResponse(b),
		RaftsUsed: []RaftUsage{
			{RaftID: b.RaftID, Booked: b.People},
		},
	})
}

type CancelPaymentRequest struct {
	OrderID string `json:"order_id" validate:"required"`
}

// Cancel は決済キャンセル（チェックアウト破棄）コールバックを処理する
// POST /api/v1/payments/cancel
func (h *PaymentHandler) Cancel(c echo.Context) error {
	var req CancelPaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	b, err := h.service.CancelPayment(c.Request().Context(), req.OrderID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"status": string(b.Status)})
}
