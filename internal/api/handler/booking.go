package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-river-raft-reservation/internal/application"
	"github.com/sanosuguru/go-river-raft-reservation/internal/domain/booking"
)

// BookingHandler は予約作成・参照のハンドラー
type BookingHandler struct {
	service ReservationServiceInterface
	keyID   string // チェックアウトUIに渡す決済ゲートウェイの公開キー
}

func NewBookingHandler(s ReservationServiceInterface, keyID string) *BookingHandler {
	return &BookingHandler{service: s, keyID: keyID}
}

type CreateBookingRequest struct {
	Name     string `json:"name" validate:"required"`
	Phone    string `json:"phone" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	SlotDate string `json:"slot_date" validate:"required"`
	SlotTime string `json:"slot_time" validate:"required"`
	RaftID   int    `json:"raft_id" validate:"required,min=1"`
	People   int    `json:"people" validate:"required,min=1,max=6"`
}

type BookingResponse struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	SlotDate     string     `json:"slot_date"`
	SlotTime     string     `json:"slot_time"`
	RaftID       int        `json:"raft_id"`
	People       int        `json:"people"`
	Amount       int64      `json:"amount"`
	Status       string     `json:"status"`
	PaymentID    *string    `json:"payment_id,omitempty"`
	RejectReason string     `json:"reject_reason,omitempty"`
	ConfirmedAt  *time.Time `json:"confirmed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

type PaymentOrderResponse struct {
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"key_id"`
}

type CreateBookingResponse struct {
	Booking      BookingResponse      `json:"booking"`
	PaymentOrder PaymentOrderResponse `json:"payment_order"`
}

func toBookingResponse(b *booking.Booking) BookingResponse {
	return BookingResponse{
		ID:           b.ID,
		Name:         b.Name,
		SlotDate:     b.SlotDate,
		SlotTime:     b.SlotTime,
		RaftID:       b.RaftID,
		People:       b.People,
		Amount:       b.Amount,
		Status:       string(b.Status),
		PaymentID:    b.PaymentID,
		RejectReason: b.RejectReason,
		ConfirmedAt:  b.ConfirmedAt,
		CreatedAt:    b.CreatedAt,
	}
}

// Create はドラフト予約を作成し、決済オーダーを発行する
// POST /api/v1/bookings
func (h *BookingHandler) Create(c echo.Context) error {
	var req CreateBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	out, err := h.service.CreateBooking(c.Request().Context(), application.CreateBookingInput{
		Name:     req.Name,
		Phone:    req.Phone,
		Email:    req.Email,
		SlotDate: req.SlotDate,
		SlotTime: req.SlotTime,
		RaftID:   req.RaftID,
		People:   req.People,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, CreateBookingResponse{
		Booking: toBookingResponse(out.Booking),
		PaymentOrder: PaymentOrderResponse{
			OrderID:  out.Order.ID,
			Amount:   out.Order.Amount,
			Currency: out.Order.Currency,
			KeyID:    h.keyID,
		},
	})
}

// GetByID は予約を取得する
// GET /api/v1/bookings/:id
func (h *BookingHandler) GetByID(c echo.Context) error {
	b, err := h.service.GetBooking(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toBookingResponse(b))
}
