package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-river-raft-reservation/internal/application"
	"github.com/sanosuguru/go-river-raft-reservation/internal/domain/booking"
	"github.com/sanosuguru/go-river-raft-reservation/internal/domain/payment"
)

// MockReservationService はReservationServiceInterfaceのモック
type MockReservationService struct {
	mock.Mock
}

func (m *MockReservationService) CreateBooking(ctx context.Context, input application.CreateBookingInput) (*application.CreateBookingOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*application.CreateBookingOutput), args.Error(1)
}

func (m *MockReservationService) ConfirmPayment(ctx context.Context, input application.ConfirmPaymentInput) (*booking.Booking, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockReservationService) CancelPayment(ctx context.Context, orderID string) (*booking.Booking, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockReservationService) GetBooking(ctx context.Context, id string) (*booking.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func testPendingBooking() *booking.Booking {
	b := booking.NewBooking("山田太郎", "9876543210", "taro@example.com", "2025-07-01", "10:00", 2, 6, 600000)
	b.ID = "booking-1"
	b.CreatedAt = time.Now()
	if err := b.BeginPayment("order_1"); err != nil {
		panic(err)
	}
	return b
}

func TestBookingHandler_Create(t *testing.T) {
	e := NewTestEcho()

	validBody := `{
		"name": "山田太郎",
		"phone": "9876543210",
		"email": "taro@example.com",
		"slot_date": "2025-07-01",
		"slot_time": "10:00",
		"raft_id": 2,
		"people": 6
	}`

	t.Run("正常に予約と決済オーダーを作成できる", func(t *testing.T) {
		mockService := new(MockReservationService)
		b := testPendingBooking()
		mockService.On("CreateBooking", mock.Anything, mock.AnythingOfType("application.CreateBookingInput")).
			Return(&application.CreateBookingOutput{
				Booking: b,
				Order:   &payment.Order{ID: "order_1", Amount: 600000, Currency: "INR"},
			}, nil)

		handler := NewBookingHandler(mockService, "rzp_test_key")

		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(validBody))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := handler.Create(c)

		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, rec.Code)

		var resp CreateBookingResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "booking-1", resp.Booking.ID)
		assert.Equal(t, "pending_payment", resp.Booking.Status)
		assert.Equal(t, "order_1", resp.PaymentOrder.OrderID)
		assert.Equal(t, "rzp_test_key", resp.PaymentOrder.KeyID)

		mockService.AssertExpectations(t)
	})

	t.Run("人数が上限を超える場合400", func(t *testing.T) {
		mockService := new(MockReservationService)
		handler := NewBookingHandler(mockService, "rzp_test_key")

		body := strings.Replace(validBody, `"people": 6`, `"people": 7`, 1)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := handler.Create(c)

		require.Error(t, err)
		he, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusBadRequest, he.Code)
		mockService.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
	})

	t.Run("受付停止中はドメインエラーをそのまま返す", func(t *testing.T) {
		mockService := new(MockReservationService)
		mockService.On("CreateBooking", mock.Anything, mock.AnythingOfType("application.CreateBookingInput")).
			Return(nil, booking.ErrBookingsDisabled)

		handler := NewBookingHandler(mockService, "rzp_test_key")

		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(validBody))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := handler.Create(c)

		assert.ErrorIs(t, err, booking.ErrBookingsDisabled)
	})

	t.Run("不正なJSONで400", func(t *testing.T) {
		mockService := new(MockReservationService)
		handler := NewBookingHandler(mockService, "rzp_test_key")

		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader("invalid"))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := handler.Create(c)

		require.Error(t, err)
		he, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusBadRequest, he.Code)
	})
}

func TestBookingHandler_GetByID(t *testing.T) {
	e := NewTestEcho()

	t.Run("正常に予約を取得できる", func(t *testing.T) {
		mockService := new(MockReservationService)
		mockService.On("GetBooking", mock.Anything, "booking-1").Return(testPendingBooking(), nil)

		handler := NewBookingHandler(mockService, "rzp_test_key")

		req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/booking-1", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues("booking-1")

		err := handler.GetByID(c)

		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp BookingResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "booking-1", resp.ID)
		mockService.AssertExpectations(t)
	})

	t.Run("予約が見つからない場合はドメインエラーを返す", func(t *testing.T) {
		mockService := new(MockReservationService)
		mockService.On("GetBooking", mock.Anything, "nonexistent").Return(nil, booking.ErrBookingNotFound)

		handler := NewBookingHandler(mockService, "rzp_test_key")

		req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/nonexistent", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues("nonexistent")

		err := handler.GetByID(c)

		assert.ErrorIs(t, err, booking.ErrBookingNotFound)
	})
}
