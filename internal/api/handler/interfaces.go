package handler

import (
	"context"

	"github.com/sanosuguru/go-river-raft-reservation/internal/application"
	"github.com/sanosuguru/go-river-raft-reservation/internal/domain/booking"
	"github.com/sanosuguru/go-river-raft-reservation/internal/domain/raft"
)

// AvailabilityServiceInterface は空き状況サービスのインターフェース
type AvailabilityServiceInterface interface {
	ListSlots(ctx context.Context, slotDate string) (raft.DaySchedule, error)
}

// ReservationServiceInterface は予約サービスのインターフェース
type ReservationServiceInterface interface {
	CreateBooking(ctx context.Context, input application.CreateBookingInput) (*application.CreateBookingOutput, error)
	ConfirmPayment(ctx context.Context, input application.ConfirmPaymentInput) (*booking.Booking, error)
	CancelPayment(ctx context.Context, orderID string) (*booking.Booking, error)
	GetBooking(ctx context.Context, id string) (*booking.Booking, error)
}

// AdminServiceInterface は管理者サービスのインターフェース
type AdminServiceInterface interface {
	Login(ctx context.Context, username, password string) (string, error)
	CheckSession(ctx context.Context, token string) (string, error)
	Logout(ctx context.Context, token string) error
	BookingStatus(ctx context.Context) (bool, error)
	SetBookingStatus(ctx context.Context, disabled bool) (bool, error)
	ListAllBookings(ctx context.Context, limit, offset int) ([]*booking.Booking, error)
	ListBookingsForDate(ctx context.Context, slotDate string) ([]*booking.Booking, error)
	ListFailedBookings(ctx context.Context) ([]*booking.Booking, error)
}
