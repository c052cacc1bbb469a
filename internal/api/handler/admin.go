package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-river-raft-reservation/internal/domain/booking"
)

// SessionCookieName は管理者セッショントークンを保持するクッキー名
const SessionCookieName = "admin_session"

// AdminHandler は管理者向けAPIのハンドラー
type AdminHandler struct {
	service    AdminServiceInterface
	sessionTTL time.Duration
}

func NewAdminHandler(s AdminServiceInterface, sessionTTL time.Duration) *AdminHandler {
	return &AdminHandler{service: s, sessionTTL: sessionTTL}
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login は管理者資格情報を検証し、セッションクッキーを発行する
// POST /api/v1/admin-auth/login
func (h *AdminHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	token, err := h.service.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(h.sessionTTL),
	})
	return c.JSON(http.StatusOK, map[string]string{"message": "ログインしました"})
}

// Logout はセッションを破棄し、クッキーを無効化する
// POST /api/v1/admin-auth/logout
func (h *AdminHandler) Logout(c echo.Context) error {
	if cookie, err := c.Cookie(SessionCookieName); err == nil {
		if err := h.service.Logout(c.Request().Context(), cookie.Value); err != nil {
			return err
		}
	}
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	return c.JSON(http.StatusOK, map[string]string{"message": "ログアウトしました"})
}

// Check は現在のセッションが有効かを返す
// GET /api/v1/admin-auth/check
func (h *AdminHandler) Check(c echo.Context) error {
	cookie, err := c.Cookie(SessionCookieName)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "セッションがありません")
	}
	username, err := h.service.CheckSession(c.Request().Context(), cookie.Value)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"username": username})
}

// PublicBookingStatus は予約停止フラグを認証なしで返す
// GET /api/v1/admin/public-booking-status
func (h *AdminHandler) PublicBookingStatus(c echo.Context) error {
	disabled, err := h.service.BookingStatus(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]bool{"disabled": disabled})
}

// BookingStatus は予約停止フラグの現在値を返す
// GET /api/v1/admin/booking-status
func (h *AdminHandler) BookingStatus(c echo.Context) error {
	disabled, err := h.service.BookingStatus(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]bool{"disabled": disabled})
}

type SetBookingStatusRequest struct {
	Disabled *bool `json:"disabled" validate:"required"`
}

// SetBookingStatus は予約停止フラグを更新する
// 進行中の決済待ち予約には影響しない
// POST /api/v1/admin/booking-status
func (h *AdminHandler) SetBookingStatus(c echo.Context) error {
	var req SetBookingStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	disabled, err := h.service.SetBookingStatus(c.Request().Context(), *req.Disabled)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]bool{"disabled": disabled})
}

// AdminBookingResponse は管理者向けの予約ビュー（連絡先を含む）
type AdminBookingResponse struct {
	BookingResponse
	Phone          string `json:"phone"`
	Email          string `json:"email"`
	PaymentOrderID string `json:"payment_order_id"`
}

func toAdminBookingResponses(bookings []*booking.Booking) []AdminBookingResponse {
	resp := make([]AdminBookingResponse, len(bookings))
	for i, b := range bookings {
		resp[i] = AdminBookingResponse{
			BookingResponse: toBookingResponse(b),
			Phone:           b.Phone,
			Email:           b.Email,
			PaymentOrderID:  b.PaymentOrderID,
		}
	}
	return resp
}

// ListBookings は予約一覧を新しい順に返す
// GET /api/v1/admin/bookings?limit=&offset=
func (h *AdminHandler) ListBookings(c echo.Context) error {
	limit, offset := intQuery(c, "limit"), intQuery(c, "offset")
	bookings, err := h.service.ListAllBookings(c.Request().Context(), limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAdminBookingResponses(bookings))
}

// ListBookingsByDate は指定日の予約一覧を返す
// GET /api/v1/admin/bookings/date/:date
func (h *AdminHandler) ListBookingsByDate(c echo.Context) error {
	bookings, err := h.service.ListBookingsForDate(c.Request().Context(), c.Param("date"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAdminBookingResponses(bookings))
}

// ListFailedBookings は決済成功後に座席を確保できなかった予約一覧を返す
// 返金照合のための一覧
// GET /api/v1/admin/bookings/failed
func (h *AdminHandler) ListFailedBookings(c echo.Context) error {
	bookings, err := h.service.ListFailedBookings(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAdminBookingResponses(bookings))
}

func intQuery(c echo.Context, name string) int {
	v, _ := strconv.Atoi(c.QueryParam(name))
	return v
}
