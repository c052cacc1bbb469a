package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-river-raft-reservation/internal/domain/booking"
	"github.com/sanosuguru/go-river-raft-reservation/internal/domain/payment"
	"github.com/sanosuguru/go-river-raft-reservation/internal/domain/policy"
	"github.com/sanosuguru/go-river-raft-reservation/internal/domain/raft"
	redisinfra "github.com/sanosuguru/go-river-raft-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/go-river-raft-reservation/internal/pkg/logger"
)

// ErrorResponse はエラーレスポンスの統一フォーマット
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// statusFor はドメインエラーをHTTPステータスコードに対応付ける
// ハンドラーはドメインエラーをそのまま返してよい
func statusFor(err error) int {
	switch {
	case errors.Is(err, booking.ErrAvailabilityRace),
		errors.Is(err, raft.ErrIneligibleCount),
		errors.Is(err, booking.ErrBookingNotPending),
		errors.Is(err, booking.ErrBookingNotDraft),
		errors.Is(err, booking.ErrBookingTerminal),
		errors.Is(err, booking.ErrStatusConflict),
		errors.Is(err, booking.ErrDuplicatePayment):
		return http.StatusConflict
	case errors.Is(err, booking.ErrBookingNotFound),
		errors.Is(err, raft.ErrStateNotFound):
		return http.StatusNotFound
	case errors.Is(err, booking.ErrBookingsDisabled):
		return http.StatusForbidden
	case errors.Is(err, policy.ErrInvalidCredentials),
		errors.Is(err, redisinfra.ErrSessionNotFound):
		return http.StatusUnauthorized
	case errors.Is(err, raft.ErrInvalidDate),
		errors.Is(err, raft.ErrSlotMismatch),
		errors.Is(err, payment.ErrSignatureMismatch):
		return http.StatusBadRequest
	case errors.Is(err, payment.ErrOrderCreateFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// CustomHTTPErrorHandler はカスタムエラーハンドラー
// echo.HTTPError 以外のエラーはドメインエラーとしてステータスを解決する
func CustomHTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var (
		code    int
		message string
	)

	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		} else {
			message = http.StatusText(code)
		}
	} else {
		code = statusFor(err)
		if code == http.StatusInternalServerError {
			message = "内部サーバーエラー"
		} else {
			message = err.Error()
		}
	}

	// エラーログを出力（5xx エラーの場合）
	if code >= 500 {
		logger.Error("サーバーエラー",
			zap.Int("status", code),
			zap.String("path", c.Request().URL.Path),
			zap.Error(err),
		)
	}

	if err := c.JSON(code, ErrorResponse{
		Error: message,
		Code:  code,
	}); err != nil {
		logger.Error("エラーレスポンス送信失敗", zap.Error(err))
	}
}
