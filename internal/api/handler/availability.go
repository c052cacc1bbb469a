package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// AvailabilityHandler は空き状況の参照ハンドラー
type AvailabilityHandler struct {
	service AvailabilityServiceInterface
}

func NewAvailabilityHandler(s AvailabilityServiceInterface) *AvailabilityHandler {
	return &AvailabilityHandler{service: s}
}

// ListSlots は指定日の時間帯ごとの空き状況を返す
// GET /api/v1/bookings/slots?date=2025-07-01
func (h *AvailabilityHandler) ListSlots(c echo.Context) error {
	date := c.QueryParam("date")
	if date == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "dateクエリパラメータが必要です")
	}
	schedule, err := h.service.ListSlots(c.Request().Context(), date)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, schedule)
}
