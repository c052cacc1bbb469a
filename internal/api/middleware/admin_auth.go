package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

// SessionValidator はセッショントークンを検証するインターフェース
type SessionValidator interface {
	CheckSession(ctx context.Context, token string) (string, error)
}

// AdminUsernameKey は認証済みユーザー名を保持するコンテキストキー
const AdminUsernameKey = "admin_username"

// AdminSessionAuth は管理者セッションクッキーを検証するミドルウェア
// 検証に成功するとユーザー名をコンテキストに格納する
func AdminSessionAuth(cookieName string, validator SessionValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(cookieName)
			if err != nil || cookie.Value == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "管理者セッションが必要です")
			}
			username, err := validator.CheckSession(c.Request().Context(), cookie.Value)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "セッションが無効です")
			}
			c.Set(AdminUsernameKey, username)
			return next(c)
		}
	}
}
