package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSessionValidator struct {
	username string
	err      error
}

func (s *stubSessionValidator) CheckSession(ctx context.Context, token string) (string, error) {
	return s.username, s.err
}

func TestAdminSessionAuth(t *testing.T) {
	const cookieName = "admin_session"

	t.Run("有効なセッションで通過しユーザー名を格納する", func(t *testing.T) {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/bookings", nil)
		req.AddCookie(&http.Cookie{Name: cookieName, Value: "token-1"})
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		handler := AdminSessionAuth(cookieName, &stubSessionValidator{username: "admin"})(func(c echo.Context) error {
			assert.Equal(t, "admin", c.Get(AdminUsernameKey))
			return c.String(http.StatusOK, "ok")
		})

		err := handler(c)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("クッキーがない場合401", func(t *testing.T) {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/bookings", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		handler := AdminSessionAuth(cookieName, &stubSessionValidator{username: "admin"})(func(c echo.Context) error {
			return c.String(http.StatusOK, "ok")
		})

		err := handler(c)
		require.Error(t, err)
		he, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusUnauthorized, he.Code)
	})

	t.Run("無効なセッションは401", func(t *testing.T) {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/bookings", nil)
		req.AddCookie(&http.Cookie{Name: cookieName, Value: "expired"})
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		handler := AdminSessionAuth(cookieName, &stubSessionValidator{err: errors.New("セッションが見つかりません")})(func(c echo.Context) error {
			return c.String(http.StatusOK, "ok")
		})

		err := handler(c)
		require.Error(t, err)
		he, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusUnauthorized, he.Code)
	})
}
