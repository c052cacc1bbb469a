package e2e

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestServer はE2Eテスト用のサーバー
type TestServer struct {
	Echo *echo.Echo
}

// Request はHTTPリクエストを実行
func (s *TestServer) Request(method, path string, body interface{}, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var reqBody []byte
	if body != nil {
		reqBody, _ = json.Marshal(body)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

func testDate() string {
	return time.Now().AddDate(0, 0, 7).Format("2006-01-02")
}

func createBooking(t *testing.T, server *TestServer, date string, raftID, people int) (bookingID, orderID string) {
	t.Helper()
	body := map[string]interface{}{
		"name":      "E2Eテスト利用者",
		"phone":     "9876543210",
		"email":     "e2e@example.com",
		"slot_date": date,
		"slot_time": "08:00",
		"raft_id":   raftID,
		"people":    people,
	}
	rec := server.Request("POST", "/api/v1/bookings", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp["booking"]["id"].(string), resp["payment_order"]["order_id"].(string)
}

func confirmPayment(server *TestServer, orderID, paymentID string) *httptest.ResponseRecorder {
	return server.Request("POST", "/api/v1/payments/confirm", map[string]string{
		"order_id":   orderID,
		"payment_id": paymentID,
		"signature":  testSignature,
	})
}

// TestE2E_HealthCheck はヘルスチェックをテスト
func TestE2E_HealthCheck(t *testing.T) {
	server := getTestServer(t)

	rec := server.Request("GET", "/api/v1/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
}

// TestE2E_CompleteBookingJourney は空き状況確認から予約確定までの一連の流れをテスト
func TestE2E_CompleteBookingJourney(t *testing.T) {
	server := getTestServer(t)
	date := testDate()

	// 1. 空き状況確認（初回アクセスで日次リセットが走る）
	t.Run("空き状況確認", func(t *testing.T) {
		rec := server.Request("GET", "/api/v1/bookings/slots?date="+date, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp map[string][]map[string]int
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Contains(t, resp, "08:00")
		// 8:00の枠にはグループ用3艇と単独用1艇がある
		assert.Len(t, resp["08:00"], 4)
	})

	var bookingID, orderID string

	// 2. 予約作成（6人グループ）
	t.Run("予約作成", func(t *testing.T) {
		bookingID, orderID = createBooking(t, server, date, 1, 6)
		assert.NotEmpty(t, bookingID)
		assert.NotEmpty(t, orderID)
	})

	// 3. 決済成功で予約確定
	t.Run("決済成功で予約確定", func(t *testing.T) {
		rec := confirmPayment(server, orderID, "pay_journey_1")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "confirmed", resp["status"])

		raftsUsed := resp["raftsUsed"].([]interface{})
		require.Len(t, raftsUsed, 1)
		used := raftsUsed[0].(map[string]interface{})
		assert.Equal(t, float64(1), used["raftId"])
		assert.Equal(t, float64(6), used["booked"])
	})

	// 4. 空き状況に反映されている
	t.Run("空き状況減少確認", func(t *testing.T) {
		rec := server.Request("GET", "/api/v1/bookings/slots?date="+date, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp map[string][]map[string]int
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		for _, a := range resp["08:00"] {
			if a["raftId"] == 1 {
				assert.Equal(t, 0, a["available"])
			}
		}
	})

	// 5. 予約詳細確認
	t.Run("予約詳細確認", func(t *testing.T) {
		rec := server.Request("GET", "/api/v1/bookings/"+bookingID, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "confirmed", resp["status"])
		assert.Equal(t, "pay_journey_1", resp["payment_id"])
	})
}

// TestE2E_AvailabilityRace は決済後の在庫競争をテスト
// 2つの予約が同じラフトの事前チェックを通過しても、座席を得るのは先にコミットした側だけ
func TestE2E_AvailabilityRace(t *testing.T) {
	server := getTestServer(t)
	date := testDate()

	_, orderA := createBooking(t, server, date, 1, 6)
	_, orderB := createBooking(t, server, date, 1, 6)

	t.Run("先に決済した予約が勝つ", func(t *testing.T) {
		rec := confirmPayment(server, orderA, "pay_race_a")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})

	t.Run("後から決済した予約はfailed_after_paymentになる", func(t *testing.T) {
		rec := confirmPayment(server, orderB, "pay_race_b")
		assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	})

	t.Run("敗者は返金照合の一覧に現れる", func(t *testing.T) {
		login := server.Request("POST", "/api/v1/admin-auth/login", map[string]string{
			"username": "admin", "password": "e2e-secret",
		})
		require.Equal(t, http.StatusOK, login.Code)
		cookies := login.Result().Cookies()
		require.NotEmpty(t, cookies)

		rec := server.Request("GET", "/api/v1/admin/bookings/failed", nil, cookies[0])
		require.Equal(t, http.StatusOK, rec.Code)

		var resp []map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp, 1)
		assert.Equal(t, "failed_after_payment", resp[0]["status"])
		assert.Equal(t, "pay_race_b", resp[0]["payment_id"])
	})
}

// TestE2E_IdempotentConfirm は決済コールバックの再送をテスト
func TestE2E_IdempotentConfirm(t *testing.T) {
	server := getTestServer(t)
	date := testDate()

	bookingID, orderID := createBooking(t, server, date, 2, 5)

	rec1 := confirmPayment(server, orderID, "pay_idem_1")
	require.Equal(t, http.StatusOK, rec1.Code)

	rec2 := confirmPayment(server, orderID, "pay_idem_1")
	require.Equal(t, http.StatusOK, rec2.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec2.Body.Bytes(), &resp))
	booking := resp["booking"].(map[string]interface{})
	assert.Equal(t, bookingID, booking["id"])
	assert.Equal(t, "confirmed", resp["status"])

	// 在庫は1回分しか減っていない（残1は単独予約のみ可能）
	slots := server.Request("GET", "/api/v1/bookings/slots?date="+date, nil)
	require.Equal(t, http.StatusOK, slots.Code)
	var schedule map[string][]map[string]int
	require.NoError(t, json.Unmarshal(slots.Body.Bytes(), &schedule))
	for _, a := range schedule["08:00"] {
		if a["raftId"] == 2 {
			assert.Equal(t, 1, a["available"])
		}
	}
}

// TestE2E_DeadFragment は残席2〜4の予約不可をテスト
func TestE2E_DeadFragment(t *testing.T) {
	server := getTestServer(t)
	date := testDate()

	// 6人乗りを5人で確定 → 残1
	_, order5 := createBooking(t, server, date, 1, 5)
	rec := confirmPayment(server, order5, "pay_frag_5")
	require.Equal(t, http.StatusOK, rec.Code)

	t.Run("残1は単独予約のみ可能", func(t *testing.T) {
		body := map[string]interface{}{
			"name": "単独利用者", "phone": "9876543210", "email": "solo@example.com",
			"slot_date": date, "slot_time": "08:00", "raft_id": 1, "people": 1,
		}
		rec := server.Request("POST", "/api/v1/bookings", body)
		assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	})

	t.Run("残1にグループ予約は不可", func(t *testing.T) {
		body := map[string]interface{}{
			"name": "グループ", "phone": "9876543210", "email": "group@example.com",
			"slot_date": date, "slot_time": "08:00", "raft_id": 1, "people": 5,
		}
		rec := server.Request("POST", "/api/v1/bookings", body)
		assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	})
}

// TestE2E_PaymentCancel は決済キャンセルをテスト
func TestE2E_PaymentCancel(t *testing.T) {
	server := getTestServer(t)
	date := testDate()

	bookingID, orderID := createBooking(t, server, date, 1, 6)

	rec := server.Request("POST", "/api/v1/payments/cancel", map[string]string{"order_id": orderID})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "rejected", resp["status"])

	// 在庫は減っていないので同じラフトを再予約できる
	_, orderID2 := createBooking(t, server, date, 1, 6)
	rec = confirmPayment(server, orderID2, "pay_cancel_rebook")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// キャンセルされた予約は拒否状態のまま
	detail := server.Request("GET", "/api/v1/bookings/"+bookingID, nil)
	require.Equal(t, http.StatusOK, detail.Code)
	var b map[string]interface{}
	require.NoError(t, json.Unmarshal(detail.Body.Bytes(), &b))
	assert.Equal(t, "rejected", b["status"])
}

// TestE2E_AdminBookingToggle は予約停止フラグの操作をテスト
func TestE2E_AdminBookingToggle(t *testing.T) {
	server := getTestServer(t)
	date := testDate()

	login := server.Request("POST", "/api/v1/admin-auth/login", map[string]string{
		"username": "admin", "password": "e2e-secret",
	})
	require.Equal(t, http.StatusOK, login.Code)
	cookies := login.Result().Cookies()
	require.NotEmpty(t, cookies)
	session := cookies[0]

	t.Run("認証なしでは管理APIにアクセスできない", func(t *testing.T) {
		rec := server.Request("GET", "/api/v1/admin/booking-status", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("停止フラグを有効にすると新規予約が拒否される", func(t *testing.T) {
		rec := server.Request("POST", "/api/v1/admin/booking-status",
			map[string]bool{"disabled": true}, session)
		require.Equal(t, http.StatusOK, rec.Code)

		body := map[string]interface{}{
			"name": "テスト", "phone": "9876543210", "email": "test@example.com",
			"slot_date": date, "slot_time": "08:00", "raft_id": 1, "people": 6,
		}
		createRec := server.Request("POST", "/api/v1/bookings", body)
		assert.Equal(t, http.StatusForbidden, createRec.Code)

		// 公開エンドポイントにも反映される
		public := server.Request("GET", "/api/v1/admin/public-booking-status", nil)
		require.Equal(t, http.StatusOK, public.Code)
		var resp map[string]bool
		require.NoError(t, json.Unmarshal(public.Body.Bytes(), &resp))
		assert.True(t, resp["disabled"])
	})

	t.Run("停止フラグを解除すると予約できる", func(t *testing.T) {
		rec := server.Request("POST", "/api/v1/admin/booking-status",
			map[string]bool{"disabled": false}, session)
		require.Equal(t, http.StatusOK, rec.Code)

		createBooking(t, server, date, 1, 6)
	})

	t.Run("ログアウト後はセッションが無効", func(t *testing.T) {
		rec := server.Request("POST", "/api/v1/admin-auth/logout", nil, session)
		require.Equal(t, http.StatusOK, rec.Code)

		check := server.Request("GET", "/api/v1/admin-auth/check", nil, session)
		assert.Equal(t, http.StatusUnauthorized, check.Code)
	})
}
