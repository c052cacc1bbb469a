package e2e

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/sanosuguru/go-river-raft-reservation/internal/api"
	"github.com/sanosuguru/go-river-raft-reservation/internal/api/handler"
	"github.com/sanosuguru/go-river-raft-reservation/internal/api/middleware"
	"github.com/sanosuguru/go-river-raft-reservation/internal/application"
	"github.com/sanosuguru/go-river-raft-reservation/internal/config"
	"github.com/sanosuguru/go-river-raft-reservation/internal/domain/payment"
	"github.com/sanosuguru/go-river-raft-reservation/internal/infrastructure/postgres"
	redisinfra "github.com/sanosuguru/go-river-raft-reservation/internal/infrastructure/redis"
)

// stubPaymentAdapter は外部決済ゲートウェイの代わりをするスタブ
// オーダーIDを連番で発行し、シグネチャ "test-signature" のみを受理する
type stubPaymentAdapter struct {
	seq atomic.Int64
}

const testSignature = "test-signature"

func (a *stubPaymentAdapter) CreateOrder(ctx context.Context, amount int64, receipt string, notes map[string]string) (*payment.Order, error) {
	n := a.seq.Add(1)
	return &payment.Order{
		ID:       fmt.Sprintf("order_e2e_%d", n),
		Amount:   amount,
		Currency: "INR",
		Receipt:  receipt,
	}, nil
}

func (a *stubPaymentAdapter) VerifySignature(orderID, paymentID, signature string) error {
	if signature != testSignature {
		return payment.ErrSignatureMismatch
	}
	return nil
}

var (
	testServer  *TestServer
	testDB      *sqlx.DB
	redisClient *redis.Client
)

// TestMain はE2Eテストのエントリポイント
// パッケージ全体で1回だけサーバーを起動することで高速化
func TestMain(m *testing.M) {
	os.Setenv("ADMIN_PASSWORD", "e2e-secret")
	cfg := config.Load()

	// DB接続
	db, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		os.Exit(0) // DB未起動時はスキップ
	}
	testDB = db

	if err := postgres.RunMigrations(db.DB, "../migrations"); err != nil {
		db.Close()
		os.Exit(0)
	}

	// Redis接続
	rc := redisinfra.NewClient(&cfg.Redis)
	if err := redisinfra.Ping(context.Background(), rc); err != nil {
		db.Close()
		os.Exit(0) // Redis未起動時はスキップ
	}
	redisClient = rc

	// サービス初期化
	lockManager := redisinfra.NewLockManager(redisClient)
	availabilityCache := redisinfra.NewAvailabilityCache(redisClient)
	sessionStore := redisinfra.NewSessionStore(redisClient, cfg.Admin.SessionTTL)

	raftRepo := postgres.NewRaftRepository(db)
	bookingRepo := postgres.NewBookingRepository(db)
	policyRepo := postgres.NewPolicyRepository(db)
	txManager := postgres.NewTxManager(db)

	availabilityService := application.NewAvailabilityService(raftRepo, availabilityCache)
	reservationService := application.NewReservationService(
		txManager, bookingRepo, raftRepo, policyRepo, &stubPaymentAdapter{},
		lockManager, availabilityCache, nil, &cfg.Payment,
	)
	adminService := application.NewAdminService(policyRepo, bookingRepo, sessionStore, &cfg.Admin)

	healthHandler := handler.NewHealthHandler()
	availabilityHandler := handler.NewAvailabilityHandler(availabilityService)
	bookingHandler := handler.NewBookingHandler(reservationService, cfg.Payment.KeyID)
	paymentHandler := handler.NewPaymentHandler(reservationService)
	adminHandler := handler.NewAdminHandler(adminService, cfg.Admin.SessionTTL)

	// Echo セットアップ
	e := echo.New()
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	middleware.SetupMiddleware(e)

	v1 := e.Group("/api/v1")
	v1.GET("/health", healthHandler.Check)

	v1.GET("/bookings/slots", availabilityHandler.ListSlots)
	v1.POST("/bookings", bookingHandler.Create)
	v1.GET("/bookings/:id", bookingHandler.GetByID)

	v1.POST("/payments/confirm", paymentHandler.Confirm)
	v1.POST("/payments/cancel", paymentHandler.Cancel)

	v1.POST("/admin-auth/login", adminHandler.Login)
	v1.POST("/admin-auth/logout", adminHandler.Logout)
	v1.GET("/admin-auth/check", adminHandler.Check)

	v1.GET("/admin/public-booking-status", adminHandler.PublicBookingStatus)

	admin := v1.Group("/admin", middleware.AdminSessionAuth(handler.SessionCookieName, adminService))
	admin.GET("/booking-status", adminHandler.BookingStatus)
	admin.POST("/booking-status", adminHandler.SetBookingStatus)
	admin.GET("/bookings", adminHandler.ListBookings)
	admin.GET("/bookings/date/:date", adminHandler.ListBookingsByDate)
	admin.GET("/bookings/failed", adminHandler.ListFailedBookings)

	testServer = &TestServer{Echo: e}

	// テスト実行
	code := m.Run()

	// 最終クリーンアップ
	cleanupTables()
	redisClient.Close()
	db.Close()

	os.Exit(code)
}

// cleanupTables はテーブルと停止フラグを初期状態に戻す
func cleanupTables() {
	testDB.Exec("TRUNCATE TABLE bookings")
	testDB.Exec("TRUNCATE TABLE raft_states")
	testDB.Exec("UPDATE admin_policy SET bookings_disabled = FALSE WHERE id = 1")
	redisClient.FlushDB(context.Background())
}

// getTestServer は共有サーバーを取得（テスト前にテーブルをクリーンアップ）
func getTestServer(t *testing.T) *TestServer {
	t.Helper()
	if testServer == nil {
		t.Skip("テスト環境が利用できません")
	}
	cleanupTables()
	return testServer
}
