package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-river-raft-reservation/internal/api"
	"github.com/sanosuguru/go-river-raft-reservation/internal/api/handler"
	"github.com/sanosuguru/go-river-raft-reservation/internal/api/middleware"
	"github.com/sanosuguru/go-river-raft-reservation/internal/application"
	"github.com/sanosuguru/go-river-raft-reservation/internal/config"
	"github.com/sanosuguru/go-river-raft-reservation/internal/infrastructure/postgres"
	"github.com/sanosuguru/go-river-raft-reservation/internal/infrastructure/razorpay"
	redisinfra "github.com/sanosuguru/go-river-raft-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/go-river-raft-reservation/internal/pkg/logger"
	"github.com/sanosuguru/go-river-raft-reservation/internal/pkg/metrics"
	"github.com/sanosuguru/go-river-raft-reservation/internal/worker"
)

func main() {
	cfg := config.Load()

	// ロガー初期化
	log := logger.NewLogger(os.Getenv("APP_ENV"))
	logger.Set(log)
	defer logger.Sync()

	// メトリクス初期化
	m := metrics.Init()

	// PostgreSQL接続
	db, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		logger.Fatal("データベース接続に失敗", zap.Error(err))
	}
	defer db.Close()

	// マイグレーション実行
	if err := postgres.RunMigrations(db.DB, "migrations"); err != nil {
		logger.Fatal("マイグレーションに失敗", zap.Error(err))
	}

	// Redis接続
	redisClient := redisinfra.NewClient(&cfg.Redis)
	defer redisClient.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisinfra.Ping(ctx, redisClient); err != nil {
		cancel()
		logger.Fatal("Redis接続に失敗", zap.Error(err))
	}
	cancel()

	// インフラ層
	lockManager := redisinfra.NewLockManager(redisClient)
	availabilityCache := redisinfra.NewAvailabilityCache(redisClient)
	sessionStore := redisinfra.NewSessionStore(redisClient, cfg.Admin.SessionTTL)

	raftRepo := postgres.NewRaftRepository(db)
	bookingRepo := postgres.NewBookingRepository(db)
	policyRepo := postgres.NewPolicyRepository(db)
	txManager := postgres.NewTxManager(db)

	paymentAdapter := razorpay.NewAdapter(&cfg.Payment)

	// アプリケーション層
	availabilityService := application.NewAvailabilityService(raftRepo, availabilityCache)
	reservationService := application.NewReservationService(
		txManager, bookingRepo, raftRepo, policyRepo, paymentAdapter,
		lockManager, availabilityCache, m, &cfg.Payment,
	)
	adminService := application.NewAdminService(policyRepo, bookingRepo, sessionStore, &cfg.Admin)

	// ハンドラー
	healthHandler := handler.NewHealthHandler()
	availabilityHandler := handler.NewAvailabilityHandler(availabilityService)
	bookingHandler := handler.NewBookingHandler(reservationService, cfg.Payment.KeyID)
	paymentHandler := handler.NewPaymentHandler(reservationService)
	adminHandler := handler.NewAdminHandler(adminService, cfg.Admin.SessionTTL)

	// Echo セットアップ
	e := echo.New()
	e.HideBanner = true
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	middleware.SetupMiddleware(e)
	e.Use(middleware.PrometheusMiddleware(m))

	// ルーティング
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()), middleware.MetricsBasicAuth())

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

	// 決済待ち失効ワーカー起動
	expirer := worker.NewPendingPaymentExpirer(
		reservationService,
		cfg.Booking.ExpirerInterval,
		cfg.Booking.PendingPaymentTTL,
	)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	go expirer.Start(workerCtx)

	// サーバー起動
	go func() {
		if err := e.Start(":" + cfg.Server.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("サーバー起動エラー", zap.Error(err))
		}
	}()
	logger.Info("サーバー起動", zap.String("port", cfg.Server.Port))

	// シグナル待機
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("シャットダウン開始")

	// ワーカー停止
	workerCancel()
	expirer.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("サーバーシャットダウンエラー", zap.Error(err))
	}

	logger.Info("サーバーが正常にシャットダウンしました")
}
