package config

import (
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション設定を表す
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Payment  PaymentConfig
	Admin    AdminConfig
	Booking  BookingConfig
}

// ServerConfig はサーバー設定
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig はデータベース設定
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig はRedis設定
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// PaymentConfig は決済ゲートウェイ（Razorpay）設定
type PaymentConfig struct {
	KeyID     string
	KeySecret string
	Currency  string
	SeatPrice int64 // 1席あたりの料金（ルピー単位）
}

// AdminConfig は管理者認証設定
type AdminConfig struct {
	Username   string
	Password   string
	SessionTTL time.Duration
}

// BookingConfig は予約まわりの設定
// 運行時間帯そのものは rafts テーブルの定義が正となる
type BookingConfig struct {
	// PendingPaymentTTL は決済待ちのまま放置された予約を拒否するまでの時間
	PendingPaymentTTL time.Duration
	// ExpirerInterval は決済待ち失効ワーカーの実行間隔
	ExpirerInterval time.Duration
}

// Load は環境変数から設定を読み込む
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "raft_reservation"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Payment: PaymentConfig{
			KeyID:     getEnv("RAZORPAY_KEY_ID", ""),
			KeySecret: getEnv("RAZORPAY_KEY_SECRET", ""),
			Currency:  "INR",
			SeatPrice: getInt64Env("SEAT_PRICE", 1000),
		},
		Admin: AdminConfig{
			Username:   getEnv("ADMIN_USER", "admin"),
			Password:   getEnv("ADMIN_PASSWORD", ""),
			SessionTTL: getDurationEnv("ADMIN_SESSION_TTL", 12*time.Hour),
		},
		Booking: BookingConfig{
			PendingPaymentTTL: getDurationEnv("PENDING_PAYMENT_TTL", 30*time.Minute),
			ExpirerInterval:   getDurationEnv("EXPIRER_INTERVAL", time.Minute),
		},
	}
}

// DSN はPostgreSQL接続文字列を返す
func (c *DatabaseConfig) DSN() string {
	return "host=" + c.Host +
		" port=" + c.Port +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.DBName +
		" sslmode=" + c.SSLMode
}

// Addr はRedis接続アドレスを返す
func (c *RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// AmountFor は人数分の決済金額を paise 単位で返す
func (c *PaymentConfig) AmountFor(people int) int64 {
	return c.SeatPrice * int64(people) * 100
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
