package application

import (
	"context"
	"crypto/subtle"

	"github.com/sanosuguru/go-river-raft-reservation/internal/config"
	"github.com/sanosuguru/go-river-raft-reservation/internal/domain/booking"
	"github.com/sanosuguru/go-river-raft-reservation/internal/domain/policy"
	redisinfra "github.com/sanosuguru/go-river-raft-reservation/internal/infrastructure/redis"
)

// AdminService は管理者向けの認証・ポリシー・参照系を提供する
type AdminService struct {
	policyStore policy.Store
	bookingRepo booking.Repository
	sessions    *redisinfra.SessionStore
	adminCfg    *config.AdminConfig
}

func NewAdminService(ps policy.Store, br booking.Repository, sessions *redisinfra.SessionStore, adminCfg *config.AdminConfig) *AdminService {
	return &AdminService{policyStore: ps, bookingRepo: br, sessions: sessions, adminCfg: adminCfg}
}

// Login は資格情報を検証し、セッショントークンを発行する
func (s *AdminService) Login(ctx context.Context, username, password string) (string, error) {
	// タイミング攻撃を防ぐため ConstantTimeCompare を使用
	userMatch := subtle.ConstantTimeCompare([]byte(username), []byte(s.adminCfg.Username)) == 1
	passMatch := subtle.ConstantTimeCompare([]byte(password), []byte(s.adminCfg.Password)) == 1
	if s.adminCfg.Password == "" || !userMatch || !passMatch {
		return "", policy.ErrInvalidCredentials
	}
	return s.sessions.Create(ctx, username)
}

// CheckSession はセッショントークンを検証し、ユーザー名を返す
func (s *AdminService) CheckSession(ctx context.Context, token string) (string, error) {
	return s.sessions.Validate(ctx, token)
}

// Logout はセッションを破棄する
func (s *AdminService) Logout(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token)
}

// BookingStatus は予約停止フラグの現在値を返す
func (s *AdminService) BookingStatus(ctx context.Context) (bool, error) {
	return s.policyStore.Disabled(ctx)
}

// SetBookingStatus は予約停止フラグを更新し、新しい値を返す
// 進行中の予約には影響しない（決済待ちの予約はそのまま確定し得る）
func (s *AdminService) SetBookingStatus(ctx context.Context, disabled bool) (bool, error) {
	return s.policyStore.SetDisabled(ctx, disabled)
}

// ListAllBookings は予約一覧を新しい順に取得する
func (s *AdminService) ListAllBookings(ctx context.Context, limit, offset int) ([]*booking.Booking, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	return s.bookingRepo.ListAll(ctx, limit, offset)
}

// ListBookingsForDate は指定日の予約一覧を取得する（翌日分の運行準備に使う）
func (s *AdminService) ListBookingsForDate(ctx context.Context, slotDate string) ([]*booking.Booking, error) {
	return s.bookingRepo.ListByDate(ctx, slotDate)
}

// ListFailedBookings は決済成功後に座席を確保できなかった予約一覧を取得する
// 返金照合のため、この一覧は管理者に必ず見える形で提供する
func (s *AdminService) ListFailedBookings(ctx context.Context) ([]*booking.Booking, error) {
	return s.bookingRepo.ListByStatus(ctx, booking.StatusFailedAfterPayment)
}
