package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-river-raft-reservation/internal/domain/policy"
)

// PolicyRepository は管理者ポリシーのPostgreSQL実装
// admin_policy は単一行テーブルで、プロセス全体の予約停止フラグを保持する
type PolicyRepository struct{ db *sqlx.DB }

func NewPolicyRepository(db *sqlx.DB) *PolicyRepository { return &PolicyRepository{db: db} }

func (r *PolicyRepository) Disabled(ctx context.Context) (bool, error) {
	var disabled bool
	err := r.db.GetContext(ctx, &disabled, `SELECT bookings_disabled FROM admin_policy WHERE id = 1`)
	if err != nil {
		return false, fmt.Errorf("予約停止フラグの取得に失敗: %w", err)
	}
	return disabled, nil
}

func (r *PolicyRepository) SetDisabled(ctx context.Context, disabled bool) (bool, error) {
	var newValue bool
	err := r.db.QueryRowContext(ctx,
		`UPDATE admin_policy SET bookings_disabled = $1, updated_at = NOW() WHERE id = 1 RETURNING bookings_disabled`,
		disabled).Scan(&newValue)
	if err != nil {
		return false, fmt.Errorf("予約停止フラグの更新に失敗: %w", err)
	}
	return newValue, nil
}

var _ policy.Store = (*PolicyRepository)(nil)
