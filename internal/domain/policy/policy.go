package policy

import (
	"context"
	"errors"
)

// ErrInvalidCredentials は管理者認証の失敗を表す
var ErrInvalidCredentials = errors.New("ユーザー名またはパスワードが正しくありません")

// Store は管理者ポリシーストアのインターフェース
// プロセス全体で共有される単一の予約停止フラグを保持する
// 読み書きは進行中の予約と同期されず、結果整合でよい（仕様）
type Store interface {
	// Disabled は新規予約が停止中かを返す（呼び出し時点の観測値）
	Disabled(ctx context.Context) (bool, error)

	// SetDisabled はフラグを更新し、新しい値を返す
	SetDisabled(ctx context.Context, disabled bool) (bool, error)
}
