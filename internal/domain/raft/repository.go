package raft

import (
	"context"

	"github.com/sanosuguru/go-river-raft-reservation/internal/domain/transaction"
)

// Repository はラフト在庫リポジトリのインターフェース
type Repository interface {
	// EnsureDay は指定日の在庫状態を満席で作成する（冪等、既存行には触れない）
	EnsureDay(ctx context.Context, slotDate string) error

	// ListByDate は指定日の在庫状態一覧を取得する（時間帯・ラフトID順の読み取り専用スナップショット）
	ListByDate(ctx context.Context, slotDate string) ([]*State, error)

	// GetState は指定ラフト・日付の在庫状態を取得する
	GetState(ctx context.Context, raftID int, slotDate string) (*State, error)

	// Commit は述語を満たす場合のみ残席をアトミックに減らし、新しい残席数を返す
	// 条件付き UPDATE 一発で読み取り・判定・減算を不可分に行い、
	// 述語を満たさない場合は状態を変えずに ErrIneligibleCount を返す（トランザクション必須）
	Commit(ctx context.Context, tx transaction.Tx, raftID int, slotDate string, count int) (int, error)
}
