package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-river-raft-reservation/internal/domain/raft"
	"github.com/sanosuguru/go-river-raft-reservation/internal/domain/transaction"
)

const slotDateFormat = "2006-01-02"

type raftStateRow struct {
	RaftID    int       `db:"raft_id"`
	SlotDate  time.Time `db:"slot_date"`
	SlotTime  string    `db:"slot_time"`
	Capacity  int       `db:"capacity"`
	Remaining int       `db:"remaining"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
	Version   int       `db:"version"`
}

func (r *raftStateRow) toEntity() *raft.State {
	return &raft.State{
		RaftID:    r.RaftID,
		SlotDate:  r.SlotDate.Format(slotDateFormat),
		SlotTime:  r.SlotTime,
		Capacity:  r.Capacity,
		Remaining: r.Remaining,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		Version:   r.Version,
	}
}

// RaftRepository はラフト在庫のPostgreSQL実装
type RaftRepository struct{ db *sqlx.DB }

func NewRaftRepository(db *sqlx.DB) *RaftRepository { return &RaftRepository{db: db} }

// EnsureDay は rafts 定義から指定日の在庫状態を満席で作成する
// 既存行には ON CONFLICT DO NOTHING で触れないため、日中の再実行で在庫が補充されることはない
func (r *RaftRepository) EnsureDay(ctx context.Context, slotDate string) error {
	query := `INSERT INTO raft_states (raft_id, slot_date, slot_time, capacity, remaining, created_at, updated_at, version)
		SELECT id, $1::date, slot_time, capacity, capacity, NOW(), NOW(), 0 FROM rafts
		ON CONFLICT (raft_id, slot_date) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, slotDate); err != nil {
		return fmt.Errorf("在庫状態の作成に失敗: %w", err)
	}
	return nil
}

func (r *RaftRepository) ListByDate(ctx context.Context, slotDate string) ([]*raft.State, error) {
	query := `SELECT raft_id, slot_date, slot_time, capacity, remaining, created_at, updated_at, version
		FROM raft_states WHERE slot_date = $1::date ORDER BY slot_time, raft_id`
	var rows []raftStateRow
	if err := r.db.SelectContext(ctx, &rows, query, slotDate); err != nil {
		return nil, fmt.Errorf("在庫状態一覧の取得に失敗: %w", err)
	}
	states := make([]*raft.State, len(rows))
	for i, row := range rows {
		states[i] = row.toEntity()
	}
	return states, nil
}

func (r *RaftRepository) GetState(ctx context.Context, raftID int, slotDate string) (*raft.State, error) {
	query := `SELECT raft_id, slot_date, slot_time, capacity, remaining, created_at, updated_at, version
		FROM raft_states WHERE raft_id = $1 AND slot_date = $2::date`
	var row raftStateRow
	if err := r.db.GetContext(ctx, &row, query, raftID, slotDate); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, raft.ErrStateNotFound
		}
		return nil, fmt.Errorf("在庫状態の取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

// Commit は読み取り・述語判定・減算を条件付きUPDATE一発で不可分に行う
// WHERE 句の条件は raft.CanBook と同じ述語をSQLに写したもので、
// 同一ラフトへの並行コミットは行ロックで直列化され、勝者は高々1つになる
func (r *RaftRepository) Commit(ctx context.Context, tx transaction.Tx, raftID int, slotDate string, count int) (int, error) {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return 0, fmt.Errorf("在庫コミットにはトランザクションが必要です")
	}

	query := `UPDATE raft_states
		SET remaining = remaining - $1, version = version + 1, updated_at = NOW()
		WHERE raft_id = $2 AND slot_date = $3::date
		  AND ((remaining = 1 AND $1 = 1)
		    OR (remaining >= 5 AND $1 IN (5, 6) AND $1 <= remaining))
		RETURNING remaining`

	var remaining int
	err := sqlxTx.QueryRowContext(ctx, query, count, raftID, slotDate).Scan(&remaining)
	if err == nil {
		return remaining, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("在庫コミットに失敗: %w", err)
	}

	// 更新0件は「状態が存在しない」か「述語を満たさない」のどちらか
	var exists bool
	checkErr := sqlxTx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM raft_states WHERE raft_id = $1 AND slot_date = $2::date)`,
		raftID, slotDate).Scan(&exists)
	if checkErr != nil {
		return 0, fmt.Errorf("在庫状態の確認に失敗: %w", checkErr)
	}
	if !exists {
		return 0, raft.ErrStateNotFound
	}
	return 0, raft.ErrIneligibleCount
}

var _ raft.Repository = (*RaftRepository)(nil)
