package raft

import "time"

// デッドフラグメントの境界値
// 残席がこの範囲に入ったラフトはどの人数でも予約できず、翌日のリセットまで塞がる
const (
	deadFragmentMin = 2
	deadFragmentMax = 4
)

// GroupMinPeople はグループラフト予約の最小人数
const GroupMinPeople = 5

// GroupMaxPeople はグループラフト予約の最大人数
const GroupMaxPeople = 6

// Raft はラフトエンティティを表す
// 時間帯ごとの艇団として定義され、定員は作成後に変更されない
type Raft struct {
	ID       int
	SlotTime string // "15:04" 形式
	Capacity int
}

// State はある営業日におけるラフトの在庫状態を表す
// 残席の更新はインベントリリポジトリの Commit のみが行う
type State struct {
	RaftID    int
	SlotDate  string // "2006-01-02" 形式
	SlotTime  string
	Capacity  int
	Remaining int
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int // 楽観的ロック用
}

// NewState は満席状態の新しい在庫状態を作成する
func NewState(raftID int, slotDate, slotTime string, capacity int) *State {
	now := time.Now()
	return &State{
		RaftID:    raftID,
		SlotDate:  slotDate,
		SlotTime:  slotTime,
		Capacity:  capacity,
		Remaining: capacity,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   0,
	}
}

// CanBook は残席数と人数の組み合わせで予約可能かを判定する共有述語
// 事前チェックとコミット時の最終判定の両方が必ずこの述語を使う
// （事前チェックはあくまで参考値であり、正しさはコミット側だけが保証する）
func CanBook(remaining, count int) bool {
	if remaining == 1 && count == 1 {
		return true
	}
	return remaining >= GroupMinPeople &&
		count >= GroupMinPeople && count <= GroupMaxPeople &&
		count <= remaining
}

// IsDeadFragment は残席が 2〜4 となりどの人数でも予約できない状態かを返す
// このフラグメント化は在庫ポリシーの仕様であり、翌日の在庫リセットでのみ解消される
func IsDeadFragment(remaining int) bool {
	return remaining >= deadFragmentMin && remaining <= deadFragmentMax
}

// Book は述語を満たす場合に残席を減らす
func (s *State) Book(count int) error {
	if !CanBook(s.Remaining, count) {
		return ErrIneligibleCount
	}
	s.Remaining -= count
	s.Version++
	s.UpdatedAt = time.Now()
	return nil
}

// IsFull は残席がないかを返す
func (s *State) IsFull() bool {
	return s.Remaining == 0
}

// Validate は在庫状態の検証を行う
func (s *State) Validate() error {
	if s.SlotDate == "" {
		return ErrDateRequired
	}
	if s.SlotTime == "" {
		return ErrTimeRequired
	}
	if s.Capacity <= 0 {
		return ErrInvalidCapacity
	}
	if s.Remaining < 0 || s.Remaining > s.Capacity {
		return ErrRemainingOutOfRange
	}
	return nil
}
