package raft

// Availability は呼び出し側に見せる1ラフト分の空き状況ビュー
type Availability struct {
	RaftID    int `json:"raftId"`
	Available int `json:"available"`
}

// DaySchedule は時間帯ごとの空き状況スナップショット
// 並行コミットに対して古くなり得る参考値であり、正しさはコミットのみが保証する
type DaySchedule map[string][]Availability

// NewDaySchedule は在庫状態一覧からスナップショットを構築する
// ListByDate の並び（時間帯・ラフトID順）を保ったまま時間帯ごとに束ねる
func NewDaySchedule(states []*State) DaySchedule {
	schedule := make(DaySchedule)
	for _, s := range states {
		schedule[s.SlotTime] = append(schedule[s.SlotTime], Availability{
			RaftID:    s.RaftID,
			Available: s.Remaining,
		})
	}
	return schedule
}
