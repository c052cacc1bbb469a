package raft

import "errors"

// Raft ドメインのエラー定義
var (
	ErrStateNotFound       = errors.New("ラフトの在庫状態が見つかりません")
	ErrSlotMismatch        = errors.New("ラフトは選択した時間帯に属していません")
	ErrInvalidDate         = errors.New("日付の形式が正しくありません")
	ErrIneligibleCount     = errors.New("この人数ではこのラフトを予約できません")
	ErrInvalidCapacity     = errors.New("定員は1以上である必要があります")
	ErrDateRequired        = errors.New("日付は必須です")
	ErrTimeRequired        = errors.New("時間帯は必須です")
	ErrRemainingOutOfRange = errors.New("残席数が定員の範囲外です")
)
