package transaction

import "context"

// Tx は予約の確定とラフト在庫の更新を単一トランザクションに
// まとめるための抽象。ドメイン層はこのインターフェースにのみ依存し、
// 実体（sqlx.Tx）はインフラ層が提供する。
type Tx interface {
	Commit() error
	Rollback() error
}

// Manager はトランザクションの開始点
type Manager interface {
	Begin(ctx context.Context) (Tx, error)
}
