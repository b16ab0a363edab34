package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fishram/Rankly/repositories"
)

// TxRunner выполняет функцию внутри одной транзакции: либо всё
// фиксируется, либо всё откатывается. Сервисы зависят от интерфейса,
// чтобы тесты могли подставить своё исполнение.
type TxRunner interface {
	RunInTx(ctx context.Context, opts *sql.TxOptions, fn func(exec repositories.SQLExecutor) error) error
}

type sqlTxRunner struct {
	db *sql.DB
}

func NewTxRunner(db *sql.DB) TxRunner {
	return &sqlTxRunner{db: db}
}

func (r *sqlTxRunner) RunInTx(ctx context.Context, opts *sql.TxOptions, fn func(exec repositories.SQLExecutor) error) (err error) {
	tx, err := r.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("transaction processing error: %w (rollback also failed: %v)", err, rbErr)
			}
		} else {
			if cErr := tx.Commit(); cErr != nil {
				err = fmt.Errorf("failed to commit transaction: %w", cErr)
			}
		}
	}()

	err = fn(tx)
	return err
}

// EventBroadcaster рассылает события подключённым клиентам (live-обновления
// рейтинга). Реализуется live.Hub; nil допустим — тогда рассылка отключена.
type EventBroadcaster interface {
	Broadcast(eventType string, payload interface{})
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
