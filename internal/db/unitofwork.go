package db

import (
	"context"
	"database/sql"
	"fmt"
)

// TxFunc is the body of a transaction. Stores built on tx see its
// uncommitted writes, so a clone's tasks can reference the schedule row
// inserted just before them.
type TxFunc func(ctx context.Context, tx DBTX) error

// UnitOfWork groups store writes. A simulation clone, its persisted
// results, an apply and a dataset import each run as one unit.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn TxFunc) error
}

// SQLiteUnitOfWork runs units of work on the SQLite store.
type SQLiteUnitOfWork struct {
	db TxBeginner
}

func NewSQLiteUnitOfWork(db *sql.DB) *SQLiteUnitOfWork {
	return &SQLiteUnitOfWork{db: db}
}

func (u *SQLiteUnitOfWork) WithinTx(ctx context.Context, fn TxFunc) error {
	return RunTx(ctx, u.db, fn)
}

// RunTx begins a transaction on b, passes it to fn and commits when fn
// returns nil. An error or panic from fn rolls back; a panic is re-raised
// once the rollback is done.
func RunTx(ctx context.Context, b TxBeginner, fn TxFunc) error {
	tx, err := b.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning store transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rolling back store transaction: %v (cause: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing store transaction: %w", err)
	}
	return nil
}
