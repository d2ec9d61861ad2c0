package testutil

import (
	"context"
	"database/sql"
	"sync/atomic"

	"github.com/portops/portsim/internal/db"
)

// FailOnNthExecUoW injects Err on the Nth write inside each unit of work,
// counting from 1. Reads are not counted. A two-task clone issues its
// writes as schedule, task, task, so FailOn 3 breaks the last task insert.
type FailOnNthExecUoW struct {
	DB     *sql.DB
	FailOn int32
	Err    error

	// RolledBack is set once a unit of work has been rolled back.
	RolledBack atomic.Bool
}

func (u *FailOnNthExecUoW) WithinTx(ctx context.Context, fn db.TxFunc) error {
	err := db.RunTx(ctx, u.DB, func(ctx context.Context, tx db.DBTX) error {
		return fn(ctx, &failingWrites{DBTX: tx, failOn: u.FailOn, err: u.Err})
	})
	if err != nil {
		u.RolledBack.Store(true)
	}
	return err
}

// FailOnNthTxUoW fails the Nth unit of work as a whole, counting from 1.
// The body still runs so its writes reach the transaction, then the unit
// rolls back with Err. Every other unit commits normally. A simulation run
// opens one unit to clone and a second to persist, so FailOn 2 reproduces a
// failure after the clone is already durable.
type FailOnNthTxUoW struct {
	DB     *sql.DB
	FailOn int32
	Err    error

	calls atomic.Int32
}

// Calls reports how many units of work were started.
func (u *FailOnNthTxUoW) Calls() int32 { return u.calls.Load() }

func (u *FailOnNthTxUoW) WithinTx(ctx context.Context, fn db.TxFunc) error {
	n := u.calls.Add(1)
	return db.RunTx(ctx, u.DB, func(ctx context.Context, tx db.DBTX) error {
		if err := fn(ctx, tx); err != nil {
			return err
		}
		if n == u.FailOn {
			return u.Err
		}
		return nil
	})
}

type failingWrites struct {
	db.DBTX
	count  atomic.Int32
	failOn int32
	err    error
}

func (f *failingWrites) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if f.count.Add(1) == f.failOn {
		return nil, f.err
	}
	return f.DBTX.ExecContext(ctx, query, args...)
}
