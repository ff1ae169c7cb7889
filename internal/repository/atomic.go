package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// Ref stands in for the auto-increment id generated by an earlier statement of the same Atomic unit.
type Ref int

// GuardFunc is called inside the transaction when a guarded statement matched no row.
// The error it returns is handed back to the caller after the rollback.
type GuardFunc func(ctx context.Context, tx *sqlx.Tx) error

type step struct {
	query string
	args  []interface{}
	guard GuardFunc
}

// Atomic accumulates write statements and applies them in one transaction.
// Either every statement commits or none does.
type Atomic struct {
	steps []step
}

func NewAtomic() *Atomic {
	return &Atomic{}
}

// Exec queues a statement. Any Ref among args is replaced by that statement's generated id.
func (a *Atomic) Exec(query string, args ...interface{}) Ref {
	a.steps = append(a.steps, step{query: query, args: args})
	return Ref(len(a.steps) - 1)
}

// ExecGuarded queues a statement that must affect at least one row.
func (a *Atomic) ExecGuarded(guard GuardFunc, query string, args ...interface{}) Ref {
	a.steps = append(a.steps, step{query: query, args: args, guard: guard})
	return Ref(len(a.steps) - 1)
}

func (a *Atomic) Len() int {
	return len(a.steps)
}

// Commit runs the queued statements in order and returns the generated id of each one
// (zero for statements that do not insert).
func (a *Atomic) Commit(ctx context.Context, db *sqlx.DB) ([]int64, error) {
	if len(a.steps) == 0 {
		return nil, nil
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "begin transaction")
	}

	ids := make([]int64, len(a.steps))
	for i, st := range a.steps {
		args, err := resolveRefs(st.args, ids, i)
		if err != nil {
			tx.Rollback()
			return nil, err
		}

		res, err := tx.ExecContext(ctx, st.query, args...)
		if err != nil {
			tx.Rollback()
			return nil, errors.Wrapf(err, "atomic step %d", i)
		}

		if st.guard != nil {
			affected, err := res.RowsAffected()
			if err != nil {
				tx.Rollback()
				return nil, errors.Wrapf(err, "atomic step %d rows affected", i)
			}
			if affected == 0 {
				guardErr := st.guard(ctx, tx)
				tx.Rollback()
				if guardErr == nil {
					guardErr = errors.Errorf("atomic step %d matched no rows", i)
				}
				return nil, guardErr
			}
		}

		if id, err := res.LastInsertId(); err == nil {
			ids[i] = id
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "commit transaction")
	}
	return ids, nil
}

func resolveRefs(args []interface{}, ids []int64, current int) ([]interface{}, error) {
	resolved := make([]interface{}, len(args))
	for i, arg := range args {
		ref, ok := arg.(Ref)
		if !ok {
			resolved[i] = arg
			continue
		}
		if int(ref) < 0 || int(ref) >= current {
			return nil, errors.Errorf("atomic step %d references step %d which has not run yet", current, ref)
		}
		resolved[i] = ids[ref]
	}
	return resolved, nil
}
